package classification

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, store *memStore, cls Classifier, batchSize int) *Scheduler {
	t.Helper()

	executor := startExecutor(t, store, cls, ExecutorConfig{Workers: 4, QueueSize: batchSize})
	return NewScheduler(store, executor, SchedulerConfig{
		Interval:  time.Hour, // ticks driven manually
		BatchSize: batchSize,
	})
}

func TestTickClaimsAtMostBatchSizeOldestFirst(t *testing.T) {
	store := newMemStore()
	base := time.Now()
	for i := 0; i < 15; i++ {
		store.addPending(int64(i+1), base.Add(time.Duration(i)*time.Second), []byte("png"))
	}

	cls := &fakeClassifier{classifyFunc: func(context.Context, []byte) ([]Result, error) {
		return nil, nil
	}}
	scheduler := newTestScheduler(t, store, cls, 10)

	scheduler.tick(context.Background())

	require.Eventually(t, func() bool {
		return store.statusCount(JobStatusCompleted) == 10
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 5, store.statusCount(JobStatusPending))

	// the survivors are the five newest
	for id := int64(11); id <= 15; id++ {
		assert.Equal(t, JobStatusPending, store.jobByID(id).Status)
	}
}

func TestTickAbandonedOnClaimError(t *testing.T) {
	store := newMemStore()
	store.addPending(1, time.Now(), []byte("png"))
	store.claimErr = errors.New("connection reset")

	cls := &fakeClassifier{}
	scheduler := newTestScheduler(t, store, cls, 10)

	scheduler.tick(context.Background())
	assert.Equal(t, 1, store.statusCount(JobStatusPending))

	// next tick is independent of the failed one
	store.mu.Lock()
	store.claimErr = nil
	store.mu.Unlock()

	scheduler.tick(context.Background())
	require.Eventually(t, func() bool {
		return store.statusCount(JobStatusCompleted) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTerminalJobsNeverReclaimed(t *testing.T) {
	store := newMemStore()
	store.addPending(1, time.Now(), []byte("png"))

	var calls atomic.Int32
	cls := &fakeClassifier{classifyFunc: func(context.Context, []byte) ([]Result, error) {
		calls.Add(1)
		return nil, nil
	}}
	scheduler := newTestScheduler(t, store, cls, 10)

	scheduler.tick(context.Background())
	require.Eventually(t, func() bool {
		return store.statusCount(JobStatusCompleted) == 1
	}, 2*time.Second, 5*time.Millisecond)

	scheduler.tick(context.Background())
	scheduler.tick(context.Background())
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, store.statusCount(JobStatusCompleted))
}

func TestClaimMarksRunningWithStartedAt(t *testing.T) {
	store := newMemStore()
	job := store.addPending(1, time.Now(), []byte("png"))

	claimed, err := store.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	assert.Equal(t, JobStatusRunning, claimed[0].Job.Status)
	assert.NotNil(t, claimed[0].Job.StartedAt)
	assert.Equal(t, JobStatusRunning, store.jobByID(job.ID).Status)

	// a second claim sees nothing
	again, err := store.ClaimPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

// Two jobs from one tick finish independently: one call failure, one
// success with a single label.
func TestTickIndependentOutcomes(t *testing.T) {
	store := newMemStore()
	base := time.Now()
	jobA := store.addPending(1, base, []byte("image-a"))
	jobB := store.addPending(2, base.Add(time.Second), []byte("image-b"))

	cls := &fakeClassifier{classifyFunc: func(_ context.Context, image []byte) ([]Result, error) {
		if string(image) == "image-a" {
			return nil, errors.New("boom")
		}
		return []Result{{Type: "glass", Confidence: confidence(0.95)}}, nil
	}}
	scheduler := newTestScheduler(t, store, cls, 10)

	scheduler.tick(context.Background())

	require.Eventually(t, func() bool {
		a := store.jobByID(jobA.ID).Status
		b := store.jobByID(jobB.ID).Status
		return a == JobStatusFailed && b == JobStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, store.labelCount(jobA.ID))
	assert.Equal(t, 1, store.labelCount(jobB.ID))

	labels, err := store.LabelsByReport(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "glass", labels[0].Name)
}

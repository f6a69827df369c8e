package classification

import (
	"context"
	"errors"
	"sync"
	"time"

	"afvalalert/src/log"
)

// ErrImageMissing marks a claimed job whose backing image disappeared
// between upload and claim, e.g. because a retention sweep removed the
// draft report underneath it.
var ErrImageMissing = errors.New("image data missing for claimed job")

// ExecutorConfig bounds the worker pool.
type ExecutorConfig struct {
	// Workers is the number of concurrent job processors
	Workers int
	// QueueSize is the capacity of the work queue between dispatcher and workers
	QueueSize int
	// FailOnLabelError marks a job failed when the external call succeeded
	// but persisting its labels did not. When false the job completes and
	// the error is only logged.
	FailOnLabelError bool
}

type work struct {
	job       Job
	imageData []byte
}

// Executor runs claimed jobs on a fixed set of worker goroutines. One
// job's failure never propagates to sibling jobs or to the dispatcher.
type Executor struct {
	store      Store
	classifier Classifier
	reconciler *Reconciler
	config     ExecutorConfig

	queue chan work
	wg    sync.WaitGroup
}

func NewExecutor(store Store, classifier Classifier, reconciler *Reconciler, config ExecutorConfig) *Executor {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 2 * config.Workers
	}

	return &Executor{
		store:      store,
		classifier: classifier,
		reconciler: reconciler,
		config:     config,
		queue:      make(chan work, config.QueueSize),
	}
}

// Start launches the worker goroutines. They run until ctx is cancelled.
func (e *Executor) Start(ctx context.Context) {
	for i := 0; i < e.config.Workers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case w := <-e.queue:
					e.process(ctx, w.job, w.imageData)
				}
			}
		}()
	}
}

// Wait blocks until all workers have stopped.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// Submit hands a claimed job to the pool. It blocks only while the work
// queue is full; it never waits for the job to complete.
func (e *Executor) Submit(ctx context.Context, job Job, imageData []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case e.queue <- work{job: job, imageData: imageData}:
		return nil
	}
}

func (e *Executor) process(ctx context.Context, job Job, imageData []byte) {
	if len(imageData) == 0 {
		e.fail(ctx, &job, ErrImageMissing)
		return
	}

	results, err := e.classifier.Classify(ctx, imageData)
	if err != nil {
		e.fail(ctx, &job, err)
		return
	}

	if err := e.reconciler.Reconcile(ctx, job.ID, results); err != nil {
		if e.config.FailOnLabelError {
			e.fail(ctx, &job, err)
			return
		}
		log.Error(err, "Label persistence failed, completing job anyway", "job_id", job.ID)
	}

	now := time.Now()
	job.Status = JobStatusCompleted
	job.ClassifiedAt = &now
	if err := e.store.Save(ctx, &job); err != nil {
		log.Error(err, "Failed to mark job completed", "job_id", job.ID)
		return
	}

	log.Info("Classification job completed", "job_id", job.ID, "report_id", job.ReportID, "labels", len(results))
}

func (e *Executor) fail(ctx context.Context, job *Job, cause error) {
	log.Error(cause, "Classification job failed", "job_id", job.ID, "report_id", job.ReportID)

	msg := cause.Error()
	job.Status = JobStatusFailed
	job.Error = &msg
	if err := e.store.Save(ctx, job); err != nil {
		log.Error(err, "Failed to mark job failed", "job_id", job.ID)
	}
}

package classification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store used by the pipeline tests. It mirrors
// the claim semantics of the postgres store: only pending jobs are
// claimable, a claim marks them running and snapshots the image bytes.
type memStore struct {
	mu         sync.Mutex
	jobs       map[int64]*Job
	labels     []Label
	wasteTypes map[string]*WasteType
	images     map[int64][]byte
	nextID     int64

	claimErr error
	labelErr error
}

func newMemStore() *memStore {
	return &memStore{
		jobs:       make(map[int64]*Job),
		wasteTypes: make(map[string]*WasteType),
		images:     make(map[int64][]byte),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addPending(reportID int64, createdAt time.Time, image []byte) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &Job{
		ID:        m.id(),
		ReportID:  reportID,
		Status:    JobStatusPending,
		CreatedAt: createdAt,
	}
	m.jobs[job.ID] = job
	if image != nil {
		m.images[reportID] = image
	}
	return job
}

func (m *memStore) CreateJob(_ context.Context, reportID int64) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &Job{
		ID:        m.id(),
		ReportID:  reportID,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
	}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *memStore) ClaimPending(_ context.Context, limit int) ([]ClaimedJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.claimErr != nil {
		return nil, m.claimErr
	}

	var pending []*Job
	for _, job := range m.jobs {
		if job.Status == JobStatusPending {
			pending = append(pending, job)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}

	claimed := make([]ClaimedJob, 0, len(pending))
	for _, job := range pending {
		now := time.Now()
		job.Status = JobStatusRunning
		job.StartedAt = &now
		claimed = append(claimed, ClaimedJob{
			Job:       *job,
			ImageData: m.images[job.ReportID],
		})
	}
	return claimed, nil
}

func (m *memStore) Save(_ context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.jobs[job.ID]
	if !ok {
		return errors.New("job not found")
	}
	stored.Status = job.Status
	stored.Error = job.Error
	stored.ClassifiedAt = job.ClassifiedAt
	return nil
}

func (m *memStore) CreateLabel(_ context.Context, label *Label) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.labelErr != nil {
		return m.labelErr
	}
	label.ID = m.id()
	label.CreatedAt = time.Now()
	m.labels = append(m.labels, *label)
	return nil
}

func (m *memStore) FindWasteTypeByName(_ context.Context, name string) (*WasteType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if wt, ok := m.wasteTypes[name]; ok {
		copied := *wt
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) CreateWasteType(_ context.Context, name string) (*WasteType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if wt, ok := m.wasteTypes[name]; ok {
		copied := *wt
		return &copied, nil
	}
	wt := &WasteType{ID: m.id(), Name: name, CreatedAt: time.Now()}
	m.wasteTypes[name] = wt
	copied := *wt
	return &copied, nil
}

func (m *memStore) JobByReport(_ context.Context, reportID int64) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *Job
	for _, job := range m.jobs {
		if job.ReportID != reportID {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (m *memStore) LabelsByReport(_ context.Context, reportID int64) ([]ReportLabel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ReportLabel
	for _, label := range m.labels {
		job, ok := m.jobs[label.JobID]
		if !ok || job.ReportID != reportID || job.Status != JobStatusCompleted {
			continue
		}
		for _, wt := range m.wasteTypes {
			if wt.ID == label.WasteTypeID {
				out = append(out, ReportLabel{Name: wt.Name, Confidence: label.Confidence})
			}
		}
	}
	return out, nil
}

func (m *memStore) jobByID(id int64) Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.jobs[id]
}

func (m *memStore) labelCount(jobID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, label := range m.labels {
		if label.JobID == jobID {
			count++
		}
	}
	return count
}

func (m *memStore) statusCount(status JobStatus) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, job := range m.jobs {
		if job.Status == status {
			count++
		}
	}
	return count
}

// fakeClassifier lets each test choose the classifier behavior per image.
type fakeClassifier struct {
	classifyFunc func(ctx context.Context, image []byte) ([]Result, error)
}

func (f *fakeClassifier) Classify(ctx context.Context, image []byte) ([]Result, error) {
	if f.classifyFunc != nil {
		return f.classifyFunc(ctx, image)
	}
	return nil, nil
}

func confidence(v float64) *float64 {
	return &v
}

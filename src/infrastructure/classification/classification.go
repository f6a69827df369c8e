package classification

import (
	"context"
	"time"
)

// JobStatus defines the status of a classification job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job represents one attempt to classify a report's image
type Job struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	ReportID     int64      `gorm:"not null;index" json:"report_id"`
	Status       JobStatus  `gorm:"not null;index;default:pending" json:"status"`
	Error        *string    `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	ClassifiedAt *time.Time `json:"classified_at,omitempty"`

	Labels []Label `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"labels,omitempty"`
}

func (Job) TableName() string {
	return "classification_jobs"
}

// Label is one (waste type, confidence) result attached to a job.
// Labels are written once by the reconciler and never updated.
type Label struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	JobID       int64     `gorm:"not null;index" json:"job_id"`
	WasteTypeID int64     `gorm:"not null" json:"waste_type_id"`
	Confidence  *float64  `json:"confidence,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Label) TableName() string {
	return "classification_labels"
}

// WasteType is a canonical waste category, created lazily the first time
// the classifier returns a previously unseen type name.
type WasteType struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (WasteType) TableName() string {
	return "waste_types"
}

// ClaimedJob is a job claimed for processing together with the image bytes
// snapshotted in the same store operation.
type ClaimedJob struct {
	Job       Job
	ImageData []byte
}

// ReportLabel is a resolved label as exposed to read paths.
type ReportLabel struct {
	Name       string   `json:"name"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Store defines the persistence operations used by the pipeline
type Store interface {
	// CreateJob opens a new pending job for the given report
	CreateJob(ctx context.Context, reportID int64) (*Job, error)
	// ClaimPending atomically moves up to limit pending jobs to running,
	// oldest first, and returns them with their image bytes. Jobs returned
	// here are owned by the caller; no other claimer will see them.
	ClaimPending(ctx context.Context, limit int) ([]ClaimedJob, error)
	// Save persists status, error and classified_at of a claimed job
	Save(ctx context.Context, job *Job) error
	CreateLabel(ctx context.Context, label *Label) error
	// FindWasteTypeByName returns nil when no such type exists
	FindWasteTypeByName(ctx context.Context, name string) (*WasteType, error)
	// CreateWasteType inserts the name if absent and returns the row either way
	CreateWasteType(ctx context.Context, name string) (*WasteType, error)
	// JobByReport returns the most recent job for a report, nil when none exists
	JobByReport(ctx context.Context, reportID int64) (*Job, error)
	// LabelsByReport returns the resolved labels of the report's completed jobs
	LabelsByReport(ctx context.Context, reportID int64) ([]ReportLabel, error)
}

// Result is a single entry of the classifier response
type Result struct {
	Type       string   `json:"type"`
	Confidence *float64 `json:"confidence"`
}

// Classifier wraps the external image classification service
type Classifier interface {
	Classify(ctx context.Context, image []byte) ([]Result, error)
}

package classification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresStore struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &PostgresStore{db: db, snowflake: node}, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, reportID int64) (*Job, error) {
	job := &Job{
		ID:       s.snowflake.Generate().Int64(),
		ReportID: reportID,
		Status:   JobStatusPending,
	}

	result := s.db.WithContext(ctx).Create(job)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create classification job: %v", result.Error)
	}

	return job, nil
}

// claimedRow is the scan target of the claim query
type claimedRow struct {
	ID        int64
	ReportID  int64
	CreatedAt time.Time
	StartedAt *time.Time
	ImageData []byte
}

// ClaimPending moves up to limit pending jobs to running in a single
// statement and returns them joined with their image bytes. SKIP LOCKED
// keeps concurrent claimers from ever returning the same job, and the
// image join happens in the same statement so the bytes the worker sees
// are the bytes that existed at claim time.
func (s *PostgresStore) ClaimPending(ctx context.Context, limit int) ([]ClaimedJob, error) {
	const query = `
WITH picked AS (
	SELECT id FROM classification_jobs
	WHERE status = 'pending'
	ORDER BY created_at ASC
	LIMIT ?
	FOR UPDATE SKIP LOCKED
), claimed AS (
	UPDATE classification_jobs j
	SET status = 'running', started_at = NOW()
	FROM picked p
	WHERE j.id = p.id
	RETURNING j.id, j.report_id, j.created_at, j.started_at
)
SELECT c.id, c.report_id, c.created_at, c.started_at, COALESCE(i.data, ''::bytea) AS image_data
FROM claimed c
LEFT JOIN reports r ON r.id = c.report_id
LEFT JOIN images i ON i.id = r.image_id
ORDER BY c.created_at ASC`

	var rows []claimedRow
	result := s.db.WithContext(ctx).Raw(query, limit).Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to claim pending jobs: %v", result.Error)
	}

	claimed := make([]ClaimedJob, 0, len(rows))
	for _, row := range rows {
		claimed = append(claimed, ClaimedJob{
			Job: Job{
				ID:        row.ID,
				ReportID:  row.ReportID,
				Status:    JobStatusRunning,
				CreatedAt: row.CreatedAt,
				StartedAt: row.StartedAt,
			},
			ImageData: row.ImageData,
		})
	}

	return claimed, nil
}

func (s *PostgresStore) Save(ctx context.Context, job *Job) error {
	result := s.db.WithContext(ctx).Model(&Job{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"status":        job.Status,
		"error":         job.Error,
		"classified_at": job.ClassifiedAt,
	})

	if result.Error != nil {
		return fmt.Errorf("failed to save job: %v", result.Error)
	}

	if result.RowsAffected == 0 {
		return errors.New("job not found")
	}

	return nil
}

func (s *PostgresStore) CreateLabel(ctx context.Context, label *Label) error {
	if label.ID == 0 {
		label.ID = s.snowflake.Generate().Int64()
	}

	result := s.db.WithContext(ctx).Create(label)
	if result.Error != nil {
		return fmt.Errorf("failed to create label: %v", result.Error)
	}

	return nil
}

func (s *PostgresStore) FindWasteTypeByName(ctx context.Context, name string) (*WasteType, error) {
	var wasteType WasteType
	result := s.db.WithContext(ctx).Where("name = ?", name).First(&wasteType)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find waste type: %v", result.Error)
	}

	return &wasteType, nil
}

// CreateWasteType inserts with ON CONFLICT DO NOTHING and re-reads, so two
// reconcilers racing on the same new name both end up with the single row.
func (s *PostgresStore) CreateWasteType(ctx context.Context, name string) (*WasteType, error) {
	wasteType := &WasteType{
		ID:   s.snowflake.Generate().Int64(),
		Name: name,
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(wasteType)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create waste type: %v", result.Error)
	}

	if result.RowsAffected == 0 {
		// lost the race, read the winner
		return s.FindWasteTypeByName(ctx, name)
	}

	return wasteType, nil
}

func (s *PostgresStore) JobByReport(ctx context.Context, reportID int64) (*Job, error) {
	var job Job
	result := s.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at DESC").
		First(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job for report: %v", result.Error)
	}

	return &job, nil
}

func (s *PostgresStore) LabelsByReport(ctx context.Context, reportID int64) ([]ReportLabel, error) {
	var labels []ReportLabel
	result := s.db.WithContext(ctx).
		Table("classification_labels").
		Select("waste_types.name AS name, classification_labels.confidence AS confidence").
		Joins("JOIN waste_types ON waste_types.id = classification_labels.waste_type_id").
		Joins("JOIN classification_jobs ON classification_jobs.id = classification_labels.job_id").
		Where("classification_jobs.report_id = ? AND classification_jobs.status = ?", reportID, JobStatusCompleted).
		Order("classification_labels.created_at ASC").
		Scan(&labels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list labels for report: %v", result.Error)
	}

	return labels, nil
}

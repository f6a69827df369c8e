package reportctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Report workflow statuses as shown to staff.
const (
	StatusNew        = "NEW"
	StatusInProgress = "IN_PROGRESS"
	StatusResolved   = "RESOLVED"
	StatusRejected   = "REJECTED"
)

// Statuses returns the workflow status values in display order.
func Statuses() []string {
	return []string{StatusNew, StatusInProgress, StatusResolved, StatusRejected}
}

// ValidStatus reports whether s is a known workflow status.
func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Image holds the uploaded photo bytes. Bytes live in the database so the
// classification claim can snapshot them in the same read as job selection.
type Image struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Data      []byte    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (Image) TableName() string {
	return "images"
}

// Report is a citizen-submitted litter report. It starts as a draft when
// the image is uploaded and becomes visible to staff once finalized.
type Report struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Comment   string    `gorm:"size:500" json:"comment,omitempty"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Status    string    `gorm:"not null;default:NEW" json:"status"`
	Finalized bool      `gorm:"not null;default:false" json:"finalized"`
	ImageID   int64     `gorm:"not null" json:"image_id"`
	CreatedAt time.Time `json:"created_at"`

	Notes []Note `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"notes,omitempty"`
}

func (Report) TableName() string {
	return "reports"
}

// Note is a staff annotation on a report.
type Note struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ReportID  int64     `gorm:"not null;index" json:"report_id"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (Note) TableName() string {
	return "notes"
}

// FinalizeInput carries the fields a citizen fills in when submitting a draft.
type FinalizeInput struct {
	Latitude  float64
	Longitude float64
	Comment   string
	Email     string
	Name      string
}

type ReportService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewReportService(db *gorm.DB) (*ReportService, error) {
	node, err := snowflake.NewNode(2)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &ReportService{db: db, snowflake: node}, nil
}

// CreateDraft stores the image and opens a non-finalized report for it.
func (s *ReportService) CreateDraft(ctx context.Context, imageData []byte) (*Report, error) {
	image := &Image{
		ID:   s.snowflake.Generate().Int64(),
		Data: imageData,
	}

	report := &Report{
		ID:      s.snowflake.Generate().Int64(),
		Status:  StatusNew,
		ImageID: image.ID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(image).Error; err != nil {
			return err
		}
		return tx.Create(report).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create draft report: %v", err)
	}

	return report, nil
}

func (s *ReportService) GetByID(ctx context.Context, id int64) (*Report, error) {
	var report Report
	result := s.db.WithContext(ctx).Preload("Notes").First(&report, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %v", result.Error)
	}

	return &report, nil
}

// ListFinalized returns submitted reports, newest first.
func (s *ReportService) ListFinalized(ctx context.Context, limit int, offset int) ([]Report, error) {
	var reports []Report

	result := s.db.WithContext(ctx).
		Where("finalized = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reports)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list reports: %v", result.Error)
	}

	return reports, nil
}

// Finalize fills in the citizen-provided fields and marks the draft
// submitted so the retention sweep leaves it alone.
func (s *ReportService) Finalize(ctx context.Context, id int64, input FinalizeInput) error {
	result := s.db.WithContext(ctx).Model(&Report{}).Where("id = ?", id).Updates(map[string]interface{}{
		"latitude":  input.Latitude,
		"longitude": input.Longitude,
		"comment":   input.Comment,
		"email":     input.Email,
		"name":      input.Name,
		"finalized": true,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to finalize report: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (s *ReportService) UpdateStatus(ctx context.Context, id int64, status string) error {
	result := s.db.WithContext(ctx).Model(&Report{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update report status: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (s *ReportService) AddNote(ctx context.Context, reportID int64, content string) (*Note, error) {
	report, err := s.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, gorm.ErrRecordNotFound
	}

	note := &Note{
		ID:       s.snowflake.Generate().Int64(),
		ReportID: reportID,
		Content:  content,
	}

	result := s.db.WithContext(ctx).Create(note)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create note: %v", result.Error)
	}

	return note, nil
}

func (s *ReportService) ListNotes(ctx context.Context, reportID int64) ([]Note, error) {
	var notes []Note
	result := s.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at ASC").
		Find(&notes)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list notes: %v", result.Error)
	}

	return notes, nil
}

func (s *ReportService) GetImage(ctx context.Context, id int64) (*Image, error) {
	var image Image
	result := s.db.WithContext(ctx).First(&image, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get image: %v", result.Error)
	}

	return &image, nil
}

// DeleteStaleDrafts removes non-finalized reports created before cutoff,
// together with their images, jobs, labels and notes. Returns the number
// of reports removed.
func (s *ReportService) DeleteStaleDrafts(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []Report
		if err := tx.Select("id", "image_id").
			Where("finalized = ? AND created_at < ?", false, cutoff).
			Find(&stale).Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}

		reportIDs := make([]int64, 0, len(stale))
		imageIDs := make([]int64, 0, len(stale))
		for _, r := range stale {
			reportIDs = append(reportIDs, r.ID)
			imageIDs = append(imageIDs, r.ImageID)
		}

		if err := tx.Exec(`DELETE FROM classification_labels
			WHERE job_id IN (SELECT id FROM classification_jobs WHERE report_id IN ?)`, reportIDs).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM classification_jobs WHERE report_id IN ?`, reportIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id IN ?", reportIDs).Delete(&Note{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", reportIDs).Delete(&Report{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected

		return tx.Where("id IN ?", imageIDs).Delete(&Image{}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale drafts: %v", err)
	}

	return removed, nil
}

// DeleteOrphanImages removes images older than cutoff that no report
// references anymore.
func (s *ReportService) DeleteOrphanImages(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Exec(`DELETE FROM images
		WHERE created_at < ? AND id NOT IN (SELECT image_id FROM reports)`, cutoff)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete orphan images: %v", result.Error)
	}

	return result.RowsAffected, nil
}

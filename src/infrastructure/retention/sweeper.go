package retention

import (
	"context"
	"time"

	"afvalalert/src/log"
)

// Store exposes the deletion operations the sweeper drives.
type Store interface {
	DeleteStaleDrafts(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOrphanImages(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config controls the sweep cadence and the draft retention window.
type Config struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// Sweeper periodically deletes stale non-finalized drafts and orphaned
// images. Each sweep is independent; a failed sweep is only logged.
type Sweeper struct {
	store  Store
	config Config
}

func NewSweeper(store Store, config Config) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = 10 * time.Minute
	}
	if config.MaxAge <= 0 {
		config.MaxAge = time.Hour
	}

	return &Sweeper{store: store, config: config}
}

// Run sweeps until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	log.Info("Retention sweeper started",
		"interval", s.config.Interval.String(), "max_age", s.config.MaxAge.String())

	for {
		select {
		case <-ctx.Done():
			log.Info("Retention sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over drafts and orphaned images.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.config.MaxAge)

	drafts, err := s.store.DeleteStaleDrafts(ctx, cutoff)
	if err != nil {
		log.Error(err, "Failed to delete stale drafts")
	} else if drafts > 0 {
		log.Info("Deleted stale draft reports", "count", drafts)
	}

	images, err := s.store.DeleteOrphanImages(ctx, cutoff)
	if err != nil {
		log.Error(err, "Failed to delete orphan images")
	} else if images > 0 {
		log.Info("Deleted orphan images", "count", images)
	}
}

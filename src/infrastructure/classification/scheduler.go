package classification

import (
	"context"
	"time"

	"afvalalert/src/log"
)

// SchedulerConfig controls the polling loop.
type SchedulerConfig struct {
	// Interval between ticks
	Interval time.Duration
	// BatchSize is the maximum number of jobs claimed per tick
	BatchSize int
}

// Scheduler claims pending jobs on a fixed interval and hands each to the
// executor without awaiting its outcome. Every tick is independent: a
// failed claim only skips the current tick.
type Scheduler struct {
	store    Store
	executor *Executor
	config   SchedulerConfig
}

func NewScheduler(store Store, executor *Executor, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}

	return &Scheduler{
		store:    store,
		executor: executor,
		config:   config,
	}
}

// Run polls until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	log.Info("Classification scheduler started",
		"interval", s.config.Interval.String(), "batch_size", s.config.BatchSize)

	for {
		select {
		case <-ctx.Done():
			log.Info("Classification scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick claims one batch and dispatches it. Claimed jobs are already marked
// running with started_at set, so a crash between claim and completion
// leaves an inspectable row rather than silently requeueing work.
func (s *Scheduler) tick(ctx context.Context) {
	claimed, err := s.store.ClaimPending(ctx, s.config.BatchSize)
	if err != nil {
		log.Error(err, "Failed to claim pending classification jobs, skipping tick")
		return
	}

	if len(claimed) == 0 {
		return
	}

	log.Info("Dispatching classification jobs", "count", len(claimed))

	for _, c := range claimed {
		if err := s.executor.Submit(ctx, c.Job, c.ImageData); err != nil {
			// only happens on shutdown; the job stays running and is
			// visible to an operator
			log.Error(err, "Failed to submit claimed job", "job_id", c.Job.ID)
			return
		}
	}
}

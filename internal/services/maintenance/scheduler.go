package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	badgerstore "github.com/ternarybob/venator/internal/storage/badger"
)

const gcDiscardRatio = 0.5

// Scheduler runs background housekeeping: Badger value log garbage
// collection and a sweep that fails processing jobs left idle after a
// crash or unclean shutdown.
type Scheduler struct {
	config     *common.Config
	db         *badgerstore.BadgerDB
	jobStorage interfaces.JobStorage
	logger     arbor.ILogger
	cron       *cron.Cron
}

func NewScheduler(config *common.Config, db *badgerstore.BadgerDB, jobStorage interfaces.JobStorage, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		config:     config,
		db:         db,
		jobStorage: jobStorage,
		logger:     logger,
		cron:       cron.New(),
	}
}

// Start registers the cron jobs and begins the schedule
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.config.Storage.Badger.GCSchedule, s.runValueLogGC); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.config.Crawler.SweepSchedule, s.sweepStaleJobs); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("gc_schedule", s.config.Storage.Badger.GCSchedule).
		Str("sweep_schedule", s.config.Crawler.SweepSchedule).
		Msg("Maintenance scheduler started")
	return nil
}

// Stop halts the schedule and waits for running tasks to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Maintenance scheduler stopped")
}

// runValueLogGC repeats GC passes until Badger reports nothing left to
// rewrite
func (s *Scheduler) runValueLogGC() {
	passes := 0
	for {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if err == nil {
			passes++
			continue
		}
		if !badgerstore.IsNoRewrite(err) {
			s.logger.Warn().Err(err).Msg("Value log GC failed")
		}
		break
	}
	if passes > 0 {
		s.logger.Debug().Int("passes", passes).Msg("Value log GC completed")
	}
}

// sweepStaleJobs fails processing jobs whose last activity is older than
// the configured timeout. These are jobs orphaned by a previous process.
func (s *Scheduler) sweepStaleJobs() {
	ctx := context.Background()

	jobs, err := s.jobStorage.ListByStatus(ctx, models.JobStatusProcessing)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Stale job sweep could not list jobs")
		return
	}

	cutoff := time.Now().Add(-s.config.Crawler.StaleJobTimeout.Std())
	for _, job := range jobs {
		if job.LastActivity.After(cutoff) {
			continue
		}
		// Jobs started before any activity use StartedAt as the baseline
		if job.LastActivity.IsZero() && job.StartedAt != nil && job.StartedAt.After(cutoff) {
			continue
		}

		now := time.Now()
		job.Status = models.JobStatusFailed
		job.Error = "job abandoned: no activity within stale timeout"
		job.UpdatedAt = now
		job.CompletedAt = &now

		if err := s.jobStorage.SaveJob(ctx, job); err != nil {
			s.logger.Warn().Str("job_id", job.ID).Err(err).Msg("Failed to mark stale job")
			continue
		}
		s.logger.Warn().
			Str("job_id", job.ID).
			Str("last_activity", job.LastActivity.Format(time.RFC3339)).
			Msg("Stale job marked failed")
	}
}

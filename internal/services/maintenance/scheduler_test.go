package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	badgerstore "github.com/ternarybob/venator/internal/storage/badger"
)

func setupScheduler(t *testing.T) (*Scheduler, interfaces.JobStorage) {
	config := common.NewDefaultConfig()
	config.Storage.Badger.Path = t.TempDir() + "/badger"
	config.Crawler.StaleJobTimeout = common.Duration(10 * time.Minute)

	logger := arbor.NewLogger()
	db, err := badgerstore.NewBadgerDB(logger, &config.Storage.Badger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	jobStorage := badgerstore.NewJobStorage(db, logger)
	return NewScheduler(config, db, jobStorage, logger), jobStorage
}

func processingJob(id string, lastActivity time.Time) *models.CrawlJob {
	now := time.Now()
	started := now.Add(-time.Hour)
	return &models.CrawlJob{
		ID:           id,
		SeedURL:      "https://example.org/",
		Status:       models.JobStatusProcessing,
		CreatedAt:    started,
		UpdatedAt:    now,
		StartedAt:    &started,
		LastActivity: lastActivity,
	}
}

func TestSweepStaleJobs_FailsIdleJob(t *testing.T) {
	s, jobStorage := setupScheduler(t)
	ctx := context.Background()

	stale := processingJob("job_stale", time.Now().Add(-time.Hour))
	require.NoError(t, jobStorage.SaveJob(ctx, stale))

	s.sweepStaleJobs()

	got, err := jobStorage.GetJob(ctx, "job_stale")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.NotEmpty(t, got.Error)
	assert.NotNil(t, got.CompletedAt)
}

func TestSweepStaleJobs_KeepsActiveJob(t *testing.T) {
	s, jobStorage := setupScheduler(t)
	ctx := context.Background()

	active := processingJob("job_active", time.Now().Add(-time.Minute))
	require.NoError(t, jobStorage.SaveJob(ctx, active))

	s.sweepStaleJobs()

	got, err := jobStorage.GetJob(ctx, "job_active")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, got.Status)
}

func TestSweepStaleJobs_KeepsFreshlyStartedJob(t *testing.T) {
	s, jobStorage := setupScheduler(t)
	ctx := context.Background()

	// No activity recorded yet, but the job only just started
	fresh := processingJob("job_fresh", time.Time{})
	started := time.Now().Add(-time.Minute)
	fresh.StartedAt = &started
	require.NoError(t, jobStorage.SaveJob(ctx, fresh))

	s.sweepStaleJobs()

	got, err := jobStorage.GetJob(ctx, "job_fresh")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, got.Status)
}

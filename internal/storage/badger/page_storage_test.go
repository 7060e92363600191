package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/models"
)

func testPage(url, jobID string, scraped time.Time) *models.PageRecord {
	return &models.PageRecord{
		URL:          url,
		SourceURL:    "https://acme.com/sitemap",
		Domain:       "acme.com",
		JobID:        jobID,
		Title:        "Acme Consulting Services",
		ContentType:  models.ContentTypeBusiness,
		QualityScore: 72,
		ScrapeCount:  1,
		FirstScraped: scraped,
		LastScraped:  scraped,
	}
}

func testEmail(pageURL, address, jobID string, created time.Time) *models.EmailRecord {
	return &models.EmailRecord{
		ID:        models.EmailKey(pageURL, address),
		PageURL:   pageURL,
		Domain:    "acme.com",
		JobID:     jobID,
		Address:   address,
		Source:    models.EmailSourceMailto,
		Type:      models.EmailTypeBusiness,
		Quality:   90,
		CreatedAt: created,
	}
}

func TestPageStorage_UpsertCreates(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewPageStorage(db, arbor.NewLogger())
	ctx := context.Background()
	now := time.Now()

	page := testPage("https://acme.com/", "job_1", now)
	emails := []*models.EmailRecord{
		testEmail("https://acme.com/", "info@acme.com", "job_1", now),
		testEmail("https://acme.com/", "sales@acme.com", "job_1", now),
	}

	created, newEmails, err := storage.UpsertPage(ctx, page, emails)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, newEmails)

	got, err := storage.GetPage(ctx, "https://acme.com/")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ScrapeCount)
	assert.Equal(t, "Acme Consulting Services", got.Title)
	assert.Equal(t, "https://acme.com/sitemap", got.SourceURL)
}

func TestPageStorage_UpsertRefreshesExisting(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewPageStorage(db, arbor.NewLogger())
	ctx := context.Background()
	first := time.Now().Add(-24 * time.Hour)

	page := testPage("https://acme.com/", "job_1", first)
	email := testEmail("https://acme.com/", "info@acme.com", "job_1", first)
	_, _, err := storage.UpsertPage(ctx, page, []*models.EmailRecord{email})
	require.NoError(t, err)

	// Re-crawl: same page URL, one old email and one new one
	later := time.Now()
	recrawl := testPage("https://acme.com/", "job_2", later)
	recrawl.Title = "Acme Consulting Services - Updated"
	created, newEmails, err := storage.UpsertPage(ctx, recrawl, []*models.EmailRecord{
		testEmail("https://acme.com/", "info@acme.com", "job_2", later),
		testEmail("https://acme.com/", "hr@acme.com", "job_2", later),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, newEmails, "existing email must not count as new")

	got, err := storage.GetPage(ctx, "https://acme.com/")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ScrapeCount)
	assert.Equal(t, "Acme Consulting Services - Updated", got.Title)
	assert.True(t, got.FirstScraped.Equal(first), "first scrape time must be preserved")
}

func TestPageStorage_GetMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewPageStorage(db, arbor.NewLogger())
	_, err := storage.GetPage(context.Background(), "https://nowhere.com/")
	assert.Error(t, err)
}

func TestPageStorage_ListByJob(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewPageStorage(db, arbor.NewLogger())
	ctx := context.Background()
	now := time.Now()

	_, _, err := storage.UpsertPage(ctx, testPage("https://acme.com/a", "job_1", now), nil)
	require.NoError(t, err)
	_, _, err = storage.UpsertPage(ctx, testPage("https://acme.com/b", "job_1", now.Add(time.Minute)), nil)
	require.NoError(t, err)
	_, _, err = storage.UpsertPage(ctx, testPage("https://acme.com/c", "job_2", now), nil)
	require.NoError(t, err)

	pages, err := storage.ListPagesByJob(ctx, "job_1", 0, 0)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "https://acme.com/b", pages[0].URL, "newest scrape first")

	pages, err = storage.ListPagesByJob(ctx, "job_1", 1, 0)
	require.NoError(t, err)
	assert.Len(t, pages, 1)

	pages, err = storage.ListPagesByJob(ctx, "job_3", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestPageStorage_ListEmailsByJob(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewPageStorage(db, arbor.NewLogger())
	ctx := context.Background()
	now := time.Now()

	_, _, err := storage.UpsertPage(ctx, testPage("https://acme.com/", "job_1", now), []*models.EmailRecord{
		testEmail("https://acme.com/", "info@acme.com", "job_1", now),
		testEmail("https://acme.com/", "sales@acme.com", "job_1", now),
	})
	require.NoError(t, err)

	emails, err := storage.ListEmailsByJob(ctx, "job_1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, emails, 2)

	emails, err = storage.ListEmailsByJob(ctx, "job_2", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, emails)
}

func TestPageStorage_Counts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	storage := NewPageStorage(db, arbor.NewLogger())
	ctx := context.Background()
	now := time.Now()

	_, _, err := storage.UpsertPage(ctx, testPage("https://acme.com/a", "job_1", now), []*models.EmailRecord{
		testEmail("https://acme.com/a", "info@acme.com", "job_1", now),
	})
	require.NoError(t, err)
	_, _, err = storage.UpsertPage(ctx, testPage("https://acme.com/b", "job_1", now), nil)
	require.NoError(t, err)

	pages, err := storage.CountPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	emails, err := storage.CountEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, emails)
}

package interfaces

import (
	"context"

	"github.com/ternarybob/venator/internal/models"
)

// JobListOptions controls job listing queries
type JobListOptions struct {
	Status models.JobStatus
	Limit  int
	Offset int
}

// JobStorage persists crawl jobs
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.CrawlJob) error
	GetJob(ctx context.Context, jobID string) (*models.CrawlJob, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.CrawlJob, error)
	DeleteJob(ctx context.Context, jobID string) error
	CountByStatus(ctx context.Context) (map[models.JobStatus]int, error)
	ListByStatus(ctx context.Context, status models.JobStatus) ([]*models.CrawlJob, error)
}

// PageStorage persists accepted pages and their extracted emails
type PageStorage interface {
	// UpsertPage creates the page record or, if the URL is already stored,
	// refreshes its fields and increments ScrapeCount. Page and emails are
	// written in a single transaction.
	UpsertPage(ctx context.Context, page *models.PageRecord, emails []*models.EmailRecord) (created bool, newEmails int, err error)
	GetPage(ctx context.Context, url string) (*models.PageRecord, error)
	ListPagesByJob(ctx context.Context, jobID string, limit, offset int) ([]*models.PageRecord, error)
	ListEmailsByJob(ctx context.Context, jobID string, limit, offset int) ([]*models.EmailRecord, error)
	CountPages(ctx context.Context) (int, error)
	CountEmails(ctx context.Context) (int, error)
}

package interfaces

import (
	"context"

	"github.com/ternarybob/venator/internal/models"
)

// SubmitJobRequest is the validated payload for creating a crawl job
type SubmitJobRequest struct {
	URL            string   `json:"url" validate:"required,url"`
	MaxDepth       int      `json:"max_depth" validate:"omitempty,min=1,max=10"`
	MaxPages       int      `json:"max_pages" validate:"omitempty,min=1,max=10000"`
	Concurrency    int      `json:"concurrency" validate:"omitempty,min=1,max=12"`
	RequestDelay   float64  `json:"request_delay" validate:"omitempty,min=0.1,max=10"`
	AllowedDomains []string `json:"allowed_domains,omitempty" validate:"omitempty,dive,hostname_rfc1123"`
	Languages      []string `json:"languages,omitempty" validate:"omitempty,dive,min=2,max=8"`
	FollowLinks    *bool    `json:"follow_links,omitempty"`
}

// CrawlerService manages crawl job lifecycle and execution
type CrawlerService interface {
	SubmitJob(ctx context.Context, req *SubmitJobRequest) (*models.CrawlJob, error)
	GetJob(ctx context.Context, jobID string) (*models.CrawlJob, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.CrawlJob, error)
	PauseJob(ctx context.Context, jobID string) error
	ResumeJob(ctx context.Context, jobID string) error
	CancelJob(ctx context.Context, jobID string) error
	Stop(ctx context.Context) error
}

package models

import (
	"time"
)

// JobStatus represents the state of a crawl job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusPaused     JobStatus = "paused"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal returns true for states that accept no further transitions
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// validTransitions maps each state to the set of states it may move to.
// Pause is valid from pending or processing, resume only from paused,
// cancel from any non-terminal state.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusProcessing, JobStatusPaused, JobStatusCancelled, JobStatusFailed},
	JobStatusProcessing: {JobStatusPaused, JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
	JobStatusPaused:     {JobStatusProcessing, JobStatusCancelled},
}

// CanTransition reports whether moving from s to target is a legal
// state machine transition
func (s JobStatus) CanTransition(target JobStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CrawlJob represents a single crawl job. Configuration is snapshot at
// creation time so a job is self-contained and re-runnable.
type CrawlJob struct {
	ID          string        `json:"id" badgerhold:"key"`
	SeedURL     string        `json:"seed_url"`
	Status      JobStatus     `json:"status"`
	Config      CrawlConfig   `json:"config"`
	Progress    CrawlProgress `json:"progress"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	// LastActivity is bumped each time a worker finishes a URL. Used by the
	// maintenance sweep to fail jobs whose process died mid-crawl.
	LastActivity time.Time `json:"last_activity,omitempty"`
}

// CrawlConfig defines crawl behavior for a single job
type CrawlConfig struct {
	MaxDepth       int           `json:"max_depth"`
	MaxPages       int           `json:"max_pages"`
	Concurrency    int           `json:"concurrency"`
	RequestDelay   time.Duration `json:"request_delay"`
	AllowedDomains []string      `json:"allowed_domains,omitempty"`
	Languages      []string      `json:"languages,omitempty"`
	FollowLinks    bool          `json:"follow_links"`
}

// CrawlProgress tracks per-job session counters. TotalItems,
// ProcessedItems, and Percent are derived from the frontier and page
// counters each time the job is snapshotted.
type CrawlProgress struct {
	PagesFetched   int     `json:"pages_fetched"`
	PagesAccepted  int     `json:"pages_accepted"`
	PagesRejected  int     `json:"pages_rejected"`
	EmailsFound    int     `json:"emails_found"`
	Errors         int     `json:"errors"`
	TotalItems     int     `json:"total_items"`
	ProcessedItems int     `json:"processed_items"`
	Percent        float64 `json:"progress"`
	CurrentURL     string  `json:"current_url,omitempty"`
}

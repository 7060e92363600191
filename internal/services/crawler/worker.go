package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/venator/internal/models"
)

// popTimeout is how long a worker waits on the frontier before checking
// whether the crawl has drained
const popTimeout = time.Second

// workerLoop pulls frontier entries until the crawl drains, the job is
// cancelled, or the context ends. The control gate runs before every
// fetch so pause takes effect between requests, never mid-flight.
func (s *Service) workerLoop(ctx context.Context, run *jobRun, workerID int) {
	for {
		if err := run.controller.Gate(ctx); err != nil {
			s.logger.Debug().
				Str("job_id", run.job.ID).
				Int("worker", workerID).
				Err(err).
				Msg("Worker stopping at control gate")
			return
		}

		entry, ok := run.frontier.Pop(popTimeout)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			if run.frontier.IsIdle() {
				return // Crawl drained
			}
			continue
		}

		s.processEntry(ctx, run, entry)
		run.frontier.TaskDone()
	}
}

// processEntry fetches one URL, extracts it, runs the content pipeline,
// and enqueues discovered links
func (s *Service) processEntry(ctx context.Context, run *jobRun, entry FrontierEntry) {
	// Pause may have been requested while this entry sat in the queue
	if err := run.controller.Gate(ctx); err != nil {
		return
	}

	if run.fetchedCount() >= run.job.Config.MaxPages {
		return
	}

	run.setCurrentURL(entry.URL)

	result, err := s.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		s.recordFetchFailure(run, entry.URL, err)
		return
	}

	run.bumpFetched()

	page, err := s.extractor.Extract(run.job.ID, entry, result)
	if err != nil {
		if errors.Is(err, ErrPageInvalid) {
			run.bumpRejected()
			s.logger.Debug().
				Str("job_id", run.job.ID).
				Str("url", entry.URL).
				Err(err).
				Msg("Page skipped before pipeline")
		} else {
			run.bumpErrors()
			s.logger.Warn().
				Str("job_id", run.job.ID).
				Str("url", entry.URL).
				Err(err).
				Msg("Extraction failed")
		}
		s.persistProgress(ctx, run)
		return
	}

	pipelineResult, stage := run.pipeline.Run(ctx, page)
	switch {
	case pipelineResult.Err != nil:
		run.bumpErrors()
	case pipelineResult.Accepted:
		run.bumpAccepted(len(page.Emails))
	default:
		run.bumpRejected()
		s.logger.Debug().
			Str("job_id", run.job.ID).
			Str("url", entry.URL).
			Str("stage", stage).
			Str("reason", pipelineResult.Reason).
			Msg("Pipeline rejected page")
	}

	if run.job.Config.FollowLinks && entry.Depth < run.job.Config.MaxDepth {
		enqueued := 0
		for _, link := range page.Links {
			if run.frontier.SeenCount() >= run.job.Config.MaxPages*2 {
				break // Seen set already holds far more than the page budget
			}
			if run.frontier.Push(link, entry.Depth+1, entry.URL) {
				enqueued++
			}
		}
		if enqueued > 0 {
			s.logger.Debug().
				Str("job_id", run.job.ID).
				Str("url", entry.URL).
				Int("enqueued", enqueued).
				Msg("Links queued")
		}
	}

	s.persistProgress(ctx, run)
}

// recordFetchFailure classifies a fetch error into progress counters
func (s *Service) recordFetchFailure(run *jobRun, url string, err error) {
	switch {
	case errors.Is(err, ErrDomainBlocked), errors.Is(err, ErrDomainBudget), errors.Is(err, ErrSessionBudget):
		run.bumpRejected()
		s.logger.Debug().
			Str("job_id", run.job.ID).
			Str("url", url).
			Err(err).
			Msg("URL dropped by rate controller")
	case errors.Is(err, context.Canceled):
		// Shutdown or cancellation, not a crawl error
	default:
		run.bumpErrors()
		s.logger.Warn().
			Str("job_id", run.job.ID).
			Str("url", url).
			Err(err).
			Msg("Fetch failed")
	}
}

// persistProgress writes the job's current counters to storage
func (s *Service) persistProgress(ctx context.Context, run *jobRun) {
	job := run.snapshot()
	if err := s.jobStorage.SaveJob(ctx, &job); err != nil {
		s.logger.Warn().
			Str("job_id", job.ID).
			Err(err).
			Msg("Failed to persist job progress")
	}
}

// jobRun progress helpers. All mutate under run.mu and bump LastActivity
// so the stale job sweep sees a live crawl.

func (r *jobRun) fetchedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job.Progress.PagesFetched
}

func (r *jobRun) setCurrentURL(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.job.Progress.CurrentURL = url
}

func (r *jobRun) bumpFetched() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.job.Progress.PagesFetched++
	r.touch()
}

func (r *jobRun) bumpAccepted(emails int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.job.Progress.PagesAccepted++
	r.job.Progress.EmailsFound += emails
	r.touch()
}

func (r *jobRun) bumpRejected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.job.Progress.PagesRejected++
	r.touch()
}

func (r *jobRun) bumpErrors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.job.Progress.Errors++
	r.touch()
}

// touch updates activity timestamps. Caller holds r.mu.
func (r *jobRun) touch() {
	now := time.Now()
	r.job.LastActivity = now
	r.job.UpdatedAt = now
}

// snapshot copies the job for persistence without holding the lock
// during storage writes, deriving the progress summary from the
// frontier's discovered URL count and the fetch counter
func (r *jobRun) snapshot() models.CrawlJob {
	r.mu.Lock()
	defer r.mu.Unlock()

	job := *r.job

	total := r.frontier.SeenCount()
	if job.Config.MaxPages > 0 && total > job.Config.MaxPages {
		total = job.Config.MaxPages
	}
	job.Progress.TotalItems = total
	job.Progress.ProcessedItems = job.Progress.PagesFetched

	switch {
	case job.Status == models.JobStatusCompleted:
		job.Progress.Percent = 100
	case total > 0:
		percent := 100 * float64(job.Progress.ProcessedItems) / float64(total)
		if percent > 100 {
			percent = 100
		}
		job.Progress.Percent = percent
	}

	return job
}

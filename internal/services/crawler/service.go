package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/pipeline"
)

// Service runs crawl jobs: it owns the rate controller, fetch chain, and
// extractor shared across jobs, and builds a frontier, controller, and
// content pipeline per job.
type Service struct {
	config      *common.Config
	rules       *common.FilterRules
	logger      arbor.ILogger
	jobStorage  interfaces.JobStorage
	pageStorage interfaces.PageStorage

	rateLimiter *RateLimiter
	fetcher     *Fetcher
	extractor   *Extractor
	validate    *validator.Validate

	mu   sync.RWMutex
	runs map[string]*jobRun
	wg   sync.WaitGroup
}

// jobRun is the live state of one executing job
type jobRun struct {
	mu         sync.Mutex
	job        *models.CrawlJob
	controller *Controller
	frontier   *Frontier
	pipeline   *pipeline.Pipeline
	cancel     context.CancelFunc
}

// NewService creates the crawler service with its shared fetch stack
func NewService(config *common.Config, rules *common.FilterRules, jobStorage interfaces.JobStorage, pageStorage interfaces.PageStorage, logger arbor.ILogger) *Service {
	rateLimiter := NewRateLimiter(config.RateLimit, logger)
	rotator := NewUserAgentRotator(config.Crawler.UserAgentStrategy, rules.UserAgents, config.Crawler.UserAgent, nil)

	middlewares := []RequestMiddleware{
		NewUserAgentMiddleware(rotator),
		NewBrowserHeadersMiddleware(),
	}

	return &Service{
		config:      config,
		rules:       rules,
		logger:      logger,
		jobStorage:  jobStorage,
		pageStorage: pageStorage,
		rateLimiter: rateLimiter,
		fetcher:     NewFetcher(config.Crawler, rateLimiter, rules, middlewares, logger),
		extractor:   NewExtractor(rules, logger),
		validate:    validator.New(),
		runs:        make(map[string]*jobRun),
	}
}

// SubmitJob validates a request, persists the new job, and starts it
func (s *Service) SubmitJob(ctx context.Context, req *interfaces.SubmitJobRequest) (*models.CrawlJob, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid job request: %w", err)
	}

	seedURL, err := url.Parse(req.URL)
	if err != nil || (seedURL.Scheme != "http" && seedURL.Scheme != "https") {
		return nil, fmt.Errorf("invalid job request: seed URL must be http or https")
	}
	if !s.config.AllowTestURLs() && isTestHost(seedURL.Host) {
		return nil, fmt.Errorf("invalid job request: test URLs are not allowed in production")
	}

	now := time.Now()
	job := &models.CrawlJob{
		ID:        common.NewJobID(),
		SeedURL:   req.URL,
		Status:    models.JobStatusPending,
		Config:    s.jobConfig(req, seedURL),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.jobStorage.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	s.startJob(job)

	s.logger.Info().
		Str("job_id", job.ID).
		Str("seed_url", job.SeedURL).
		Int("max_depth", job.Config.MaxDepth).
		Int("workers", job.Config.Concurrency).
		Msg("Crawl job submitted")

	return job, nil
}

// jobConfig merges request values with configured defaults
func (s *Service) jobConfig(req *interfaces.SubmitJobRequest, seedURL *url.URL) models.CrawlConfig {
	cfg := models.CrawlConfig{
		MaxDepth:       s.config.Crawler.MaxDepth,
		MaxPages:       s.config.Crawler.MaxPages,
		Concurrency:    s.config.Crawler.Workers,
		RequestDelay:   s.config.RateLimit.BaseDelay.Std(),
		AllowedDomains: req.AllowedDomains,
		Languages:      req.Languages,
		FollowLinks:    true,
	}

	if req.MaxDepth > 0 {
		cfg.MaxDepth = req.MaxDepth
	}
	if req.MaxPages > 0 {
		cfg.MaxPages = req.MaxPages
	}
	if req.Concurrency > 0 {
		cfg.Concurrency = req.Concurrency
	}
	if cfg.Concurrency > s.config.Crawler.MaxWorkers {
		cfg.Concurrency = s.config.Crawler.MaxWorkers
	}
	if req.RequestDelay > 0 {
		cfg.RequestDelay = time.Duration(req.RequestDelay * float64(time.Second))
	}
	if req.FollowLinks != nil {
		cfg.FollowLinks = *req.FollowLinks
	}
	// Without an explicit allow list the crawl stays on the seed host
	if len(cfg.AllowedDomains) == 0 {
		cfg.AllowedDomains = []string{seedURL.Host}
	}

	return cfg
}

// startJob wires the per-job frontier, controller, and pipeline, then
// launches the crawl goroutine
func (s *Service) startJob(job *models.CrawlJob) {
	stages := []pipeline.Stage{
		pipeline.NewValidationStage(s.config.Pipeline, s.rules),
		pipeline.NewLanguageStage(job.Config.Languages),
		pipeline.NewDedupStage(s.config.Pipeline.SimilarityThreshold, s.config.Pipeline.FingerprintWindow),
		pipeline.NewQualityStage(s.config.Pipeline, s.rules),
		pipeline.NewPersistStage(s.pageStorage, s.logger),
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &jobRun{
		job:        job,
		controller: NewController(job.ID),
		frontier:   NewFrontier(job.Config.MaxDepth, job.Config.AllowedDomains),
		pipeline:   pipeline.New(s.logger, stages...),
		cancel:     cancel,
	}

	s.mu.Lock()
	s.runs[job.ID] = run
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJob(ctx, run)
	}()
}

// runJob executes one crawl to completion
func (s *Service) runJob(ctx context.Context, run *jobRun) {
	jobID := run.job.ID
	defer func() {
		run.frontier.Close()
		s.mu.Lock()
		delete(s.runs, jobID)
		s.mu.Unlock()
	}()

	if err := s.transitionJob(ctx, run, models.JobStatusProcessing); err != nil {
		// Job was paused or cancelled before the first fetch
		if run.controller.Status() != models.JobStatusPaused {
			return
		}
		if err := run.controller.Gate(ctx); err != nil {
			s.finishJob(ctx, run, models.JobStatusCancelled, "")
			return
		}
		if err := s.transitionJob(ctx, run, models.JobStatusProcessing); err != nil {
			return
		}
	}

	if !run.frontier.Push(run.job.SeedURL, 0, "") {
		s.finishJob(ctx, run, models.JobStatusFailed, "seed URL rejected by frontier filters")
		return
	}

	var workers sync.WaitGroup
	for i := 0; i < run.job.Config.Concurrency; i++ {
		workers.Add(1)
		go func(workerID int) {
			defer workers.Done()
			s.workerLoop(ctx, run, workerID)
		}(i)
	}
	workers.Wait()

	switch run.controller.Status() {
	case models.JobStatusCancelled:
		s.finishJob(ctx, run, models.JobStatusCancelled, "")
	default:
		snapshot := run.snapshot()
		if snapshot.Progress.PagesFetched == 0 {
			s.finishJob(ctx, run, models.JobStatusFailed, "no pages could be fetched")
		} else {
			s.finishJob(ctx, run, models.JobStatusCompleted, "")
		}
	}
}

// transitionJob moves the in-process state machine and persists the result
func (s *Service) transitionJob(ctx context.Context, run *jobRun, to models.JobStatus) error {
	if err := run.controller.Transition(to); err != nil {
		return err
	}

	run.mu.Lock()
	now := time.Now()
	run.job.Status = to
	run.job.UpdatedAt = now
	switch to {
	case models.JobStatusProcessing:
		if run.job.StartedAt == nil {
			run.job.StartedAt = &now
		}
	case models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled:
		run.job.CompletedAt = &now
		run.job.Progress.CurrentURL = ""
	}
	run.mu.Unlock()

	job := run.snapshot()
	if err := s.jobStorage.SaveJob(ctx, &job); err != nil {
		s.logger.Error().Str("job_id", job.ID).Err(err).Msg("Failed to persist job status")
	}
	return nil
}

// finishJob drives the job to a terminal state, tolerating races with
// an earlier cancel
func (s *Service) finishJob(ctx context.Context, run *jobRun, status models.JobStatus, errMsg string) {
	if errMsg != "" {
		run.mu.Lock()
		run.job.Error = errMsg
		run.mu.Unlock()
	}

	if err := s.transitionJob(ctx, run, status); err != nil {
		s.logger.Debug().
			Str("job_id", run.job.ID).
			Str("status", string(status)).
			Err(err).
			Msg("Terminal transition skipped")
		return
	}

	job := run.snapshot()
	s.logger.Info().
		Str("job_id", job.ID).
		Str("status", string(status)).
		Int("fetched", job.Progress.PagesFetched).
		Int("accepted", job.Progress.PagesAccepted).
		Int("emails", job.Progress.EmailsFound).
		Int("errors", job.Progress.Errors).
		Msg("Crawl job finished")
}

// GetJob returns a job by ID, preferring live state over storage
func (s *Service) GetJob(ctx context.Context, jobID string) (*models.CrawlJob, error) {
	s.mu.RLock()
	run, running := s.runs[jobID]
	s.mu.RUnlock()

	if running {
		job := run.snapshot()
		return &job, nil
	}

	job, err := s.jobStorage.GetJob(ctx, jobID)
	if err != nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// ListJobs lists jobs from storage
func (s *Service) ListJobs(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.CrawlJob, error) {
	return s.jobStorage.ListJobs(ctx, opts)
}

// PauseJob pauses a pending or processing job
func (s *Service) PauseJob(ctx context.Context, jobID string) error {
	return s.controlJob(ctx, jobID, models.JobStatusPaused)
}

// ResumeJob resumes a paused job
func (s *Service) ResumeJob(ctx context.Context, jobID string) error {
	return s.controlJob(ctx, jobID, models.JobStatusProcessing)
}

// CancelJob cancels a job in any non-terminal state
func (s *Service) CancelJob(ctx context.Context, jobID string) error {
	return s.controlJob(ctx, jobID, models.JobStatusCancelled)
}

// controlJob applies a control transition to a running job. Jobs no
// longer running get a transition check against their stored state so
// callers still receive a precise error.
func (s *Service) controlJob(ctx context.Context, jobID string, to models.JobStatus) error {
	s.mu.RLock()
	run, running := s.runs[jobID]
	s.mu.RUnlock()

	if running {
		if to == models.JobStatusCancelled {
			// Cancel through the controller first so workers drain, then
			// release any rate limit waits
			if err := s.transitionJob(ctx, run, to); err != nil {
				return err
			}
			run.cancel()
			return nil
		}
		return s.transitionJob(ctx, run, to)
	}

	job, err := s.jobStorage.GetJob(ctx, jobID)
	if err != nil {
		return ErrJobNotFound
	}
	return &InvalidTransitionError{JobID: jobID, From: job.Status, To: to}
}

// DomainSnapshots exposes rate limiter state for the status endpoint
func (s *Service) DomainSnapshots() []DomainSnapshot {
	return s.rateLimiter.Snapshot()
}

// Stop cancels all running jobs and waits for workers to drain
func (s *Service) Stop(ctx context.Context) error {
	s.mu.RLock()
	runs := make([]*jobRun, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	s.mu.RUnlock()

	for _, run := range runs {
		run.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("crawler shutdown timed out: %w", ctx.Err())
	}
}

// isTestHost identifies local development hosts
func isTestHost(host string) bool {
	h := strings.ToLower(host)
	if idx := strings.Index(h, ":"); idx >= 0 {
		h = h[:idx]
	}
	return h == "localhost" || h == "127.0.0.1" || h == "::1" || strings.HasSuffix(h, ".local")
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/crawler"
)

// JobHandler exposes crawl job management over HTTP
type JobHandler struct {
	crawlerService interfaces.CrawlerService
	jobStorage     interfaces.JobStorage
	pageStorage    interfaces.PageStorage
	logger         arbor.ILogger
}

func NewJobHandler(crawlerService interfaces.CrawlerService, jobStorage interfaces.JobStorage, pageStorage interfaces.PageStorage) *JobHandler {
	return &JobHandler{
		crawlerService: crawlerService,
		jobStorage:     jobStorage,
		pageStorage:    pageStorage,
		logger:         common.GetLogger(),
	}
}

// CreateJobHandler submits a new crawl job
// POST /api/jobs
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req interfaces.SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	job, err := h.crawlerService.SubmitJob(r.Context(), &req)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, job)
}

// ListJobsHandler lists jobs, optionally filtered by status
// GET /api/jobs?status=processing&limit=50&offset=0
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit, offset := GetPaginationParams(r)
	opts := &interfaces.JobListOptions{
		Status: models.JobStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}

	jobs, err := h.crawlerService.ListJobs(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetJobHandler returns a single job
// GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	job, err := h.crawlerService.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Job not found: "+jobID)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// PauseJobHandler pauses a running job
// POST /api/jobs/{id}/pause
func (h *JobHandler) PauseJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	h.controlJob(w, r, jobID, h.crawlerService.PauseJob, "Job paused")
}

// ResumeJobHandler resumes a paused job
// POST /api/jobs/{id}/resume
func (h *JobHandler) ResumeJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	h.controlJob(w, r, jobID, h.crawlerService.ResumeJob, "Job resumed")
}

// CancelJobHandler cancels a job
// POST /api/jobs/{id}/cancel
func (h *JobHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	h.controlJob(w, r, jobID, h.crawlerService.CancelJob, "Job cancelled")
}

func (h *JobHandler) controlJob(w http.ResponseWriter, r *http.Request, jobID string, fn func(context.Context, string) error, message string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	err := fn(r.Context(), jobID)
	switch {
	case err == nil:
		WriteSuccess(w, message)
	case errors.Is(err, crawler.ErrJobNotFound):
		WriteError(w, http.StatusNotFound, "Job not found: "+jobID)
	case crawler.IsInvalidTransition(err):
		WriteError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error().Str("job_id", jobID).Err(err).Msg("Job control failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// JobPagesHandler lists pages stored for a job
// GET /api/jobs/{id}/pages
func (h *JobHandler) JobPagesHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if _, err := h.crawlerService.GetJob(r.Context(), jobID); err != nil {
		WriteError(w, http.StatusNotFound, "Job not found: "+jobID)
		return
	}

	limit, offset := GetPaginationParams(r)
	pages, err := h.pageStorage.ListPagesByJob(r.Context(), jobID, limit, offset)
	if err != nil {
		h.logger.Error().Str("job_id", jobID).Err(err).Msg("Failed to list pages")
		WriteError(w, http.StatusInternalServerError, "Failed to list pages")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID,
		"pages":  pages,
		"count":  len(pages),
	})
}

// JobEmailsHandler lists emails stored for a job
// GET /api/jobs/{id}/emails
func (h *JobHandler) JobEmailsHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if _, err := h.crawlerService.GetJob(r.Context(), jobID); err != nil {
		WriteError(w, http.StatusNotFound, "Job not found: "+jobID)
		return
	}

	limit, offset := GetPaginationParams(r)
	emails, err := h.pageStorage.ListEmailsByJob(r.Context(), jobID, limit, offset)
	if err != nil {
		h.logger.Error().Str("job_id", jobID).Err(err).Msg("Failed to list emails")
		WriteError(w, http.StatusInternalServerError, "Failed to list emails")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID,
		"emails": emails,
		"count":  len(emails),
	})
}

// GetJobStatsHandler returns aggregate job and page counts
// GET /api/jobs/stats
func (h *JobHandler) GetJobStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	byStatus, err := h.jobStorage.CountByStatus(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to count jobs")
		return
	}

	pages, err := h.pageStorage.CountPages(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count pages")
		WriteError(w, http.StatusInternalServerError, "Failed to count pages")
		return
	}

	emails, err := h.pageStorage.CountEmails(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count emails")
		WriteError(w, http.StatusInternalServerError, "Failed to count emails")
		return
	}

	total := 0
	statusCounts := make(map[string]int, len(byStatus))
	for status, count := range byStatus {
		statusCounts[string(status)] = count
		total += count
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total_jobs":     total,
		"jobs_by_status": statusCounts,
		"total_pages":    pages,
		"total_emails":   emails,
	})
}

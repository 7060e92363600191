package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/services/crawler"
)

// DomainInspector exposes live per-domain rate limiter state
type DomainInspector interface {
	DomainSnapshots() []crawler.DomainSnapshot
}

// StatusHandler reports runtime crawler state
type StatusHandler struct {
	inspector DomainInspector
	logger    arbor.ILogger
}

func NewStatusHandler(inspector DomainInspector) *StatusHandler {
	return &StatusHandler{
		inspector: inspector,
		logger:    common.GetLogger(),
	}
}

// GetStatusHandler returns the rate limiter's view of every domain
// touched this session
// GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	domains := h.inspector.DomainSnapshots()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": common.GetVersion(),
		"domains": domains,
		"count":   len(domains),
	})
}

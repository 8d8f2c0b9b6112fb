package api

import (
	"net/http"
	"time"

	"github.com/dhanaBhai/unposted/internal/api/respond"
	"github.com/dhanaBhai/unposted/internal/store"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store store.EntryStore
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(s store.EntryStore) *HealthHandler {
	return &HealthHandler{store: s}
}

// CheckHealth handles GET /api/health. The store ping is the only dependency
// that can take the service down; collaborators are checked per request.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.HealthCheck(r.Context()); err != nil {
		response := map[string]interface{}{
			"status":    "down",
			"message":   err.Error(),
			"timestamp": time.Now().Format(time.RFC3339),
		}
		respond.WriteJSON(w, http.StatusInternalServerError, response)
		return
	}

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	respond.WriteJSON(w, http.StatusOK, response)
}

// Root handles GET /
func Root(w http.ResponseWriter, _ *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Unposted backend is running",
	})
}

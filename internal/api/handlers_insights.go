package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dhanaBhai/unposted/internal/api/respond"
	"github.com/dhanaBhai/unposted/internal/insights"
	"github.com/dhanaBhai/unposted/internal/journal"
)

// Reflector generates a structured reflection for a transcript.
type Reflector interface {
	Reflect(ctx context.Context, transcript string) (insights.Reflection, error)
}

// InsightsHandler handles reflection requests for stored entries
type InsightsHandler struct {
	repo      *journal.Repository
	reflector Reflector
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(repo *journal.Repository, reflector Reflector) *InsightsHandler {
	return &InsightsHandler{repo: repo, reflector: reflector}
}

// GenerateInsights handles POST /api/entries/{entryId}/insights
func (h *InsightsHandler) GenerateInsights(w http.ResponseWriter, r *http.Request) {
	entryID := mux.Vars(r)["entryId"]

	entry, ok := h.repo.Get(entryID)
	if !ok {
		respond.WriteNotFound(w, "entry not found")
		return
	}

	reflection, err := h.reflector.Reflect(r.Context(), entry.Transcript)
	if err != nil {
		insightsTotal.WithLabelValues("error").Inc()
		respond.WriteDomainError(w, err)
		return
	}
	insightsTotal.WithLabelValues("ok").Inc()

	respond.WriteJSON(w, http.StatusOK, reflection)
}

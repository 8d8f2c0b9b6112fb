package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dhanaBhai/unposted/internal/api/recovery"
	"github.com/dhanaBhai/unposted/internal/blob"
	"github.com/dhanaBhai/unposted/internal/journal"
	"github.com/dhanaBhai/unposted/internal/store"
	"github.com/dhanaBhai/unposted/internal/transcribe"
)

// Deps carries the collaborators the HTTP surface is built from.
type Deps struct {
	Repo        *journal.Repository
	Handles     blob.Handles
	Store       store.EntryStore
	Transcriber transcribe.Transcriber
	Insights    Reflector

	// EncryptAtRest marks new entries for sealed audio storage.
	EncryptAtRest bool
}

// NewRouter creates the HTTP router with all API routes
func NewRouter(deps Deps) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware)
	router.Use(instrument)

	SetLiveHandleSource(deps.Handles.Live)

	// Create handlers
	entryHandler := NewEntryHandler(deps.Repo, deps.Handles, deps.Transcriber, deps.EncryptAtRest)
	transcribeHandler := NewTranscribeHandler(deps.Transcriber)
	insightsHandler := NewInsightsHandler(deps.Repo, deps.Insights)
	healthHandler := NewHealthHandler(deps.Store)

	// Service endpoints
	router.HandleFunc("/", Root).Methods("GET")
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Transcription endpoint
	router.HandleFunc("/api/transcribe", transcribeHandler.Transcribe).Methods("POST")

	// Entry endpoints (UUID-based)
	router.HandleFunc("/api/entries", entryHandler.CreateEntry).Methods("POST")
	router.HandleFunc("/api/entries", entryHandler.ListEntries).Methods("GET")
	router.HandleFunc("/api/entries", entryHandler.ClearEntries).Methods("DELETE")
	router.HandleFunc("/api/entries/{entryId:[0-9a-fA-F-]{36}}", entryHandler.GetEntry).Methods("GET")
	router.HandleFunc("/api/entries/{entryId:[0-9a-fA-F-]{36}}", entryHandler.UpdateEntry).Methods("PATCH")
	router.HandleFunc("/api/entries/{entryId:[0-9a-fA-F-]{36}}", entryHandler.DeleteEntry).Methods("DELETE")
	router.HandleFunc("/api/entries/{entryId:[0-9a-fA-F-]{36}}/audio", entryHandler.GetEntryAudio).Methods("GET")
	router.HandleFunc("/api/entries/{entryId:[0-9a-fA-F-]{36}}/insights", insightsHandler.GenerateInsights).Methods("POST")

	// Streak endpoint
	router.HandleFunc("/api/streak", entryHandler.GetStreak).Methods("GET")

	return router
}

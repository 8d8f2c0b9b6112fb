package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dhanaBhai/unposted/internal/api/respond"
	"github.com/dhanaBhai/unposted/internal/blob"
	"github.com/dhanaBhai/unposted/internal/journal"
	"github.com/dhanaBhai/unposted/internal/model"
	"github.com/dhanaBhai/unposted/internal/transcribe"
)

// EntryHandler handles journal entry HTTP requests (thin transport layer)
type EntryHandler struct {
	repo        *journal.Repository
	handles     blob.Handles
	transcriber transcribe.Transcriber

	// encryptAtRest marks new entries so the store seals their audio.
	encryptAtRest bool
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(repo *journal.Repository, handles blob.Handles, t transcribe.Transcriber, encryptAtRest bool) *EntryHandler {
	return &EntryHandler{repo: repo, handles: handles, transcriber: t, encryptAtRest: encryptAtRest}
}

// CreateEntry handles POST /api/entries. A JSON body supplies the transcript
// and payload directly; a multipart body uploads an audio file (same
// allowlist as /api/transcribe) with optional transcript and duration form
// fields, and the upload is transcribed when no transcript is supplied.
func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.createEntryFromUpload(w, r)
		return
	}

	var req struct {
		Transcript string  `json:"transcript"`
		Duration   float64 `json:"duration"`
		Audio      []byte  `json:"audio,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	h.addEntry(w, r, req.Transcript, req.Duration, req.Audio)
}

func (h *EntryHandler) createEntryFromUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		respond.WriteBadRequest(w, "multipart field 'file' is required")
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if _, ok := acceptedMimeTypes[contentType]; !ok {
		respond.WriteBadRequest(w, fmt.Sprintf("Unsupported media type: %s", contentType))
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		respond.WriteBadRequest(w, "failed to read upload")
		return
	}

	var duration float64
	durationSet := false
	if v := r.FormValue("duration"); v != "" {
		duration, err = strconv.ParseFloat(v, 64)
		if err != nil {
			respond.WriteBadRequest(w, "duration must be a number")
			return
		}
		durationSet = true
	}

	transcript := r.FormValue("transcript")
	if transcript == "" {
		result, err := h.transcriber.Transcribe(r.Context(), audio, header.Filename)
		if err != nil {
			transcriptionsTotal.WithLabelValues("error").Inc()
			respond.WriteDomainError(w, err)
			return
		}
		transcriptionsTotal.WithLabelValues("ok").Inc()
		transcript = result.Transcript
		if !durationSet {
			duration = result.Duration
		}
	}

	h.addEntry(w, r, transcript, duration, audio)
}

func (h *EntryHandler) addEntry(w http.ResponseWriter, r *http.Request, transcript string, duration float64, audio []byte) {
	entry, err := model.NewEntry(transcript, duration, audio)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	entry.Encrypted = h.encryptAtRest

	if err := h.repo.Add(r.Context(), entry); err != nil {
		respond.WriteDomainError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusCreated, entry)
}

// ListEntries handles GET /api/entries
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries := h.repo.All()
	if entries == nil {
		entries = []*model.Entry{}
	}

	response := map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	}

	respond.WriteJSON(w, http.StatusOK, response)
}

// GetEntry handles GET /api/entries/{entryId}
func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entryID := mux.Vars(r)["entryId"]

	entry, ok := h.repo.Get(entryID)
	if !ok {
		respond.WriteNotFound(w, "entry not found")
		return
	}

	respond.WriteJSON(w, http.StatusOK, entry)
}

// UpdateEntry handles PATCH /api/entries/{entryId}
func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	entryID := mux.Vars(r)["entryId"]

	var req struct {
		Transcript *string  `json:"transcript,omitempty"`
		Duration   *float64 `json:"duration,omitempty"`
		Audio      []byte   `json:"audio,omitempty"`
		Encrypted  *bool    `json:"encrypted,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	if _, ok := h.repo.Get(entryID); !ok {
		respond.WriteNotFound(w, "entry not found")
		return
	}

	patch := model.EntryPatch{
		Transcript: req.Transcript,
		Duration:   req.Duration,
		Audio:      req.Audio,
		Encrypted:  req.Encrypted,
	}
	if err := h.repo.Update(r.Context(), entryID, patch); err != nil {
		respond.WriteDomainError(w, err)
		return
	}

	entry, ok := h.repo.Get(entryID)
	if !ok {
		respond.WriteNotFound(w, "entry not found")
		return
	}
	respond.WriteJSON(w, http.StatusOK, entry)
}

// DeleteEntry handles DELETE /api/entries/{entryId}
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	entryID := mux.Vars(r)["entryId"]

	if err := h.repo.Remove(r.Context(), entryID); err != nil {
		respond.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearEntries handles DELETE /api/entries
func (h *EntryHandler) ClearEntries(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Clear(r.Context()); err != nil {
		respond.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetEntryAudio handles GET /api/entries/{entryId}/audio. It streams the
// in-memory payload behind the entry's transient handle; the handle id
// itself never leaves the process.
func (h *EntryHandler) GetEntryAudio(w http.ResponseWriter, r *http.Request) {
	entryID := mux.Vars(r)["entryId"]

	if _, ok := h.repo.Get(entryID); !ok {
		respond.WriteNotFound(w, "entry not found")
		return
	}
	hid, ok := h.repo.Handle(entryID)
	if !ok {
		respond.WriteNotFound(w, "entry has no playback handle")
		return
	}
	audio, ok := h.handles.Bytes(hid)
	if !ok || len(audio) == 0 {
		respond.WriteNotFound(w, "entry has no audio")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// GetStreak handles GET /api/streak
func (h *EntryHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	entries := h.repo.All()

	response := map[string]interface{}{
		"streak":  journal.Streak(entries),
		"entries": len(entries),
	}

	respond.WriteJSON(w, http.StatusOK, response)
}

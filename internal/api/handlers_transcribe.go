package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/dhanaBhai/unposted/internal/api/respond"
	"github.com/dhanaBhai/unposted/internal/transcribe"
)

// acceptedMimeTypes lists the audio upload formats the API accepts.
var acceptedMimeTypes = map[string]struct{}{
	"audio/webm":  {},
	"audio/wav":   {},
	"audio/mpeg":  {},
	"audio/mp4":   {},
	"audio/x-m4a": {},
}

// TranscribeHandler handles audio upload and transcription requests
type TranscribeHandler struct {
	transcriber transcribe.Transcriber
}

// NewTranscribeHandler creates a new transcribe handler
func NewTranscribeHandler(t transcribe.Transcriber) *TranscribeHandler {
	return &TranscribeHandler{transcriber: t}
}

// Transcribe handles POST /api/transcribe
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.transcriber.Transcribe(r.Context(), audio, header.Filename)
	if err != nil {
		transcriptionsTotal.WithLabelValues("error").Inc()
		respond.WriteDomainError(w, err)
		return
	}
	transcriptionsTotal.WithLabelValues("ok").Inc()

	response := map[string]interface{}{
		"transcript": result.Transcript,
		"duration":   result.Duration,
	}

	respond.WriteJSON(w, http.StatusOK, response)
}

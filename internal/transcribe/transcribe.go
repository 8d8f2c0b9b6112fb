// Package transcribe turns recorded audio into text through a pluggable
// strategy: a mock for offline development and an HTTP endpoint for real ASR.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dhanaBhai/unposted/internal/config"
	"github.com/dhanaBhai/unposted/internal/model"
)

// Result is the outcome of a transcription request.
type Result struct {
	Transcript string
	Duration   float64
}

// Transcriber converts an audio payload into a transcript. Implementations
// must not retain the audio slice after returning.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (Result, error)
}

// New selects the strategy configured for the service.
func New(cfg *config.Config) (Transcriber, error) {
	switch cfg.TranscribeStrategy {
	case config.StrategyMock:
		return NewMock(), nil
	case config.StrategyHTTP:
		if cfg.TranscribeURL == "" {
			return nil, model.NewValidationError("transcribe_url", "http strategy requires an endpoint URL")
		}
		return NewHTTP(cfg.TranscribeURL, cfg.TranscribeAPIKey, time.Duration(cfg.TranscribeTimeoutSec)*time.Second), nil
	default:
		return nil, model.NewValidationError("transcribe_strategy", fmt.Sprintf("unsupported strategy: %s", cfg.TranscribeStrategy))
	}
}

// Mock returns a fixed transcript without touching the audio. It keeps the
// rest of the pipeline exercisable when no ASR endpoint is available.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

const mockTranscript = "This is a placeholder transcript. Configure a transcription endpoint to enable real ASR."

func (m *Mock) Transcribe(_ context.Context, _ []byte, _ string) (Result, error) {
	return Result{Transcript: mockTranscript, Duration: 0}, nil
}

// HTTP posts audio as multipart form data to a transcription endpoint.
type HTTP struct {
	client *resty.Client
	url    string
}

// NewHTTP creates a transcriber for the given endpoint. apiKey, when set, is
// sent as a bearer token.
func NewHTTP(url, apiKey string, timeout time.Duration) *HTTP {
	c := resty.New().SetTimeout(timeout)
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &HTTP{client: c, url: url}
}

// transcribeResponse tolerates both field spellings endpoints use for the
// transcript.
type transcribeResponse struct {
	Transcript string  `json:"transcript"`
	Text       string  `json:"text"`
	Duration   float64 `json:"duration"`
}

func (h *HTTP) Transcribe(ctx context.Context, audio []byte, filename string) (Result, error) {
	if filename == "" {
		filename = "audio.raw"
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetMultipartField("file", filename, "application/octet-stream", bytes.NewReader(audio)).
		Post(h.url)
	if err != nil {
		return Result{}, model.NewCollaboratorError("transcription", fmt.Errorf("request: %w", err))
	}
	if resp.StatusCode() != http.StatusOK {
		return Result{}, model.NewCollaboratorError("transcription",
			fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()))
	}

	var tr transcribeResponse
	if err := json.Unmarshal(resp.Body(), &tr); err != nil {
		return Result{}, model.NewCollaboratorError("transcription", fmt.Errorf("decode response: %w", err))
	}

	transcript := strings.TrimSpace(tr.Transcript)
	if transcript == "" {
		transcript = strings.TrimSpace(tr.Text)
	}
	if transcript == "" {
		return Result{}, model.NewCollaboratorError("transcription",
			fmt.Errorf("response missing transcript field"))
	}

	return Result{Transcript: transcript, Duration: tr.Duration}, nil
}

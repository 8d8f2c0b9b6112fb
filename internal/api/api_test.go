package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhanaBhai/unposted/internal/blob"
	"github.com/dhanaBhai/unposted/internal/insights"
	"github.com/dhanaBhai/unposted/internal/journal"
	"github.com/dhanaBhai/unposted/internal/model"
	"github.com/dhanaBhai/unposted/internal/store/memory"
	"github.com/dhanaBhai/unposted/internal/transcribe"
)

type fakeReflector struct {
	out           insights.Reflection
	err           error
	gotTranscript string
}

func (f *fakeReflector) Reflect(_ context.Context, transcript string) (insights.Reflection, error) {
	f.gotTranscript = transcript
	if f.err != nil {
		return insights.Reflection{}, f.err
	}
	return f.out, nil
}

type testEnv struct {
	server    *httptest.Server
	repo      *journal.Repository
	reflector *fakeReflector
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := memory.New()
	handles := blob.NewRegistry()
	repo := journal.New(st, handles)
	require.NoError(t, repo.Hydrate(context.Background()))

	reflector := &fakeReflector{
		out: insights.Reflection{
			KeyPeopleEvents:   []string{"Walked with Ada"},
			ReflectionBullets: []string{"You kept your promise to rest"},
		},
	}

	router := NewRouter(Deps{
		Repo:        repo,
		Handles:     handles,
		Store:       st,
		Transcriber: transcribe.NewMock(),
		Insights:    reflector,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, repo: repo, reflector: reflector}
}

func (env *testEnv) createEntry(t *testing.T, transcript string, duration float64, audio []byte) model.Entry {
	t.Helper()

	body, err := json.Marshal(map[string]interface{}{
		"transcript": transcript,
		"duration":   duration,
		"audio":      audio,
	})
	require.NoError(t, err)

	resp, err := http.Post(env.server.URL+"/api/entries", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var entry model.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entry))
	return entry
}

func doRequest(t *testing.T, method, url string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var root map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&root))
	assert.Equal(t, "Unposted backend is running", root["message"])

	resp2, err := http.Get(env.server.URL + "/api/health")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
}

func TestEntryLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	entry := env.createEntry(t, "today I finally wrote the hard letter", 12.0, []byte("pcm-data"))
	require.NotEmpty(t, entry.ID)
	assert.Equal(t, "today I finally wrote the", entry.Title)
	assert.False(t, entry.CreatedAt.IsZero())

	// List
	resp, err := http.Get(env.server.URL + "/api/entries")
	require.NoError(t, err)
	var list struct {
		Entries []model.Entry `json:"entries"`
		Count   int           `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Equal(t, 1, list.Count)
	assert.Equal(t, entry.ID, list.Entries[0].ID)

	// Get by id
	resp, err = http.Get(env.server.URL + "/api/entries/" + entry.ID)
	require.NoError(t, err)
	var got model.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, entry.Transcript, got.Transcript)

	// Patch transcript; the title stays as derived at creation
	patch, _ := json.Marshal(map[string]string{"transcript": "a corrected version of the words"})
	resp = doRequest(t, http.MethodPatch, env.server.URL+"/api/entries/"+entry.ID, bytes.NewReader(patch))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var patched model.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&patched))
	resp.Body.Close()
	assert.Equal(t, "a corrected version of the words", patched.Transcript)
	assert.Equal(t, "today I finally wrote the", patched.Title)

	// Audio round-trips through the transient handle
	resp, err = http.Get(env.server.URL + "/api/entries/" + entry.ID + "/audio")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	audio, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pcm-data", string(audio))

	// Delete is idempotent
	resp = doRequest(t, http.MethodDelete, env.server.URL+"/api/entries/"+entry.ID, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(env.server.URL + "/api/entries/" + entry.ID)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, http.MethodDelete, env.server.URL+"/api/entries/"+entry.ID, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCreateEntryValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/entries", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, _ := json.Marshal(map[string]interface{}{"transcript": "x", "duration": -2.5})
	resp, err = http.Post(env.server.URL+"/api/entries", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearEntries(t *testing.T) {
	env := newTestEnv(t)

	env.createEntry(t, "first note", 1, nil)
	env.createEntry(t, "second note", 2, nil)

	resp := doRequest(t, http.MethodDelete, env.server.URL+"/api/entries", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err := http.Get(env.server.URL + "/api/entries")
	require.NoError(t, err)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Zero(t, list.Count)
}

func TestStreakEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.createEntry(t, "morning thoughts", 3, nil)
	env.createEntry(t, "evening thoughts", 4, nil)

	resp, err := http.Get(env.server.URL + "/api/streak")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Streak  int `json:"streak"`
		Entries int `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 1, got.Streak, "two entries on the same day count once")
	assert.Equal(t, 2, got.Entries)
}

func multipartAudio(t *testing.T, fieldContentType string) (string, io.Reader) {
	return multipartUpload(t, fieldContentType, "fake-opus-bytes", nil)
}

func multipartUpload(t *testing.T, fieldContentType, payload string, fields map[string]string) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="take.webm"`)
	header.Set("Content-Type", fieldContentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return w.FormDataContentType(), &buf
}

func TestCreateEntryUploadTranscribes(t *testing.T) {
	env := newTestEnv(t)

	contentType, body := multipartUpload(t, "audio/webm", "opus-payload", nil)
	resp, err := http.Post(env.server.URL+"/api/entries", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var entry model.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entry))
	assert.NotEmpty(t, entry.Transcript, "upload without transcript is transcribed")
	assert.NotEmpty(t, entry.Title)
	assert.Zero(t, entry.Duration)

	// The uploaded payload is served back through the audio endpoint.
	resp2, err := http.Get(env.server.URL + "/api/entries/" + entry.ID + "/audio")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp2.Body)
	resp2.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "opus-payload", string(raw))
}

func TestCreateEntryUploadWithOverrides(t *testing.T) {
	env := newTestEnv(t)

	fields := map[string]string{"transcript": "dictated on the train home", "duration": "7.5"}
	contentType, body := multipartUpload(t, "audio/webm", "opus-payload", fields)
	resp, err := http.Post(env.server.URL+"/api/entries", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var entry model.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entry))
	assert.Equal(t, "dictated on the train home", entry.Transcript)
	assert.Equal(t, 7.5, entry.Duration)
	assert.Equal(t, "dictated on the train home", entry.Title)
}

func TestCreateEntryUploadRejectsUnsupportedMime(t *testing.T) {
	env := newTestEnv(t)

	contentType, body := multipartUpload(t, "video/avi", "not-audio", nil)
	resp, err := http.Post(env.server.URL+"/api/entries", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranscribeEndpoint(t *testing.T) {
	env := newTestEnv(t)

	contentType, body := multipartAudio(t, "audio/webm")
	resp, err := http.Post(env.server.URL+"/api/transcribe", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Transcript string  `json:"transcript"`
		Duration   float64 `json:"duration"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotEmpty(t, got.Transcript)
	assert.Zero(t, got.Duration)
}

func TestTranscribeRejectsUnsupportedMime(t *testing.T) {
	env := newTestEnv(t)

	contentType, body := multipartAudio(t, "video/avi")
	resp, err := http.Post(env.server.URL+"/api/transcribe", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "Unsupported media type")
}

func TestTranscribeRequiresFileField(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/transcribe", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInsightsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	entry := env.createEntry(t, "long walk with Ada by the river", 30, nil)

	resp, err := http.Post(env.server.URL+"/api/entries/"+entry.ID+"/insights", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got insights.Reflection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []string{"Walked with Ada"}, got.KeyPeopleEvents)
	assert.Equal(t, entry.Transcript, env.reflector.gotTranscript)
}

func TestInsightsUnknownEntry(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/entries/00000000-0000-0000-0000-000000000000/insights", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInsightsCollaboratorFailure(t *testing.T) {
	env := newTestEnv(t)
	env.reflector.err = model.NewCollaboratorError("insights", fmt.Errorf("upstream down"))

	entry := env.createEntry(t, "a note", 1, nil)

	resp, err := http.Post(env.server.URL+"/api/entries/"+entry.ID+"/insights", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestAudioMissingCases(t *testing.T) {
	env := newTestEnv(t)

	entry := env.createEntry(t, "text only entry", 1, nil)

	resp, err := http.Get(env.server.URL + "/api/entries/" + entry.ID + "/audio")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(env.server.URL + "/api/entries/00000000-0000-0000-0000-000000000000/audio")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	// Generate some traffic first so labeled series exist.
	resp, err := http.Get(env.server.URL + "/api/entries")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "unposted_http_requests_total")
	assert.Contains(t, string(raw), "unposted_live_audio_handles")
}

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/porticus-lab/go-page-ocr/internal/jobs"
)

type fakeService struct {
	mu        sync.Mutex
	jobs      map[string]*jobs.Job
	submitErr error
	submitted []string
}

func newFakeService() *fakeService {
	return &fakeService{jobs: make(map[string]*jobs.Job)}
}

func (f *fakeService) Submit(_ context.Context, rawURL string) (*jobs.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, rawURL)
	j := &jobs.Job{ID: "job-1", URL: rawURL, Status: jobs.StatusQueued}
	f.jobs[j.ID] = j
	return j, nil
}

func (f *fakeService) Get(_ context.Context, id string) (*jobs.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, jobs.ErrNotFound
	}
	return j.Clone(), nil
}

func newTestServer(svc Service) *httptest.Server {
	return httptest.NewServer(New(svc, Config{Logger: zap.NewNop()}).Handler())
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestCreateCapture(t *testing.T) {
	svc := newFakeService()
	ts := newTestServer(svc)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/captures", "application/json", strings.NewReader(`{"url":"https://example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "/v1/jobs/job-1", resp.Header.Get("Location"))

	var body captureResponse
	decode(t, resp, &body)
	assert.Equal(t, "job-1", body.JobID)
	assert.Equal(t, jobs.StatusQueued, body.Status)
	assert.Equal(t, []string{"https://example.com"}, svc.submitted)
}

func TestCreateCapture_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		submitErr error
		want      int
	}{
		{name: "malformed body", body: `{"url":`, want: http.StatusBadRequest},
		{name: "missing url", body: `{}`, want: http.StatusBadRequest},
		{name: "invalid url", body: `{"url":"ftp://x"}`, submitErr: jobs.ErrInvalidURL, want: http.StatusBadRequest},
		{name: "busy", body: `{"url":"https://example.com"}`, submitErr: jobs.ErrBusy, want: http.StatusServiceUnavailable},
		{name: "closed", body: `{"url":"https://example.com"}`, submitErr: jobs.ErrClosed, want: http.StatusServiceUnavailable},
		{name: "store failure", body: `{"url":"https://example.com"}`, submitErr: assert.AnError, want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.submitErr = tt.submitErr
			ts := newTestServer(svc)
			defer ts.Close()

			resp, err := http.Post(ts.URL+"/v1/captures", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)

			var body errorResponse
			decode(t, resp, &body)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestGetJob(t *testing.T) {
	svc := newFakeService()
	svc.jobs["abc"] = &jobs.Job{
		ID:       "abc",
		URL:      "https://example.com",
		Status:   jobs.StatusDone,
		Progress: 100,
		OCRText:  "hello",
		Model:    "gemini-2.5-flash",
		Warnings: []string{"image split into 2 chunks for OCR"},
	}
	ts := newTestServer(svc)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/jobs/abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var raw map[string]any
	decode(t, resp, &raw)
	assert.Equal(t, "abc", raw["jobId"])
	assert.Equal(t, "done", raw["status"])
	assert.EqualValues(t, 100, raw["progress"])
	assert.Equal(t, "hello", raw["ocrText"])
	assert.NotContains(t, raw, "error")
}

func TestGetJob_NotFound(t *testing.T) {
	ts := newTestServer(newFakeService())
	defer ts.Close()

	for _, path := range []string{"/v1/jobs/nope", "/v1/jobs/nope/text"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestGetJobText(t *testing.T) {
	svc := newFakeService()
	svc.jobs["done"] = &jobs.Job{ID: "done", Status: jobs.StatusDone, OCRText: "体重 60kg"}
	svc.jobs["busy"] = &jobs.Job{ID: "busy", Status: jobs.StatusExtracting}
	ts := newTestServer(svc)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/jobs/done/text")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	text, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "体重 60kg", string(text))

	resp2, err := http.Get(ts.URL + "/v1/jobs/busy/text")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusConflict, resp2.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(newFakeService())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s := New(newFakeService(), Config{Addr: "127.0.0.1:0", Logger: zap.NewNop()})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.ListenAndServe(ctx) }()
	cancel()
	assert.NoError(t, <-errc)
}

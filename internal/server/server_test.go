package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/alnah/paperdigest/internal/dispatch"
	"github.com/alnah/paperdigest/internal/metrics"
	"github.com/alnah/paperdigest/internal/processor"
	"github.com/alnah/paperdigest/internal/render"
	"github.com/alnah/paperdigest/internal/storage"
)

const testRequestID = "3f2b8c1e-7d4a-4e55-9a1b-2c6d8e0f4a71"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []processor.Job
	err  error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, job processor.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeDispatcher) snapshot() []processor.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]processor.Job(nil), f.jobs...)
}

type memStore struct {
	objects map[string][]byte
	err     error
}

func (s *memStore) Put(_ context.Context, key string, body []byte, _ string) error {
	s.objects[key] = body
	return nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	b, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return b, nil
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %q: %v", rec.Body.String(), err)
	}
	return out
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()

	want := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, X-Api-Key",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestFrontDoor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		body       string
		stored     map[string][]byte
		storeErr   error
		dispErr    error
		wantStatus int
		wantKey    string
		wantValue  string
	}{
		{
			name:       "url dispatches",
			path:       "/",
			body:       `{"arxivUrl":"https://arxiv.org/abs/2408.07712"}`,
			wantStatus: http.StatusOK,
			wantKey:    "request_id",
		},
		{
			name:       "summaries path",
			path:       "/summaries",
			body:       `{"arxivUrl":"https://arxiv.org/abs/2408.07712"}`,
			wantStatus: http.StatusOK,
			wantKey:    "request_id",
		},
		{
			name:       "url wins over request id",
			path:       "/",
			body:       `{"arxivUrl":"https://arxiv.org/abs/2408.07712","requestId":"` + testRequestID + `"}`,
			wantStatus: http.StatusOK,
			wantKey:    "request_id",
		},
		{
			name:       "unsupported url",
			path:       "/",
			body:       `{"arxivUrl":"ftp://arxiv.org/abs/1"}`,
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
		},
		{
			name:       "dispatch failure",
			path:       "/",
			body:       `{"arxivUrl":"https://arxiv.org/abs/2408.07712"}`,
			dispErr:    dispatch.ErrQueueFull,
			wantStatus: http.StatusInternalServerError,
			wantKey:    "error",
		},
		{
			name:       "poll found",
			path:       "/",
			body:       `{"requestId":"` + testRequestID + `"}`,
			stored:     map[string][]byte{storage.HTMLKey(testRequestID): []byte("<p>done</p>")},
			wantStatus: http.StatusOK,
			wantKey:    "html",
			wantValue:  "<p>done</p>",
		},
		{
			name:       "poll pending",
			path:       "/",
			body:       `{"requestId":"` + testRequestID + `"}`,
			wantStatus: http.StatusAccepted,
			wantKey:    "status",
			wantValue:  "pending",
		},
		{
			name:       "poll storage error reports pending",
			path:       "/",
			body:       `{"requestId":"` + testRequestID + `"}`,
			storeErr:   errors.New("database is locked"),
			wantStatus: http.StatusAccepted,
			wantKey:    "status",
			wantValue:  "pending",
		},
		{
			name:       "poll traversal id reports pending",
			path:       "/",
			body:       `{"requestId":"../../etc/passwd"}`,
			wantStatus: http.StatusAccepted,
			wantKey:    "status",
			wantValue:  "pending",
		},
		{
			name:       "poll non uuid id reports pending",
			path:       "/",
			body:       `{"requestId":"job-42"}`,
			stored:     map[string][]byte{storage.HTMLKey("job-42"): []byte("<p>stale</p>")},
			wantStatus: http.StatusAccepted,
			wantKey:    "status",
			wantValue:  "pending",
		},
		{
			name:       "empty object",
			path:       "/",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
		},
		{
			name:       "malformed json",
			path:       "/",
			body:       `{"arxivUrl":`,
			wantStatus: http.StatusBadRequest,
			wantKey:    "error",
		},
		{
			name:       "unknown path",
			path:       "/nope",
			body:       `{}`,
			wantStatus: http.StatusNotFound,
			wantKey:    "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stored := tt.stored
			if stored == nil {
				stored = map[string][]byte{}
			}
			disp := &fakeDispatcher{err: tt.dispErr}
			fd := NewFrontDoor(disp, &memStore{objects: stored, err: tt.storeErr}, nil, quietLogger())
			h := NewHandler(Options{Logger: quietLogger()}, fd)

			rec := do(t, h, http.MethodPost, tt.path, tt.body, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			assertCORS(t, rec)

			out := decode(t, rec)
			v, ok := out[tt.wantKey]
			if !ok || v == "" {
				t.Fatalf("response %v missing %q", out, tt.wantKey)
			}
			if tt.wantValue != "" && v != tt.wantValue {
				t.Errorf("%s = %q, want %q", tt.wantKey, v, tt.wantValue)
			}
			if tt.wantKey == "request_id" {
				if len(disp.jobs) != 1 || disp.jobs[0].RequestID != v {
					t.Errorf("dispatched %+v, want one job with id %s", disp.jobs, v)
				}
				if err := disp.jobs[0].Validate(); err != nil {
					t.Errorf("dispatched job invalid: %v", err)
				}
			}
		})
	}
}

func TestFrontDoor_FreshRequestIDs(t *testing.T) {
	t.Parallel()

	disp := &fakeDispatcher{}
	h := NewHandler(Options{Logger: quietLogger()}, NewFrontDoor(disp, &memStore{objects: map[string][]byte{}}, nil, quietLogger()))

	body := `{"arxivUrl":"https://arxiv.org/abs/2408.07712"}`
	a := decode(t, do(t, h, http.MethodPost, "/", body, nil))["request_id"]
	b := decode(t, do(t, h, http.MethodPost, "/", body, nil))["request_id"]
	if a == b {
		t.Errorf("request ids repeat: %s", a)
	}
}

func TestHandler_Preflight(t *testing.T) {
	t.Parallel()

	h := NewHandler(Options{APIKey: "secret", Logger: quietLogger()},
		NewFrontDoor(&fakeDispatcher{}, &memStore{objects: map[string][]byte{}}, nil, quietLogger()))

	for _, path := range []string{"/", "/summaries", dispatch.JobsPath} {
		rec := do(t, h, http.MethodOptions, path, "", nil)
		if rec.Code != http.StatusNoContent {
			t.Errorf("OPTIONS %s = %d, want 204", path, rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("OPTIONS %s body = %q, want empty", path, rec.Body)
		}
		assertCORS(t, rec)
	}
}

func TestHandler_APIKey(t *testing.T) {
	t.Parallel()

	disp := &fakeDispatcher{}
	h := NewHandler(Options{APIKey: "secret", Logger: quietLogger()},
		NewFrontDoor(disp, &memStore{objects: map[string][]byte{}}, nil, quietLogger()))
	body := `{"arxivUrl":"https://arxiv.org/abs/2408.07712"}`

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"missing", nil, http.StatusForbidden},
		{"wrong", map[string]string{"X-Api-Key": "guess"}, http.StatusForbidden},
		{"correct", map[string]string{"X-Api-Key": "secret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/", body, tt.header)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			assertCORS(t, rec)
		})
	}

	if rec := do(t, h, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz without key = %d, want 200", rec.Code)
	}
	if len(disp.jobs) != 1 {
		t.Errorf("dispatched %d jobs, want 1", len(disp.jobs))
	}
}

func TestHandler_HealthAndMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	store := &memStore{objects: map[string][]byte{}}
	h := NewHandler(Options{Logger: quietLogger(), Metrics: m}, NewFrontDoor(&fakeDispatcher{}, store, m, quietLogger()))

	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body)
	}

	do(t, h, http.MethodPost, "/", `{"requestId":"`+testRequestID+`"}`, nil)
	do(t, h, http.MethodPost, "/", `{"arxivUrl":"https://arxiv.org/abs/2408.07712"}`, nil)
	if got := testutil.ToFloat64(m.PollsTotal.WithLabelValues(metrics.PollPending)); got != 1 {
		t.Errorf("pending polls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DispatchesTotal.WithLabelValues(metrics.OutcomeSucceeded)); got != 1 {
		t.Errorf("dispatches = %v, want 1", got)
	}

	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
	for _, want := range []string{"paperdigest_polls_total", "paperdigest_dispatches_total", "go_goroutines"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestHandler_RecoversPanics(t *testing.T) {
	t.Parallel()

	h := NewHandler(Options{Logger: quietLogger()}, routeFunc(func(mux *http.ServeMux) {
		mux.HandleFunc("POST /panic", func(http.ResponseWriter, *http.Request) { panic("boom") })
	}))

	rec := do(t, h, http.MethodPost, "/panic", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

type routeFunc func(*http.ServeMux)

func (f routeFunc) Register(mux *http.ServeMux) { f(mux) }

func TestJobs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		dispErr error
		want    int
	}{
		{"accepted", `{"requestId":"` + testRequestID + `","arxivUrl":"https://arxiv.org/abs/1"}`, nil, http.StatusAccepted},
		{"invalid id", `{"requestId":"x","arxivUrl":"https://arxiv.org/abs/1"}`, nil, http.StatusBadRequest},
		{"missing url", `{"requestId":"` + testRequestID + `"}`, nil, http.StatusBadRequest},
		{"malformed", `[`, nil, http.StatusBadRequest},
		{"queue full", `{"requestId":"` + testRequestID + `","arxivUrl":"u"}`, dispatch.ErrQueueFull, http.StatusServiceUnavailable},
		{"queue closed", `{"requestId":"` + testRequestID + `","arxivUrl":"u"}`, dispatch.ErrQueueClosed, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			disp := &fakeDispatcher{err: tt.dispErr}
			h := NewHandler(Options{Logger: quietLogger()}, NewJobs(disp, quietLogger()))

			rec := do(t, h, http.MethodPost, dispatch.JobsPath, tt.body, nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			assertCORS(t, rec)
			if tt.want == http.StatusAccepted && decode(t, rec)["request_id"] != testRequestID {
				t.Errorf("body = %s", rec.Body)
			}
		})
	}
}

// HTTP dispatcher against the jobs endpoint, end to end.
func TestJobs_WithHTTPDispatcher(t *testing.T) {
	t.Parallel()

	local := &fakeDispatcher{}
	srv := httptest.NewServer(NewHandler(Options{APIKey: "k", Logger: quietLogger()}, NewJobs(local, quietLogger())))
	defer srv.Close()

	d := dispatch.NewHTTPDispatcher(srv.URL, dispatch.WithAPIKey("k"), dispatch.WithHTTPLogger(quietLogger()))
	job := processor.Job{RequestID: testRequestID, ArxivURL: "https://arxiv.org/abs/2408.07712"}
	if err := d.Dispatch(context.Background(), job); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got := local.snapshot(); len(got) != 1 || got[0] != job {
		t.Errorf("processor received %+v", got)
	}

	bad := dispatch.NewHTTPDispatcher(srv.URL, dispatch.WithHTTPLogger(quietLogger()))
	if err := bad.Dispatch(context.Background(), job); !errors.Is(err, dispatch.ErrDispatch) {
		t.Errorf("Dispatch() without key error = %v, want ErrDispatch", err)
	}
}

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string) ([]byte, error) { return []byte("%PDF"), nil }

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, []byte) (string, error) { return "paper text", nil }

type stubSummarizer struct{}

func (stubSummarizer) Summarize(context.Context, string) (string, error) {
	return "# Summary\n\n| a | b |\n|---|---|\n| 1 | 2 |", nil
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := storage.NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore() error = %v", err)
	}
	proc, err := processor.New(processor.Deps{
		Fetcher:    stubFetcher{},
		Extractor:  stubExtractor{},
		Summarizer: stubSummarizer{},
		Renderer:   render.New(render.WithLogger(quietLogger())),
		Store:      store,
		Prompt:     "{$file_content}",
		Template:   "<html><head></head><body>{{CONTENT}}</body></html>",
	}, processor.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("processor.New() error = %v", err)
	}

	disp := &fakeDispatcher{}
	h := NewHandler(Options{Logger: quietLogger()}, NewFrontDoor(disp, store, nil, quietLogger()))

	const source = "https://arxiv.org/abs/2408.07712"
	id := decode(t, do(t, h, http.MethodPost, "/", `{"arxivUrl":"`+source+`"}`, nil))["request_id"]
	poll := `{"requestId":"` + id + `"}`

	rec := do(t, h, http.MethodPost, "/", poll, nil)
	if rec.Code != http.StatusAccepted || decode(t, rec)["status"] != "pending" {
		t.Fatalf("poll before completion = %d %s, want 202 pending", rec.Code, rec.Body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := proc.Process(ctx, disp.jobs[0]); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	rec = do(t, h, http.MethodPost, "/", poll, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("poll after completion = %d %s, want 200", rec.Code, rec.Body)
	}
	html := decode(t, rec)["html"]
	if !strings.Contains(html, `<a href="`+source+`">View original paper</a>`) {
		t.Errorf("html missing back-link: %s", html)
	}
	if !strings.Contains(html, "<table>") {
		t.Errorf("html missing table: %s", html)
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, "127.0.0.1:0", http.NotFoundHandler(), time.Second, quietLogger())
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

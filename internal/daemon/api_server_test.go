package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"clipress/internal/api"
	"clipress/internal/config"
	"clipress/internal/testsupport"
	"clipress/internal/workflow"
)

func newTestDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, nil, nil)
	d, err := New(cfg, store, nil, mgr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w
}

func sourceFile(t *testing.T, cfg *config.Config, name string, size int64) string {
	t.Helper()
	path := filepath.Join(testsupport.BaseDir(cfg), "uploads", name)
	testsupport.WriteFile(t, path, size)
	return path
}

func TestAPISubmitAndQueryLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(testsupport.FakeTools{OutputBytes: 2048}))
	d := newTestDaemon(t, cfg)
	h := d.api.handler

	events, unsubscribe := d.workflow.Subscribe()
	defer unsubscribe()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	source := sourceFile(t, cfg, "trip.mov", 64*1024)
	var submitted api.SubmitResponse
	w := doJSON(t, h, http.MethodPost, "/api/jobs", api.SubmitRequest{
		UserID:     "u1",
		SourcePath: source,
		Settings:   &api.Settings{Preset: "fast"},
	}, &submitted)
	if w.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d body=%s", w.Code, w.Body.String())
	}
	if submitted.JobID == "" || submitted.EstimateSeconds != 0 {
		t.Fatalf("unexpected submit response %+v", submitted)
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected request id header")
	}

	deadline := time.After(30 * time.Second)
	for done := false; !done; {
		select {
		case event := <-events:
			done = event.JobID == submitted.JobID && event.Terminal()
		case <-deadline:
			t.Fatal("timed out waiting for job to finish")
		}
	}

	var shown api.JobResponse
	if w := doJSON(t, h, http.MethodGet, "/api/jobs/"+submitted.JobID, nil, &shown); w.Code != http.StatusOK {
		t.Fatalf("show status = %d", w.Code)
	}
	if shown.Job.Status != "completed" || shown.Job.Result == nil || shown.Job.Result.CompressedSize != 2048 {
		t.Fatalf("unexpected job %+v", shown.Job)
	}
	if shown.Job.Settings.Preset != "fast" {
		t.Fatalf("settings snapshot lost: %+v", shown.Job.Settings)
	}
	if thumb := shown.Job.Settings.GenerateThumbnail; thumb == nil || !*thumb || shown.Job.Settings.RemovesAudio() {
		t.Fatalf("flags absent from the request should come from defaults: %+v", shown.Job.Settings)
	}

	var list api.JobListResponse
	doJSON(t, h, http.MethodGet, "/api/jobs?status=completed&user=u1", nil, &list)
	if len(list.Jobs) != 1 || list.Jobs[0].ID != submitted.JobID {
		t.Fatalf("unexpected list %+v", list.Jobs)
	}
	doJSON(t, h, http.MethodGet, "/api/users/u1/jobs?active=1", nil, &list)
	if len(list.Jobs) != 0 {
		t.Fatalf("expected no active jobs, got %+v", list.Jobs)
	}

	var stats api.UserStats
	doJSON(t, h, http.MethodGet, "/api/users/u1/stats", nil, &stats)
	if stats.TotalCompressed != 1 || stats.TotalBytesSaved != 64*1024-2048 {
		t.Fatalf("unexpected user stats %+v", stats)
	}

	var totals api.StatsResponse
	doJSON(t, h, http.MethodGet, "/api/stats", nil, &totals)
	if totals.Totals.TotalCompressed != 1 || totals.Queue["completed"] != 1 {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

func TestAPIErrorMapping(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithLimits(1, 1),
	)
	d := newTestDaemon(t, cfg)
	h := d.api.handler

	small := sourceFile(t, cfg, "small.mov", 1024)
	large := sourceFile(t, cfg, "large.mov", 2<<20)

	var first api.SubmitResponse
	if w := doJSON(t, h, http.MethodPost, "/api/jobs", api.SubmitRequest{UserID: "u1", SourcePath: small}, &first); w.Code != http.StatusAccepted {
		t.Fatalf("first submit = %d %s", w.Code, w.Body.String())
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
		kind   string
	}{
		{"queue full", http.MethodPost, "/api/jobs", api.SubmitRequest{UserID: "u1", SourcePath: small}, http.StatusConflict, "queue_full"},
		{"too large", http.MethodPost, "/api/jobs", api.SubmitRequest{UserID: "u2", SourcePath: large}, http.StatusRequestEntityTooLarge, "file_too_large"},
		{"invalid settings", http.MethodPost, "/api/jobs", api.SubmitRequest{UserID: "u2", SourcePath: small, Settings: &api.Settings{Preset: "warp"}}, http.StatusUnprocessableEntity, "validation_error"},
		{"missing source", http.MethodPost, "/api/jobs", api.SubmitRequest{UserID: "u2", SourcePath: small + ".gone"}, http.StatusUnprocessableEntity, "source_not_found"},
		{"unknown field", http.MethodPost, "/api/jobs", `{"userId":"u2","bogus":1}`, http.StatusBadRequest, "invalid_request"},
		{"unknown job", http.MethodGet, "/api/jobs/nope", nil, http.StatusNotFound, "not_found"},
		{"cancel unknown", http.MethodPost, "/api/jobs/nope/cancel", nil, http.StatusNotFound, "not_found"},
		{"bad status filter", http.MethodGet, "/api/jobs?status=paused", nil, http.StatusUnprocessableEntity, "invalid_action"},
		{"bad defaults", http.MethodPut, "/api/users/u1/settings", api.Settings{Resolution: "8k"}, http.StatusUnprocessableEntity, "invalid_resolution"},
		{"unknown action", http.MethodPost, "/api/actions", `{"type":"reboot"}`, http.StatusUnprocessableEntity, "invalid_action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp api.ErrorResponse
			w := doJSON(t, h, tt.method, tt.path, tt.body, &resp)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.code, w.Body.String())
			}
			if resp.Kind != tt.kind {
				t.Fatalf("kind = %q, want %q (error %q)", resp.Kind, tt.kind, resp.Error)
			}
		})
	}

	var cancelled api.JobResponse
	if w := doJSON(t, h, http.MethodPost, "/api/jobs/"+first.JobID+"/cancel", nil, &cancelled); w.Code != http.StatusOK {
		t.Fatalf("cancel = %d %s", w.Code, w.Body.String())
	}
	if cancelled.Job.Status != "cancelled" {
		t.Fatalf("expected cancelled job, got %+v", cancelled.Job)
	}
	var again api.ErrorResponse
	if w := doJSON(t, h, http.MethodPost, "/api/jobs/"+first.JobID+"/cancel", nil, &again); w.Code != http.StatusConflict || again.Kind != "already_terminal" {
		t.Fatalf("second cancel = %d %+v", w.Code, again)
	}
}

func TestAPIQueuedJobShowsPosition(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	d := newTestDaemon(t, cfg)
	h := d.api.handler

	var ids []string
	for _, name := range []string{"a.mov", "b.mov"} {
		var resp api.SubmitResponse
		doJSON(t, h, http.MethodPost, "/api/jobs", api.SubmitRequest{UserID: "u1", SourcePath: sourceFile(t, cfg, name, 1024)}, &resp)
		ids = append(ids, resp.JobID)
	}

	var shown api.JobResponse
	doJSON(t, h, http.MethodGet, "/api/jobs/"+ids[1], nil, &shown)
	if shown.Job.Status != "queued" || shown.Job.QueuePosition != 2 {
		t.Fatalf("unexpected queued job %+v", shown.Job)
	}

	var out api.JobListResponse
	w := doJSON(t, h, http.MethodPost, "/api/actions", `{"type":"queue","userId":"u1"}`, &out)
	if w.Code != http.StatusOK || len(out.Jobs) != 2 || out.Jobs[0].QueuePosition != 1 {
		t.Fatalf("queue action = %d %+v", w.Code, out)
	}
}

func TestAPIUserSettings(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	d := newTestDaemon(t, cfg)
	h := d.api.handler

	var stored api.Settings
	w := doJSON(t, h, http.MethodPut, "/api/users/u7/settings", api.Settings{Preset: "slow", Resolution: "480p"}, &stored)
	if w.Code != http.StatusOK {
		t.Fatalf("put settings = %d %s", w.Code, w.Body.String())
	}
	if stored.Preset != "slow" || stored.Resolution != "480p" || stored.AudioBitrate == "" {
		t.Fatalf("unexpected stored defaults %+v", stored)
	}

	var stats api.UserStats
	doJSON(t, h, http.MethodGet, "/api/users/u7/stats", nil, &stats)
	if stats.Defaults == nil || stats.Defaults.Preset != "slow" {
		t.Fatalf("defaults not reported: %+v", stats)
	}
}

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	tests := []struct {
		name   string
		token  string
		hash   string
		header string
		want   int
	}{
		{"open", "", "", "", http.StatusNoContent},
		{"missing header", "secret", "", "", http.StatusUnauthorized},
		{"wrong scheme", "secret", "", "Basic secret", http.StatusUnauthorized},
		{"wrong token", "secret", "", "Bearer nope", http.StatusUnauthorized},
		{"plain token", "secret", "", "Bearer secret", http.StatusNoContent},
		{"hashed token", "", string(hash), "Bearer hashed-secret", http.StatusNoContent},
		{"hash mismatch", "", string(hash), "Bearer secret", http.StatusUnauthorized},
		{"either accepted", "secret", string(hash), "Bearer hashed-secret", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			authMiddleware(tt.token, tt.hash, ok).ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAPIEventStream(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(testsupport.FakeTools{ProgressSteps: 3}))
	cfg.Paths.APIToken = "secret"
	d := newTestDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	srv := httptest.NewServer(d.api.handler)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/events?user=sse", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	if _, err := d.workflow.Submit(context.Background(), workflow.SubmitRequest{
		UserID:     "sse",
		SourcePath: sourceFile(t, cfg, "stream.mov", 4096),
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var types []string
	scanner := bufio.NewScanner(resp.Body)
	timeout := time.AfterFunc(30*time.Second, func() { _ = resp.Body.Close() })
	defer timeout.Stop()
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			types = append(types, name)
			continue
		}
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var event api.Event
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				t.Fatalf("decode event %q: %v", data, err)
			}
			if event.UserID != "sse" {
				t.Fatalf("filter leaked event %+v", event)
			}
			if event.Status == "completed" {
				if event.Result == nil || event.Location == "" {
					t.Fatalf("terminal event missing result: %+v", event)
				}
				break
			}
		}
	}
	if len(types) < 3 || types[0] != "queued" || types[len(types)-1] != "completed" {
		t.Fatalf("unexpected event sequence %v", types)
	}
}

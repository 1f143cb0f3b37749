package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"clipress/internal/config"
	"clipress/internal/notifications"
	"clipress/internal/preflight"
	"clipress/internal/queue"
	"clipress/internal/settings"
	"clipress/internal/staging"
	"clipress/internal/testsupport"
	"clipress/internal/workflow"
)

const eventTimeout = 30 * time.Second

func newManager(t *testing.T, cfg *config.Config, opts ...workflow.Option) (*workflow.Manager, *queue.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, nil, nil, opts...)
	t.Cleanup(func() {
		mgr.Stop()
		_ = mgr.Close()
	})
	return mgr, store
}

func startManager(t *testing.T, mgr *workflow.Manager) {
	t.Helper()
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func writeSource(t *testing.T, cfg *config.Config, name string, size int64) string {
	t.Helper()
	path := filepath.Join(filepath.Dir(cfg.Paths.StagingDir), "uploads", name)
	testsupport.WriteFile(t, path, size)
	return path
}

func noThumbnail() *settings.Overrides {
	return &settings.Overrides{GenerateThumbnail: boolRef(false)}
}

func boolRef(v bool) *bool { return &v }

func waitTerminal(t *testing.T, events <-chan notifications.Event, jobID string) []notifications.Event {
	t.Helper()
	var seen []notifications.Event
	timeout := time.After(eventTimeout)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				t.Fatalf("event stream closed before %s finished", jobID)
			}
			if event.JobID != jobID {
				continue
			}
			seen = append(seen, event)
			if event.Terminal() {
				return seen
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s; saw %+v", jobID, seen)
		}
	}
}

func waitForEvent(t *testing.T, events <-chan notifications.Event, jobID string, eventType notifications.EventType) {
	t.Helper()
	timeout := time.After(eventTimeout)
	for {
		select {
		case event := <-events:
			if event.JobID == jobID && event.Type == eventType {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s on %s", eventType, jobID)
		}
	}
}

func waitForPID(t *testing.T, path string) int {
	t.Helper()
	deadline := time.Now().Add(eventTimeout)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil {
			if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid > 0 {
				return pid
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("pid file %s never written", path)
	return 0
}

func TestSubmitRunsJobToCompletion(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(testsupport.FakeTools{OutputBytes: 4096}))
	mgr, store := newManager(t, cfg)
	startManager(t, mgr)

	events, unsubscribe := mgr.Subscribe()
	defer unsubscribe()

	const originalSize = 1 << 20
	source := writeSource(t, cfg, "Holiday Clip.mov", originalSize)
	ctx := context.Background()
	id, err := mgr.Submit(ctx, workflow.SubmitRequest{UserID: "u1", SourcePath: source, Settings: noThumbnail()})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	seen := waitTerminal(t, events, id)
	if seen[0].Type != notifications.EventQueued || seen[1].Type != notifications.EventStarted {
		t.Fatalf("unexpected leading events: %+v", seen[:2])
	}
	last := seen[len(seen)-1]
	if last.Type != notifications.EventCompleted || last.Progress != 100 {
		t.Fatalf("expected completed at 100, got %+v", last)
	}
	prev := 0
	progressEvents := 0
	for _, event := range seen[2 : len(seen)-1] {
		if event.Type != notifications.EventProgress {
			t.Fatalf("unexpected mid-stream event %+v", event)
		}
		if event.Progress < prev || event.Progress > 99 {
			t.Fatalf("progress went from %d to %d", prev, event.Progress)
		}
		prev = event.Progress
		progressEvents++
	}
	if progressEvents == 0 {
		t.Fatal("expected progress events")
	}

	job, err := store.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != queue.StatusCompleted || job.Progress != 100 {
		t.Fatalf("unexpected job state %s/%d", job.Status, job.Progress)
	}
	if job.Result == nil || job.Result.CompressedSize != 4096 {
		t.Fatalf("unexpected result %+v", job.Result)
	}
	if job.Result.SizeReduction != originalSize-4096 {
		t.Fatalf("size reduction = %d", job.Result.SizeReduction)
	}
	want := filepath.Join(cfg.Paths.OutputDir, id, "Holiday Clip_compressed.mp4")
	if job.DeliveredLocation != want {
		t.Fatalf("delivered to %q, want %q", job.DeliveredLocation, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("delivered file missing: %v", err)
	}
	if _, err := os.Stat(staging.JobDir(cfg.Paths.StagingDir, id)); !os.IsNotExist(err) {
		t.Fatalf("work dir should be removed, stat err = %v", err)
	}

	stats, err := mgr.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("UserStats: %v", err)
	}
	if stats.TotalCompressed != 1 || stats.TotalBytesSaved != originalSize-4096 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestSubmitAdmissionChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithFakeTools(testsupport.FakeTools{}),
		testsupport.WithLimits(1, 1),
	)
	mgr, _ := newManager(t, cfg)
	ctx := context.Background()

	small := writeSource(t, cfg, "small.mp4", 1024)
	large := writeSource(t, cfg, "large.mp4", 2<<20)

	tests := []struct {
		name string
		req  workflow.SubmitRequest
		want error
	}{
		{"too large", workflow.SubmitRequest{UserID: "a", SourcePath: large}, workflow.ErrFileTooLarge},
		{"invalid preset", workflow.SubmitRequest{UserID: "a", SourcePath: small, Settings: &settings.Overrides{Preset: "warp"}}, workflow.ErrInvalidSettings},
		{"missing source", workflow.SubmitRequest{UserID: "a", SourcePath: filepath.Join(t.TempDir(), "nope.mp4")}, workflow.ErrSourceNotFound},
		{"missing user", workflow.SubmitRequest{SourcePath: small}, workflow.ErrInvalidSettings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.Submit(ctx, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var admission *workflow.AdmissionError
			if !errors.As(err, &admission) {
				t.Fatalf("expected AdmissionError, got %T", err)
			}
		})
	}

	if _, err := mgr.Submit(ctx, workflow.SubmitRequest{UserID: "a", SourcePath: small}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	// Queue capacity is checked before size.
	_, err := mgr.Submit(ctx, workflow.SubmitRequest{UserID: "a", SourcePath: large})
	if !errors.Is(err, workflow.ErrQueueFull) {
		t.Fatalf("expected queue full, got %v", err)
	}
	if _, err := mgr.Submit(ctx, workflow.SubmitRequest{UserID: "b", SourcePath: small}); err != nil {
		t.Fatalf("other user should be admitted: %v", err)
	}
}

func TestTerminalJobsDoNotCountTowardsQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithFakeTools(testsupport.FakeTools{}),
		testsupport.WithLimits(1, 0),
	)
	mgr, _ := newManager(t, cfg)
	ctx := context.Background()
	source := writeSource(t, cfg, "clip.mp4", 1024)

	id, err := mgr.Submit(ctx, workflow.SubmitRequest{UserID: "a", SourcePath: source})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := mgr.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := mgr.Submit(ctx, workflow.SubmitRequest{UserID: "a", SourcePath: source}); err != nil {
		t.Fatalf("submit after cancel: %v", err)
	}
}

func TestSubmitUsesStoredUserDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(testsupport.FakeTools{}))
	mgr, store := newManager(t, cfg)
	ctx := context.Background()

	if _, err := mgr.SetUserDefaults(ctx, "u1", settings.Overrides{Preset: settings.PresetSlow, Resolution: settings.Resolution720p}); err != nil {
		t.Fatalf("SetUserDefaults: %v", err)
	}
	source := writeSource(t, cfg, "clip.mp4", 1024)

	id, err := mgr.Submit(ctx, workflow.SubmitRequest{UserID: "u1", SourcePath: source})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job, err := store.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Settings.Preset != settings.PresetSlow || job.Settings.Resolution != settings.Resolution720p {
		t.Fatalf("user defaults not applied: %+v", job.Settings)
	}

	id, err = mgr.Submit(ctx, workflow.SubmitRequest{UserID: "u1", SourcePath: source, Settings: &settings.Overrides{Preset: settings.PresetFast}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job, _ = store.GetJob(ctx, id)
	if job.Settings.Preset != settings.PresetFast || job.Settings.Resolution != settings.Resolution720p {
		t.Fatalf("explicit preset should win over defaults: %+v", job.Settings)
	}

	if _, err := mgr.SetUserDefaults(ctx, "u1", settings.Overrides{Preset: "bogus"}); err == nil {
		t.Fatal("expected invalid defaults to be rejected")
	}
}

func TestPartialSettingsKeepDefaultFlags(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(testsupport.FakeTools{}))
	mgr, store := newManager(t, cfg)
	ctx := context.Background()
	source := writeSource(t, cfg, "clip.mp4", 1024)

	id, err := mgr.Submit(ctx, workflow.SubmitRequest{UserID: "u2", SourcePath: source, Settings: &settings.Overrides{Preset: settings.PresetFast}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job, err := store.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if !job.Settings.GenerateThumbnail || job.Settings.RemoveAudio {
		t.Fatalf("configured flags lost on a partial request: %+v", job.Settings)
	}

	if _, err := mgr.SetUserDefaults(ctx, "u1", settings.Overrides{RemoveAudio: boolRef(true)}); err != nil {
		t.Fatalf("SetUserDefaults: %v", err)
	}
	stored, err := mgr.SetUserDefaults(ctx, "u1", settings.Overrides{Resolution: settings.Resolution480p})
	if err != nil {
		t.Fatalf("SetUserDefaults: %v", err)
	}
	if !stored.RemoveAudio || stored.Resolution != settings.Resolution480p {
		t.Fatalf("updating defaults dropped earlier choices: %+v", stored)
	}

	id, err = mgr.Submit(ctx, workflow.SubmitRequest{UserID: "u1", SourcePath: source, Settings: &settings.Overrides{Preset: settings.PresetFast}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job, _ = store.GetJob(ctx, id)
	if !job.Settings.RemoveAudio || !job.Settings.GenerateThumbnail || job.Settings.Preset != settings.PresetFast {
		t.Fatalf("stored flags should survive an explicit preset: %+v", job.Settings)
	}

	id, err = mgr.Submit(ctx, workflow.SubmitRequest{UserID: "u1", SourcePath: source, Settings: &settings.Overrides{RemoveAudio: boolRef(false)}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	job, _ = store.GetJob(ctx, id)
	if job.Settings.RemoveAudio {
		t.Fatalf("explicit flag should win over defaults: %+v", job.Settings)
	}
}

func TestCancelQueuedJob(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(testsupport.FakeTools{}))
	mgr, store := newManager(t, cfg)
	ctx := context.Background()

	events, unsubscribe := mgr.Subscribe()
	defer unsubscribe()

	source := writeSource(t, cfg, "clip.mp4", 1024)
	id, err := mgr.Submit(ctx, workflow.SubmitRequest{UserID: "u1", SourcePath: source})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if pos, ok := mgr.QueuePosition(id); !ok || pos != 1 {
		t.Fatalf("queue position = %d, %v", pos, ok)
	}
	if err := mgr.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	seen := waitTerminal(t, events, id)
	if len(seen) != 2 || seen[0].Type != notifications.EventQueued || seen[1].Type != notifications.EventCancelled {
		t.Fatalf("unexpected events %+v", seen)
	}
	job, err := store.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != queue.StatusCancelled {
		t.Fatalf("status = %s", job.Status)
	}
	if _, ok := mgr.QueuePosition(id); ok {
		t.Fatal("cancelled job still queued")
	}

	err = mgr.Cancel(ctx, id)
	if !errors.Is(err, workflow.ErrAlreadyTerminal) {
		t.Fatalf("expected already terminal, got %v", err)
	}
	err = mgr.Cancel(ctx, "missing")
	if !errors.Is(err, workflow.ErrJobNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCancelProcessingJobTerminatesEncoder(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "ffmpeg.pid")
	cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(testsupport.FakeTools{HangSeconds: 60, PIDFile: pidFile}))
	mgr, store := newManager(t, cfg)
	startManager(t, mgr)
	ctx := context.Background()

	events, unsubscribe := mgr.Subscribe()
	defer unsubscribe()

	source := writeSource(t, cfg, "clip.mp4", 1024)
	id, err := mgr.Submit(ctx, workflow.SubmitRequest{UserID: "u1", SourcePath: source, Settings: noThumbnail()})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForEvent(t, events, id, notifications.EventStarted)
	pid := waitForPID(t, pidFile)

	if err := mgr.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	job, err := store.GetJob(ctx, id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != queue.StatusCancelled {
		t.Fatalf("status = %s (%s)", job.Status, job.ErrorMessage)
	}
	if err := unix.Kill(pid, 0); !errors.Is(err, unix.ESRCH) {
		t.Fatalf("encoder still running: %v", err)
	}
	if _, err := os.Stat(staging.JobDir(cfg.Paths.StagingDir, id)); !os.IsNotExist(err) {
		t.Fatalf("work dir should be removed, stat err = %v", err)
	}
	seen := waitTerminal(t, events, id)
	if seen[len(seen)-1].Type != notifications.EventCancelled {
		t.Fatalf("expected cancelled event, got %+v", seen)
	}
}

func TestExecutionFailures(t *testing.T) {
	tests := []struct {
		name     string
		tools    testsupport.FakeTools
		opts     []workflow.Option
		wantKind string
		trackPID bool
	}{
		{
			name:     "timeout",
			tools:    testsupport.FakeTools{HangSeconds: 60},
			opts:     []workflow.Option{workflow.WithTimeout(300 * time.Millisecond)},
			wantKind: "timeout",
			trackPID: true,
		},
		{
			name:     "encoder exit",
			tools:    testsupport.FakeTools{ExitCode: 3},
			wantKind: "encoder_error",
		},
		{
			name:     "probe",
			tools:    testsupport.FakeTools{ProbeExitCode: 1},
			wantKind: workflow.KindProbeFailed,
		},
		{
			name:  "preflight",
			tools: testsupport.FakeTools{},
			opts: []workflow.Option{workflow.WithPreflight(func(context.Context, *config.Config) []preflight.Result {
				return []preflight.Result{{Name: "FFmpeg", Detail: "missing"}}
			})},
			wantKind: workflow.KindPreflightFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tools := tt.tools
			if tt.trackPID {
				tools.PIDFile = filepath.Join(t.TempDir(), "ffmpeg.pid")
			}
			cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(tools))
			mgr, store := newManager(t, cfg, tt.opts...)
			startManager(t, mgr)
			events, unsubscribe := mgr.Subscribe()
			defer unsubscribe()

			source := writeSource(t, cfg, "clip.mp4", 1024)
			id, err := mgr.Submit(context.Background(), workflow.SubmitRequest{UserID: "u1", SourcePath: source, Settings: noThumbnail()})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			seen := waitTerminal(t, events, id)
			last := seen[len(seen)-1]
			if last.Type != notifications.EventFailed || last.ErrorKind != tt.wantKind || last.Error == "" {
				t.Fatalf("unexpected terminal event %+v", last)
			}
			job, err := store.GetJob(context.Background(), id)
			if err != nil {
				t.Fatalf("GetJob: %v", err)
			}
			if job.Status != queue.StatusFailed || job.ErrorKind != tt.wantKind {
				t.Fatalf("job = %s/%s", job.Status, job.ErrorKind)
			}
			if tt.trackPID {
				pid := waitForPID(t, tools.PIDFile)
				if err := unix.Kill(pid, 0); !errors.Is(err, unix.ESRCH) {
					t.Fatalf("encoder still running after timeout: %v", err)
				}
			}
			if _, err := os.Stat(staging.JobDir(cfg.Paths.StagingDir, id)); !os.IsNotExist(err) {
				t.Fatalf("work dir should be removed, stat err = %v", err)
			}
		})
	}
}

type fakeThumbnailer struct {
	err error
}

func (f fakeThumbnailer) Generate(_ context.Context, _, output string, _ float64) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(output, []byte("jpeg"), 0o644)
}

func TestThumbnailIsBestEffort(t *testing.T) {
	for _, tt := range []struct {
		name      string
		thumb     fakeThumbnailer
		wantThumb bool
	}{
		{"generated", fakeThumbnailer{}, true},
		{"failed", fakeThumbnailer{err: errors.New("no frame")}, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(testsupport.FakeTools{}))
			mgr, store := newManager(t, cfg, workflow.WithThumbnailer(tt.thumb))
			startManager(t, mgr)
			events, unsubscribe := mgr.Subscribe()
			defer unsubscribe()

			source := writeSource(t, cfg, "clip.mp4", 4096)
			id, err := mgr.Submit(context.Background(), workflow.SubmitRequest{
				UserID:     "u1",
				SourcePath: source,
				Settings:   &settings.Overrides{GenerateThumbnail: boolRef(true)},
			})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			seen := waitTerminal(t, events, id)
			if seen[len(seen)-1].Type != notifications.EventCompleted {
				t.Fatalf("expected completion, got %+v", seen[len(seen)-1])
			}
			job, _ := store.GetJob(context.Background(), id)
			if got := job.ThumbnailPath != ""; got != tt.wantThumb {
				t.Fatalf("thumbnail path = %q", job.ThumbnailPath)
			}
			if tt.wantThumb {
				if _, err := os.Stat(job.ThumbnailPath); err != nil {
					t.Fatalf("thumbnail missing: %v", err)
				}
			}
		})
	}
}

func TestJobsStartInAdmissionOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(testsupport.FakeTools{ProgressSteps: 1}))
	mgr, _ := newManager(t, cfg, workflow.WithSlots(1))
	events, unsubscribe := mgr.Subscribe()
	defer unsubscribe()

	source := writeSource(t, cfg, "clip.mp4", 1024)
	var ids []string
	for _, user := range []string{"a", "b", "c"} {
		id, err := mgr.Submit(context.Background(), workflow.SubmitRequest{UserID: user, SourcePath: source, Settings: noThumbnail()})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, id)
	}
	startManager(t, mgr)

	var started []string
	timeout := time.After(eventTimeout)
	for len(started) < len(ids) {
		select {
		case event := <-events:
			if event.Type == notifications.EventStarted {
				started = append(started, event.JobID)
			}
		case <-timeout:
			t.Fatalf("timed out; started %v", started)
		}
	}
	for i := range ids {
		if started[i] != ids[i] {
			t.Fatalf("start order %v, want %v", started, ids)
		}
	}
}

func TestStartRecoversPreviousRun(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(testsupport.FakeTools{}))
	mgr, store := newManager(t, cfg)
	ctx := context.Background()

	source := writeSource(t, cfg, "clip.mp4", 1024)
	jobSettings := settings.Defaults()
	jobSettings.GenerateThumbnail = false
	stale := &queue.Job{ID: "stale", UserID: "u1", SourcePath: source, SourceName: "clip.mp4", Settings: jobSettings, Status: queue.StatusProcessing, Progress: 40}
	waiting := &queue.Job{ID: "waiting", UserID: "u1", SourcePath: source, SourceName: "clip.mp4", Settings: jobSettings, Status: queue.StatusQueued}
	for _, job := range []*queue.Job{stale, waiting} {
		if err := store.PutJob(ctx, job); err != nil {
			t.Fatalf("PutJob: %v", err)
		}
	}

	events, unsubscribe := mgr.Subscribe()
	defer unsubscribe()
	startManager(t, mgr)

	got, err := store.GetJob(ctx, "stale")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != queue.StatusFailed || got.ErrorKind != workflow.KindInterrupted {
		t.Fatalf("stale job = %s/%s", got.Status, got.ErrorKind)
	}
	seen := waitTerminal(t, events, "waiting")
	if seen[len(seen)-1].Type != notifications.EventCompleted {
		t.Fatalf("queued job did not complete: %+v", seen)
	}
}

func TestStatusReportsRunningState(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(testsupport.FakeTools{}), testsupport.WithSlots(3))
	mgr, _ := newManager(t, cfg)
	if mgr.Status(context.Background()).Running {
		t.Fatal("manager should not be running before Start")
	}
	startManager(t, mgr)
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	status := mgr.Status(context.Background())
	if !status.Running || status.Slots != 3 {
		t.Fatalf("unexpected status %+v", status)
	}
	mgr.Stop()
	if mgr.Running() {
		t.Fatal("expected manager stopped")
	}
}

func TestRecommendUsesProbe(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFakeTools(testsupport.FakeTools{Width: 3840, Height: 2160}))
	mgr, _ := newManager(t, cfg)
	source := writeSource(t, cfg, "clip.mp4", 1024)

	rec, err := mgr.Recommend(context.Background(), source)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Settings.Resolution != settings.Resolution1080p {
		t.Fatalf("expected a 1080p cap for a 2160p source, got %s", rec.Settings.Resolution)
	}
	if err := rec.Settings.Validate(); err != nil {
		t.Fatalf("recommended settings invalid: %v", err)
	}
}

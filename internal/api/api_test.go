package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"clipress/internal/queue"
	"clipress/internal/settings"
	"clipress/internal/workflow"
)

func TestSettingsOverridesParseStrictly(t *testing.T) {
	on := true
	tests := []struct {
		name      string
		in        Settings
		want      settings.Overrides
		wantField string
	}{
		{
			name: "canonical values",
			in:   Settings{Preset: "slow", Resolution: "720p", AudioBitrate: "64k", VideoBitrate: "auto", GenerateThumbnail: &on},
			want: settings.Overrides{Preset: settings.PresetSlow, Resolution: settings.Resolution720p, AudioBitrate: "64k", VideoBitrate: settings.VideoAuto, GenerateThumbnail: &on},
		},
		{
			name: "empty fields stay unset",
			in:   Settings{RemoveAudio: &on},
			want: settings.Overrides{RemoveAudio: &on},
		},
		{name: "unknown preset", in: Settings{Preset: "warp"}, wantField: settings.FieldPreset},
		{name: "non-canonical preset", in: Settings{Preset: "ultrafast"}, wantField: settings.FieldPreset},
		{name: "upper-case preset", in: Settings{Preset: "MEDIUM"}, wantField: settings.FieldPreset},
		{name: "unknown resolution", in: Settings{Resolution: "4k"}, wantField: settings.FieldResolution},
		{name: "audio off ladder", in: Settings{AudioBitrate: "100k"}, wantField: settings.FieldAudioBitrate},
		{name: "padded audio", in: Settings{AudioBitrate: " 128K "}, wantField: settings.FieldAudioBitrate},
		{name: "video off ladder", in: Settings{VideoBitrate: "3000k"}, wantField: settings.FieldVideoBitrate},
		{name: "upper-case auto", in: Settings{VideoBitrate: "AUTO"}, wantField: settings.FieldVideoBitrate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Overrides()
			if tt.wantField != "" {
				var validation *settings.ValidationError
				if !errors.As(err, &validation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if validation.Field != tt.wantField {
					t.Fatalf("field = %q, want %q", validation.Field, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("Overrides: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSettingsJSONOmitsAbsentFlags(t *testing.T) {
	var in Settings
	if err := json.Unmarshal([]byte(`{"preset":"fast"}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := in.Overrides()
	if err != nil {
		t.Fatalf("Overrides: %v", err)
	}
	if got.RemoveAudio != nil || got.GenerateThumbnail != nil {
		t.Fatalf("absent flags should stay unset: %+v", got)
	}
	resolved := got.Apply(settings.Defaults())
	if !resolved.GenerateThumbnail || resolved.Preset != settings.PresetFast {
		t.Fatalf("defaults not applied to absent flags: %+v", resolved)
	}
}

func TestFromJobFormatsTimesAndResult(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	finished := created.Add(90 * time.Second)
	job := &queue.Job{
		ID:                "job-1",
		UserID:            "u1",
		SourceName:        "clip.mov",
		Status:            queue.StatusCompleted,
		Progress:          100,
		Settings:          settings.Defaults(),
		ThumbnailPath:     "/out/job-1/clip_thumb.jpg",
		DeliveredLocation: "/out/job-1/clip_compressed.mp4",
		Result:            &queue.Result{OriginalSize: 100, CompressedSize: 40, SizeReduction: 60, Ratio: 60},
		CreatedAt:         created,
		UpdatedAt:         finished,
		FinishedAt:        &finished,
	}
	dto := FromJob(job)
	if dto.CreatedAt != "2026-03-01T10:00:00.000Z" {
		t.Fatalf("CreatedAt = %q", dto.CreatedAt)
	}
	if dto.StartedAt != "" {
		t.Fatalf("StartedAt = %q, want empty", dto.StartedAt)
	}
	if dto.Result == nil || dto.Result.SizeReduction != 60 {
		t.Fatalf("unexpected result %+v", dto.Result)
	}
	if dto.ThumbnailLocation != job.ThumbnailPath || dto.Status != "completed" {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if dto.Settings.Preset != "medium" || dto.Settings.GenerateThumbnail == nil || !*dto.Settings.GenerateThumbnail {
		t.Fatalf("unexpected settings %+v", dto.Settings)
	}
	if got := ParseTime(dto.FinishedAt); !got.Equal(finished) {
		t.Fatalf("ParseTime(%q) = %v", dto.FinishedAt, got)
	}
}

func TestMergeQueueStatsIncludesZeroCounts(t *testing.T) {
	got := MergeQueueStats(map[queue.Status]int{queue.StatusQueued: 2})
	if len(got) != len(queue.AllStatuses()) {
		t.Fatalf("expected every status, got %v", got)
	}
	if got["queued"] != 2 || got["failed"] != 0 {
		t.Fatalf("unexpected stats %v", got)
	}
}

func TestSortJobsNewestFirst(t *testing.T) {
	jobs := []Job{
		{ID: "a", CreatedAt: "2026-01-01T00:00:00.000Z"},
		{ID: "b", CreatedAt: "2026-01-02T00:00:00.000Z"},
		{ID: "c", CreatedAt: "2026-01-01T00:00:00.000Z"},
	}
	sorted := SortJobsNewestFirst(jobs)
	var order string
	for _, job := range sorted {
		order += job.ID
	}
	if order != "bca" {
		t.Fatalf("order = %q, want bca", order)
	}
	if jobs[0].ID != "a" {
		t.Fatal("input slice was reordered")
	}
	if SortJobsNewestFirst(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Action
		wantErr bool
	}{
		{
			name:    "submit",
			payload: `{"type":"submit","request":{"userId":"u1","sourcePath":"/tmp/a.mov","settings":{"preset":"fast"}}}`,
			want:    SubmitAction{Request: SubmitRequest{UserID: "u1", SourcePath: "/tmp/a.mov", Settings: &Settings{Preset: "fast"}}},
		},
		{name: "cancel", payload: `{"type":"cancel","jobId":"j1"}`, want: CancelAction{JobID: "j1"}},
		{name: "show", payload: `{"type":"show","jobId":"j1"}`, want: ShowAction{JobID: "j1"}},
		{name: "queue", payload: `{"type":"queue","userId":"u1"}`, want: QueueAction{UserID: "u1"}},
		{name: "stats", payload: `{"type":"stats","userId":"u1"}`, want: StatsAction{UserID: "u1"}},
		{
			name:    "defaults",
			payload: `{"type":"defaults","userId":"u1","settings":{"resolution":"480p"}}`,
			want:    DefaultsAction{UserID: "u1", Settings: Settings{Resolution: "480p"}},
		},
		{name: "missing type", payload: `{"jobId":"j1"}`, wantErr: true},
		{name: "unknown type", payload: `{"type":"reboot"}`, wantErr: true},
		{name: "unknown field", payload: `{"type":"cancel","jobId":"j1","force":true}`, wantErr: true},
		{name: "missing job id", payload: `{"type":"cancel"}`, wantErr: true},
		{name: "not json", payload: `cancel j1`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAction([]byte(tt.payload))
			if tt.wantErr {
				var actionErr *ActionError
				if !errors.As(err, &actionErr) {
					t.Fatalf("expected ActionError, got %v", err)
				}
				if ErrorKind(err) != "invalid_action" {
					t.Fatalf("kind = %q", ErrorKind(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeAction: %v", err)
			}
			if got.Type() != tt.want.Type() {
				t.Fatalf("type = %q, want %q", got.Type(), tt.want.Type())
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

type fakeEngine struct {
	jobs      map[string]*queue.Job
	pending   []string
	admitted  []workflow.SubmitRequest
	cancelled []string
	defaults  map[string]settings.JobSettings
	admitErr  error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{jobs: map[string]*queue.Job{}, defaults: map[string]settings.JobSettings{}}
}

func (f *fakeEngine) Admit(_ context.Context, req workflow.SubmitRequest) (workflow.Admission, error) {
	if f.admitErr != nil {
		return workflow.Admission{}, f.admitErr
	}
	f.admitted = append(f.admitted, req)
	id := fmt.Sprintf("job-%d", len(f.admitted))
	f.jobs[id] = &queue.Job{ID: id, UserID: req.UserID, Status: queue.StatusQueued}
	f.pending = append(f.pending, id)
	return workflow.Admission{JobID: id, QueuePosition: len(f.pending), EstimateSeconds: 42}, nil
}

func (f *fakeEngine) Cancel(_ context.Context, id string) error {
	job, ok := f.jobs[id]
	if !ok {
		return &workflow.CancelError{JobID: id, Reason: workflow.ErrJobNotFound}
	}
	f.cancelled = append(f.cancelled, id)
	job.Status = queue.StatusCancelled
	return nil
}

func (f *fakeEngine) GetJob(_ context.Context, id string) (*queue.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrJobNotFound, id)
	}
	return job, nil
}

func (f *fakeEngine) QueuePosition(id string) (int, bool) {
	for i, pending := range f.pending {
		if pending == id && f.jobs[id].Status == queue.StatusQueued {
			return i + 1, true
		}
	}
	return 0, false
}

func (f *fakeEngine) GetUserQueue(_ context.Context, userID string) ([]*queue.Job, error) {
	var out []*queue.Job
	for _, id := range f.pending {
		job := f.jobs[id]
		if job.UserID == userID && job.Status.IsActive() {
			out = append(out, job)
		}
	}
	return out, nil
}

func (f *fakeEngine) UserStats(_ context.Context, userID string) (*queue.User, error) {
	return &queue.User{ID: userID, TotalCompressed: 3, TotalBytesSaved: 1024}, nil
}

func (f *fakeEngine) SetUserDefaults(_ context.Context, userID string, s settings.Overrides) (settings.JobSettings, error) {
	stored := s.Apply(settings.Defaults())
	f.defaults[userID] = stored
	return stored, nil
}

func TestDispatchRoutesActions(t *testing.T) {
	ctx := context.Background()
	engine := newFakeEngine()

	out, err := Dispatch(ctx, engine, SubmitAction{Request: SubmitRequest{UserID: "u1", SourcePath: "/tmp/a.mov", Settings: &Settings{Preset: "fast"}}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	resp, ok := out.(SubmitResponse)
	if !ok || resp.JobID != "job-1" || resp.QueuePosition != 1 || resp.EstimateSeconds != 42 {
		t.Fatalf("unexpected submit response %#v", out)
	}
	if got := engine.admitted[0].Settings; got == nil || got.Preset != settings.PresetFast {
		t.Fatalf("settings not converted: %+v", got)
	}

	out, err = Dispatch(ctx, engine, ShowAction{JobID: "job-1"})
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if job := out.(JobResponse).Job; job.QueuePosition != 1 || job.Status != "queued" {
		t.Fatalf("unexpected show response %+v", job)
	}

	out, err = Dispatch(ctx, engine, QueueAction{UserID: "u1"})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if jobs := out.(JobListResponse).Jobs; len(jobs) != 1 || jobs[0].QueuePosition != 1 {
		t.Fatalf("unexpected queue %+v", jobs)
	}

	out, err = Dispatch(ctx, engine, StatsAction{UserID: "u1"})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats := out.(UserStats); stats.ActiveJobs != 1 || stats.TotalCompressed != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	out, err = Dispatch(ctx, engine, CancelAction{JobID: "job-1"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if job := out.(JobResponse).Job; job.Status != "cancelled" || job.QueuePosition != 0 {
		t.Fatalf("unexpected cancel response %+v", job)
	}

	out, err = Dispatch(ctx, engine, DefaultsAction{UserID: "u1", Settings: Settings{Resolution: "480p"}})
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if s := out.(Settings); s.Resolution != "480p" || s.Preset != "medium" {
		t.Fatalf("unexpected defaults %+v", s)
	}

	if _, err := Dispatch(ctx, engine, DefaultsAction{UserID: "u1", Settings: Settings{Preset: "warp"}}); ErrorKind(err) != string(settings.KindInvalidPreset) {
		t.Fatalf("expected invalid preset, got %v", err)
	}
}

func TestSubmitRejectsInvalidSettingsBeforeAdmission(t *testing.T) {
	engine := newFakeEngine()
	_, err := Submit(context.Background(), engine, SubmitRequest{UserID: "u1", SourcePath: "/tmp/a.mov", Settings: &Settings{Resolution: "8k"}})
	if !errors.Is(err, workflow.ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	if ErrorKind(err) != "validation_error" {
		t.Fatalf("kind = %q", ErrorKind(err))
	}
	if len(engine.admitted) != 0 {
		t.Fatal("engine should not see invalid requests")
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"queue full", &workflow.AdmissionError{Reason: workflow.ErrQueueFull}, "queue_full"},
		{"too large", &workflow.AdmissionError{Reason: workflow.ErrFileTooLarge}, "file_too_large"},
		{"already terminal", &workflow.CancelError{JobID: "j", Reason: workflow.ErrAlreadyTerminal}, "already_terminal"},
		{"job not found", fmt.Errorf("%w: j", workflow.ErrJobNotFound), "not_found"},
		{"store not found", fmt.Errorf("lookup: %w", queue.ErrNotFound), "not_found"},
		{"plain", errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorKind(tt.err); got != tt.want {
				t.Fatalf("ErrorKind = %q, want %q", got, tt.want)
			}
		})
	}
}

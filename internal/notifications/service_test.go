package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"clipress/internal/config"
	"clipress/internal/notifications"
	"clipress/internal/queue"
)

func TestNewServiceReturnsNoopWithoutSinks(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg, nil)
	event := notifications.Event{Type: notifications.EventCompleted, JobID: "j1"}
	if err := svc.Publish(context.Background(), event); err != nil {
		t.Fatalf("expected noop publish to succeed, got %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

type captured struct {
	mu       sync.Mutex
	title    string
	tags     string
	priority string
	body     string
	calls    int
}

func ntfyServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.mu.Lock()
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		got.body = string(body)
		got.calls++
		got.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestNtfySinkFormatsTerminalEvents(t *testing.T) {
	tests := []struct {
		name          string
		event         notifications.Event
		expectTitle   string
		expectMessage string
		expectTags    string
		expectPrio    string
	}{
		{
			name: "completed",
			event: notifications.Event{
				Type:       notifications.EventCompleted,
				JobID:      "j1",
				SourceName: "holiday.mov",
				Result: &queue.Result{
					OriginalSize:   2048,
					CompressedSize: 1024,
					Ratio:          50,
					ElapsedSeconds: 65,
				},
			},
			expectTitle:   "Clipress - Compression Complete",
			expectMessage: "Compressed holiday.mov: 2.0 KiB -> 1.0 KiB (50.0% smaller) in 1:05",
			expectTags:    "clipress,compress,completed",
		},
		{
			name: "failed",
			event: notifications.Event{
				Type:      notifications.EventFailed,
				JobID:     "j2",
				ErrorKind: "timeout",
				Error:     "compression timed out",
			},
			expectTitle:   "Clipress - Compression Failed",
			expectMessage: "j2 failed: compression timed out",
			expectTags:    "clipress,error",
			expectPrio:    "high",
		},
		{
			name:          "cancelled",
			event:         notifications.Event{Type: notifications.EventCancelled, JobID: "j3", SourceName: "clip.mp4"},
			expectTitle:   "Clipress - Cancelled",
			expectMessage: "Cancelled clip.mp4",
			expectTags:    "clipress,cancelled",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := ntfyServer(t, http.StatusOK)
			sink := notifications.NewNtfySink(srv.URL, time.Second)
			if err := sink.Publish(context.Background(), tt.event); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			got.mu.Lock()
			defer got.mu.Unlock()
			if got.title != tt.expectTitle || got.body != tt.expectMessage || got.tags != tt.expectTags || got.priority != tt.expectPrio {
				t.Fatalf("unexpected request: title=%q body=%q tags=%q priority=%q", got.title, got.body, got.tags, got.priority)
			}
		})
	}
}

func TestNtfySinkSkipsProgress(t *testing.T) {
	srv, got := ntfyServer(t, http.StatusOK)
	sink := notifications.NewNtfySink(srv.URL, time.Second)
	if err := sink.Publish(context.Background(), notifications.Event{Type: notifications.EventProgress, JobID: "j", Progress: 40}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got.mu.Lock()
	defer got.mu.Unlock()
	if got.calls != 0 {
		t.Fatalf("expected no request for progress events, got %d", got.calls)
	}
}

func TestNtfySinkReportsHTTPErrors(t *testing.T) {
	srv, _ := ntfyServer(t, http.StatusForbidden)
	sink := notifications.NewNtfySink(srv.URL, time.Second)
	err := sink.Publish(context.Background(), notifications.Event{Type: notifications.EventCancelled, JobID: "j"})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

type recordingSink struct {
	events []notifications.Event
	err    error
	closed bool
}

func (r *recordingSink) Publish(_ context.Context, e notifications.Event) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func TestMultiPublishesToEverySink(t *testing.T) {
	failing := &recordingSink{err: errors.New("broker down")}
	ok := &recordingSink{}
	svc := notifications.NewMulti(failing, ok)

	err := svc.Publish(context.Background(), notifications.Event{Type: notifications.EventQueued, JobID: "j"})
	if err == nil || !strings.Contains(err.Error(), "broker down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.events) != 1 {
		t.Fatalf("healthy sink should still receive the event")
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !failing.closed || !ok.closed {
		t.Fatal("expected every sink to be closed")
	}
}

func TestHashFields(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fields := notifications.HashFields(notifications.Event{
		Type:      notifications.EventFailed,
		JobID:     "j",
		UserID:    "u",
		Status:    queue.StatusFailed,
		Progress:  42,
		ErrorKind: "encoder_error",
		Error:     "exit 1",
		Time:      at,
	})
	got := map[string]any{}
	for i := 0; i+1 < len(fields); i += 2 {
		got[fields[i].(string)] = fields[i+1]
	}
	want := map[string]string{
		"status":       "failed",
		"progress":     "42",
		"user_id":      "u",
		"completed_at": "2024-05-01T12:00:00Z",
		"error_kind":   "encoder_error",
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("field %s = %v, want %s", key, got[key], value)
		}
	}
	if notifications.JobKey("abc") != "job:abc" {
		t.Fatalf("unexpected job key %q", notifications.JobKey("abc"))
	}
}

func TestKafkaMessageKeyedByJob(t *testing.T) {
	msg, err := notifications.Message(notifications.Event{Type: notifications.EventProgress, JobID: "job-7", Progress: 12})
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if string(msg.Key) != "job-7" {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	var decoded notifications.Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if decoded.Progress != 12 || decoded.Type != notifications.EventProgress {
		t.Fatalf("unexpected payload %+v", decoded)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "progress" {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}
}

func TestTerminalEventType(t *testing.T) {
	cases := map[queue.Status]notifications.EventType{
		queue.StatusCompleted: notifications.EventCompleted,
		queue.StatusCancelled: notifications.EventCancelled,
		queue.StatusFailed:    notifications.EventFailed,
	}
	for status, want := range cases {
		if got := notifications.TerminalEventType(status); got != want {
			t.Fatalf("TerminalEventType(%s) = %s, want %s", status, got, want)
		}
		if !(notifications.Event{Type: want}).Terminal() {
			t.Fatalf("%s should be terminal", want)
		}
	}
}

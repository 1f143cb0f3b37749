package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"clipress/internal/api"
)

func TestWatchFinished(t *testing.T) {
	tests := []struct {
		name  string
		jobID string
		jobs  []api.Job
		want  bool
	}{
		{"all jobs idle", "", nil, true},
		{"active job remains", "", []api.Job{{ID: "a", Status: "processing"}}, false},
		{"queued job remains", "", []api.Job{{ID: "a", Status: "queued"}}, false},
		{"tracked job running", "a", []api.Job{{ID: "a", Status: "processing"}}, false},
		{"tracked job done", "a", []api.Job{{ID: "a", Status: "completed"}}, true},
		{"tracked job missing", "b", []api.Job{{ID: "a", Status: "processing"}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := watchFinished(tc.jobID, tc.jobs); got != tc.want {
				t.Fatalf("watchFinished = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWatchModelQuitsWhenJobTerminal(t *testing.T) {
	m := newWatchModel(nil, "a", time.Millisecond)

	next, cmd := m.Update(snapshotMsg{jobs: []api.Job{{ID: "a", Status: "processing", Progress: 40}}})
	m = next.(watchModel)
	if m.done || cmd == nil {
		t.Fatalf("expected model to keep polling")
	}
	if view := m.View(); !strings.Contains(view, " 40%") {
		t.Fatalf("expected progress in view:\n%s", view)
	}

	next, _ = m.Update(snapshotMsg{jobs: []api.Job{{ID: "a", Status: "completed"}}})
	m = next.(watchModel)
	if !m.done {
		t.Fatal("expected model to finish on terminal job")
	}
}

func TestWatchModelStopsOnError(t *testing.T) {
	m := newWatchModel(nil, "", time.Millisecond)
	next, _ := m.Update(snapshotMsg{err: errors.New("socket closed")})
	m = next.(watchModel)
	if m.err == nil || !strings.Contains(m.View(), "socket closed") {
		t.Fatalf("expected error in view, got %q", m.View())
	}
}

func TestWatchModelQuitKey(t *testing.T) {
	m := newWatchModel(nil, "", time.Millisecond)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(watchModel)
	if !m.quitting || cmd == nil {
		t.Fatal("expected q to quit")
	}
	if m.View() != "" {
		t.Fatalf("expected empty view after quit, got %q", m.View())
	}
}

func TestWatchModelFetchUsesSource(t *testing.T) {
	calls := 0
	source := func() ([]api.Job, error) {
		calls++
		return []api.Job{{ID: "a", Status: "queued", QueuePosition: 2}}, nil
	}
	m := newWatchModel(source, "", time.Millisecond)
	msg := m.Init()()
	snap, ok := msg.(snapshotMsg)
	if !ok || calls != 1 || len(snap.jobs) != 1 {
		t.Fatalf("unexpected fetch result %#v (calls=%d)", msg, calls)
	}
}

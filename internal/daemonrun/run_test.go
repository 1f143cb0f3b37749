package daemonrun_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"clipress/internal/daemonrun"
	"clipress/internal/ipc"
	"clipress/internal/testsupport"
)

func TestRunServesIPCUntilCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Logging.Format = "json"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- daemonrun.Run(ctx, cfg, daemonrun.Options{LogLevel: "error"})
	}()

	status := waitForStatus(t, cfg.SocketPath(), func(s *ipc.StatusResponse) bool { return s.Running })
	if status.PID != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), status.PID)
	}
	if status.APIBind == "" {
		t.Fatal("expected API listener address")
	}
	if _, err := os.Stat(daemonrun.PIDPath(cfg)); err != nil {
		t.Fatalf("expected pid file: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := os.Stat(daemonrun.PIDPath(cfg)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pid file removed, got %v", err)
	}
	if _, err := os.Stat(cfg.SocketPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected socket removed, got %v", err)
	}
}

func TestRunPausedLeavesEngineStopped(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Logging.Format = "json"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- daemonrun.Run(ctx, cfg, daemonrun.Options{LogLevel: "error", Paused: true})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	anyStatus := func(*ipc.StatusResponse) bool { return true }
	waitForStatus(t, cfg.SocketPath(), anyStatus)
	time.Sleep(200 * time.Millisecond)
	if status := waitForStatus(t, cfg.SocketPath(), anyStatus); status.Running {
		t.Fatal("expected paused engine")
	}
}

func waitForStatus(t *testing.T, socket string, ready func(*ipc.StatusResponse) bool) *ipc.StatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		client, err := ipc.Dial(socket)
		if err == nil {
			status, statusErr := client.Status()
			_ = client.Close()
			if statusErr == nil && ready(status) {
				return status
			}
			err = statusErr
		}
		if time.Now().After(deadline) {
			t.Fatalf("daemon never became ready: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

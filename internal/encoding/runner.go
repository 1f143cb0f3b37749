package encoding

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"clipress/internal/logging"
)

const (
	// DefaultGrace is how long a signalled encoder may take to exit.
	DefaultGrace     = 2 * time.Second
	defaultTailLines = 20
	maxLineBytes     = 1 << 20
)

// RunResult describes a completed ffmpeg invocation.
type RunResult struct {
	ExitCode   int
	StderrTail string
	Elapsed    time.Duration
}

// Runner starts ffmpeg and supervises it until exit, cancellation, or the
// context deadline.
type Runner struct {
	Binary    string
	Grace     time.Duration
	TailLines int
	Logger    *slog.Logger
}

// NewRunner returns a Runner for binary with the default grace window.
func NewRunner(binary string, grace time.Duration, logger *slog.Logger) *Runner {
	return &Runner{Binary: binary, Grace: grace, Logger: logger}
}

// Run executes ffmpeg with args. onLine receives every non-empty stderr line
// (carriage-return progress updates included) from a single goroutine.
//
// When ctx ends first the whole process group receives SIGTERM, then SIGKILL
// after the grace window; the error is an *EncodeError of kind timeout for an
// expired deadline and cancelled otherwise.
func (r *Runner) Run(ctx context.Context, args []string, onLine func(string)) (RunResult, error) {
	binary := strings.TrimSpace(r.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	logger := logging.NewComponentLogger(r.Logger, "ffmpeg")
	tail := newLineRing(r.TailLines)

	if err := ctx.Err(); err != nil {
		return RunResult{}, contextError(err, tail)
	}

	cmd := exec.Command(binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return RunResult{}, &EncodeError{Kind: KindSpawnFailure, Err: err}
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return RunResult{}, &EncodeError{Kind: KindSpawnFailure, Err: err}
	}
	pid := cmd.Process.Pid
	logger.Debug("ffmpeg started", logging.Int("pid", pid), logging.String("args", strings.Join(args, " ")))

	waitCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		scanner.Split(splitProgressLines)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			tail.push(line)
			if onLine != nil {
				onLine(line)
			}
		}
		_, _ = io.Copy(io.Discard, stderr)
		waitCh <- cmd.Wait()
	}()

	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-ctx.Done():
		r.terminate(logger, pid, waitCh)
		result := RunResult{ExitCode: -1, StderrTail: tail.String(), Elapsed: time.Since(started)}
		return result, contextError(ctx.Err(), tail)
	}

	result := RunResult{StderrTail: tail.String(), Elapsed: time.Since(started)}
	if waitErr == nil {
		return result, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, &EncodeError{Kind: KindNonZeroExit, ExitCode: result.ExitCode, StderrTail: result.StderrTail, Err: waitErr}
	}
	result.ExitCode = -1
	return result, &EncodeError{Kind: KindNonZeroExit, ExitCode: -1, StderrTail: result.StderrTail, Err: waitErr}
}

// terminate signals the process group and escalates to SIGKILL when the
// grace window lapses. It returns once the process has been reaped.
func (r *Runner) terminate(logger *slog.Logger, pid int, waitCh <-chan error) {
	grace := r.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	if err := unix.Kill(-pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		logger.Debug("sigterm failed", logging.Int("pid", pid), logging.Error(err))
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-waitCh:
		return
	case <-timer.C:
	}
	logging.WarnWithContext(logger, "ffmpeg ignored SIGTERM; killing process group", "encoder_kill",
		logging.Int("pid", pid),
		logging.Duration("grace", grace),
		logging.String(logging.FieldImpact, "partial output is discarded"),
	)
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		logger.Debug("sigkill failed", logging.Int("pid", pid), logging.Error(err))
	}
	<-waitCh
}

func contextError(err error, tail *lineRing) error {
	kind := KindCancelled
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &EncodeError{Kind: kind, ExitCode: -1, StderrTail: tail.String(), Err: err}
}

// splitProgressLines treats both \r and \n as line terminators; ffmpeg
// rewrites its status line with bare carriage returns.
func splitProgressLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

type lineRing struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newLineRing(max int) *lineRing {
	if max <= 0 {
		max = defaultTailLines
	}
	return &lineRing{max: max}
}

func (r *lineRing) push(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == r.max {
		copy(r.lines, r.lines[1:])
		r.lines = r.lines[:r.max-1]
	}
	r.lines = append(r.lines, line)
}

func (r *lineRing) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.lines, "\n")
}

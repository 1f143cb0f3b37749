package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipress/internal/config"
	"clipress/internal/deps"
	"clipress/internal/logging"
	"clipress/internal/preflight"
	"clipress/internal/queue"
	"clipress/internal/staging"
	"clipress/internal/workflow"
)

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	janitor  *staging.Janitor
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	APIBind      string
	Delivery     string
	Dependencies []deps.Status
	EventSinks   []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	maxAge := time.Duration(cfg.Cleanup.StaleHours) * time.Hour
	janitor, err := staging.NewJanitor(cfg.Paths.StagingDir, cfg.Cleanup.Schedule, maxAge, wf.ActiveJobIDs, logger)
	if err != nil {
		return nil, err
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		janitor:  janitor,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the engine and janitor.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipress daemon instance is already running")
	}

	if err := d.workflow.Start(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.janitor.Start()

	d.running.Store(true)
	d.logger.Info("clipress daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("slots", d.cfg.Compression.Slots),
		logging.String("delivery", d.cfg.Delivery.Mode),
	)
	return nil
}

// Stop halts processing and releases the daemon lock. Running jobs are
// recorded as interrupted; queued jobs wait for the next start.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.janitor.Stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "a later start may report another instance"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("clipress daemon stopped")
}

// Serve starts the HTTP API when an address is configured. The server stops
// when ctx is cancelled or Close is called.
func (d *Daemon) Serve(ctx context.Context) error {
	return d.api.start(ctx)
}

// APIAddr returns the address the HTTP API listens on, or "" when disabled.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Close stops processing, the API server, and the engine.
func (d *Daemon) Close() error {
	d.Stop()
	d.api.stop()
	return d.workflow.Close()
}

// Workflow returns the compression engine.
func (d *Daemon) Workflow() *workflow.Manager {
	return d.workflow
}

// Running reports whether the engine is processing jobs.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// ClearQueue removes finished jobs, or every job when all is set. Clearing
// everything is refused while the engine is running.
func (d *Daemon) ClearQueue(ctx context.Context, all bool) (int64, error) {
	if !all {
		return d.workflow.ClearFinished(ctx)
	}
	if d.running.Load() {
		return 0, errors.New("stop the daemon before clearing active jobs")
	}
	return d.store.ClearAll(ctx)
}

// QueueHealth returns aggregate queue counts.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		QueueDBPath:  d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		APIBind:      d.api.addr(),
		Delivery:     d.cfg.Delivery.Mode,
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
		EventSinks:   preflight.CheckEventSinks(ctx, d.cfg),
	}
}

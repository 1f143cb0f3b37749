package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"clipress/internal/config"
	"clipress/internal/daemon"
	"clipress/internal/delivery"
	"clipress/internal/ipc"
	"clipress/internal/logging"
	"clipress/internal/notifications"
	"clipress/internal/preflight"
	"clipress/internal/queue"
	"clipress/internal/workflow"
)

// PIDFileName is written under paths.log_dir while the daemon process runs.
const PIDFileName = "clipressd.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
	// Paused leaves the engine stopped after boot; jobs still queue.
	Paused bool
}

// PIDPath returns the pid file location for cfg.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, PIDFileName)
}

// Run boots the clipress daemon and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	if client, err := ipc.Dial(cfg.SocketPath()); err == nil {
		_ = client.Close()
		return fmt.Errorf("another clipress daemon is already serving %s", cfg.SocketPath())
	}
	logDependencySnapshot(signalCtx, logger, cfg)

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	deliverer, err := delivery.New(signalCtx, cfg)
	if err != nil {
		return fmt.Errorf("init delivery: %w", err)
	}

	notifier := notifications.NewService(cfg, logger)
	workflowManager := workflow.NewManager(cfg, store, deliverer, logger, workflow.WithNotifier(notifier))

	d, err := daemon.New(cfg, store, logger, workflowManager)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Serve(signalCtx); err != nil {
		logging.WarnWithContext(logger, "api server unavailable", "api_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.api_bind"),
			logging.String(logging.FieldImpact, "HTTP clients cannot reach the daemon"),
		)
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if !opts.Paused {
		if err := d.Start(signalCtx); err != nil {
			logger.Warn("daemon start failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "daemon_start_failed"),
				logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
				logging.String(logging.FieldImpact, "queued jobs will not be compressed"),
			)
		}
	}

	<-signalCtx.Done()
	logger.Info("clipress daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("delivery_mode", cfg.Delivery.Mode),
		logging.Int("slots", cfg.Compression.Slots),
		logging.Bool("api_token_configured", cfg.Paths.APIToken != "" || cfg.Paths.APITokenHash != ""),
	}
	for _, dep := range preflight.CheckSystemDeps(ctx, cfg) {
		key := strings.ToLower(strings.ReplaceAll(dep.Name, " ", "_"))
		attrs = append(attrs,
			logging.Bool(key+"_available", dep.Available),
			logging.String(key+"_binary", dep.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}

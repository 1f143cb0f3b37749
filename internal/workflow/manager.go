package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clipress/internal/config"
	"clipress/internal/delivery"
	"clipress/internal/encoding"
	"clipress/internal/logging"
	"clipress/internal/media/ffprobe"
	"clipress/internal/media/thumbnail"
	"clipress/internal/notifications"
	"clipress/internal/preflight"
	"clipress/internal/queue"
)

// Prober describes a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.MediaInfo, error)
}

// Encoder runs one ffmpeg invocation.
type Encoder interface {
	Run(ctx context.Context, args []string, onLine func(string)) (encoding.RunResult, error)
}

// Thumbnailer writes a preview image for a video.
type Thumbnailer interface {
	Generate(ctx context.Context, video, output string, durationSeconds float64) error
}

// PreflightFunc reports readiness checks run before each job.
type PreflightFunc func(ctx context.Context, cfg *config.Config) []preflight.Result

// Manager admits compression jobs and runs them on a bounded set of slots.
type Manager struct {
	cfg         *config.Config
	store       *queue.Store
	logger      *slog.Logger
	prober      Prober
	encoder     Encoder
	thumbnailer Thumbnailer
	deliverer   delivery.Deliverer
	notifier    notifications.Service
	preflight   PreflightFunc

	slots           int
	timeout         time.Duration
	persistInterval time.Duration
	heartbeat       *HeartbeatMonitor

	mu       sync.Mutex
	running  bool
	cancel   context.CancelCauseFunc
	wg       sync.WaitGroup
	pending  []string
	wake     chan struct{}
	active   map[string]*activeJob
	lastErr  error
	lastJob  *queue.Job
	admitMu  sync.Mutex
	events   *eventHub
	mirrorWG sync.WaitGroup
}

type activeJob struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
	slot   int
}

// Option overrides a Manager collaborator or tunable.
type Option func(*Manager)

// WithProber replaces the ffprobe-backed prober.
func WithProber(p Prober) Option { return func(m *Manager) { m.prober = p } }

// WithEncoder replaces the ffmpeg runner.
func WithEncoder(e Encoder) Option { return func(m *Manager) { m.encoder = e } }

// WithThumbnailer replaces the thumbnail generator.
func WithThumbnailer(t Thumbnailer) Option { return func(m *Manager) { m.thumbnailer = t } }

// WithDeliverer replaces the configured delivery mode.
func WithDeliverer(d delivery.Deliverer) Option { return func(m *Manager) { m.deliverer = d } }

// WithNotifier replaces the configured event sinks.
func WithNotifier(n notifications.Service) Option { return func(m *Manager) { m.notifier = n } }

// WithPreflight replaces the per-job readiness checks.
func WithPreflight(fn PreflightFunc) Option { return func(m *Manager) { m.preflight = fn } }

// WithTimeout overrides the compression timeout.
func WithTimeout(d time.Duration) Option { return func(m *Manager) { m.timeout = d } }

// WithSlots overrides the configured slot count.
func WithSlots(n int) Option { return func(m *Manager) { m.slots = n } }

// NewManager wires a Manager from configuration. The deliverer must be
// supplied by the caller (see delivery.New) unless WithDeliverer is used.
func NewManager(cfg *config.Config, store *queue.Store, deliverer delivery.Deliverer, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	runner := encoding.NewRunner(cfg.Compression.FFmpegBinary, cfg.TerminateGrace(), logger)

	prober := ffprobe.NewProber(cfg.Compression.FFprobeBinary)
	prober.Timeout = cfg.ProbeTimeout()

	m := &Manager{
		cfg:             cfg,
		store:           store,
		logger:          logger,
		prober:          prober,
		encoder:         runner,
		thumbnailer:     thumbnail.New(runner, cfg.Thumbnail.Size, cfg.Thumbnail.Quality),
		deliverer:       deliverer,
		notifier:        notifications.NewNoop(),
		preflight:       preflight.RunAll,
		slots:           cfg.Compression.Slots,
		timeout:         cfg.CompressionTimeout(),
		persistInterval: cfg.ProgressPersistInterval(),
		wake:            make(chan struct{}, 1),
		active:          make(map[string]*activeJob),
		events:          newEventHub(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.slots <= 0 {
		m.slots = 1
	}
	if m.deliverer == nil {
		m.deliverer = delivery.NewLocal(cfg.Paths.OutputDir)
	}
	if m.notifier == nil {
		m.notifier = notifications.NewNoop()
	}
	m.heartbeat = NewHeartbeatMonitor(store, logger, cfg.HeartbeatInterval())
	m.startMirror()
	return m
}

// Close releases the notification sinks. Call after Stop.
func (m *Manager) Close() error {
	m.events.close()
	m.mirrorWG.Wait()
	return m.notifier.Close()
}

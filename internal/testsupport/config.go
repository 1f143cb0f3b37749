package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"clipress/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Compression.HeartbeatSeconds = 1
	cfgVal.Compression.ProgressPersistSeconds = 1

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithStubbedBinaries writes exit-0 stub executables for names and prepends
// them to PATH. With no names, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, binDir, name, "exit 0\n")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WithFakeTools installs scripted ffmpeg and ffprobe binaries and points the
// config at them.
func WithFakeTools(tools FakeTools) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "fakebin")
		b.cfg.Compression.FFprobeBinary = WriteScript(b.t, binDir, "ffprobe", tools.ffprobeBody())
		b.cfg.Compression.FFmpegBinary = WriteScript(b.t, binDir, "ffmpeg", tools.ffmpegBody())
	}
}

// WithLimits overrides admission limits.
func WithLimits(maxJobsPerUser int, maxFileSizeMB int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Compression.MaxJobsPerUser = maxJobsPerUser
		b.cfg.Compression.MaxFileSizeMB = maxFileSizeMB
	}
}

// WithSlots overrides the number of concurrent compression slots.
func WithSlots(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Compression.Slots = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}

package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"clipress/internal/settings"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir   string `toml:"staging_dir"`
	OutputDir    string `toml:"output_dir"`
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`
	APIBind      string `toml:"api_bind"`
	APIToken     string `toml:"api_token"`
	APITokenHash string `toml:"api_token_hash"`
}

// Compression contains engine admission limits, timeouts, and tool paths.
type Compression struct {
	Slots                  int    `toml:"slots"`
	MaxJobsPerUser         int    `toml:"max_jobs_per_user"`
	MaxFileSizeMB          int64  `toml:"max_file_size_mb"`
	TimeoutSeconds         int    `toml:"timeout_seconds"`
	ProbeTimeoutSeconds    int    `toml:"probe_timeout_seconds"`
	TerminateGraceSeconds  int    `toml:"terminate_grace_seconds"`
	ProgressPersistSeconds int    `toml:"progress_persist_seconds"`
	HeartbeatSeconds       int    `toml:"heartbeat_seconds"`
	RemoveSource           bool   `toml:"remove_source"`
	FFmpegBinary           string `toml:"ffmpeg_binary"`
	FFprobeBinary          string `toml:"ffprobe_binary"`
}

// Thumbnail contains preview image settings.
type Thumbnail struct {
	Size    int `toml:"size"`
	Quality int `toml:"quality"`
}

// Delivery selects where finished artifacts are handed off.
type Delivery struct {
	Mode           string `toml:"mode"`
	S3Bucket       string `toml:"s3_bucket"`
	S3Prefix       string `toml:"s3_prefix"`
	S3Region       string `toml:"s3_region"`
	S3Endpoint     string `toml:"s3_endpoint"`
	S3UsePathStyle bool   `toml:"s3_use_path_style"`
}

// Events configures job event mirroring. Empty addresses disable a sink.
type Events struct {
	RedisAddr             string   `toml:"redis_addr"`
	RedisPassword         string   `toml:"redis_password"`
	RedisDB               int      `toml:"redis_db"`
	RedisChannel          string   `toml:"redis_channel"`
	RedisTTLHours         int      `toml:"redis_ttl_hours"`
	KafkaBrokers          []string `toml:"kafka_brokers"`
	KafkaTopic            string   `toml:"kafka_topic"`
	NtfyTopic             string   `toml:"ntfy_topic"`
	PublishTimeoutSeconds int      `toml:"publish_timeout_seconds"`
}

// Cleanup schedules the staging janitor.
type Cleanup struct {
	Schedule   string `toml:"schedule"`
	StaleHours int    `toml:"stale_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipress.
//
// Configuration sections by subsystem:
//   - Paths: directories, API bind address, and API credentials
//   - Compression: slots, per-user limits, size ceiling, timeouts, binaries
//   - Defaults: job settings applied when a submission omits a field
//   - Thumbnail: preview size and JPEG quality
//   - Delivery: local output directory or S3 upload
//   - Events: Redis/Kafka job event mirroring
//   - Cleanup: staging janitor schedule
//   - Logging: log format and level
type Config struct {
	Paths       Paths                `toml:"paths"`
	Compression Compression          `toml:"compression"`
	Defaults    settings.JobSettings `toml:"defaults"`
	Thumbnail   Thumbnail            `toml:"thumbnail"`
	Delivery    Delivery             `toml:"delivery"`
	Events      Events               `toml:"events"`
	Cleanup     Cleanup              `toml:"cleanup"`
	Logging     Logging              `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipress/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
			return nil, "", false, err
		}

		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err == nil && !info.IsDir() {
			return expanded, true, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, false, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipress.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StagingDir, c.Paths.StateDir, c.Paths.LogDir}
	if c.Delivery.Mode == DeliveryLocal {
		dirs = append(dirs, c.Paths.OutputDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite queue database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "clipress.db")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "clipress.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "clipressd.lock")
}

// MaxFileSizeBytes returns the admission size ceiling.
func (c *Config) MaxFileSizeBytes() int64 {
	return c.Compression.MaxFileSizeMB * 1024 * 1024
}

// CompressionTimeout returns the per-job encoder ceiling.
func (c *Config) CompressionTimeout() time.Duration {
	return seconds(c.Compression.TimeoutSeconds)
}

// ProbeTimeout returns the per-invocation ffprobe ceiling.
func (c *Config) ProbeTimeout() time.Duration {
	return seconds(c.Compression.ProbeTimeoutSeconds)
}

// TerminateGrace returns how long a signalled encoder may take to exit
// before it is killed.
func (c *Config) TerminateGrace() time.Duration {
	return seconds(c.Compression.TerminateGraceSeconds)
}

// ProgressPersistInterval returns the minimum gap between progress writes.
func (c *Config) ProgressPersistInterval() time.Duration {
	return seconds(c.Compression.ProgressPersistSeconds)
}

// HeartbeatInterval returns how often a processing job stamps its heartbeat.
func (c *Config) HeartbeatInterval() time.Duration {
	return seconds(c.Compression.HeartbeatSeconds)
}

// PublishTimeout bounds a single event mirror publish.
func (c *Config) PublishTimeout() time.Duration {
	return seconds(c.Events.PublishTimeoutSeconds)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

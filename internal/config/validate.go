package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"clipress/internal/settings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCompression(); err != nil {
		return err
	}
	if err := settings.Validate(c.Defaults); err != nil {
		return fmt.Errorf("defaults.%w", err)
	}
	if err := c.validateThumbnail(); err != nil {
		return err
	}
	if err := c.validateDelivery(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.OutputDir != "" && c.Paths.OutputDir == c.Paths.StagingDir {
		return errors.New("paths.output_dir must differ from paths.staging_dir")
	}
	return nil
}

func (c *Config) validateCompression() error {
	if err := ensurePositiveMap(map[string]int{
		"compression.slots":                   c.Compression.Slots,
		"compression.max_jobs_per_user":       c.Compression.MaxJobsPerUser,
		"compression.timeout_seconds":         c.Compression.TimeoutSeconds,
		"compression.probe_timeout_seconds":   c.Compression.ProbeTimeoutSeconds,
		"compression.terminate_grace_seconds": c.Compression.TerminateGraceSeconds,
	}); err != nil {
		return err
	}
	if c.Compression.MaxFileSizeMB <= 0 {
		return errors.New("compression.max_file_size_mb must be positive")
	}
	return nil
}

func (c *Config) validateThumbnail() error {
	if c.Thumbnail.Size <= 0 {
		return errors.New("thumbnail.size must be positive")
	}
	if c.Thumbnail.Quality < 1 || c.Thumbnail.Quality > 100 {
		return errors.New("thumbnail.quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateDelivery() error {
	switch c.Delivery.Mode {
	case DeliveryLocal:
		if c.Paths.OutputDir == "" {
			return errors.New("paths.output_dir must be set for local delivery")
		}
	case DeliveryS3:
		if c.Delivery.S3Bucket == "" {
			return errors.New("delivery.s3_bucket must be set for s3 delivery (or set CLIPRESS_S3_BUCKET)")
		}
	default:
		return fmt.Errorf("delivery.mode: unsupported value %q (want local or s3)", c.Delivery.Mode)
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.RedisTTLHours < 0 {
		return errors.New("events.redis_ttl_hours must be zero or positive")
	}
	if c.Events.RedisDB < 0 {
		return errors.New("events.redis_db must be zero or positive")
	}
	if topic := c.Events.NtfyTopic; topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("events.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateCleanup() error {
	if _, err := cron.ParseStandard(c.Cleanup.Schedule); err != nil {
		return fmt.Errorf("cleanup.schedule: %w", err)
	}
	if c.Cleanup.StaleHours <= 0 {
		return errors.New("cleanup.stale_hours must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// loadDotEnv reads a .env file beside the config. Existing environment
// variables take precedence.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCompression()
	c.normalizeDelivery()
	c.normalizeEvents()
	c.normalizeCleanup()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("CLIPRESS_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	c.Paths.APITokenHash = strings.TrimSpace(c.Paths.APITokenHash)
	return nil
}

func (c *Config) normalizeCompression() {
	c.Compression.FFmpegBinary = strings.TrimSpace(c.Compression.FFmpegBinary)
	if c.Compression.FFmpegBinary == "" {
		c.Compression.FFmpegBinary = defaultFFmpegBinary
	}
	c.Compression.FFprobeBinary = strings.TrimSpace(c.Compression.FFprobeBinary)
	if c.Compression.FFprobeBinary == "" {
		c.Compression.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Compression.ProgressPersistSeconds <= 0 {
		c.Compression.ProgressPersistSeconds = defaultProgressPersistSeconds
	}
	if c.Compression.HeartbeatSeconds <= 0 {
		c.Compression.HeartbeatSeconds = defaultHeartbeatSeconds
	}
}

func (c *Config) normalizeDelivery() {
	c.Delivery.Mode = strings.ToLower(strings.TrimSpace(c.Delivery.Mode))
	if c.Delivery.Mode == "" {
		c.Delivery.Mode = defaultDeliveryMode
	}
	if c.Delivery.S3Bucket == "" {
		if value, ok := os.LookupEnv("CLIPRESS_S3_BUCKET"); ok {
			c.Delivery.S3Bucket = value
		}
	}
	c.Delivery.S3Bucket = strings.TrimSpace(c.Delivery.S3Bucket)
	c.Delivery.S3Prefix = strings.Trim(strings.TrimSpace(c.Delivery.S3Prefix), "/")
	c.Delivery.S3Region = strings.TrimSpace(c.Delivery.S3Region)
	c.Delivery.S3Endpoint = strings.TrimSpace(c.Delivery.S3Endpoint)
}

func (c *Config) normalizeEvents() {
	if c.Events.RedisAddr == "" {
		if value, ok := os.LookupEnv("REDIS_ADDR"); ok {
			c.Events.RedisAddr = value
		}
	}
	c.Events.RedisAddr = strings.TrimSpace(c.Events.RedisAddr)
	c.Events.RedisChannel = strings.TrimSpace(c.Events.RedisChannel)
	if c.Events.RedisChannel == "" {
		c.Events.RedisChannel = defaultRedisChannel
	}
	if len(c.Events.KafkaBrokers) == 0 {
		if value, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
			c.Events.KafkaBrokers = strings.Split(value, ",")
		}
	}
	brokers := c.Events.KafkaBrokers[:0]
	for _, broker := range c.Events.KafkaBrokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	c.Events.KafkaBrokers = brokers
	c.Events.KafkaTopic = strings.TrimSpace(c.Events.KafkaTopic)
	c.Events.NtfyTopic = strings.TrimSpace(c.Events.NtfyTopic)
	if c.Events.KafkaTopic == "" {
		c.Events.KafkaTopic = defaultKafkaTopic
	}
	if c.Events.PublishTimeoutSeconds <= 0 {
		c.Events.PublishTimeoutSeconds = defaultPublishTimeoutSeconds
	}
}

func (c *Config) normalizeCleanup() {
	c.Cleanup.Schedule = strings.TrimSpace(c.Cleanup.Schedule)
	if c.Cleanup.Schedule == "" {
		c.Cleanup.Schedule = defaultCleanupSchedule
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

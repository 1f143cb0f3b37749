package config

import "clipress/internal/settings"

const (
	defaultStagingDir             = "~/.local/share/clipress/staging"
	defaultOutputDir              = "~/.local/share/clipress/output"
	defaultStateDir               = "~/.local/share/clipress"
	defaultLogDir                 = "~/.local/share/clipress/logs"
	defaultAPIBind                = "127.0.0.1:7491"
	defaultSlots                  = 2
	defaultMaxJobsPerUser         = 5
	defaultMaxFileSizeMB          = 2000
	defaultTimeoutSeconds         = 3600
	defaultProbeTimeoutSeconds    = 30
	defaultTerminateGraceSeconds  = 2
	defaultProgressPersistSeconds = 2
	defaultHeartbeatSeconds       = 15
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultThumbnailSize          = 320
	defaultThumbnailQuality       = 85
	defaultDeliveryMode           = DeliveryLocal
	defaultRedisChannel           = "clipress:events"
	defaultRedisTTLHours          = 24
	defaultKafkaTopic             = "clipress.jobs"
	defaultPublishTimeoutSeconds  = 5
	defaultCleanupSchedule        = "@every 30m"
	defaultCleanupStaleHours      = 24
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Delivery modes.
const (
	DeliveryLocal = "local"
	DeliveryS3    = "s3"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Compression: Compression{
			Slots:                  defaultSlots,
			MaxJobsPerUser:         defaultMaxJobsPerUser,
			MaxFileSizeMB:          defaultMaxFileSizeMB,
			TimeoutSeconds:         defaultTimeoutSeconds,
			ProbeTimeoutSeconds:    defaultProbeTimeoutSeconds,
			TerminateGraceSeconds:  defaultTerminateGraceSeconds,
			ProgressPersistSeconds: defaultProgressPersistSeconds,
			HeartbeatSeconds:       defaultHeartbeatSeconds,
			FFmpegBinary:           defaultFFmpegBinary,
			FFprobeBinary:          defaultFFprobeBinary,
		},
		Defaults: settings.Defaults(),
		Thumbnail: Thumbnail{
			Size:    defaultThumbnailSize,
			Quality: defaultThumbnailQuality,
		},
		Delivery: Delivery{
			Mode: defaultDeliveryMode,
		},
		Events: Events{
			RedisChannel:          defaultRedisChannel,
			RedisTTLHours:         defaultRedisTTLHours,
			KafkaTopic:            defaultKafkaTopic,
			PublishTimeoutSeconds: defaultPublishTimeoutSeconds,
		},
		Cleanup: Cleanup{
			Schedule:   defaultCleanupSchedule,
			StaleHours: defaultCleanupStaleHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

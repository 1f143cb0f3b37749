package preflight

import (
	"context"
	"fmt"
	"strings"

	"clipress/internal/config"
)

// MinFreeBytes is the staging free-space floor checked before each job.
const MinFreeBytes = 64 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks a job needs before it starts: staging access
// and free space, output access for local delivery, and both binaries.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
	}
	if results[0].Passed {
		results = append(results, CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, MinFreeBytes))
	}
	if strings.EqualFold(cfg.Delivery.Mode, config.DeliveryLocal) || cfg.Delivery.Mode == "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}
	results = append(results,
		CheckBinary("FFmpeg", cfg.Compression.FFmpegBinary),
		CheckBinary("FFprobe", cfg.Compression.FFprobeBinary),
	)
	return results
}

// CheckEventSinks reports the configured event sinks. Unconfigured sinks are
// omitted.
func CheckEventSinks(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result
	if cfg.Events.RedisAddr != "" {
		results = append(results, CheckRedis(ctx, cfg.Events.RedisAddr, cfg.Events.RedisPassword, cfg.Events.RedisDB))
	}
	if len(cfg.Events.KafkaBrokers) > 0 {
		results = append(results, CheckKafka(ctx, cfg.Events.KafkaBrokers))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Error summarizes failed checks, or returns nil when every check passed.
func Error(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return &CheckError{Summary: strings.Join(parts, "; ")}
}

// CheckError reports failed preflight checks.
type CheckError struct {
	Summary string
}

func (e *CheckError) Error() string { return "preflight failed: " + e.Summary }

// ErrorKind implements services.ErrorClassifier.
func (e *CheckError) ErrorKind() string { return "preflight_failed" }

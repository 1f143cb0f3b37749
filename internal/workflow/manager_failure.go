package workflow

import (
	"errors"
	"log/slog"
	"strings"

	"clipress/internal/encoding"
	"clipress/internal/logging"
	"clipress/internal/queue"
)

var failureHints = map[string]string{
	KindProbeFailed:     "check that the source is a readable video file",
	KindPreflightFailed: "fix the reported preflight check",
	KindInterrupted:     "resubmit the job",
	"timeout":           "raise compression.timeout_seconds or pick a faster preset",
	"encoder_error":     "inspect the ffmpeg stderr tail",
	"spawn_failure":     "check compression.ffmpeg_binary",
	"delivery_failed":   "check the [delivery] settings and destination permissions",
}

func failureHint(kind string) string {
	if hint, ok := failureHints[kind]; ok {
		return hint
	}
	if strings.HasPrefix(kind, "probe_") {
		return failureHints[KindProbeFailed]
	}
	return "check logs for details"
}

func (m *Manager) logOutcome(logger *slog.Logger, job *queue.Job, err error) {
	switch job.Status {
	case queue.StatusCompleted:
		logger.Info("job completed",
			logging.String("result", m.describeResult(job.Result)),
			logging.String("location", job.DeliveredLocation),
			logging.Float64("elapsed_seconds", job.Result.ElapsedSeconds),
			logging.String(logging.FieldEventType, "job_completed"),
		)
	case queue.StatusCancelled:
		logger.Info("job cancelled", logging.String(logging.FieldEventType, "job_cancelled"))
	default:
		attrs := []logging.Attr{
			logging.String("error_kind", job.ErrorKind),
			logging.String("error_message", strings.TrimSpace(job.ErrorMessage)),
			logging.Alert("job_failure"),
			logging.String(logging.FieldErrorHint, failureHint(job.ErrorKind)),
		}
		if err != nil {
			attrs = append(attrs, logging.Error(err))
		}
		var encErr *encoding.EncodeError
		if errors.As(err, &encErr) {
			attrs = append(attrs,
				logging.Int("exit_code", encErr.ExitCode),
				logging.String("stderr_tail", encErr.StderrTail),
			)
		}
		logging.ErrorWithContext(logger, "job failed", "job_failed", attrs...)
	}
}

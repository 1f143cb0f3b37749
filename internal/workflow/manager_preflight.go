package workflow

import (
	"context"
	"log/slog"

	"clipress/internal/logging"
	"clipress/internal/preflight"
)

// runPreflightChecks validates tool and directory readiness before a job.
// Returns nil when all checks pass, or a *preflight.CheckError listing every
// failure.
func (m *Manager) runPreflightChecks(ctx context.Context, logger *slog.Logger) error {
	if m.preflight == nil {
		return nil
	}
	results := m.preflight(ctx, m.cfg)
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
			)
			continue
		}
		logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported issue; later jobs retry the check"),
		)
	}
	return preflight.Error(results)
}

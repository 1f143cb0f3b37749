package staging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"clipress/internal/logging"
)

// ActiveJobsFunc returns the ids of jobs whose work directories must survive.
type ActiveJobsFunc func(ctx context.Context) (map[string]struct{}, error)

// Janitor periodically removes orphaned and stale staging directories.
type Janitor struct {
	dir    string
	maxAge time.Duration
	active ActiveJobsFunc
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewJanitor creates a janitor for dir. schedule uses standard cron syntax
// or descriptors such as "@every 30m".
func NewJanitor(dir, schedule string, maxAge time.Duration, active ActiveJobsFunc, logger *slog.Logger) (*Janitor, error) {
	j := &Janitor{
		dir:    dir,
		maxAge: maxAge,
		active: active,
		logger: logging.NewComponentLogger(logger, "janitor"),
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("parse cleanup schedule %q: %w", schedule, err)
	}
	j.cron = c
	return j, nil
}

// Start begins the schedule.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return
	}
	j.cron.Start()
	j.running = true
}

// Stop halts the schedule and waits for a running pass to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	j.mu.Unlock()
	<-j.cron.Stop().Done()
}

// RunOnce performs one cleanup pass.
func (j *Janitor) RunOnce(ctx context.Context) CleanResult {
	active := map[string]struct{}{}
	if j.active != nil {
		ids, err := j.active(ctx)
		if err != nil {
			logging.WarnWithContext(j.logger, "skipping staging cleanup; active jobs unavailable", "staging_cleanup_skipped",
				logging.Error(err),
				logging.String(logging.FieldImpact, "staging directories kept until the next pass"),
			)
			return CleanResult{}
		}
		active = ids
	}
	orphaned := CleanOrphaned(ctx, j.dir, active, j.logger)
	stale := CleanStale(ctx, j.dir, j.maxAge, active, j.logger)
	result := CleanResult{
		Removed: append(orphaned.Removed, stale.Removed...),
		Errors:  append(orphaned.Errors, stale.Errors...),
	}
	if len(result.Removed) > 0 || len(result.Errors) > 0 {
		j.logger.Info("staging cleanup finished",
			logging.Int("removed", len(result.Removed)),
			logging.Int("errors", len(result.Errors)),
			logging.String(logging.FieldEventType, "staging_cleanup_summary"),
		)
	}
	return result
}

package workflow

import (
	"context"
	"errors"
	"time"

	"clipress/internal/logging"
	"clipress/internal/notifications"
	"clipress/internal/queue"
)

const defaultPublishTimeout = 5 * time.Second

// Subscribe returns every engine event published after the call, in order.
// Call the returned function to stop receiving; the channel is then closed.
func (m *Manager) Subscribe() (<-chan notifications.Event, func()) {
	return m.events.subscribe()
}

func (m *Manager) emit(job *queue.Job, eventType notifications.EventType) {
	event := notifications.Event{
		Type:       eventType,
		JobID:      job.ID,
		UserID:     job.UserID,
		SourceName: job.SourceName,
		Status:     job.Status,
		Progress:   job.Progress,
		Time:       time.Now().UTC(),
	}
	if event.Terminal() {
		event.Result = job.Result
		event.Location = job.DeliveredLocation
		event.ErrorKind = job.ErrorKind
		event.Error = job.ErrorMessage
	}
	m.events.publish(event)
}

// startMirror forwards the event stream to the notification sinks until the
// hub closes.
func (m *Manager) startMirror() {
	events, _ := m.events.subscribe()
	logger := logging.NewComponentLogger(m.logger, "event-mirror")
	timeout := m.cfg.PublishTimeout()
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}

	m.mirrorWG.Add(1)
	go func() {
		defer m.mirrorWG.Done()
		for event := range events {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			err := m.notifier.Publish(ctx, event)
			cancel()
			if err == nil {
				continue
			}
			if errors.Is(err, context.Canceled) {
				logger.Debug("event mirror cancelled", logging.String(logging.FieldJobID, event.JobID))
				continue
			}
			logging.WarnWithContext(logger, "event mirror publish failed", "event_mirror_failed",
				logging.String(logging.FieldJobID, event.JobID),
				logging.String("event", string(event.Type)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the [events] sinks"),
				logging.String(logging.FieldImpact, "external observers miss this event"),
			)
		}
	}()
}

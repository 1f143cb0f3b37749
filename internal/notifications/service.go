package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"clipress/internal/config"
	"clipress/internal/logging"
)

// Service publishes job events.
type Service interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Pinger is implemented by sinks that can check their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewService builds a fan-out over every configured sink, or a no-op when
// none is configured.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if cfg == nil {
		return noopService{}
	}
	logger = logging.NewComponentLogger(logger, "notifications")
	timeout := cfg.PublishTimeout()

	var sinks []Service
	if addr := strings.TrimSpace(cfg.Events.RedisAddr); addr != "" {
		sinks = append(sinks, NewRedisSink(RedisOptions{
			Addr:     addr,
			Password: cfg.Events.RedisPassword,
			DB:       cfg.Events.RedisDB,
			Channel:  cfg.Events.RedisChannel,
			TTL:      time.Duration(cfg.Events.RedisTTLHours) * time.Hour,
		}))
		logger.Debug("redis event sink enabled", logging.String("addr", addr))
	}
	if len(cfg.Events.KafkaBrokers) > 0 {
		sinks = append(sinks, NewKafkaSink(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic))
		logger.Debug("kafka event sink enabled", logging.String("topic", cfg.Events.KafkaTopic))
	}
	if topic := strings.TrimSpace(cfg.Events.NtfyTopic); topic != "" {
		sinks = append(sinks, NewNtfySink(topic, timeout))
		logger.Debug("ntfy event sink enabled")
	}
	if len(sinks) == 0 {
		return noopService{}
	}
	return &multiService{sinks: sinks, timeout: timeout}
}

type multiService struct {
	sinks   []Service
	timeout time.Duration
}

// Publish sends the event to every sink and joins their errors.
func (m *multiService) Publish(ctx context.Context, event Event) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiService) Ping(ctx context.Context) error {
	var errs []error
	for _, sink := range m.sinks {
		if p, ok := sink.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *multiService) Close() error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewMulti combines sinks into one Service.
func NewMulti(sinks ...Service) Service {
	if len(sinks) == 0 {
		return noopService{}
	}
	return &multiService{sinks: sinks}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event) error { return nil }
func (noopService) Close() error                         { return nil }

// NewNoop returns a Service that discards events.
func NewNoop() Service { return noopService{} }

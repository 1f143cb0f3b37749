package notifications

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis sink.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	// TTL applies to the job hash once the job is terminal. Zero keeps it.
	TTL time.Duration
}

// RedisSink mirrors job state into job:<id> hashes and publishes events on a
// pub/sub channel.
type RedisSink struct {
	client  *redis.Client
	channel string
	ttl     time.Duration
}

// NewRedisSink creates a sink; the connection is established lazily.
func NewRedisSink(opts RedisOptions) *RedisSink {
	return &RedisSink{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		channel: opts.Channel,
		ttl:     opts.TTL,
	}
}

// JobKey returns the hash key holding a job's mirrored state.
func JobKey(jobID string) string {
	return "job:" + jobID
}

// HashFields returns the job hash fields written for event.
func HashFields(event Event) []any {
	fields := []any{
		"status", string(event.Status),
		"progress", strconv.Itoa(event.Progress),
		"user_id", event.UserID,
		"updated_at", event.Time.UTC().Format(time.RFC3339),
	}
	if event.Type == EventStarted {
		fields = append(fields, "started_at", event.Time.UTC().Format(time.RFC3339))
	}
	if event.Terminal() {
		fields = append(fields, "completed_at", event.Time.UTC().Format(time.RFC3339))
	}
	if event.ErrorKind != "" {
		fields = append(fields, "error_kind", event.ErrorKind, "error", event.Error)
	}
	if event.Location != "" {
		fields = append(fields, "location", event.Location)
	}
	return fields
}

// Publish writes the hash and publishes the event in one pipeline.
func (r *RedisSink) Publish(ctx context.Context, event Event) error {
	payload, err := event.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	key := JobKey(event.JobID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, HashFields(event)...)
		if event.Terminal() && r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		if r.channel != "" {
			pipe.Publish(ctx, r.channel, payload)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish %s: %w", key, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisSink) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (r *RedisSink) Close() error {
	return r.client.Close()
}

package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"clipress/internal/settings"
)

func scanUser(row interface{ Scan(dest ...any) error }) (*User, error) {
	var (
		user         User
		defaultsJSON sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := row.Scan(&user.ID, &defaultsJSON, &user.TotalCompressed, &user.TotalBytesSaved, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	if defaultsJSON.Valid && defaultsJSON.String != "" {
		var defaults settings.JobSettings
		if err := json.Unmarshal([]byte(defaultsJSON.String), &defaults); err != nil {
			return nil, fmt.Errorf("decode defaults for user %s: %w", user.ID, err)
		}
		user.Defaults = &defaults
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		user.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		user.UpdatedAt = t
	}
	return &user, nil
}

// GetUser fetches a user record. Unknown users return ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, default_settings_json, total_compressed, total_bytes_saved, created_at, updated_at
         FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("get user")
	}
	if err != nil {
		return nil, ioFailure("get user", err)
	}
	return user, nil
}

// PutUser stores the user's default settings. Counters are owned by
// IncrementUserStats and are not overwritten.
func (s *Store) PutUser(ctx context.Context, user *User) error {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return errors.New("user id is required")
	}
	var defaultsJSON any
	if user.Defaults != nil {
		data, err := json.Marshal(user.Defaults)
		if err != nil {
			return fmt.Errorf("encode defaults: %w", err)
		}
		defaultsJSON = string(data)
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	_, err := s.execWithRetry(ctx,
		`INSERT INTO users (id, default_settings_json, created_at, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             default_settings_json = excluded.default_settings_json,
             updated_at = excluded.updated_at`,
		user.ID, defaultsJSON, formatTime(user.CreatedAt), formatTime(user.UpdatedAt),
	)
	return ioFailure("put user", err)
}

// IncrementUserStats records one completed compression for the user and adds
// bytesSaved to their total. Negative savings count as zero so the counters
// never decrease.
func (s *Store) IncrementUserStats(ctx context.Context, userID string, bytesSaved int64) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}
	if bytesSaved < 0 {
		bytesSaved = 0
	}
	now := formatTime(time.Now())
	_, err := s.execWithRetry(ctx,
		`INSERT INTO users (id, total_compressed, total_bytes_saved, created_at, updated_at)
         VALUES (?, 1, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             total_compressed = users.total_compressed + 1,
             total_bytes_saved = users.total_bytes_saved + excluded.total_bytes_saved,
             updated_at = excluded.updated_at`,
		userID, bytesSaved, now, now,
	)
	return ioFailure("increment user stats", err)
}

// Totals sums the counters of every user.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	var totals Totals
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(total_compressed), 0), COALESCE(SUM(total_bytes_saved), 0) FROM users`,
	).Scan(&totals.Users, &totals.TotalCompressed, &totals.TotalBytesSaved)
	if err != nil {
		return Totals{}, ioFailure("totals", err)
	}
	return totals, nil
}

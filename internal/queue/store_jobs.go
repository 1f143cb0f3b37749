package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const jobColumns = "seq, id, user_id, source_path, source_name, work_dir, output_path, thumbnail_path, delivered_location, settings_json, status, progress, error_kind, error_message, result_json, created_at, updated_at, started_at, finished_at, last_heartbeat"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job           Job
		sourceName    sql.NullString
		workDir       sql.NullString
		outputPath    sql.NullString
		thumbnailPath sql.NullString
		delivered     sql.NullString
		settingsJSON  string
		status        string
		errorKind     sql.NullString
		errorMessage  sql.NullString
		resultJSON    sql.NullString
		createdRaw    string
		updatedRaw    string
		startedRaw    sql.NullString
		finishedRaw   sql.NullString
		heartbeatRaw  sql.NullString
	)
	if err := scanner.Scan(
		&job.Seq,
		&job.ID,
		&job.UserID,
		&job.SourcePath,
		&sourceName,
		&workDir,
		&outputPath,
		&thumbnailPath,
		&delivered,
		&settingsJSON,
		&status,
		&job.Progress,
		&errorKind,
		&errorMessage,
		&resultJSON,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}
	job.SourceName = sourceName.String
	job.WorkDir = workDir.String
	job.OutputPath = outputPath.String
	job.ThumbnailPath = thumbnailPath.String
	job.DeliveredLocation = delivered.String
	job.Status = Status(status)
	job.ErrorKind = errorKind.String
	job.ErrorMessage = errorMessage.String

	if err := json.Unmarshal([]byte(settingsJSON), &job.Settings); err != nil {
		return nil, fmt.Errorf("decode settings for job %s: %w", job.ID, err)
	}
	if resultJSON.Valid && resultJSON.String != "" {
		var result Result
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, fmt.Errorf("decode result for job %s: %w", job.ID, err)
		}
		job.Result = &result
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = t
	}
	job.StartedAt = parseNullableTime(startedRaw)
	job.FinishedAt = parseNullableTime(finishedRaw)
	job.LastHeartbeat = parseNullableTime(heartbeatRaw)
	return &job, nil
}

// PutJob inserts or replaces the job keyed by job.ID. Admission order is
// preserved across updates.
func (s *Store) PutJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("job id is required")
	}
	if !job.Status.Valid() {
		return fmt.Errorf("job %s: invalid status %q", job.ID, job.Status)
	}
	settingsJSON, err := json.Marshal(job.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	var resultJSON any
	if job.Result != nil {
		data, err := json.Marshal(job.Result)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		resultJSON = string(data)
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err = s.execWithRetry(ctx,
		`INSERT INTO jobs (
            id, user_id, source_path, source_name, work_dir, output_path, thumbnail_path,
            delivered_location, settings_json, status, progress, error_kind, error_message,
            result_json, created_at, updated_at, started_at, finished_at, last_heartbeat
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            user_id = excluded.user_id,
            source_path = excluded.source_path,
            source_name = excluded.source_name,
            work_dir = excluded.work_dir,
            output_path = excluded.output_path,
            thumbnail_path = excluded.thumbnail_path,
            delivered_location = excluded.delivered_location,
            settings_json = excluded.settings_json,
            status = excluded.status,
            progress = excluded.progress,
            error_kind = excluded.error_kind,
            error_message = excluded.error_message,
            result_json = excluded.result_json,
            updated_at = excluded.updated_at,
            started_at = excluded.started_at,
            finished_at = excluded.finished_at,
            last_heartbeat = excluded.last_heartbeat`,
		job.ID,
		job.UserID,
		job.SourcePath,
		nullableString(job.SourceName),
		nullableString(job.WorkDir),
		nullableString(job.OutputPath),
		nullableString(job.ThumbnailPath),
		nullableString(job.DeliveredLocation),
		string(settingsJSON),
		string(job.Status),
		job.Progress,
		nullableString(job.ErrorKind),
		nullableString(job.ErrorMessage),
		resultJSON,
		formatTime(job.CreatedAt),
		formatTime(job.UpdatedAt),
		nullableTime(job.StartedAt),
		nullableTime(job.FinishedAt),
		nullableTime(job.LastHeartbeat),
	)
	return ioFailure("put job", err)
}

// GetJob fetches a job by id. Missing jobs return ErrNotFound.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("get job")
	}
	if err != nil {
		return nil, ioFailure("get job", err)
	}
	return job, nil
}

// DeleteJob removes a job. Missing jobs return ErrNotFound.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return ioFailure("delete job", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("delete job")
	}
	return nil
}

// ListJobsByUser returns every job owned by userID in admission order.
func (s *Store) ListJobsByUser(ctx context.Context, userID string) ([]*Job, error) {
	return s.queryJobs(ctx, "list jobs by user",
		`SELECT `+jobColumns+` FROM jobs WHERE user_id = ? ORDER BY seq`, userID)
}

// ListActiveByUser returns the user's queued and processing jobs in admission order.
func (s *Store) ListActiveByUser(ctx context.Context, userID string) ([]*Job, error) {
	return s.queryJobs(ctx, "list active jobs",
		`SELECT `+jobColumns+` FROM jobs WHERE user_id = ? AND status IN (?, ?) ORDER BY seq`,
		userID, StatusQueued, StatusProcessing)
}

// ListJobs returns jobs in admission order, optionally filtered by status.
func (s *Store) ListJobs(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY seq`
	return s.queryJobs(ctx, "list jobs", query, args...)
}

func (s *Store) queryJobs(ctx context.Context, op, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ioFailure(op, err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, ioFailure(op, err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, ioFailure(op, err)
	}
	return jobs, nil
}

// CountActiveByUser counts the user's queued and processing jobs.
func (s *Store) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM jobs WHERE user_id = ? AND status IN (?, ?)`,
		userID, StatusQueued, StatusProcessing,
	).Scan(&count)
	if err != nil {
		return 0, ioFailure("count active jobs", err)
	}
	return count, nil
}

// UpdateProgress raises a processing job's progress. Lower values and
// non-processing jobs are left untouched.
func (s *Store) UpdateProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := s.execWithRetry(ctx,
		`UPDATE jobs SET progress = MAX(progress, ?), updated_at = ? WHERE id = ? AND status = ?`,
		progress, formatTime(time.Now()), id, StatusProcessing,
	)
	return ioFailure("update progress", err)
}

// UpdateHeartbeat stamps last_heartbeat on a processing job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	_, err := s.execWithRetry(ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now, now, id, StatusProcessing,
	)
	return ioFailure("update heartbeat", err)
}

// FailInterrupted marks processing jobs left over from a previous run as
// failed and returns the affected jobs.
func (s *Store) FailInterrupted(ctx context.Context, kind, message string) ([]*Job, error) {
	var failed []*Job
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		failed = failed[:0]
		rows, err := tx.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY seq`, StatusProcessing)
		if err != nil {
			return err
		}
		for rows.Next() {
			job, err := scanJob(rows)
			if err != nil {
				rows.Close()
				return err
			}
			failed = append(failed, job)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, job := range failed {
			if _, err := tx.ExecContext(ctx,
				`UPDATE jobs SET status = ?, error_kind = ?, error_message = ?, finished_at = ?, updated_at = ? WHERE id = ?`,
				StatusFailed, kind, message, formatTime(now), formatTime(now), job.ID,
			); err != nil {
				return err
			}
			job.Status = StatusFailed
			job.ErrorKind = kind
			job.ErrorMessage = message
			job.FinishedAt = &now
			job.UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, ioFailure("fail interrupted", err)
	}
	return failed, nil
}

// ClearTerminal deletes jobs that reached a terminal status.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM jobs WHERE status IN (?, ?, ?)`,
		StatusCompleted, StatusFailed, StatusCancelled,
	)
	if err != nil {
		return 0, ioFailure("clear terminal", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ClearAll deletes every job regardless of status.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, ioFailure("clear all", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

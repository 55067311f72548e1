package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vodmill/internal/services"
)

// CreateJob persists a freshly accepted job in the started state.
func (s *Store) CreateJob(ctx context.Context, job *Job) error {
	now := time.Now()
	job.Status = JobStatusStarted
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, movie_id, episode_id, source_key, callback_url, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		job.ID, job.MovieID, job.EpisodeID, job.SourceKey,
		nullableString(job.CallbackURL), string(job.Status),
		timestamp(job.CreatedAt), timestamp(job.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// UpdateJobStatus advances a job to the given stage.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status JobStatus) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?",
		string(status), timestamp(time.Now()), jobID)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return requireRow(result, "update-job-status", jobID)
}

// FailJob marks a job failed with the given message.
func (s *Store) FailJob(ctx context.Context, jobID, message string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?",
		string(JobStatusFailed), nullableString(message), timestamp(time.Now()), jobID)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return requireRow(result, "fail-job", jobID)
}

// CompleteJob marks a job completed and clears any error message.
func (s *Store) CompleteJob(ctx context.Context, jobID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, error_message = NULL, updated_at = ? WHERE id = ?",
		string(JobStatusCompleted), timestamp(time.Now()), jobID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return requireRow(result, "complete-job", jobID)
}

// GetJob fetches one job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, movie_id, episode_id, source_key, callback_url, status, error_message, created_at, updated_at
		FROM jobs
		WHERE id = ?`, jobID)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get-job",
			fmt.Sprintf("job %s", jobID), err)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns the most recently created jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	return s.listJobs(ctx, "", limit)
}

// ListJobsByStatus returns the most recent jobs in the given state.
func (s *Store) ListJobsByStatus(ctx context.Context, status JobStatus, limit int) ([]*Job, error) {
	return s.listJobs(ctx, status, limit)
}

func (s *Store) listJobs(ctx context.Context, status JobStatus, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, movie_id, episode_id, source_key, callback_url, status, error_message, created_at, updated_at
		FROM jobs`
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job row: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

// ReconcileAbandoned fails every job left in an in-flight state by a previous
// daemon run and records the failure on the matching episode. Run once at
// startup before the API begins accepting work.
func (s *Store) ReconcileAbandoned(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, movie_id, episode_id, source_key, callback_url, status, error_message, created_at, updated_at
		FROM jobs
		WHERE status NOT IN (?, ?)`,
		string(JobStatusCompleted), string(JobStatusFailed))
	if err != nil {
		return nil, fmt.Errorf("query abandoned jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var abandoned []*Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan abandoned job: %w", scanErr)
		}
		abandoned = append(abandoned, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate abandoned jobs: %w", err)
	}

	for _, job := range abandoned {
		if err := s.FailJob(ctx, job.ID, AbandonedJobReason); err != nil {
			return nil, err
		}
		if err := s.MarkFailed(ctx, job.MovieID, job.EpisodeID, AbandonedJobReason); err != nil {
			return nil, err
		}
		job.Status = JobStatusFailed
		job.ErrorMessage = AbandonedJobReason
	}
	return abandoned, nil
}

func requireRow(result sql.Result, operation, jobID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", operation,
			fmt.Sprintf("job %s", jobID), sql.ErrNoRows)
	}
	return nil
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job          Job
		callbackURL  sql.NullString
		status       string
		errorMessage sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(
		&job.ID,
		&job.MovieID,
		&job.EpisodeID,
		&job.SourceKey,
		&callbackURL,
		&status,
		&errorMessage,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.CallbackURL = callbackURL.String
	job.Status = JobStatus(status)
	job.ErrorMessage = errorMessage.String
	job.CreatedAt = parseTimestamp(createdAt)
	job.UpdatedAt = parseTimestamp(updatedAt)
	return &job, nil
}

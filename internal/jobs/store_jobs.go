package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Create inserts a new queued job for an uploaded dataset.
func (s *Store) Create(ctx context.Context, userID, datasetName, csvFileName string) (*Job, error) {
	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            id, user_id, status, dataset_name, csv_file_name,
            progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		userID,
		StatusQueued,
		nullableString(datasetName),
		nullableString(csvFileName),
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetForUser(ctx, id, userID)
}

// GetForUser fetches a job by identifier, scoped to its owner. Jobs owned by
// other users report ErrNotFound.
func (s *Store) GetForUser(ctx context.Context, id, userID string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *Store) getByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns a user's jobs newest first, optionally filtered by status.
// A non-positive limit returns everything.
func (s *Store) List(ctx context.Context, userID string, status Status, limit int) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

package jobs

import (
	"context"
	"fmt"
	"time"
)

// StartProcessing moves a queued job into processing. The transition is a
// single conditional UPDATE: when two callers race, exactly one observes the
// queued row and wins; the loser gets ErrState.
func (s *Store) StartProcessing(ctx context.Context, id, userID string) (*Job, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND user_id = ? AND status = ?`,
		StatusProcessing,
		now(),
		id, userID, StatusQueued,
	)
	if err != nil {
		return nil, fmt.Errorf("start processing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		job, getErr := s.GetForUser(ctx, id, userID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: job is %s", ErrState, job.Status)
	}
	return s.GetForUser(ctx, id, userID)
}

// UpdateProgress records pipeline progress for a processing job. Percent is
// monotone: the stored value only moves up, so late or out-of-order updates
// can never walk progress backwards. Updates against a job that already left
// processing are dropped.
func (s *Store) UpdateProgress(ctx context.Context, id, stage string, percent float64, message string) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET progress_stage = ?, progress_percent = MAX(progress_percent, ?),
             progress_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		nullableString(stage),
		percent,
		nullableString(message),
		now(),
		id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// UpdateDetails records dataset facts learned during the run.
func (s *Store) UpdateDetails(ctx context.Context, id, datasetName, modelType string, sampleCount int) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET dataset_name = ?, model_type = ?, sample_count = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(datasetName),
		nullableString(modelType),
		sampleCount,
		now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update details: %w", err)
	}
	return nil
}

// Complete finishes a processing job with its result document. Progress is
// forced to 100 on completion.
func (s *Store) Complete(ctx context.Context, id, resultJSON string) error {
	stamp := now()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, progress_percent = 100, progress_message = NULL,
             result_json = ?, completed_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted,
		resultJSON,
		stamp,
		stamp,
		id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	return s.requireTransition(ctx, id, affected)
}

// Fail marks a job failed with a client-facing message. The last recorded
// progress is kept so the caller can see how far the run got.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusFailed,
		nullableString(message),
		now(),
		id, StatusQueued, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	return s.requireTransition(ctx, id, affected)
}

// FailInterrupted fails every job left in processing and returns how many
// rows it reclaimed. Run at startup before the pipeline starts, when no live
// task can own a processing row.
func (s *Store) FailInterrupted(ctx context.Context, message string) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
		StatusFailed,
		nullableString(message),
		now(),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) requireTransition(ctx context.Context, id string, affected int64) error {
	if affected > 0 {
		return nil
	}
	job, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: job is %s", ErrState, job.Status)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

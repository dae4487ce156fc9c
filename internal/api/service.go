package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"oasis/internal/analysis"
	"oasis/internal/config"
	"oasis/internal/dataset"
	"oasis/internal/jobs"
	"oasis/internal/logging"
	"oasis/internal/pipeline"
	"oasis/internal/storage"
)

// Service wires the job store, payload storage, and pipeline into the
// operations the HTTP layer exposes.
type Service struct {
	cfg    *config.Config
	store  *jobs.Store
	files  *storage.Store
	runner *pipeline.Manager
	logger *slog.Logger
}

// NewService constructs the API service.
func NewService(cfg *config.Config, store *jobs.Store, files *storage.Store, runner *pipeline.Manager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:    cfg,
		store:  store,
		files:  files,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "api"),
	}
}

// Upload creates a job for an uploaded CSV, stores the payload, and
// pre-validates the dataset. Invalid uploads still produce a job record so
// the caller can inspect the failure; the job is failed immediately and the
// validation error returned.
func (s *Service) Upload(ctx context.Context, userID, fileName, datasetName string, data []byte) (*jobs.Job, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidRequest)
	}
	if datasetName == "" {
		datasetName = dataset.DisplayName(fileName)
	}

	job, err := s.store.Create(ctx, userID, datasetName, fileName)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With(logging.String(logging.FieldJobID, job.ID), logging.String(logging.FieldUserID, userID))

	if _, err := s.files.SaveUpload(userID, job.ID, data); err != nil {
		logger.Error("failed to store upload", logging.Error(err))
		s.failUpload(ctx, logger, job.ID, "upload could not be stored")
		return job, err
	}

	ds, err := dataset.Parse(data)
	if err != nil {
		logger.Info("upload rejected", logging.Error(err), logging.String(logging.FieldEventType, "upload_rejected"))
		s.failUpload(ctx, logger, job.ID, err.Error())
		job, _ = s.store.GetForUser(ctx, job.ID, userID)
		return job, err
	}

	if err := s.store.UpdateDetails(ctx, job.ID, datasetName, "", ds.SampleCount()); err != nil {
		return job, err
	}
	logger.Info("upload accepted",
		logging.String(logging.FieldEventType, "upload_accepted"),
		logging.Int("sample_count", ds.SampleCount()),
	)
	return s.store.GetForUser(ctx, job.ID, userID)
}

func (s *Service) failUpload(ctx context.Context, logger *slog.Logger, jobID, message string) {
	if err := s.store.Fail(ctx, jobID, message); err != nil {
		logger.Error("failed to mark upload failure", logging.Error(err))
	}
}

// Process starts analysis for a queued job. The queued-to-processing
// transition is conditional in the store, so concurrent calls produce exactly
// one accepted run.
func (s *Service) Process(ctx context.Context, userID, jobID string) (*jobs.Job, error) {
	job, err := s.store.StartProcessing(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.runner.Submit(jobID, userID); err != nil {
		s.logger.Warn("pipeline rejected submission",
			logging.Error(err),
			logging.String(logging.FieldJobID, jobID),
		)
		if failErr := s.store.Fail(ctx, jobID, "server is at capacity, re-upload and try again"); failErr != nil {
			s.logger.Error("failed to mark rejected submission", logging.Error(failErr))
		}
		return nil, fmt.Errorf("%w: pipeline queue full", ErrBusy)
	}
	return job, nil
}

// Status returns the current job record for its owner.
func (s *Service) Status(ctx context.Context, userID, jobID string) (*jobs.Job, error) {
	return s.store.GetForUser(ctx, jobID, userID)
}

// Results returns the assembled result document for a completed job.
func (s *Service) Results(ctx context.Context, userID, jobID string) (*analysis.JobResult, error) {
	job, err := s.store.GetForUser(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	if job.Status != jobs.StatusCompleted {
		return nil, fmt.Errorf("%w: job is %s", ErrNotReady, job.Status)
	}

	var result analysis.JobResult
	if err := json.Unmarshal([]byte(job.ResultJSON), &result); err != nil {
		return nil, fmt.Errorf("decode stored result: %w", err)
	}
	return &result, nil
}

// Export returns the rendered CSV for a completed job along with a download
// file name.
func (s *Service) Export(ctx context.Context, userID, jobID string) ([]byte, string, error) {
	job, err := s.store.GetForUser(ctx, jobID, userID)
	if err != nil {
		return nil, "", err
	}
	if job.Status != jobs.StatusCompleted {
		return nil, "", fmt.Errorf("%w: job is %s", ErrNotReady, job.Status)
	}

	data, err := s.files.ReadResultCSV(userID, jobID)
	if err != nil {
		return nil, "", fmt.Errorf("read result csv: %w", err)
	}
	return data, job.ID + "_results.csv", nil
}

// List returns the caller's jobs newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, userID, status string, limit int) ([]*jobs.Job, error) {
	if status != "" && !jobs.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}
	return s.store.List(ctx, userID, jobs.Status(status), limit)
}

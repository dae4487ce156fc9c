package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"oasis/internal/analysis"
	"oasis/internal/dataset"
	"oasis/internal/jobs"
	"oasis/internal/logging"
	"oasis/internal/model"
)

// genericFailureMessage is stored for unexpected errors. Internal detail goes
// to the log, never to the client.
const genericFailureMessage = "processing failed due to an internal error"

// shutdownFailureMessage is stored for jobs whose run was cut short by the
// worker pool going down.
const shutdownFailureMessage = "processing interrupted by shutdown"

// Progress checkpoints reported as the run advances.
const (
	progressParsed    = 25
	progressModeled   = 60
	progressAssembled = 90
)

func (m *Manager) execute(ctx context.Context, logger *slog.Logger, sub submission) {
	logger = logger.With(logging.String(logging.FieldJobID, sub.jobID), logging.String(logging.FieldUserID, sub.userID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panic",
				logging.Any("panic", r),
				logging.String(logging.FieldEventType, "pipeline_panic"),
			)
			m.failJob(ctx, logger, sub.jobID, genericFailureMessage)
		}
	}()

	start := time.Now()
	logger.Info("job started", logging.String(logging.FieldEventType, "job_start"))

	if err := m.runJob(ctx, logger, sub); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("job interrupted by shutdown")
			m.failJob(context.Background(), logger, sub.jobID, shutdownFailureMessage)
			return
		}
		logger.Error("job failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_failure"),
			logging.Duration("job_duration", time.Since(start)),
		)
		m.failJob(ctx, logger, sub.jobID, failureMessage(err))
		return
	}

	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Duration("job_duration", time.Since(start)),
	)
}

func (m *Manager) runJob(ctx context.Context, logger *slog.Logger, sub submission) error {
	job, err := m.store.GetForUser(ctx, sub.jobID, sub.userID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	raw, err := m.files.ReadUpload(sub.userID, sub.jobID)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	var ds *dataset.Dataset
	if err := m.runStage(logger, "parsing", func() error {
		parsed, parseErr := dataset.Parse(raw)
		if parseErr != nil {
			return parseErr
		}
		ds = parsed
		return nil
	}); err != nil {
		return err
	}
	if err := m.store.UpdateProgress(ctx, sub.jobID, "parsing", progressParsed, "dataset validated"); err != nil {
		return err
	}

	var contrib *model.Contributions
	if err := m.runStage(logger, "modeling", func() error {
		plan := model.Classify(ds)
		out, runErr := model.Run(ds, plan, m.endmembers)
		if runErr != nil {
			return runErr
		}
		contrib = out
		return nil
	}); err != nil {
		return err
	}
	if err := m.store.UpdateDetails(ctx, sub.jobID, job.DatasetName, string(contrib.Type), ds.SampleCount()); err != nil {
		return err
	}
	if err := m.store.UpdateProgress(ctx, sub.jobID, "modeling", progressModeled, "model run complete"); err != nil {
		return err
	}

	var result *analysis.JobResult
	if err := m.runStage(logger, "assembling", func() error {
		result = analysis.Assemble(analysis.Meta{
			JobID:       job.ID,
			UserID:      job.UserID,
			DatasetName: job.DatasetName,
			CSVFileName: job.CSVFileName,
		}, ds, contrib)
		return nil
	}); err != nil {
		return err
	}
	if err := m.store.UpdateProgress(ctx, sub.jobID, "assembling", progressAssembled, "results assembled"); err != nil {
		return err
	}

	return m.runStage(logger, "storing", func() error {
		rendered, renderErr := analysis.RenderCSV(result)
		if renderErr != nil {
			return renderErr
		}
		if _, saveErr := m.files.SaveResultCSV(sub.userID, sub.jobID, rendered); saveErr != nil {
			return fmt.Errorf("store result csv: %w", saveErr)
		}
		encoded, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			return fmt.Errorf("marshal result: %w", marshalErr)
		}
		return m.store.Complete(ctx, sub.jobID, string(encoded))
	})
}

// runStage times a pipeline stage and warns when it exceeds the configured
// watchdog threshold.
func (m *Manager) runStage(logger *slog.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	attrs := []logging.Attr{
		logging.String(logging.FieldStage, name),
		logging.Duration("stage_duration", elapsed),
	}
	if m.stageWarn > 0 && elapsed > m.stageWarn {
		logger.Warn("stage exceeded watchdog threshold", logging.Args(attrs...)...)
	} else {
		logger.Debug("stage finished", logging.Args(attrs...)...)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, jobID, message string) {
	if err := m.store.Fail(ctx, jobID, message); err != nil && !errors.Is(err, jobs.ErrState) {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
}

// failureMessage maps a pipeline error to the text stored on the job.
// Validation and model configuration errors are safe to surface verbatim;
// everything else gets the generic message.
func failureMessage(err error) string {
	if errors.Is(err, dataset.ErrValidation) || errors.Is(err, model.ErrModelConfiguration) {
		return err.Error()
	}
	return genericFailureMessage
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"oasis/internal/api"
	"oasis/internal/dataset"
	"oasis/internal/jobs"
	"oasis/internal/logging"
	"oasis/internal/model"
	"oasis/internal/storage"
)

// JobPayload is the JSON shape of a job record on the wire.
type JobPayload struct {
	JobID           string  `json:"job_id"`
	Status          string  `json:"status"`
	DatasetName     string  `json:"dataset_name,omitempty"`
	CSVFileName     string  `json:"csv_file_name,omitempty"`
	SampleCount     int64   `json:"sample_count"`
	ModelType       string  `json:"model_type,omitempty"`
	ProgressStage   string  `json:"progress_stage,omitempty"`
	ProgressPercent float64 `json:"progress_percent"`
	ProgressMessage string  `json:"progress_message,omitempty"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	CompletedAt     string  `json:"completed_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func jobPayload(job *jobs.Job) JobPayload {
	payload := JobPayload{
		JobID:           job.ID,
		Status:          string(job.Status),
		DatasetName:     job.DatasetName,
		CSVFileName:     job.CSVFileName,
		SampleCount:     job.SampleCount,
		ModelType:       job.ModelType,
		ProgressStage:   job.ProgressStage,
		ProgressPercent: job.ProgressPercent,
		ProgressMessage: job.ProgressMessage,
		ErrorMessage:    job.ErrorMessage,
		CreatedAt:       job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       job.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if job.CompletedAt != nil {
		payload.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors onto HTTP statuses. Unexpected
// errors log their detail and answer with a generic message.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, jobs.ErrState), errors.Is(err, api.ErrNotReady):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, dataset.ErrValidation), errors.Is(err, api.ErrInvalidRequest):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrModelConfiguration):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, api.ErrBusy):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, storage.ErrTransient):
		s.writeError(w, http.StatusServiceUnavailable, "temporary storage failure, retry the request")
	default:
		s.logger.Error("request failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

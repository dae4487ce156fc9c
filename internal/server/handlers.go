package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"oasis/internal/dataset"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	identity := callerIdentity(r)

	maxBytes := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		s.writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	datasetName := strings.TrimSpace(r.FormValue("dataset_name"))

	job, err := s.service.Upload(r.Context(), identity.UserID, header.Filename, datasetName, data)
	if err != nil {
		if job != nil && errors.Is(err, dataset.ErrValidation) {
			// Validation failures keep the job record so the client can
			// inspect it; surface both the error and the job id.
			s.writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":  err.Error(),
				"job_id": job.ID,
			})
			return
		}
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, jobPayload(job))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID, ok := pathID(r.URL.Path, "/process/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, err := s.service.Process(r.Context(), callerIdentity(r).UserID, jobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, jobPayload(job))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID, ok := pathID(r.URL.Path, "/status/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, err := s.service.Status(r.Context(), callerIdentity(r).UserID, jobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobPayload(job))
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID, ok := pathID(r.URL.Path, "/results/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	result, err := s.service.Results(r.Context(), callerIdentity(r).UserID, jobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID, ok := pathID(r.URL.Path, "/export/")
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	data, name, err := s.service.Export(r.Context(), callerIdentity(r).UserID, jobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	status := strings.TrimSpace(query.Get("status"))

	listed, err := s.service.List(r.Context(), callerIdentity(r).UserID, status, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	payloads := make([]JobPayload, 0, len(listed))
	for _, job := range listed {
		payloads = append(payloads, jobPayload(job))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": payloads})
}

func pathID(path, prefix string) (string, bool) {
	id := strings.TrimPrefix(path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

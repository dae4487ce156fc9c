package pipeline_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"oasis/internal/analysis"
	"oasis/internal/config"
	"oasis/internal/jobs"
	"oasis/internal/logging"
	"oasis/internal/pipeline"
	"oasis/internal/storage"
	"oasis/internal/testsupport"
)

type harness struct {
	cfg     *config.Config
	store   *jobs.Store
	files   *storage.Store
	manager *pipeline.Manager
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	files, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}

	manager := pipeline.NewManager(cfg, store, files, logging.NewNop())
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("manager.Start failed: %v", err)
	}
	t.Cleanup(manager.Stop)

	return &harness{cfg: cfg, store: store, files: files, manager: manager}
}

func (h *harness) submit(t *testing.T, userID string, payload []byte) *jobs.Job {
	t.Helper()
	ctx := context.Background()

	job := testsupport.NewJob(t, h.store, userID, "Test Dataset", "test.csv")
	if _, err := h.files.SaveUpload(userID, job.ID, payload); err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	if _, err := h.store.StartProcessing(ctx, job.ID, userID); err != nil {
		t.Fatalf("StartProcessing failed: %v", err)
	}
	if err := h.manager.Submit(job.ID, userID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return job
}

func (h *harness) waitTerminal(t *testing.T, jobID, userID string) *jobs.Job {
	t.Helper()
	ctx := context.Background()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := h.store.GetForUser(ctx, jobID, userID)
		if err != nil {
			t.Fatalf("GetForUser failed: %v", err)
		}
		if job.Status == jobs.StatusCompleted || job.Status == jobs.StatusFailed {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return nil
}

func TestPipelineCompletesCombinedRun(t *testing.T) {
	h := newHarness(t)
	job := h.submit(t, "alice", []byte(testsupport.CombinedCSV))

	done := h.waitTerminal(t, job.ID, "alice")
	if done.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", done.Status, done.ErrorMessage)
	}
	if done.ProgressPercent != 100 {
		t.Fatalf("expected full progress, got %v", done.ProgressPercent)
	}
	if done.ModelType != "combined" || done.SampleCount != 3 {
		t.Fatalf("details not recorded: %+v", done)
	}

	var result analysis.JobResult
	if err := json.Unmarshal([]byte(done.ResultJSON), &result); err != nil {
		t.Fatalf("stored result is not valid JSON: %v", err)
	}
	if result.JobID != job.ID || result.UserID != "alice" {
		t.Fatalf("result identity mismatch: %+v", result)
	}
	if result.ModelType != "combined" || len(result.Rows) != 3 {
		t.Fatalf("unexpected result document: %+v", result)
	}

	rendered, err := h.files.ReadResultCSV("alice", job.ID)
	if err != nil {
		t.Fatalf("ReadResultCSV failed: %v", err)
	}
	header := strings.SplitN(string(rendered), "\n", 2)[0]
	if !strings.Contains(header, "nitrate_contribution") {
		t.Fatalf("export missing contribution columns: %q", header)
	}
}

func TestPipelineFailsValidationWithDetail(t *testing.T) {
	h := newHarness(t)
	payload := testsupport.CSV("Sample_id,timestamp,Long,Lat,Cl", "S1,not-a-date,8.55,47.37,45")
	job := h.submit(t, "alice", payload)

	done := h.waitTerminal(t, job.ID, "alice")
	if done.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", done.Status)
	}
	if !strings.Contains(done.ErrorMessage, "timestamp") {
		t.Fatalf("validation detail should surface, got %q", done.ErrorMessage)
	}
}

func TestPipelineFailsOnMissingEndmember(t *testing.T) {
	h := newHarness(t, testsupport.WithEndmembers(map[string]config.Endmember{
		"nitrate": {Low: 0, High: 50},
	}))
	job := h.submit(t, "alice", []byte(testsupport.ConservativeCSV))

	done := h.waitTerminal(t, job.ID, "alice")
	if done.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", done.Status)
	}
	if !strings.Contains(done.ErrorMessage, "end-member") {
		t.Fatalf("configuration detail should surface, got %q", done.ErrorMessage)
	}
}

func TestPipelineHidesUnexpectedErrorDetail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// No upload stored: the read fails with an internal error.
	job := testsupport.NewJob(t, h.store, "alice", "Test Dataset", "test.csv")
	if _, err := h.store.StartProcessing(ctx, job.ID, "alice"); err != nil {
		t.Fatalf("StartProcessing failed: %v", err)
	}
	if err := h.manager.Submit(job.ID, "alice"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	done := h.waitTerminal(t, job.ID, "alice")
	if done.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", done.Status)
	}
	if done.ErrorMessage != "processing failed due to an internal error" {
		t.Fatalf("internal detail leaked: %q", done.ErrorMessage)
	}
}

func TestPipelineProcessesConcurrentJobs(t *testing.T) {
	h := newHarness(t, testsupport.WithWorkers(4))

	var ids []string
	for i := 0; i < 8; i++ {
		job := h.submit(t, "alice", []byte(testsupport.CombinedCSV))
		ids = append(ids, job.ID)
	}
	for _, id := range ids {
		done := h.waitTerminal(t, id, "alice")
		if done.Status != jobs.StatusCompleted {
			t.Fatalf("job %s: expected completed, got %s (%s)", id, done.Status, done.ErrorMessage)
		}
	}
}

func TestStopFailsBufferedSubmissions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	files, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}

	// Never started: submissions stay buffered, the same spot they are in
	// when Stop cancels the pool before a worker picks them up.
	manager := pipeline.NewManager(cfg, store, files, logging.NewNop())

	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		job := testsupport.NewJob(t, store, "alice", "Test Dataset", "test.csv")
		if _, err := store.StartProcessing(ctx, job.ID, "alice"); err != nil {
			t.Fatalf("StartProcessing failed: %v", err)
		}
		if err := manager.Submit(job.ID, "alice"); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		ids = append(ids, job.ID)
	}

	manager.Stop()

	for _, id := range ids {
		job, err := store.GetForUser(ctx, id, "alice")
		if err != nil {
			t.Fatalf("GetForUser failed: %v", err)
		}
		if job.Status != jobs.StatusFailed {
			t.Fatalf("job %s left in %s after Stop", id, job.Status)
		}
		if job.ErrorMessage != "processing interrupted by shutdown" {
			t.Fatalf("unexpected failure message: %q", job.ErrorMessage)
		}
	}
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.QueueDepth = 1
	store := testsupport.MustOpenStore(t, cfg)
	files, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}

	// Manager never started: nothing drains the channel.
	manager := pipeline.NewManager(cfg, store, files, logging.NewNop())
	if err := manager.Submit("a", "alice"); err != nil {
		t.Fatalf("first submit should fit: %v", err)
	}
	if err := manager.Submit("b", "alice"); err != pipeline.ErrQueueFull {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

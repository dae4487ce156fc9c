package api_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"oasis/internal/api"
	"oasis/internal/jobs"
	"oasis/internal/logging"
	"oasis/internal/pipeline"
	"oasis/internal/storage"
	"oasis/internal/testsupport"
)

func newService(t *testing.T, opts ...testsupport.ConfigOption) (*api.Service, *jobs.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	files, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}

	runner := pipeline.NewManager(cfg, store, files, logging.NewNop())
	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("pipeline.Start failed: %v", err)
	}
	t.Cleanup(runner.Stop)

	return api.NewService(cfg, store, files, runner, logging.NewNop()), store
}

func waitTerminal(t *testing.T, svc *api.Service, userID, jobID string) *jobs.Job {
	t.Helper()
	ctx := context.Background()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.Status(ctx, userID, jobID)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if job.Status == jobs.StatusCompleted || job.Status == jobs.StatusFailed {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return nil
}

func TestUploadProcessResultsExport(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	job, err := svc.Upload(ctx, "alice", "spring_samples.csv", "", []byte(testsupport.CombinedCSV))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if job.Status != jobs.StatusQueued {
		t.Fatalf("expected queued upload, got %s", job.Status)
	}
	if job.DatasetName != "Spring Samples" {
		t.Fatalf("expected derived dataset name, got %q", job.DatasetName)
	}
	if job.SampleCount != 3 {
		t.Fatalf("expected sample count recorded at upload, got %d", job.SampleCount)
	}

	// Results before processing are not ready.
	if _, err := svc.Results(ctx, "alice", job.ID); !errors.Is(err, api.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}

	started, err := svc.Process(ctx, "alice", job.ID)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if started.Status != jobs.StatusProcessing {
		t.Fatalf("expected processing, got %s", started.Status)
	}

	done := waitTerminal(t, svc, "alice", job.ID)
	if done.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", done.Status, done.ErrorMessage)
	}

	result, err := svc.Results(ctx, "alice", job.ID)
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	if result.JobID != job.ID || result.SampleCount != 3 || result.ModelType != "combined" {
		t.Fatalf("unexpected result document: %+v", result)
	}
	last := result.CSVColumns[len(result.CSVColumns)-1]
	if last != "conservative_contribution_2" {
		t.Fatalf("unexpected trailing csv column: %q", last)
	}

	data, name, err := svc.Export(ctx, "alice", job.ID)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if name != job.ID+"_results.csv" {
		t.Fatalf("unexpected export name: %q", name)
	}
	if !strings.HasPrefix(string(data), "Sample_id,") {
		t.Fatalf("unexpected export payload: %q", string(data)[:40])
	}
}

func TestUploadRejectsInvalidCSVButRecordsJob(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	payload := testsupport.CSV("Sample_id,Cl", "S1,30")
	job, err := svc.Upload(ctx, "alice", "bad.csv", "", payload)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if job == nil {
		t.Fatal("invalid upload should still record a job")
	}

	got, statusErr := svc.Status(ctx, "alice", job.ID)
	if statusErr != nil {
		t.Fatalf("Status failed: %v", statusErr)
	}
	if got.Status != jobs.StatusFailed {
		t.Fatalf("expected failed job, got %s", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "missing required columns") {
		t.Fatalf("expected validation message, got %q", got.ErrorMessage)
	}
}

func TestUploadStorageFailureIsTransient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	files, err := storage.New(cfg)
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}
	runner := pipeline.NewManager(cfg, store, files, logging.NewNop())
	svc := api.NewService(cfg, store, files, runner, logging.NewNop())

	// A regular file where alice's upload directory should go makes every
	// save attempt fail.
	if err := os.WriteFile(filepath.Join(cfg.UploadsDir(), "alice"), []byte("x"), 0o644); err != nil {
		t.Fatalf("plant blocking file: %v", err)
	}

	job, err := svc.Upload(context.Background(), "alice", "data.csv", "", []byte(testsupport.CombinedCSV))
	if !errors.Is(err, storage.ErrTransient) {
		t.Fatalf("expected transient storage error, got %v", err)
	}
	if job == nil {
		t.Fatal("storage failure should still record a job")
	}

	got, statusErr := svc.Status(context.Background(), "alice", job.ID)
	if statusErr != nil {
		t.Fatalf("Status failed: %v", statusErr)
	}
	if got.Status != jobs.StatusFailed || got.ErrorMessage != "upload could not be stored" {
		t.Fatalf("unexpected failed job: %+v", got)
	}
}

func TestProcessTwiceSecondCallRejected(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	job, err := svc.Upload(ctx, "alice", "data.csv", "", []byte(testsupport.CombinedCSV))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if _, err := svc.Process(ctx, "alice", job.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if _, err := svc.Process(ctx, "alice", job.ID); !errors.Is(err, jobs.ErrState) {
		t.Fatalf("expected state error on second process, got %v", err)
	}
}

func TestForeignJobsAreInvisible(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	job, err := svc.Upload(ctx, "alice", "data.csv", "", []byte(testsupport.CombinedCSV))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if _, err := svc.Status(ctx, "bob", job.ID); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Process(ctx, "bob", job.ID); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := svc.Export(ctx, "bob", job.ID); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	listed, err := svc.List(ctx, "bob", "", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("bob should see no jobs, got %d", len(listed))
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.List(context.Background(), "alice", "bogus", 0); !errors.Is(err, api.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

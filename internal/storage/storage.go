package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"oasis/internal/config"
)

var (
	// ErrPayloadNotFound marks a read for a payload that was never stored.
	ErrPayloadNotFound = errors.New("payload not found")
	// ErrTransient marks a write that failed after exhausting its retries.
	ErrTransient = errors.New("transient storage failure")
)

const (
	writeAttempts     = 3
	writeRetryBackoff = 50 * time.Millisecond
)

// Store keeps upload and result files under the configured data directory.
type Store struct {
	uploadsDir string
	resultsDir string
}

// New builds a file store rooted at the config's data directory.
func New(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return &Store{
		uploadsDir: cfg.UploadsDir(),
		resultsDir: cfg.ResultsDir(),
	}, nil
}

// SaveUpload stores the raw CSV bytes of an upload and returns the stored
// path.
func (s *Store) SaveUpload(userID, jobID string, data []byte) (string, error) {
	return s.save(s.uploadsDir, userID, jobID, data)
}

// ReadUpload returns the raw CSV bytes of a stored upload.
func (s *Store) ReadUpload(userID, jobID string) ([]byte, error) {
	return s.read(s.uploadsDir, userID, jobID)
}

// SaveResultCSV stores the rendered export CSV for a completed job.
func (s *Store) SaveResultCSV(userID, jobID string, data []byte) (string, error) {
	return s.save(s.resultsDir, userID, jobID, data)
}

// ReadResultCSV returns the rendered export CSV for a completed job.
func (s *Store) ReadResultCSV(userID, jobID string) ([]byte, error) {
	return s.read(s.resultsDir, userID, jobID)
}

func (s *Store) save(baseDir, userID, jobID string, data []byte) (string, error) {
	dir := filepath.Join(baseDir, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create payload dir: %v", ErrTransient, err)
	}

	target := filepath.Join(dir, jobID+".csv")
	var lastErr error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		if lastErr = writeAtomic(target, data); lastErr == nil {
			return target, nil
		}
		time.Sleep(writeRetryBackoff)
	}
	return "", fmt.Errorf("%w: %v", ErrTransient, lastErr)
}

func (s *Store) read(baseDir, userID, jobID string) ([]byte, error) {
	target := filepath.Join(baseDir, userID, jobID+".csv")
	data, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrPayloadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}

// writeAtomic writes through a temp file and renames into place so readers
// never observe a partial payload.
func writeAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".payload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"oasis/internal/config"
	"oasis/internal/jobs"
	"oasis/internal/logging"
	"oasis/internal/model"
	"oasis/internal/storage"
)

// Manager runs submitted jobs through the analysis pipeline.
type Manager struct {
	cfg        *config.Config
	store      *jobs.Store
	files      *storage.Store
	logger     *slog.Logger
	endmembers model.Endmembers
	stageWarn  time.Duration

	submissions chan submission

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type submission struct {
	jobID  string
	userID string
}

// ErrQueueFull is returned by Submit when the submission channel is at
// capacity. The caller is responsible for failing the job.
var ErrQueueFull = errors.New("pipeline queue full")

// NewManager constructs a pipeline manager. The end-member table is resolved
// from configuration once at construction.
func NewManager(cfg *config.Config, store *jobs.Store, files *storage.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	pairs := make(map[string]model.Endmember, len(cfg.Model.Endmembers))
	for name, pair := range cfg.Model.Endmembers {
		pairs[name] = model.Endmember{Low: pair.Low, High: pair.High}
	}
	return &Manager{
		cfg:         cfg,
		store:       store,
		files:       files,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		endmembers:  model.NewEndmembers(pairs),
		stageWarn:   time.Duration(cfg.Pipeline.StageWarnSeconds) * time.Second,
		submissions: make(chan submission, cfg.Pipeline.QueueDepth),
	}
}

// Start launches the worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	workers := m.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx, i)
	}
	return nil
}

// Stop terminates the worker pool, waits for in-flight jobs to finish, and
// fails every submission still buffered in the queue. Those jobs already
// moved to processing and no worker will ever pick them up.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	for {
		select {
		case sub := <-m.submissions:
			logger := m.logger.With(logging.String(logging.FieldJobID, sub.jobID), logging.String(logging.FieldUserID, sub.userID))
			logger.Info("failing submission stranded by shutdown")
			m.failJob(context.Background(), logger, sub.jobID, shutdownFailureMessage)
		default:
			return
		}
	}
}

// Submit hands a processing job to the worker pool without blocking.
func (m *Manager) Submit(jobID, userID string) error {
	select {
	case m.submissions <- submission{jobID: jobID, userID: userID}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (m *Manager) runWorker(ctx context.Context, id int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-m.submissions:
			m.execute(ctx, logger, sub)
		}
	}
}

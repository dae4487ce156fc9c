package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"oasis/internal/api"
	"oasis/internal/auth"
	"oasis/internal/jobs"
	"oasis/internal/logging"
	"oasis/internal/pipeline"
	"oasis/internal/server"
	"oasis/internal/storage"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(ctx, cmd)
		},
	}
}

func runServe(ctx *commandContext, cmd *cobra.Command) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "oasis.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another oasis instance is already running")
	}
	defer func() { _ = lock.Unlock() }()

	store, err := jobs.Open(cfg)
	if err != nil {
		return fmt.Errorf("open jobs store: %w", err)
	}
	defer store.Close()

	// Rows left in processing by a crash or kill have no live task.
	reclaimed, err := store.FailInterrupted(signalCtx, "processing interrupted by shutdown")
	if err != nil {
		return fmt.Errorf("reclaim interrupted jobs: %w", err)
	}
	if reclaimed > 0 {
		logger.Warn("failed jobs interrupted by a previous shutdown", logging.Int("count", int(reclaimed)))
	}

	files, err := storage.New(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	verifier, err := auth.NewStaticTokens(cfg)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	runner := pipeline.NewManager(cfg, store, files, logger)
	if err := runner.Start(signalCtx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer runner.Stop()

	service := api.NewService(cfg, store, files, runner, logger)
	srv, err := server.New(cfg, service, verifier, logger)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}
	if err := srv.Start(signalCtx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer srv.Stop()

	logger.Info("oasis started",
		logging.String("config", ctx.cfgPath),
		logging.String("jobs_db", store.Path()),
		logging.String("lock", lockPath),
	)

	<-signalCtx.Done()
	logger.Info("oasis shutting down")
	return nil
}

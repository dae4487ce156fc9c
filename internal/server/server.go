package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"oasis/internal/api"
	"oasis/internal/auth"
	"oasis/internal/config"
	"oasis/internal/logging"
)

// Server is the HTTP front of the analysis service.
type Server struct {
	bind        string
	logger      *slog.Logger
	service     *api.Service
	verifier    auth.Verifier
	maxUploadMB int64

	mu       sync.Mutex
	listener net.Listener
	stopped  bool
	server   *http.Server
}

// New constructs the HTTP server around the api service.
func New(cfg *config.Config, service *api.Service, verifier auth.Verifier, logger *slog.Logger) (*Server, error) {
	bind := strings.TrimSpace(cfg.Server.Bind)
	if bind == "" {
		return nil, errors.New("server bind address not configured")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &Server{
		bind:        bind,
		logger:      logging.NewComponentLogger(logger, "server"),
		service:     service,
		verifier:    verifier,
		maxUploadMB: int64(cfg.Server.MaxUploadMB),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/upload", srv.authenticated(srv.handleUpload))
	mux.HandleFunc("/process/", srv.authenticated(srv.handleProcess))
	mux.HandleFunc("/status/", srv.authenticated(srv.handleStatus))
	mux.HandleFunc("/results/", srv.authenticated(srv.handleResults))
	mux.HandleFunc("/export/", srv.authenticated(srv.handleExport))
	mux.HandleFunc("/jobs", srv.authenticated(srv.handleJobs))

	requestTimeout := time.Duration(cfg.Server.RequestTimeout) * time.Second
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Start binds the listener and serves until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address, useful when binding to port 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down. The context watcher and the caller's
// own shutdown path can both reach here; only the first does the work.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

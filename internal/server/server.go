// Package server provides the HTTP API for running and inspecting solve sessions.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/j0hanj0han/cemantix/internal/config"
	"github.com/j0hanj0han/cemantix/internal/oracle"
	"github.com/j0hanj0han/cemantix/internal/storage"
	"github.com/j0hanj0han/cemantix/internal/vector"
	"go.uber.org/zap"
)

var (
	errShuttingDown = errors.New("server is shutting down")
	errPuzzleBusy   = errors.New("a solve is already running for this puzzle")
)

// OracleFactory returns a fresh oracle for one session. Sessions never share an oracle.
type OracleFactory func() oracle.Oracle

// Server is the HTTP server for the solver API.
type Server struct {
	space     atomic.Pointer[vector.Space]
	newOracle OracleFactory
	storage   storage.Storage
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server

	mu       sync.Mutex
	running  map[string]string // puzzle -> session id
	sessions sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer creates a server with the given dependencies. space may be nil until a model is loaded.
func NewServer(
	space *vector.Space,
	newOracle OracleFactory,
	storage storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		newOracle: newOracle,
		storage:   storage,
		config:    cfg,
		logger:    logger,
		running:   make(map[string]string),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.space.Store(space)
	return s
}

// SetSpace swaps the embedding space. Sessions already running keep the space they started with.
func (s *Server) SetSpace(space *vector.Space) {
	old := s.space.Swap(space)
	s.logger.Info("embedding space swapped",
		zap.Int("old_size", old.Size()),
		zap.Int("new_size", space.Size()))
}

// Space returns the current embedding space.
func (s *Server) Space() *vector.Space {
	return s.space.Load()
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/puzzles/{puzzle}/solve", s.handleSolve)
		r.Get("/puzzles/{puzzle}", s.handleGetPuzzle)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop cancels running sessions, waits for them to be archived, and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("sessions still running at shutdown")
	}
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Wait blocks until every background session has finished.
func (s *Server) Wait() {
	s.sessions.Wait()
}

// claim registers a running solve for puzzle and counts it in the session WaitGroup. It fails
// once Stop has begun or while another solve for puzzle is running.
func (s *Server) claim(puzzle, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return errShuttingDown
	}
	if _, busy := s.running[puzzle]; busy {
		return errPuzzleBusy
	}
	s.running[puzzle] = id
	s.sessions.Add(1)
	return nil
}

// release undoes a successful claim.
func (s *Server) release(puzzle string) {
	s.mu.Lock()
	delete(s.running, puzzle)
	s.mu.Unlock()
	s.sessions.Done()
}

func (s *Server) runningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

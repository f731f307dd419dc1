package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/j0hanj0han/cemantix/internal/hints"
	"github.com/j0hanj0han/cemantix/internal/models"
	"github.com/j0hanj0han/cemantix/internal/oracle"
	"github.com/j0hanj0han/cemantix/internal/solver"
	"github.com/j0hanj0han/cemantix/internal/storage"
	"github.com/j0hanj0han/cemantix/internal/vector"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.storage.CountSessions(r.Context())
	if err != nil {
		s.logger.Error("status: count sessions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	space := s.Space()
	resp := map[string]interface{}{
		"sessions":   count,
		"running":    s.runningCount(),
		"vocabulary": space.Size(),
	}
	if space != nil {
		resp["dimensions"] = space.Dimensions()
	}
	resp["config"] = map[string]interface{}{
		"oracle_url":           s.config.Oracle.BaseURL,
		"candidate_batch_size": s.config.Solver.CandidateBatchSize,
		"max_iterations":       s.config.Solver.MaxIterations,
		"model_path":           s.config.Embedding.ModelPath,
		"database_path":        s.config.Storage.DatabasePath,
	}
	if db := s.config.Storage.DatabasePath; db != "" {
		paths := append(storage.DatabaseFiles(db), s.config.Embedding.SnapshotPath)
		if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	puzzle := chi.URLParam(r, "puzzle")
	if _, err := strconv.Atoi(puzzle); err != nil {
		s.respondError(w, http.StatusBadRequest, "puzzle must be a number")
		return
	}
	space := s.Space()
	if space.Size() == 0 {
		s.respondError(w, http.StatusServiceUnavailable, "embedding space not loaded")
		return
	}
	withHints := r.URL.Query().Get("hints") != "false"

	session := &models.Session{
		ID:     uuid.NewString(),
		Puzzle: puzzle,
		Status: models.SessionRunning,
	}
	if err := s.claim(puzzle, session.ID); err != nil {
		status := http.StatusConflict
		if errors.Is(err, errShuttingDown) {
			status = http.StatusServiceUnavailable
		}
		s.respondError(w, status, err.Error())
		return
	}
	if err := s.storage.SaveSession(r.Context(), session); err != nil {
		s.release(puzzle)
		s.logger.Error("failed to create session", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Debug("solve request", zap.String("puzzle", puzzle), zap.String("session", session.ID))
	resp := map[string]string{
		"id":     session.ID,
		"puzzle": puzzle,
		"status": string(session.Status),
	}
	go func() {
		defer s.release(puzzle)
		s.runSession(s.ctx, session, space, withHints)
	}()
	s.respondJSON(w, http.StatusAccepted, resp)
}

// runSession solves in the background and archives the outcome.
func (s *Server) runSession(ctx context.Context, session *models.Session, space *vector.Space, withHints bool) {
	logger := s.logger.With(zap.String("session", session.ID))
	o := s.newOracle()
	result, err := solver.New(space, o, &s.config.Solver, solver.WithLogger(logger)).Solve(ctx, session.Puzzle)
	if err != nil {
		logger.Error("solve failed", zap.Error(err))
		session.Status = models.SessionFailed
		session.Error = err.Error()
	} else {
		session.Status = models.SessionFinished
		session.Result = result
		if withHints {
			src, _ := o.(oracle.NearbySource)
			session.Hints = hints.ForResult(ctx, src, result, logger)
		}
	}

	// Archive even when ctx was cancelled by shutdown.
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.storage.SaveSession(saveCtx, session); err != nil {
		logger.Error("failed to archive session", zap.Error(err))
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.storage.GetSession(r.Context(), id)
	if err != nil {
		s.respondStorageError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	puzzle := chi.URLParam(r, "puzzle")
	session, err := s.storage.LatestForPuzzle(r.Context(), puzzle)
	if err != nil {
		s.respondStorageError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", defaultListLimit)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	sessions, err := s.storage.ListSessions(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list sessions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.storage.CountSessions(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []*models.Session{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) respondStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.logger.Error("storage lookup failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

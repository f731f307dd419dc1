package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/j0hanj0han/cemantix/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

var _ Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		puzzle TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		outcome TEXT,
		found INTEGER NOT NULL DEFAULT 0,
		word TEXT NOT NULL DEFAULT '',
		call_count INTEGER NOT NULL DEFAULT 0,
		requests INTEGER NOT NULL DEFAULT 0,
		rounds INTEGER NOT NULL DEFAULT 0,
		elapsed_ns INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		best_word TEXT,
		best_similarity REAL,
		hints TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_puzzle ON sessions(puzzle, created_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);

	CREATE TABLE IF NOT EXISTS probes (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		word TEXT NOT NULL,
		similarity REAL NOT NULL,
		rank INTEGER,
		PRIMARY KEY (session_id, seq),
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

const sessionColumns = `id, puzzle, status, error, outcome, found, word, call_count, requests,
	rounds, elapsed_ns, reason, best_word, best_similarity, hints, created_at, updated_at`

// SaveSession inserts or replaces a session together with its probe ledger.
// CreatedAt is set on first save; UpdatedAt on every save.
func (s *SQLiteStorage) SaveSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	var hintsJSON sql.NullString
	if session.Hints != nil {
		data, err := json.Marshal(session.Hints)
		if err != nil {
			return fmt.Errorf("failed to marshal hints: %w", err)
		}
		hintsJSON = sql.NullString{String: string(data), Valid: true}
	}

	var (
		outcome                     sql.NullString
		found                       bool
		word, reason                string
		callCount, requests, rounds int
		elapsed                     int64
		bestWord                    sql.NullString
		bestSimilarity              sql.NullFloat64
		probes                      []models.Probe
	)
	if r := session.Result; r != nil {
		outcome = sql.NullString{String: string(r.Outcome), Valid: true}
		found, word, reason = r.Found, r.Word, r.Reason
		callCount, requests, rounds = r.CallCount, r.Requests, r.Rounds
		elapsed = int64(r.Elapsed)
		best := r.Best
		if best == nil {
			best = models.BestProbe(r.Probes)
		}
		if best != nil {
			bestWord = sql.NullString{String: best.Word, Valid: true}
			bestSimilarity = sql.NullFloat64{Float64: best.Similarity, Valid: true}
		}
		probes = r.Probes
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			puzzle = excluded.puzzle, status = excluded.status, error = excluded.error,
			outcome = excluded.outcome, found = excluded.found, word = excluded.word,
			call_count = excluded.call_count, requests = excluded.requests, rounds = excluded.rounds,
			elapsed_ns = excluded.elapsed_ns, reason = excluded.reason, best_word = excluded.best_word,
			best_similarity = excluded.best_similarity, hints = excluded.hints,
			updated_at = excluded.updated_at`,
		session.ID, session.Puzzle, string(session.Status), session.Error, outcome, found, word,
		callCount, requests, rounds, elapsed, reason, bestWord, bestSimilarity, hintsJSON,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM probes WHERE session_id = ?`, session.ID); err != nil {
		return err
	}
	if len(probes) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO probes (session_id, seq, word, similarity, rank) VALUES (?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, p := range probes {
			var rank sql.NullInt64
			if p.Rank != nil {
				rank = sql.NullInt64{Int64: int64(*p.Rank), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, session.ID, i, p.Word, p.Similarity, rank); err != nil {
				return fmt.Errorf("failed to save probe %d: %w", i, err)
			}
		}
	}
	return tx.Commit()
}

// GetSession returns a session by ID with its full probe ledger.
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadProbes(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// LatestForPuzzle returns the most recent session for puzzle with its probe ledger.
func (s *SQLiteStorage) LatestForPuzzle(ctx context.Context, puzzle string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE puzzle = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, puzzle)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: puzzle %s", ErrNotFound, puzzle)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadProbes(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns sessions newest first. Probe ledgers are not loaded; Result.Best carries
// the near-miss summary.
func (s *SQLiteStorage) ListSessions(ctx context.Context, offset, limit int) ([]*models.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// CountSessions returns the total number of sessions.
func (s *SQLiteStorage) CountSessions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		session        models.Session
		status         string
		outcome        sql.NullString
		result         models.SolveResult
		elapsed        int64
		bestWord       sql.NullString
		bestSimilarity sql.NullFloat64
		hintsJSON      sql.NullString
	)
	err := row.Scan(&session.ID, &session.Puzzle, &status, &session.Error, &outcome, &result.Found,
		&result.Word, &result.CallCount, &result.Requests, &result.Rounds, &elapsed, &result.Reason,
		&bestWord, &bestSimilarity, &hintsJSON, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	session.Status = models.SessionStatus(status)
	if outcome.Valid {
		result.Puzzle = session.Puzzle
		result.Outcome = models.Outcome(outcome.String)
		result.Elapsed = time.Duration(elapsed)
		if bestWord.Valid {
			result.Best = &models.Probe{Word: bestWord.String, Similarity: bestSimilarity.Float64}
		}
		session.Result = &result
	}
	if hintsJSON.Valid {
		var hints models.Hints
		if err := json.Unmarshal([]byte(hintsJSON.String), &hints); err != nil {
			return nil, fmt.Errorf("failed to unmarshal hints: %w", err)
		}
		session.Hints = &hints
	}
	return &session, nil
}

func (s *SQLiteStorage) loadProbes(ctx context.Context, session *models.Session) error {
	if session.Result == nil {
		return nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT word, similarity, rank FROM probes WHERE session_id = ? ORDER BY seq`, session.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var probes []models.Probe
	for rows.Next() {
		var (
			p    models.Probe
			rank sql.NullInt64
		)
		if err := rows.Scan(&p.Word, &p.Similarity, &rank); err != nil {
			return err
		}
		if rank.Valid {
			r := int(rank.Int64)
			p.Rank = &r
		}
		probes = append(probes, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	session.Result.Probes = probes
	session.Result.Best = models.BestProbe(probes)
	return nil
}

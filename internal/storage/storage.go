// Package storage archives solve sessions for later lookup and hint generation.
package storage

import (
	"context"
	"errors"

	"github.com/j0hanj0han/cemantix/internal/models"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// Storage defines session persistence. The solver never reads it back: each solve starts from an
// empty ledger.
type Storage interface {
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	LatestForPuzzle(ctx context.Context, puzzle string) (*models.Session, error)
	ListSessions(ctx context.Context, offset, limit int) ([]*models.Session, error)
	CountSessions(ctx context.Context) (int64, error)

	Close() error
}

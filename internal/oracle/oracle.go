// Package oracle scores candidate words against a puzzle's hidden target.
package oracle

import (
	"context"
	"errors"

	"github.com/j0hanj0han/cemantix/internal/models"
)

// ErrUnknown wraps every failed probe: transport error, timeout, unparseable response, or a
// word outside the oracle's vocabulary. Callers treat all of them the same way.
var ErrUnknown = errors.New("oracle: unknown")

// Oracle returns the similarity between word and the hidden target of puzzleID.
// Implementations make at most one attempt per call and never retry.
type Oracle interface {
	Probe(ctx context.Context, puzzleID, word string) (*models.Score, error)
}

// NearbySource lists the target's neighbours once the solution is known.
type NearbySource interface {
	Nearby(ctx context.Context, puzzleID, word string) ([]models.NearbyWord, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, puzzleID, word string) (*models.Score, error)

// Probe calls f.
func (f Func) Probe(ctx context.Context, puzzleID, word string) (*models.Score, error) {
	return f(ctx, puzzleID, word)
}

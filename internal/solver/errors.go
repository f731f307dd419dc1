package solver

import "errors"

var (
	// ErrEmbeddingSpaceUnavailable is returned by Solve before any oracle call when the space
	// is missing or empty.
	ErrEmbeddingSpaceUnavailable = errors.New("embedding space unavailable")
	// ErrInsufficientData means the ledger cannot yet support a target estimate.
	ErrInsufficientData = errors.New("insufficient data for reconstruction")
	// ErrNoOracle is returned by Solve when no oracle was supplied.
	ErrNoOracle = errors.New("no oracle configured")
)

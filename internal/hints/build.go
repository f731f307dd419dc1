package hints

import (
	"context"

	"github.com/j0hanj0han/cemantix/internal/models"
	"github.com/j0hanj0han/cemantix/internal/oracle"
	"go.uber.org/zap"
)

// ForResult builds hints for a solved puzzle. The oracle's nearby listing is preferred; when src
// is nil, fails, or yields nothing usable, the ranked probes of the ledger are used instead.
// Returns nil when the puzzle was not solved.
func ForResult(ctx context.Context, src oracle.NearbySource, result *models.SolveResult, logger *zap.Logger) *models.Hints {
	if result == nil || !result.Found {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if src != nil {
		nearby, err := src.Nearby(ctx, result.Puzzle, result.Word)
		if err != nil {
			logger.Warn("nearby listing unavailable, using probe ranks", zap.Error(err))
		} else if h := Select(nearby); !h.Empty() {
			return h
		}
	}
	return Select(FromProbes(result.Probes))
}

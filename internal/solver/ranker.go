package solver

import (
	"context"
	"fmt"

	"github.com/j0hanj0han/cemantix/internal/models"
)

// RankCandidates returns up to count unprobed words nearest to estimate, in the space's order.
// Words predicted below threshold are never returned, so the batch may be short or empty.
func RankCandidates(ctx context.Context, space EmbeddingSpace, estimate []float32, ledger *Ledger, count int, threshold float64) ([]models.Candidate, error) {
	if count <= 0 {
		return nil, nil
	}
	// Over-fetch by the exclusion set so filtering cannot starve the batch.
	results, err := space.NearestTo(ctx, estimate, count+ledger.ExcludedCount(), threshold)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbours: %w", err)
	}
	candidates := make([]models.Candidate, 0, min(count, len(results)))
	for _, r := range results {
		if !(r.Score >= threshold) || ledger.Excluded(r.Word) {
			continue
		}
		candidates = append(candidates, models.Candidate{Word: r.Word, Predicted: r.Score})
		if len(candidates) == count {
			break
		}
	}
	return candidates, nil
}

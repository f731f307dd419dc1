package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/j0hanj0han/cemantix/internal/models"
	"github.com/j0hanj0han/cemantix/internal/vector"
)

// maxRanked is how many neighbours of the target carry a percentile rank.
const maxRanked = 1000

// Space is the subset of the embedding space a Simulated oracle reads.
type Space interface {
	Lookup(word string) ([]float32, bool)
	NearestTo(ctx context.Context, vec []float32, count int, minSimilarity float64) ([]*vector.VectorResult, error)
}

// Simulated answers probes from a local embedding space instead of a remote server. Words the
// space does not contain are unknown. Only the target word itself scores 1.0.
type Simulated struct {
	space  Space
	target string
	vec    []float32
	ranks  map[string]int

	mu       sync.Mutex
	requests int
}

// NewSimulated builds an oracle whose hidden target is word.
func NewSimulated(ctx context.Context, space Space, word string) (*Simulated, error) {
	vec, ok := space.Lookup(word)
	if !ok {
		return nil, fmt.Errorf("target %q is not in the embedding space", word)
	}
	return newSimulated(ctx, space, word, vec)
}

// NewSimulatedVector builds an oracle around a target direction that no local word matches
// exactly, so no probe ever scores 1.0.
func NewSimulatedVector(ctx context.Context, space Space, target []float32) (*Simulated, error) {
	vec := append([]float32(nil), target...)
	if vector.L2Norm(vec) == 0 {
		return nil, vector.ErrZeroVector
	}
	return newSimulated(ctx, space, "", vec)
}

func newSimulated(ctx context.Context, space Space, word string, vec []float32) (*Simulated, error) {
	neighbours, err := space.NearestTo(ctx, vec, maxRanked, -1)
	if err != nil {
		return nil, fmt.Errorf("rank neighbours: %w", err)
	}
	s := &Simulated{space: space, target: word, vec: vec, ranks: make(map[string]int, len(neighbours))}
	for i, n := range neighbours {
		s.ranks[n.Word] = maxRanked - i
	}
	return s, nil
}

// Target returns the hidden word, or "" when the target is a bare vector.
func (s *Simulated) Target() string {
	return s.target
}

// Requests returns how many probes were answered or rejected so far.
func (s *Simulated) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Probe scores word by cosine similarity to the hidden target.
func (s *Simulated) Probe(ctx context.Context, puzzleID, word string) (*models.Score, error) {
	s.mu.Lock()
	s.requests++
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknown, word, err)
	}
	if s.target != "" && word == s.target {
		return s.score(word, 1.0), nil
	}
	vec, ok := s.space.Lookup(word)
	if !ok {
		return nil, fmt.Errorf("%w: %s: not in vocabulary", ErrUnknown, word)
	}
	sim := vector.Cosine(vec, s.vec)
	// Rounding can push a near-duplicate to 1.0; only the target may score that.
	if sim >= 1.0 {
		sim = 0.9999
	}
	return s.score(word, sim), nil
}

func (s *Simulated) score(word string, sim float64) *models.Score {
	score := &models.Score{Similarity: sim}
	if rank, ok := s.ranks[word]; ok {
		score.Rank = &rank
	}
	return score
}

// Nearby lists the ranked neighbours of the target, ascending by percentile, with the target
// itself excluded.
func (s *Simulated) Nearby(ctx context.Context, puzzleID, word string) ([]models.NearbyWord, error) {
	neighbours, err := s.space.NearestTo(ctx, s.vec, maxRanked, -1)
	if err != nil {
		return nil, err
	}
	out := make([]models.NearbyWord, 0, len(neighbours))
	for i := len(neighbours) - 1; i >= 0; i-- {
		n := neighbours[i]
		if n.Word == s.target {
			continue
		}
		out = append(out, models.NearbyWord{Word: n.Word, Percentile: maxRanked - i, Similarity: n.Score})
	}
	return out, nil
}

package solver

import (
	"context"
	"testing"

	"github.com/j0hanj0han/cemantix/internal/config"
	"github.com/j0hanj0han/cemantix/internal/models"
	"github.com/j0hanj0han/cemantix/internal/oracle"
	"github.com/j0hanj0han/cemantix/internal/vector"
)

func benchSpace(b *testing.B, n, dims int) (*vector.Space, []string) {
	b.Helper()
	words := vector.SyntheticVocabulary(n)
	space, err := vector.NewSyntheticSpace(words, dims, 1)
	if err != nil {
		b.Fatal(err)
	}
	return space, words
}

func BenchmarkReconstruct(b *testing.B) {
	space, words := benchSpace(b, 2000, 64)
	sim, err := oracle.NewSimulated(context.Background(), space, words[1234])
	if err != nil {
		b.Fatal(err)
	}
	probes := make([]models.Probe, 0, 200)
	for _, w := range words[:200] {
		score, err := sim.Probe(context.Background(), "1", w)
		if err != nil {
			b.Fatal(err)
		}
		probes = append(probes, models.Probe{Word: w, Similarity: score.Similarity})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = Reconstruct(space, probes, -0.5, 5)
	}
}

func BenchmarkSolve(b *testing.B) {
	space, words := benchSpace(b, 2000, 32)
	cfg := &config.SolverConfig{Seeds: words[:80], CandidateBatchSize: 50}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sim, err := oracle.NewSimulated(ctx, space, words[1500])
		if err != nil {
			b.Fatal(err)
		}
		_, _ = New(space, sim, cfg).Solve(ctx, "1")
	}
}

package vector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
)

// NewSyntheticSpace builds a deterministic space for tests and dry runs: each word gets a
// Gaussian direction seeded from its FNV hash and seed, so the same word always gets the same vector.
func NewSyntheticSpace(words []string, dimensions int, seed int64) (*Space, error) {
	space, err := NewSpace(dimensions)
	if err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(words))
	for i, word := range words {
		vectors[i] = SyntheticVector(word, dimensions, seed)
	}
	if err := space.Add(context.Background(), words, vectors); err != nil {
		return nil, err
	}
	return space, nil
}

// SyntheticVector returns the deterministic unit vector NewSyntheticSpace assigns to word.
func SyntheticVector(word string, dimensions int, seed int64) []float32 {
	h := fnv.New64a()
	h.Write([]byte(word))
	rng := rand.New(rand.NewSource(int64(h.Sum64()) ^ seed))
	vec := make([]float32, dimensions)
	for {
		for i := range vec {
			vec[i] = float32(rng.NormFloat64())
		}
		if normalize(vec) {
			return vec
		}
	}
}

// SyntheticVocabulary returns n distinct placeholder words.
func SyntheticVocabulary(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("mot%04d", i)
	}
	return words
}

package vector

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpace_AddNearestTo(t *testing.T) {
	space, err := NewSpace(3)
	require.NoError(t, err)
	defer space.Close()
	ctx := context.Background()

	words := []string{"chien", "chiot", "ciel"}
	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	require.NoError(t, space.Add(ctx, words, vecs))
	assert.Equal(t, 3, space.Size())
	assert.Equal(t, 3, space.Dimensions())

	results, err := space.NearestTo(ctx, []float32{2, 0, 0}, 2, -1)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "chien", results[0].Word)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "chiot", results[1].Word)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSpace_NearestTo_minSimilarity(t *testing.T) {
	space, _ := NewSpace(2)
	ctx := context.Background()
	require.NoError(t, space.Add(ctx,
		[]string{"a", "b", "c"},
		[][]float32{{1, 0}, {0.6, 0.8}, {-1, 0}}))

	results, err := space.NearestTo(ctx, []float32{1, 0}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2, "c scores -1 and must be dropped even though count allows it")
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.5)
	}
}

func TestSpace_NearestTo_tiesKeepInsertionOrder(t *testing.T) {
	space, _ := NewSpace(2)
	ctx := context.Background()
	require.NoError(t, space.Add(ctx,
		[]string{"zebre", "abeille", "mouche"},
		[][]float32{{1, 0}, {1, 0}, {1, 0}}))

	results, err := space.NearestTo(ctx, []float32{1, 0}, 3, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "zebre", results[0].Word)
	assert.Equal(t, "abeille", results[1].Word)
	assert.Equal(t, "mouche", results[2].Word)
}

func TestSpace_NearestTo_errors(t *testing.T) {
	space, _ := NewSpace(2)
	ctx := context.Background()

	_, err := space.NearestTo(ctx, []float32{1, 0, 0}, 1, 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = space.NearestTo(ctx, []float32{0, 0}, 1, 0)
	assert.ErrorIs(t, err, ErrZeroVector)

	results, err := space.NearestTo(ctx, []float32{1, 0}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results, "empty space returns no results")
}

func TestSpace_AddDuplicateKeepsFirst(t *testing.T) {
	space, _ := NewSpace(2)
	ctx := context.Background()
	require.NoError(t, space.Add(ctx, []string{"mer", "mer"}, [][]float32{{1, 0}, {0, 1}}))
	assert.Equal(t, 1, space.Size())

	v, ok := space.Lookup("mer")
	require.True(t, ok)
	assert.InDelta(t, 1.0, v[0], 1e-6)
}

func TestSpace_AddDimensionMismatch(t *testing.T) {
	space, _ := NewSpace(3)
	err := space.Add(context.Background(), []string{"x"}, [][]float32{{1, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = space.Add(context.Background(), []string{"x", "y"}, [][]float32{{1, 0, 0}})
	assert.Error(t, err)
}

func TestSpace_AddRejectsNonFinite(t *testing.T) {
	nan, inf := float32(math.NaN()), float32(math.Inf(1))
	for name, vec := range map[string][]float32{"nan": {nan, 0}, "inf": {1, inf}, "-inf": {-inf, 1}} {
		t.Run(name, func(t *testing.T) {
			space, _ := NewSpace(2)
			err := space.Add(context.Background(), []string{"ok", "bad"}, [][]float32{{1, 0}, vec})
			assert.ErrorIs(t, err, ErrNonFiniteVector)
			assert.Equal(t, 0, space.Size(), "a rejected batch adds nothing")
		})
	}
}

func TestSpace_NearestTo_nonFiniteQuery(t *testing.T) {
	space, _ := NewSpace(2)
	ctx := context.Background()
	require.NoError(t, space.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0}, {0.9, 0.1}}))

	_, err := space.NearestTo(ctx, []float32{float32(math.NaN()), 0}, 2, 0.5)
	assert.ErrorIs(t, err, ErrNonFiniteVector)

	results, err := space.NearestTo(ctx, []float32{1, 0}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, math.IsNaN(r.Score))
		assert.GreaterOrEqual(t, r.Score, 0.5)
	}
}

func TestSpace_LookupReturnsNormalizedCopy(t *testing.T) {
	space, _ := NewSpace(2)
	require.NoError(t, space.Add(context.Background(), []string{"roi"}, [][]float32{{3, 4}}))

	v, ok := space.Lookup("roi")
	require.True(t, ok)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	v[0] = 42
	again, _ := space.Lookup("roi")
	assert.InDelta(t, 0.6, again[0], 1e-6, "callers must not be able to mutate the space")

	_, ok = space.Lookup("reine")
	assert.False(t, ok)
	assert.True(t, space.Contains("roi"))
	assert.False(t, space.Contains("reine"))
}

func TestSpace_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "space.bin")
	space, _ := NewSpace(2)
	ctx := context.Background()
	require.NoError(t, space.Add(ctx, []string{"été", "hiver"}, [][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, space.Save(path))

	dims, err := ReadSnapshotDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 2, dims)

	loaded, _ := NewSpace(2)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, []string{"été", "hiver"}, loaded.Words())
	v, ok := loaded.Lookup("hiver")
	require.True(t, ok)
	assert.InDelta(t, 1.0, v[1], 1e-6)

	wrongDims, _ := NewSpace(3)
	assert.ErrorIs(t, wrongDims.Load(path), ErrDimensionMismatch)

	missing, _ := NewSpace(2)
	assert.NoError(t, missing.Load(filepath.Join(t.TempDir(), "missing.bin")))
	assert.Equal(t, 0, missing.Size())
}

func TestNewSpace_InvalidDimension(t *testing.T) {
	_, err := NewSpace(0)
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{2, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 1}, []float32{-1, -1}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
	assert.InDelta(t, 5.0, L2Norm([]float32{3, 4}), 1e-9)
	assert.Zero(t, InnerProduct([]float32{1}, []float32{1, 2}))
}

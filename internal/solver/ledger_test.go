package solver

import (
	"testing"

	"github.com/j0hanj0han/cemantix/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_FirstResultWins(t *testing.T) {
	l := NewLedger()
	assert.True(t, l.Add(models.Probe{Word: "chat", Similarity: 0.3}))
	assert.True(t, l.Add(models.Probe{Word: "ciel", Similarity: 0.1}))
	assert.False(t, l.Add(models.Probe{Word: "chat", Similarity: 0.9}))

	assert.Equal(t, 2, l.Len())
	p, ok := l.Get("chat")
	require.True(t, ok)
	assert.Equal(t, 0.3, p.Similarity)

	words := map[string]bool{}
	for _, p := range l.Probes() {
		assert.False(t, words[p.Word], "duplicate word %s", p.Word)
		words[p.Word] = true
	}
}

func TestLedger_ProbesKeepOrderAndAreCopies(t *testing.T) {
	l := NewLedger()
	l.Add(models.Probe{Word: "b", Similarity: 0.2})
	l.Add(models.Probe{Word: "a", Similarity: 0.4})

	probes := l.Probes()
	require.Len(t, probes, 2)
	assert.Equal(t, "b", probes[0].Word)
	assert.Equal(t, "a", probes[1].Word)

	probes[0].Similarity = 1
	again := l.Probes()
	assert.Equal(t, 0.2, again[0].Similarity)
}

func TestLedger_Failed(t *testing.T) {
	l := NewLedger()
	l.Add(models.Probe{Word: "chat", Similarity: 0.3})
	l.MarkFailed("xyzzy")

	assert.True(t, l.Failed("xyzzy"))
	assert.False(t, l.Failed("chat"))
	assert.True(t, l.Excluded("xyzzy"))
	assert.True(t, l.Excluded("chat"))
	assert.False(t, l.Excluded("chien"))
	assert.Equal(t, 2, l.ExcludedCount())
	assert.Equal(t, 1, l.Len(), "failed words are not probes")
}

func TestLedger_Best(t *testing.T) {
	l := NewLedger()
	assert.Nil(t, l.Best())
	l.Add(models.Probe{Word: "a", Similarity: 0.2})
	l.Add(models.Probe{Word: "b", Similarity: 0.7})
	l.Add(models.Probe{Word: "c", Similarity: 0.7})
	best := l.Best()
	require.NotNil(t, best)
	assert.Equal(t, "b", best.Word)
}

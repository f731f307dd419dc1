// Package hints picks graded clue words from the solution's neighbourhood.
package hints

import (
	"sort"

	"github.com/j0hanj0han/cemantix/internal/models"
)

// Band is an inclusive percentile range feeding one hint level.
type Band struct {
	Low, High int
}

// Bands from vague (level 1) to very close (level 3).
var (
	Level1 = Band{Low: 200, High: 400}
	Level2 = Band{Low: 500, High: 700}
	Level3 = Band{Low: 800, High: 950}
)

// PerLevel is how many words each level holds.
const PerLevel = 3

// Select builds the three hint levels from neighbours sorted by ascending percentile.
func Select(nearby []models.NearbyWord) *models.Hints {
	return &models.Hints{
		Level1: pick(nearby, Level1, PerLevel),
		Level2: pick(nearby, Level2, PerLevel),
		Level3: pick(nearby, Level3, PerLevel),
	}
}

// pick spreads count picks evenly over the words inside band, or returns them all when there
// are not more than count.
func pick(nearby []models.NearbyWord, band Band, count int) []string {
	var words []string
	for _, n := range nearby {
		if n.Percentile >= band.Low && n.Percentile <= band.High {
			words = append(words, n.Word)
		}
	}
	if len(words) <= count {
		return words
	}
	step := len(words) / count
	out := make([]string, count)
	for i := range out {
		out[i] = words[i*step]
	}
	return out
}

// FromProbes turns ranked probes into a neighbour list for Select. Used when the oracle's nearby
// listing is unavailable; the solution itself is skipped.
func FromProbes(probes []models.Probe) []models.NearbyWord {
	var out []models.NearbyWord
	for _, p := range probes {
		if p.Rank == nil || p.IsMatch() {
			continue
		}
		out = append(out, models.NearbyWord{Word: p.Word, Percentile: *p.Rank, Similarity: p.Similarity})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percentile < out[j].Percentile })
	return out
}

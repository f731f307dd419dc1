// Package models defines core data structures for probes, candidates, solve results, and sessions.
package models

// Score is one oracle answer for a word: cosine similarity to the hidden target and,
// when the word is close enough, its percentile rank (0-1000).
type Score struct {
	Similarity float64 `json:"similarity"`
	Rank       *int    `json:"rank,omitempty"`
}

// Probe is one recorded oracle observation. Immutable once appended to a ledger.
type Probe struct {
	Word       string  `json:"word" db:"word"`
	Similarity float64 `json:"similarity" db:"similarity"`
	Rank       *int    `json:"rank,omitempty" db:"rank"`
}

// IsMatch reports whether the probe hit the target exactly.
func (p Probe) IsMatch() bool {
	return p.Similarity >= 1.0
}

// Candidate is a word proposed by the ranker with its predicted similarity to the target estimate.
type Candidate struct {
	Word      string  `json:"word"`
	Predicted float64 `json:"predicted"`
}

// NearbyWord is a neighbour of the solution as reported by the oracle's nearby listing.
type NearbyWord struct {
	Word       string  `json:"word"`
	Percentile int     `json:"percentile"`
	Similarity float64 `json:"similarity"`
}

// Hints are three levels of neighbour words, from vague to very close.
type Hints struct {
	Level1 []string `json:"level1"`
	Level2 []string `json:"level2"`
	Level3 []string `json:"level3"`
}

// Empty reports whether no level has any word.
func (h *Hints) Empty() bool {
	return h == nil || len(h.Level1)+len(h.Level2)+len(h.Level3) == 0
}

package models

import "time"

// Outcome is the terminal state of a solve.
type Outcome string

const (
	// OutcomeSolved means a probe returned similarity 1.0.
	OutcomeSolved Outcome = "solved"
	// OutcomeExhausted means the search stopped without a match (budget, iteration cap, no candidates).
	OutcomeExhausted Outcome = "exhausted"
)

// SolveResult is what one solver session returns. Probes is the full ledger in probe order.
type SolveResult struct {
	Puzzle    string        `json:"puzzle"`
	Found     bool          `json:"found"`
	Word      string        `json:"word,omitempty"`
	Probes    []Probe       `json:"probes"`
	CallCount int           `json:"call_count"` // successful oracle calls (== len(Probes))
	Requests  int           `json:"requests"`   // oracle requests issued, unknown answers included
	Rounds    int           `json:"rounds"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Best      *Probe        `json:"best,omitempty"`
	Outcome   Outcome       `json:"outcome"`
	Reason    string        `json:"reason,omitempty"`
}

// BestProbe returns the highest-similarity probe in probes, or nil when empty.
// Ties keep the earliest probe.
func BestProbe(probes []Probe) *Probe {
	var best *Probe
	for i := range probes {
		if best == nil || probes[i].Similarity > best.Similarity {
			p := probes[i]
			best = &p
		}
	}
	return best
}

package solver

import "github.com/j0hanj0han/cemantix/internal/models"

// Ledger is the append-only record of one session's probes. A word is recorded at most once;
// words the oracle could not score are remembered separately so they are never retried.
type Ledger struct {
	probes []models.Probe
	index  map[string]int
	failed map[string]struct{}
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		index:  make(map[string]int),
		failed: make(map[string]struct{}),
	}
}

// Add appends p and reports whether it was new. The first result for a word wins.
func (l *Ledger) Add(p models.Probe) bool {
	if _, ok := l.index[p.Word]; ok {
		return false
	}
	l.index[p.Word] = len(l.probes)
	l.probes = append(l.probes, p)
	return true
}

// Get returns the probe recorded for word.
func (l *Ledger) Get(word string) (models.Probe, bool) {
	i, ok := l.index[word]
	if !ok {
		return models.Probe{}, false
	}
	return l.probes[i], true
}

// MarkFailed remembers a word the oracle answered as unknown.
func (l *Ledger) MarkFailed(word string) {
	l.failed[word] = struct{}{}
}

// Failed reports whether word was answered as unknown.
func (l *Ledger) Failed(word string) bool {
	_, ok := l.failed[word]
	return ok
}

// Excluded reports whether word must not be probed again: it was scored or it failed.
func (l *Ledger) Excluded(word string) bool {
	_, probed := l.index[word]
	return probed || l.Failed(word)
}

// ExcludedCount returns how many words Excluded rejects.
func (l *Ledger) ExcludedCount() int {
	return len(l.probes) + len(l.failed)
}

// Len returns the number of recorded probes.
func (l *Ledger) Len() int {
	return len(l.probes)
}

// Probes returns a copy of the probes in the order they were recorded.
func (l *Ledger) Probes() []models.Probe {
	return append([]models.Probe(nil), l.probes...)
}

// Best returns the highest-similarity probe, or nil for an empty ledger.
func (l *Ledger) Best() *models.Probe {
	return models.BestProbe(l.probes)
}

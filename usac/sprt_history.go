package usac

// SprtHistory records one SPRT test design: the (epsilon, delta) pair it
// was computed from, the resulting threshold A, and how many hypotheses
// were evaluated under it. Histories accumulate in insertion order and are
// never removed; the last entry is always "current".
type SprtHistory struct {
	Epsilon       float64
	Delta         float64
	A             float64
	TestedSamples int
}

// sprtHistoryLog is the growable, append-only ledger of test designs for a
// single verifier instance.
type sprtHistoryLog struct {
	entries []SprtHistory
}

func newSprtHistoryLog(epsilon0, delta0, a0 float64) *sprtHistoryLog {
	return &sprtHistoryLog{entries: []SprtHistory{{Epsilon: epsilon0, Delta: delta0, A: a0}}}
}

func (l *sprtHistoryLog) current() *SprtHistory {
	return &l.entries[len(l.entries)-1]
}

func (l *sprtHistoryLog) push(h SprtHistory) {
	l.entries = append(l.entries, h)
}

// Entries returns a copy of the accumulated history, for diagnostics and tests.
func (l *sprtHistoryLog) Entries() []SprtHistory {
	out := make([]SprtHistory, len(l.entries))
	copy(out, l.entries)
	return out
}

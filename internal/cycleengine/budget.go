package cycleengine

import "time"

// Budget bounds a single enumeration pass (spec.md 4.4 step 5): wall time,
// visited node count, and emitted cycle count. Whichever trips first ends
// the pass. Exceeding a budget is never an error; callers get a partial,
// monotone result.
type Budget struct {
	TimeMs int
	Nodes  int
	Cycles int
}

// tracker is the live counters for one enumeration pass, checked at every
// DFS backtrack per spec.md 5 "Enumeration checks the budget at every DFS
// backtrack."
type tracker struct {
	budget    Budget
	deadline  time.Time
	visited   int
	emitted   int
	exhausted bool
}

func newTracker(b Budget, now time.Time) *tracker {
	return &tracker{
		budget:   b,
		deadline: now.Add(time.Duration(b.TimeMs) * time.Millisecond),
	}
}

// touchNode records a visited node and reports whether the pass must stop.
func (t *tracker) touchNode(now time.Time) bool {
	t.visited++
	if t.visited >= t.budget.Nodes {
		t.exhausted = true
	}
	if !now.Before(t.deadline) {
		t.exhausted = true
	}
	return t.exhausted
}

// touchCycle records an emitted cycle and reports whether the pass must stop.
func (t *tracker) touchCycle() bool {
	t.emitted++
	if t.emitted >= t.budget.Cycles {
		t.exhausted = true
	}
	return t.exhausted
}

// checkpoint is the backtrack-time budget check spec.md 5 requires, without
// recording a node visit.
func (t *tracker) checkpoint(now time.Time) bool {
	if !now.Before(t.deadline) {
		t.exhausted = true
	}
	return t.exhausted
}

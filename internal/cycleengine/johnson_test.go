package cycleengine

import (
	"testing"
	"time"

	"github.com/barterloop/matchingengine/domain/trade"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEnumerateElementaryCycles_ThreeCycle(t *testing.T) {
	g := buildGraph([][2]trade.OwnerID{{"A", "B"}, {"B", "C"}, {"C", "A"}})
	reach := reachableFromSeeds(g, []trade.OwnerID{"A"})
	tr := newTracker(Budget{TimeMs: 1000, Nodes: 1000, Cycles: 1000}, time.Unix(0, 0))

	var found [][]trade.OwnerID
	enumerateElementaryCycles(g, reach, 11, tr, fixedClock(time.Unix(0, 0)), func(c []trade.OwnerID) {
		found = append(found, c)
	})
	if len(found) != 1 {
		t.Fatalf("expected exactly one cycle, got %v", found)
	}
	if len(found[0]) != 3 {
		t.Fatalf("expected a 3-cycle, got %v", found[0])
	}
}

func TestEnumerateElementaryCycles_LengthTwoSwap(t *testing.T) {
	g := buildGraph([][2]trade.OwnerID{{"A", "B"}, {"B", "A"}})
	reach := reachableFromSeeds(g, []trade.OwnerID{"A"})
	tr := newTracker(Budget{TimeMs: 1000, Nodes: 1000, Cycles: 1000}, time.Unix(0, 0))

	var found [][]trade.OwnerID
	enumerateElementaryCycles(g, reach, 11, tr, fixedClock(time.Unix(0, 0)), func(c []trade.OwnerID) {
		found = append(found, c)
	})
	if len(found) != 1 || len(found[0]) != 2 {
		t.Fatalf("expected one 2-cycle, got %v", found)
	}
}

func TestEnumerateElementaryCycles_LengthBoundPrunes(t *testing.T) {
	g := buildGraph([][2]trade.OwnerID{{"A", "B"}, {"B", "C"}, {"C", "D"}, {"D", "A"}})
	reach := reachableFromSeeds(g, []trade.OwnerID{"A"})
	tr := newTracker(Budget{TimeMs: 1000, Nodes: 1000, Cycles: 1000}, time.Unix(0, 0))

	var found [][]trade.OwnerID
	enumerateElementaryCycles(g, reach, 3, tr, fixedClock(time.Unix(0, 0)), func(c []trade.OwnerID) {
		found = append(found, c)
	})
	if len(found) != 0 {
		t.Fatalf("expected the 4-cycle to be pruned by a length-3 bound, got %v", found)
	}
}

func TestEnumerateElementaryCycles_CycleCountBudgetStopsEarly(t *testing.T) {
	// Two independent triangles sharing vertex A: A-B-C-A and A-D-E-A.
	g := buildGraph([][2]trade.OwnerID{
		{"A", "B"}, {"B", "C"}, {"C", "A"},
		{"A", "D"}, {"D", "E"}, {"E", "A"},
	})
	reach := reachableFromSeeds(g, []trade.OwnerID{"A"})
	tr := newTracker(Budget{TimeMs: 1000, Nodes: 1000, Cycles: 1}, time.Unix(0, 0))

	var found [][]trade.OwnerID
	enumerateElementaryCycles(g, reach, 11, tr, fixedClock(time.Unix(0, 0)), func(c []trade.OwnerID) {
		found = append(found, c)
	})
	if len(found) != 1 {
		t.Fatalf("expected the cycle-count budget to cap output at 1, got %d", len(found))
	}
	if !tr.exhausted {
		t.Fatal("expected tracker to report exhausted")
	}
}

func TestEnumerateElementaryCycles_Deterministic(t *testing.T) {
	g := buildGraph([][2]trade.OwnerID{{"A", "B"}, {"B", "C"}, {"C", "A"}})
	reach := reachableFromSeeds(g, []trade.OwnerID{"A"})

	run := func() [][]trade.OwnerID {
		tr := newTracker(Budget{TimeMs: 1000, Nodes: 1000, Cycles: 1000}, time.Unix(0, 0))
		var found [][]trade.OwnerID
		enumerateElementaryCycles(g, reach, 11, tr, fixedClock(time.Unix(0, 0)), func(c []trade.OwnerID) {
			found = append(found, append([]trade.OwnerID{}, c...))
		})
		return found
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("non-deterministic cycle count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("non-deterministic cycle order at %d/%d: %v vs %v", i, j, a, b)
			}
		}
	}
}

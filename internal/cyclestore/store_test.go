package cyclestore

import (
	"testing"
	"time"

	"github.com/barterloop/matchingengine/domain/trade"
)

func cycle(sig byte, score float64, owners []trade.OwnerID, items []trade.ItemID, lastSeen time.Time) trade.Cycle {
	steps := make([]trade.CycleStep, len(owners))
	for i, o := range owners {
		steps[i] = trade.CycleStep{From: o, To: owners[(i+1)%len(owners)], Items: []trade.Item{{ID: items[i]}}}
	}
	var s trade.Signature
	s[0] = sig
	return trade.Cycle{Signature: s, Steps: steps, Score: score, LastSeen: lastSeen}
}

func TestUpsert_InsertsNewCycle(t *testing.T) {
	store := New(10)
	c := cycle(1, 0.8, []trade.OwnerID{"A", "B"}, []trade.ItemID{"a", "b"}, time.Now())
	if !store.Upsert(c) {
		t.Fatal("expected insert to report a change")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 stored cycle, got %d", store.Len())
	}
}

func TestUpsert_KeepsHigherScoreOnTie(t *testing.T) {
	store := New(10)
	now := time.Now()
	low := cycle(1, 0.3, []trade.OwnerID{"A", "B"}, []trade.ItemID{"a", "b"}, now)
	high := cycle(1, 0.9, []trade.OwnerID{"A", "B"}, []trade.ItemID{"a", "b"}, now.Add(time.Minute))
	store.Upsert(low)
	store.Upsert(high)
	got, ok := store.Get(low.Signature)
	if !ok || got.Score != 0.9 {
		t.Fatalf("expected the higher score to win, got %+v", got)
	}

	lower := cycle(1, 0.1, []trade.OwnerID{"A", "B"}, []trade.ItemID{"a", "b"}, now.Add(2*time.Minute))
	store.Upsert(lower)
	got, _ = store.Get(low.Signature)
	if got.Score != 0.9 {
		t.Fatalf("expected a lower-score upsert to not replace the stored entry, got %f", got.Score)
	}
}

func TestCyclesByOwner_SortedByScoreThenSignature(t *testing.T) {
	store := New(10)
	store.Upsert(cycle(2, 0.5, []trade.OwnerID{"A", "B"}, []trade.ItemID{"a", "b"}, time.Now()))
	store.Upsert(cycle(1, 0.9, []trade.OwnerID{"A", "C"}, []trade.ItemID{"c", "d"}, time.Now()))
	store.Upsert(cycle(3, 0.9, []trade.OwnerID{"A", "D"}, []trade.ItemID{"e", "f"}, time.Now()))

	out := store.CyclesByOwner("A", 10, 0)
	if len(out) != 3 {
		t.Fatalf("expected 3 cycles, got %d", len(out))
	}
	if out[0].Score != 0.9 || out[1].Score != 0.9 || out[2].Score != 0.5 {
		t.Fatalf("expected descending score order, got %v", out)
	}
	if out[0].Signature.String() >= out[1].Signature.String() {
		t.Fatalf("expected tie-break by ascending signature, got %s then %s", out[0].Signature, out[1].Signature)
	}
}

func TestCyclesByOwner_FiltersMinScore(t *testing.T) {
	store := New(10)
	store.Upsert(cycle(1, 0.2, []trade.OwnerID{"A", "B"}, []trade.ItemID{"a", "b"}, time.Now()))
	store.Upsert(cycle(2, 0.8, []trade.OwnerID{"A", "C"}, []trade.ItemID{"c", "d"}, time.Now()))
	out := store.CyclesByOwner("A", 10, 0.5)
	if len(out) != 1 || out[0].Score != 0.8 {
		t.Fatalf("expected only the high-score cycle, got %v", out)
	}
}

func TestEvictExpired(t *testing.T) {
	store := New(10)
	old := cycle(1, 0.5, []trade.OwnerID{"A", "B"}, []trade.ItemID{"a", "b"}, time.Now().Add(-time.Hour))
	fresh := cycle(2, 0.5, []trade.OwnerID{"A", "C"}, []trade.ItemID{"c", "d"}, time.Now())
	store.Upsert(old)
	store.Upsert(fresh)
	n := store.EvictExpired(time.Now(), 10*time.Minute)
	if n != 1 {
		t.Fatalf("expected 1 expired cycle, got %d", n)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 remaining cycle, got %d", store.Len())
	}
}

func TestEvictByItem(t *testing.T) {
	store := New(10)
	store.Upsert(cycle(1, 0.5, []trade.OwnerID{"A", "B"}, []trade.ItemID{"a", "b"}, time.Now()))
	store.Upsert(cycle(2, 0.5, []trade.OwnerID{"C", "D"}, []trade.ItemID{"c", "d"}, time.Now()))
	n := store.EvictByItem("a")
	if n != 1 || store.Len() != 1 {
		t.Fatalf("expected only the cycle referencing item 'a' evicted, got n=%d len=%d", n, store.Len())
	}
}

func TestEvictRejected(t *testing.T) {
	store := New(10)
	c := cycle(1, 0.5, []trade.OwnerID{"A", "B"}, []trade.ItemID{"a", "b"}, time.Now())
	store.Upsert(c)
	n := store.EvictRejected("A", func(cyc trade.Cycle) bool { return cyc.Signature == c.Signature })
	if n != 1 || store.Len() != 0 {
		t.Fatalf("expected the rejected cycle evicted, got n=%d len=%d", n, store.Len())
	}
}

func TestMaxCyclesStoredBound(t *testing.T) {
	store := New(2)
	store.Upsert(cycle(1, 0.5, []trade.OwnerID{"A", "B"}, []trade.ItemID{"a", "b"}, time.Now()))
	store.Upsert(cycle(2, 0.5, []trade.OwnerID{"C", "D"}, []trade.ItemID{"c", "d"}, time.Now()))
	store.Upsert(cycle(3, 0.5, []trade.OwnerID{"E", "F"}, []trade.ItemID{"e", "f"}, time.Now()))
	if store.Len() > 2 {
		t.Fatalf("expected maxCyclesStored=2 to cap storage, got %d", store.Len())
	}
}

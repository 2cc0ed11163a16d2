package integrity

import (
	"testing"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/cyclestore"
	"github.com/barterloop/matchingengine/internal/graphindex"
	"github.com/barterloop/matchingengine/internal/tenant"
)

func TestValidate_CleanStateReportsOK(t *testing.T) {
	state := tenant.New("t1", tenant.DefaultConfig(), graphindex.New())
	if _, err := state.AddInventory("A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := state.AddWants("B", []trade.ItemID{"a"}); err != nil {
		t.Fatal(err)
	}
	store := cyclestore.New(100)
	report, err := Validate(state, store)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !report.OK || len(report.Issues) != 0 {
		t.Fatalf("expected a clean report, got %+v", report)
	}
}

func TestValidate_DetectsStaleCycleItem(t *testing.T) {
	state := tenant.New("t1", tenant.DefaultConfig(), graphindex.New())
	if _, err := state.AddInventory("A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := state.AddInventory("B", []trade.Item{{ID: "b"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := state.AddWants("B", []trade.ItemID{"a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := state.AddWants("A", []trade.ItemID{"b"}); err != nil {
		t.Fatal(err)
	}
	store := cyclestore.New(100)
	store.Upsert(trade.Cycle{
		Signature: trade.ComputeSignature([]trade.CycleStep{
			{From: "A", To: "B", Items: []trade.Item{{ID: "a"}}},
			{From: "B", To: "A", Items: []trade.Item{{ID: "b"}}},
		}),
		Steps: []trade.CycleStep{
			{From: "A", To: "B", Items: []trade.Item{{ID: "a"}}},
			{From: "B", To: "A", Items: []trade.Item{{ID: "b"}}},
		},
	})
	// Item "a" changes hands without the store being told.
	if _, err := state.RemoveInventory("A", []trade.ItemID{"a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := state.AddInventory("C", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}

	report, err := Validate(state, store)
	if err == nil {
		t.Fatal("expected a multierror aggregate for the stale cycle")
	}
	if report.OK {
		t.Fatal("expected report.OK=false")
	}
	found := false
	for _, issue := range report.Issues {
		if issue.Code == "STALE_CYCLE_ITEM" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a STALE_CYCLE_ITEM issue, got %+v", report.Issues)
	}
}

func TestExportGraph_ReflectsWiring(t *testing.T) {
	state := tenant.New("t1", tenant.DefaultConfig(), graphindex.New())
	if _, err := state.AddInventory("A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := state.AddWants("B", []trade.ItemID{"a"}); err != nil {
		t.Fatal(err)
	}
	snap := ExportGraph(state)
	if len(snap.Nodes) != 2 || len(snap.Edges) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

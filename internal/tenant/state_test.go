package tenant

import (
	"testing"

	engineerrors "github.com/barterloop/matchingengine/infrastructure/errors"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/graphindex"
)

func newTestState() *State {
	return New("t1", DefaultConfig(), graphindex.New())
}

func TestAddInventory_ThenWants_WiresEdge(t *testing.T) {
	s := newTestState()
	if _, err := s.AddInventory("A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	seeds, err := s.AddWants("B", []trade.ItemID{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := seeds["A"]; !ok {
		t.Error("expected A in seed set")
	}
	neighbors := s.Graph.OutNeighbors("A")
	if len(neighbors) != 1 || neighbors[0].To != "B" {
		t.Fatalf("expected A->B edge, got %+v", neighbors)
	}
}

func TestAddInventory_OwnershipConflict(t *testing.T) {
	s := newTestState()
	if _, err := s.AddInventory("A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	_, err := s.AddInventory("B", []trade.Item{{ID: "a"}})
	if err == nil {
		t.Fatal("expected OwnershipConflict")
	}
	ee := engineerrors.As(err)
	if ee == nil || ee.Code != engineerrors.CodeOwnershipConflict {
		t.Fatalf("expected OwnershipConflict code, got %v", err)
	}
}

func TestAddWants_SelfWantRejected(t *testing.T) {
	s := newTestState()
	if _, err := s.AddInventory("A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	_, err := s.AddWants("A", []trade.ItemID{"a"})
	if err == nil {
		t.Fatal("expected SelfWantRejected")
	}
	ee := engineerrors.As(err)
	if ee == nil || ee.Code != engineerrors.CodeSelfWantRejected {
		t.Fatalf("expected SelfWantRejected code, got %v", err)
	}
}

func TestRemoveInventory_TearsDownEdges(t *testing.T) {
	s := newTestState()
	if _, err := s.AddInventory("A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddWants("B", []trade.ItemID{"a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RemoveInventory("A", []trade.ItemID{"a"}); err != nil {
		t.Fatal(err)
	}
	if len(s.Graph.OutNeighbors("A")) != 0 {
		t.Fatal("expected edge removed after inventory removal")
	}
}

func TestCollectionWant_ExpandsAgainstMembers(t *testing.T) {
	s := newTestState()
	if _, err := s.AddInventory("A", []trade.Item{{ID: "a1", CollectionID: "K"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddCollectionWant("B", "K"); err != nil {
		t.Fatal(err)
	}
	neighbors := s.Graph.OutNeighbors("A")
	if len(neighbors) != 1 || neighbors[0].To != "B" {
		t.Fatalf("expected collection want to wire A->B, got %+v", neighbors)
	}
}

func TestRejectOwner_SuppressesFutureEdges(t *testing.T) {
	s := newTestState()
	if _, err := s.AddInventory("A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	s.RejectOwner("B", "A") // B rejects A as a counterparty
	if _, err := s.AddWants("B", []trade.ItemID{"a"}); err != nil {
		t.Fatal(err)
	}
	if len(s.Graph.OutNeighbors("A")) != 0 {
		t.Fatal("expected rejection to suppress the A->B edge even after a fresh want")
	}
}

func TestMaxOwnersLimitEnforced(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxOwners = 1
	s := New("t1", cfg, graphindex.New())
	if _, err := s.AddInventory("A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddInventory("B", []trade.Item{{ID: "b"}}); err == nil {
		t.Fatal("expected owner limit to be enforced")
	}
}

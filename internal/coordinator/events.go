package coordinator

import (
	"context"

	engineerrors "github.com/barterloop/matchingengine/infrastructure/errors"

	"github.com/barterloop/matchingengine/domain/trade"
)

// RejectedItem records one item a batch submission could not apply, with
// the stable reason code a caller can act on.
type RejectedItem struct {
	ItemID trade.ItemID
	Reason engineerrors.Code
}

// SubmitResult is the shared shape of submitInventory/submitWants
// (spec.md 6): "{ok, newCyclesDiscovered, rejected[]}".
type SubmitResult struct {
	Ok                 bool
	NewCyclesDiscovered int
	Rejected           []RejectedItem
}

// SystemState answers spec.md 6's systemState query.
type SystemState struct {
	Owners       int
	Items        int
	Wants        int
	ActiveCycles int
}

// SubmitInventory applies each item independently so a single conflicting
// item does not fail the whole batch; accepted items still enumerate.
func (c *Coordinator) SubmitInventory(ctx context.Context, owner trade.OwnerID, items []trade.Item) (SubmitResult, error) {
	v, err := c.submit(ctx, func() (interface{}, error) {
		eventID := c.nextEventID()
		start := c.clock.Now()
		seeds := make(map[trade.OwnerID]struct{})
		var rejected []RejectedItem
		for _, it := range items {
			s, err := c.state.AddInventory(owner, []trade.Item{it})
			if err != nil {
				rejected = append(rejected, RejectedItem{ItemID: it.ID, Reason: engineerrors.CodeOf(err)})
				continue
			}
			for o := range s {
				seeds[o] = struct{}{}
			}
		}
		discovered, evicted, budgetExhausted := c.rescan(seeds, nil)
		c.emitSummary(ctx, eventID, discovered, evicted, budgetExhausted, c.clock.Now().Sub(start))
		return SubmitResult{Ok: true, NewCyclesDiscovered: discovered, Rejected: rejected}, nil
	})
	if err != nil {
		return SubmitResult{}, err
	}
	return v.(SubmitResult), nil
}

// RemoveInventory unassigns items from owner, evicting any stored cycle
// that referenced them.
func (c *Coordinator) RemoveInventory(ctx context.Context, owner trade.OwnerID, itemIDs []trade.ItemID) (bool, error) {
	v, err := c.submit(ctx, func() (interface{}, error) {
		eventID := c.nextEventID()
		start := c.clock.Now()
		seeds, err := c.state.RemoveInventory(owner, itemIDs)
		if err != nil {
			return false, err
		}
		_, evicted, budgetExhausted := c.rescan(seeds, itemIDs)
		c.emitSummary(ctx, eventID, 0, evicted, budgetExhausted, c.clock.Now().Sub(start))
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// SubmitWants records owner's wants, one item at a time so a self-want
// among an otherwise valid batch is rejected rather than failing it all.
func (c *Coordinator) SubmitWants(ctx context.Context, owner trade.OwnerID, itemIDs []trade.ItemID) (SubmitResult, error) {
	v, err := c.submit(ctx, func() (interface{}, error) {
		eventID := c.nextEventID()
		start := c.clock.Now()
		seeds := make(map[trade.OwnerID]struct{})
		var rejected []RejectedItem
		for _, id := range itemIDs {
			s, err := c.state.AddWants(owner, []trade.ItemID{id})
			if err != nil {
				rejected = append(rejected, RejectedItem{ItemID: id, Reason: engineerrors.CodeOf(err)})
				continue
			}
			for o := range s {
				seeds[o] = struct{}{}
			}
		}
		discovered, evicted, budgetExhausted := c.rescan(seeds, nil)
		c.emitSummary(ctx, eventID, discovered, evicted, budgetExhausted, c.clock.Now().Sub(start))
		return SubmitResult{Ok: true, NewCyclesDiscovered: discovered, Rejected: rejected}, nil
	})
	if err != nil {
		return SubmitResult{}, err
	}
	return v.(SubmitResult), nil
}

// RemoveWants undoes SubmitWants for the given items, evicting any stored
// cycle that relied on one of them staying wanted.
func (c *Coordinator) RemoveWants(ctx context.Context, owner trade.OwnerID, itemIDs []trade.ItemID) (bool, error) {
	v, err := c.submit(ctx, func() (interface{}, error) {
		eventID := c.nextEventID()
		start := c.clock.Now()
		seeds, err := c.state.RemoveWants(owner, itemIDs)
		if err != nil {
			return false, err
		}
		_, evicted, budgetExhausted := c.rescan(seeds, itemIDs)
		c.emitSummary(ctx, eventID, 0, evicted, budgetExhausted, c.clock.Now().Sub(start))
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// SubmitCollectionWant records a collection want and rescans.
func (c *Coordinator) SubmitCollectionWant(ctx context.Context, owner trade.OwnerID, collection trade.CollectionID) (SubmitResult, error) {
	v, err := c.submit(ctx, func() (interface{}, error) {
		eventID := c.nextEventID()
		start := c.clock.Now()
		seeds, err := c.state.AddCollectionWant(owner, collection)
		if err != nil {
			return SubmitResult{}, err
		}
		discovered, evicted, budgetExhausted := c.rescan(seeds, nil)
		c.emitSummary(ctx, eventID, discovered, evicted, budgetExhausted, c.clock.Now().Sub(start))
		return SubmitResult{Ok: true, NewCyclesDiscovered: discovered}, nil
	})
	if err != nil {
		return SubmitResult{}, err
	}
	return v.(SubmitResult), nil
}

// RemoveCollectionWant undoes SubmitCollectionWant, evicting any stored
// cycle that relied on the collection want to satisfy one of its steps.
func (c *Coordinator) RemoveCollectionWant(ctx context.Context, owner trade.OwnerID, collection trade.CollectionID) (bool, error) {
	v, err := c.submit(ctx, func() (interface{}, error) {
		eventID := c.nextEventID()
		start := c.clock.Now()
		seeds, err := c.state.RemoveCollectionWant(owner, collection)
		if err != nil {
			return false, err
		}
		members := c.state.CollectionMembersSnapshot(collection)
		touched := make([]trade.ItemID, 0, len(members))
		for item := range members {
			touched = append(touched, item)
		}
		_, evicted, budgetExhausted := c.rescan(seeds, touched)
		c.emitSummary(ctx, eventID, 0, evicted, budgetExhausted, c.clock.Now().Sub(start))
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// RejectOwner records subject's rejection of other as a counterparty,
// suppressing future edges and evicting any cycle the rejection now voids.
func (c *Coordinator) RejectOwner(ctx context.Context, subject, other trade.OwnerID) (bool, error) {
	v, err := c.submit(ctx, func() (interface{}, error) {
		c.state.RejectOwner(subject, other)
		c.store.EvictRejected(subject, func(cyc trade.Cycle) bool {
			for _, o := range cyc.Owners() {
				if o == other {
					return true
				}
			}
			return false
		})
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// RejectCycle blacklists a cycle signature for subject and evicts it.
func (c *Coordinator) RejectCycle(ctx context.Context, subject trade.OwnerID, sig trade.Signature) (bool, error) {
	v, err := c.submit(ctx, func() (interface{}, error) {
		c.state.RejectCycle(subject, sig)
		c.store.EvictRejected(subject, func(cyc trade.Cycle) bool { return cyc.Signature == sig })
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Rescan re-seeds enumeration from owner without mutating state, for
// callers that explicitly want on-demand enumeration rather than the
// strictly-read-the-store default (spec.md 6, 9).
func (c *Coordinator) Rescan(ctx context.Context, owner trade.OwnerID) (SubmitResult, error) {
	v, err := c.submit(ctx, func() (interface{}, error) {
		eventID := c.nextEventID()
		start := c.clock.Now()
		discovered, evicted, budgetExhausted := c.rescan(map[trade.OwnerID]struct{}{owner: {}}, nil)
		c.emitSummary(ctx, eventID, discovered, evicted, budgetExhausted, c.clock.Now().Sub(start))
		return SubmitResult{Ok: true, NewCyclesDiscovered: discovered}, nil
	})
	if err != nil {
		return SubmitResult{}, err
	}
	return v.(SubmitResult), nil
}

// QueryCycles reads cyclesByOwner directly from the store; reads never go
// through the writer queue (spec.md 5: readers share a read-consistent
// snapshot).
func (c *Coordinator) QueryCycles(owner trade.OwnerID, limit int, minScore float64) []trade.Cycle {
	return c.store.CyclesByOwner(owner, limit, minScore)
}

// QueryCycleByID reads a single cycle by signature.
func (c *Coordinator) QueryCycleByID(sig trade.Signature) (trade.Cycle, bool) {
	return c.store.Get(sig)
}

// State reports aggregate counts for systemState.
func (c *Coordinator) State() SystemState {
	return SystemState{
		Owners:       c.state.OwnerCount(),
		Items:        c.state.ItemCount(),
		Wants:        c.state.WantCount(),
		ActiveCycles: c.store.Len(),
	}
}

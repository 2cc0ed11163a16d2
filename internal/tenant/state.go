// Package tenant holds the per-tenant authoritative data (TenantState) and
// the registry that maps tenant ids to it (TenantRegistry), per spec.md
// 4.1-4.2. Grounded on infrastructure/state/state.go's PersistentState
// shape (RWMutex-guarded map, explicit Save/Load-style accessors), adapted
// from an opaque key/value store to typed owner/item/want relations.
package tenant

import (
	"sync"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/graphindex"
)

// State is the single-writer, multi-reader authoritative data for one
// tenant (spec.md 4.2). Every mutating method must only be called from the
// tenant's DeltaCoordinator writer goroutine; reads are safe from any
// goroutine.
type State struct {
	ID     trade.TenantID
	Config Config

	mu                sync.RWMutex
	owners            map[trade.OwnerID]*trade.Owner
	items             map[trade.ItemID]trade.Item
	ownership         map[trade.ItemID]trade.OwnerID
	collectionMembers map[trade.CollectionID]map[trade.ItemID]struct{}
	rejections        map[trade.OwnerID]*trade.Rejections

	Graph *graphindex.Index
}

// New builds an empty tenant State.
func New(id trade.TenantID, cfg Config, graph *graphindex.Index) *State {
	return &State{
		ID:                id,
		Config:            cfg,
		owners:            make(map[trade.OwnerID]*trade.Owner),
		items:             make(map[trade.ItemID]trade.Item),
		ownership:         make(map[trade.ItemID]trade.OwnerID),
		collectionMembers: make(map[trade.CollectionID]map[trade.ItemID]struct{}),
		rejections:        make(map[trade.OwnerID]*trade.Rejections),
		Graph:             graph,
	}
}

func (s *State) getOrCreateOwner(id trade.OwnerID) *trade.Owner {
	o, ok := s.owners[id]
	if !ok {
		o = trade.NewOwner(id)
		s.owners[id] = o
	}
	return o
}

func (s *State) ownerCount() int { return len(s.owners) }
func (s *State) itemCount() int  { return len(s.items) }

// OwnerCount returns the number of known owners.
func (s *State) OwnerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerCount()
}

// ItemCount returns the number of known items.
func (s *State) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.itemCount()
}

// WantCount returns the total number of direct want relations.
func (s *State) WantCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, o := range s.owners {
		n += len(o.WantedItems)
	}
	return n
}

// OwnerOf returns the current owner of item, if known.
func (s *State) OwnerOf(item trade.ItemID) (trade.OwnerID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.ownership[item]
	return o, ok
}

// Item returns the tracked record for item, if known.
func (s *State) Item(item trade.ItemID) (trade.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[item]
	return it, ok
}

// WantsDirect reports whether owner directly wants item.
func (s *State) WantsDirect(owner trade.OwnerID, item trade.ItemID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.owners[owner]
	if !ok {
		return false
	}
	_, wants := o.WantedItems[item]
	return wants
}

// WantsViaCollection reports whether owner wants item only through a
// collection want on item's collection.
func (s *State) WantsViaCollection(owner trade.OwnerID, item trade.ItemID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[item]
	if !ok || it.CollectionID == "" {
		return false
	}
	o, ok := s.owners[owner]
	if !ok {
		return false
	}
	_, wants := o.WantedCollections[it.CollectionID]
	return wants
}

// Wants reports whether owner wants item, directly or via collection.
func (s *State) Wants(owner trade.OwnerID, item trade.ItemID) bool {
	return s.WantsDirect(owner, item) || s.WantsViaCollection(owner, item)
}

// HasRejectedOwner reports whether subject has rejected other.
func (s *State) HasRejectedOwner(subject, other trade.OwnerID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rejections[subject]
	if !ok {
		return false
	}
	_, rejected := r.Owners[other]
	return rejected
}

// HasRejectedCycle reports whether subject has rejected the given signature.
func (s *State) HasRejectedCycle(subject trade.OwnerID, sig trade.Signature) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rejections[subject]
	if !ok {
		return false
	}
	_, rejected := r.Cycles[sig]
	return rejected
}

// CollectionMembersSnapshot returns a copy of {item: owner} for every
// member of collection, for use by GraphIndex.AddCollectionWant, which must
// not read State directly (spec.md "Ownership semantics").
func (s *State) CollectionMembersSnapshot(collection trade.CollectionID) map[trade.ItemID]trade.OwnerID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := s.collectionMembers[collection]
	out := make(map[trade.ItemID]trade.OwnerID, len(members))
	for item := range members {
		if owner, ok := s.ownership[item]; ok {
			out[item] = owner
		}
	}
	return out
}

// DirectWantersOf returns every owner who directly wants item.
func (s *State) DirectWantersOf(item trade.ItemID) []trade.OwnerID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var wanters []trade.OwnerID
	for id, o := range s.owners {
		if _, ok := o.WantedItems[item]; ok {
			wanters = append(wanters, id)
		}
	}
	return wanters
}

// CollectionWantersOf returns every owner who wants item's collection
// (excluding the item's own owner, who can never want its own item).
func (s *State) CollectionWantersOf(item trade.ItemID, owner trade.OwnerID) []trade.OwnerID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[item]
	if !ok || it.CollectionID == "" {
		return nil
	}
	var wanters []trade.OwnerID
	for id, o := range s.owners {
		if id == owner {
			continue
		}
		if _, ok := o.WantedCollections[it.CollectionID]; ok {
			wanters = append(wanters, id)
		}
	}
	return wanters
}

// Owners returns every known owner id, for IntegrityChecker's sweep.
func (s *State) Owners() []trade.OwnerID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]trade.OwnerID, 0, len(s.owners))
	for id := range s.owners {
		out = append(out, id)
	}
	return out
}

// OwnedItemsOf returns the items owner currently holds, per its own record.
func (s *State) OwnedItemsOf(owner trade.OwnerID) []trade.ItemID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.owners[owner]
	if !ok {
		return nil
	}
	out := make([]trade.ItemID, 0, len(o.OwnedItems))
	for id := range o.OwnedItems {
		out = append(out, id)
	}
	return out
}

// WantedItemsOf returns the items owner directly wants.
func (s *State) WantedItemsOf(owner trade.OwnerID) []trade.ItemID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.owners[owner]
	if !ok {
		return nil
	}
	out := make([]trade.ItemID, 0, len(o.WantedItems))
	for id := range o.WantedItems {
		out = append(out, id)
	}
	return out
}

// AllWantersOf returns every owner who could want item, direct or via
// collection, for use when an item changes hands and every justified edge
// must be torn down regardless of which relation created it.
func (s *State) AllWantersOf(item trade.ItemID) []trade.OwnerID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[trade.OwnerID]struct{})
	for id, o := range s.owners {
		if _, ok := o.WantedItems[item]; ok {
			seen[id] = struct{}{}
		}
	}
	if it, ok := s.items[item]; ok && it.CollectionID != "" {
		for id, o := range s.owners {
			if _, ok := o.WantedCollections[it.CollectionID]; ok {
				seen[id] = struct{}{}
			}
		}
	}
	out := make([]trade.OwnerID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

package tenant

import (
	engineerrors "github.com/barterloop/matchingengine/infrastructure/errors"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/graphindex"
)

// SeedSet accumulates the owners whose neighborhood changed across one or
// more GraphIndex patches, the unit DeltaCoordinator re-scans from.
type SeedSet map[trade.OwnerID]struct{}

func newSeedSet() SeedSet { return make(SeedSet) }

func (s SeedSet) merge(other map[trade.OwnerID]struct{}) {
	for k := range other {
		s[k] = struct{}{}
	}
}

// AddInventory assigns items to owner, failing with OwnershipConflict if any
// item is already held by a different owner (spec.md 4.2).
func (s *State) AddInventory(owner trade.OwnerID, items []trade.Item) (SeedSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range items {
		if existing, ok := s.ownership[it.ID]; ok && existing != owner {
			return nil, engineerrors.OwnershipConflict(string(it.ID), string(owner), string(existing))
		}
	}
	if s.ownerCount() >= s.Config.MaxOwners {
		if _, exists := s.owners[owner]; !exists {
			return nil, engineerrors.InvalidArgument("tenant owner limit reached")
		}
	}
	newItems := 0
	for _, it := range items {
		if _, exists := s.items[it.ID]; !exists {
			newItems++
		}
	}
	if s.itemCount()+newItems > s.Config.MaxItems {
		return nil, engineerrors.InvalidArgument("tenant item limit reached")
	}

	o := s.getOrCreateOwner(owner)
	seeds := newSeedSet()
	for _, it := range items {
		s.items[it.ID] = it
		s.ownership[it.ID] = owner
		o.OwnedItems[it.ID] = struct{}{}
		if it.CollectionID != "" {
			if s.collectionMembers[it.CollectionID] == nil {
				s.collectionMembers[it.CollectionID] = make(map[trade.ItemID]struct{})
			}
			s.collectionMembers[it.CollectionID][it.ID] = struct{}{}
		}

		view := graphindex.ItemOwnerView{
			Owner:             owner,
			DirectWanters:     s.directWantersLocked(it.ID),
			CollectionWanters: s.collectionWantersLocked(it.ID, owner),
		}
		seeds.merge(s.Graph.AddItemEdges(it.ID, view))
	}
	return seeds, nil
}

// RemoveInventory unassigns items from owner (a no-op per item if the item
// is not currently owned by owner).
func (s *State) RemoveInventory(owner trade.OwnerID, itemIDs []trade.ItemID) (SeedSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeds := newSeedSet()
	o, ok := s.owners[owner]
	if !ok {
		return seeds, nil
	}
	for _, id := range itemIDs {
		current, owns := s.ownership[id]
		if !owns || current != owner {
			continue
		}
		wanters := s.allWantersLocked(id)
		seeds.merge(s.Graph.RemoveItemEdges(id, owner, wanters))

		delete(s.ownership, id)
		delete(o.OwnedItems, id)
		if it, ok := s.items[id]; ok && it.CollectionID != "" {
			if members, ok := s.collectionMembers[it.CollectionID]; ok {
				delete(members, id)
				if len(members) == 0 {
					delete(s.collectionMembers, it.CollectionID)
				}
			}
		}
	}
	return seeds, nil
}

// AddWants records that owner wants each item, rejecting self-wants
// (spec.md 3 "A self-want ... is invalid").
func (s *State) AddWants(owner trade.OwnerID, itemIDs []trade.ItemID) (SeedSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range itemIDs {
		if current, ok := s.ownership[id]; ok && current == owner {
			return nil, engineerrors.SelfWantRejected(string(owner), string(id))
		}
	}
	if s.ownerCount() >= s.Config.MaxOwners {
		if _, exists := s.owners[owner]; !exists {
			return nil, engineerrors.InvalidArgument("tenant owner limit reached")
		}
	}

	o := s.getOrCreateOwner(owner)
	seeds := newSeedSet()
	for _, id := range itemIDs {
		if _, already := o.WantedItems[id]; already {
			continue
		}
		o.WantedItems[id] = struct{}{}
		current, hasOwner := s.ownership[id]
		seeds.merge(s.Graph.AddDirectWant(owner, id, current, hasOwner))
	}
	return seeds, nil
}

// RemoveWants undoes AddWants.
func (s *State) RemoveWants(owner trade.OwnerID, itemIDs []trade.ItemID) (SeedSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeds := newSeedSet()
	o, ok := s.owners[owner]
	if !ok {
		return seeds, nil
	}
	for _, id := range itemIDs {
		if _, wants := o.WantedItems[id]; !wants {
			continue
		}
		delete(o.WantedItems, id)
		current, hasOwner := s.ownership[id]
		seeds.merge(s.Graph.RemoveDirectWant(owner, id, current, hasOwner))
	}
	return seeds, nil
}

// AddCollectionWant records owner's want for any item in collection,
// expanding virtually against current members (spec.md 3 "Collection Want").
func (s *State) AddCollectionWant(owner trade.OwnerID, collection trade.CollectionID) (SeedSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := s.getOrCreateOwner(owner)
	if _, already := o.WantedCollections[collection]; already {
		return newSeedSet(), nil
	}
	o.WantedCollections[collection] = struct{}{}

	members := make(map[trade.ItemID]trade.OwnerID)
	for item := range s.collectionMembers[collection] {
		if ownerOf, ok := s.ownership[item]; ok {
			members[item] = ownerOf
		}
	}
	return s.Graph.AddCollectionWant(owner, members), nil
}

// RemoveCollectionWant undoes AddCollectionWant.
func (s *State) RemoveCollectionWant(owner trade.OwnerID, collection trade.CollectionID) (SeedSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.owners[owner]
	if !ok {
		return newSeedSet(), nil
	}
	if _, wants := o.WantedCollections[collection]; !wants {
		return newSeedSet(), nil
	}
	delete(o.WantedCollections, collection)

	members := make(map[trade.ItemID]trade.OwnerID)
	for item := range s.collectionMembers[collection] {
		if ownerOf, ok := s.ownership[item]; ok {
			members[item] = ownerOf
		}
	}
	return s.Graph.RemoveCollectionWant(owner, members), nil
}

// RejectOwner marks other as rejected by subject, suppressing future edges
// subject->other... no: edges other->subject (other holds items subject
// wants) are what a rejection of a counterparty should hide, per spec.md
// 4.3 "A rejection by v of u suppresses all edges u->v."
func (s *State) RejectOwner(subject, other trade.OwnerID) SeedSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rejections[subject]
	if !ok {
		r = trade.NewRejections()
		s.rejections[subject] = r
	}
	r.Owners[other] = struct{}{}
	seeds := SeedSet(s.Graph.Suppress(other, subject))
	return seeds
}

// RejectCycle blacklists a cycle signature for subject so future scoring
// passes filter it out (spec.md 4.2 recordRejection).
func (s *State) RejectCycle(subject trade.OwnerID, sig trade.Signature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rejections[subject]
	if !ok {
		r = trade.NewRejections()
		s.rejections[subject] = r
	}
	r.Cycles[sig] = struct{}{}
}

// --- locked (mu already held) helpers used only by this file ---

func (s *State) directWantersLocked(item trade.ItemID) []trade.OwnerID {
	var wanters []trade.OwnerID
	for id, o := range s.owners {
		if _, ok := o.WantedItems[item]; ok {
			wanters = append(wanters, id)
		}
	}
	return wanters
}

func (s *State) collectionWantersLocked(item trade.ItemID, owner trade.OwnerID) []trade.OwnerID {
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

func (s *State) allWantersLocked(item trade.ItemID) []trade.OwnerID {
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

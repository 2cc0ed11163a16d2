// Package cyclestore implements CycleStore (spec.md 4.6): a
// signature-indexed table of discovered cycles with owner/item secondary
// indices, TTL- and ownership-driven eviction, and an LRU recency layer
// bounding the tenant's maxCyclesStored resource limit (spec.md 5).
package cyclestore

import (
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/barterloop/matchingengine/domain/trade"
)

// Store holds every live cycle for one tenant.
type Store struct {
	mu sync.RWMutex

	bySignature map[trade.Signature]*trade.Cycle
	byOwner     map[trade.OwnerID]map[trade.Signature]struct{}
	byItem      map[trade.ItemID]map[trade.Signature]struct{}

	// recency is an LRU cache used purely as a maxCyclesStored bound: its
	// eviction callback fires authoritative removal from the maps above
	// when the tenant holds more distinct cycles than the configured cap.
	recency *lru.Cache[trade.Signature, struct{}]
}

// New builds an empty Store bounded to maxStored distinct cycles.
func New(maxStored int) *Store {
	if maxStored <= 0 {
		maxStored = 1
	}
	s := &Store{
		bySignature: make(map[trade.Signature]*trade.Cycle),
		byOwner:     make(map[trade.OwnerID]map[trade.Signature]struct{}),
		byItem:      make(map[trade.ItemID]map[trade.Signature]struct{}),
	}
	recency, _ := lru.NewWithEvict[trade.Signature, struct{}](maxStored, func(sig trade.Signature, _ struct{}) {
		s.removeLocked(sig)
	})
	s.recency = recency
	return s
}

func (s *Store) removeLocked(sig trade.Signature) {
	cyc, ok := s.bySignature[sig]
	if !ok {
		return
	}
	delete(s.bySignature, sig)
	for _, owner := range cyc.Owners() {
		if sigs, ok := s.byOwner[owner]; ok {
			delete(sigs, sig)
			if len(sigs) == 0 {
				delete(s.byOwner, owner)
			}
		}
	}
	for _, item := range cyc.Items() {
		if sigs, ok := s.byItem[item]; ok {
			delete(sigs, sig)
			if len(sigs) == 0 {
				delete(s.byItem, item)
			}
		}
	}
}

func (s *Store) indexLocked(cyc *trade.Cycle) {
	for _, owner := range cyc.Owners() {
		if s.byOwner[owner] == nil {
			s.byOwner[owner] = make(map[trade.Signature]struct{})
		}
		s.byOwner[owner][cyc.Signature] = struct{}{}
	}
	for _, item := range cyc.Items() {
		if s.byItem[item] == nil {
			s.byItem[item] = make(map[trade.Signature]struct{})
		}
		s.byItem[item][cyc.Signature] = struct{}{}
	}
}

// Upsert inserts cyc, or updates the existing entry with the same
// signature if cyc's score is not lower (spec.md 4.6: "ties keep the entry
// with the higher score, update lastSeen"). Returns true if cyc was inserted
// or replaced the stored entry; a lower-scoring cyc only refreshes the
// existing entry's LastSeen and returns false.
func (s *Store) Upsert(cyc trade.Cycle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.bySignature[cyc.Signature]
	if ok {
		if cyc.Score < existing.Score {
			existing.LastSeen = cyc.LastSeen
			s.recency.Add(cyc.Signature, struct{}{})
			return false
		}
		cyc.DiscoveredAt = existing.DiscoveredAt
	}
	stored := cyc
	s.bySignature[cyc.Signature] = &stored
	s.indexLocked(&stored)
	s.recency.Add(cyc.Signature, struct{}{})
	return true
}

// Get returns the stored cycle for sig, if present.
func (s *Store) Get(sig trade.Signature) (trade.Cycle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cyc, ok := s.bySignature[sig]
	if !ok {
		return trade.Cycle{}, false
	}
	return *cyc, true
}

// Len reports the number of distinct cycles currently stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bySignature)
}

// EvictExpired removes every cycle whose lastSeen + ttl has passed
// (spec.md 4.6 eviction policy i).
func (s *Store) EvictExpired(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []trade.Signature
	for sig, cyc := range s.bySignature {
		if cyc.LastSeen.Add(ttl).Before(now) {
			expired = append(expired, sig)
		}
	}
	for _, sig := range expired {
		s.removeLocked(sig)
		s.recency.Remove(sig)
	}
	return len(expired)
}

// EvictByItem removes every cycle referencing item, used when item changes
// hands or is delisted (spec.md 4.6 eviction policy ii).
func (s *Store) EvictByItem(item trade.ItemID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sigs := s.byItem[item]
	n := len(sigs)
	for sig := range sigs {
		s.removeLocked(sig)
		s.recency.Remove(sig)
	}
	return n
}

// EvictRejected removes every cycle that owner has rejected, either by
// signature or because owner rejected another participant (spec.md 4.6
// eviction policy iii). isRejected is supplied by the caller (tenant.State
// already holds the rejection records).
func (s *Store) EvictRejected(owner trade.OwnerID, isRejected func(trade.Cycle) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var toEvict []trade.Signature
	for sig := range s.byOwner[owner] {
		cyc := s.bySignature[sig]
		if cyc != nil && isRejected(*cyc) {
			toEvict = append(toEvict, sig)
		}
	}
	for _, sig := range toEvict {
		s.removeLocked(sig)
		s.recency.Remove(sig)
	}
	return len(toEvict)
}

// CyclesByOwner returns up to limit cycles with score >= minScore that
// owner participates in, sorted by score descending then signature
// lexicographically (spec.md 4.6's query contract). The result is computed
// from a snapshot copy taken under the read lock, per the "restartable,
// snapshot copy" contract.
func (s *Store) CyclesByOwner(owner trade.OwnerID, limit int, minScore float64) []trade.Cycle {
	s.mu.RLock()
	sigs := make([]trade.Signature, 0, len(s.byOwner[owner]))
	for sig := range s.byOwner[owner] {
		sigs = append(sigs, sig)
	}
	snapshot := make([]trade.Cycle, 0, len(sigs))
	for _, sig := range sigs {
		if cyc, ok := s.bySignature[sig]; ok {
			snapshot = append(snapshot, *cyc)
		}
	}
	s.mu.RUnlock()

	filtered := snapshot[:0]
	for _, cyc := range snapshot {
		if cyc.Score >= minScore {
			filtered = append(filtered, cyc)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Score != filtered[j].Score {
			return filtered[i].Score > filtered[j].Score
		}
		return filtered[i].Signature.String() < filtered[j].Signature.String()
	})
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}

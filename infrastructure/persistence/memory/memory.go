// Package memory provides an in-process adapters.Persistence implementation,
// used in tests and for tenants configured with enablePersistence:false.
// Grounded on infrastructure/state/state.go's MemoryBackend: a mutex-guarded
// map with no durability guarantees beyond process lifetime.
package memory

import (
	"context"
	"sync"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/adapters"
)

type tenantLog struct {
	events         []adapters.PersistedEvent
	snapshotSeq    uint64
	snapshotBytes  []byte
	hasSnapshot    bool
}

// Store is a process-local Persistence backend.
type Store struct {
	mu  sync.RWMutex
	log map[trade.TenantID]*tenantLog
}

// New builds an empty in-memory Store.
func New() *Store {
	return &Store{log: make(map[trade.TenantID]*tenantLog)}
}

func (s *Store) tenantLog(id trade.TenantID) *tenantLog {
	l, ok := s.log[id]
	if !ok {
		l = &tenantLog{}
		s.log[id] = l
	}
	return l
}

// AppendEvent appends event to tenantID's in-memory log.
func (s *Store) AppendEvent(ctx context.Context, tenantID trade.TenantID, event adapters.PersistedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.tenantLog(tenantID)
	l.events = append(l.events, event)
	return nil
}

// SaveSnapshot overwrites tenantID's snapshot with payload at seq.
func (s *Store) SaveSnapshot(ctx context.Context, tenantID trade.TenantID, seq uint64, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.tenantLog(tenantID)
	l.snapshotSeq = seq
	l.snapshotBytes = append([]byte(nil), payload...)
	l.hasSnapshot = true
	// Events folded into the snapshot no longer need replaying.
	kept := l.events[:0]
	for _, e := range l.events {
		if e.Seq > seq {
			kept = append(kept, e)
		}
	}
	l.events = kept
	return nil
}

// LoadLatestSnapshot returns tenantID's most recent snapshot, if any.
func (s *Store) LoadLatestSnapshot(ctx context.Context, tenantID trade.TenantID) (uint64, []byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.log[tenantID]
	if !ok || !l.hasSnapshot {
		return 0, nil, false, nil
	}
	return l.snapshotSeq, append([]byte(nil), l.snapshotBytes...), true, nil
}

// ReplayEventsSince returns every event with Seq > since, in append order.
func (s *Store) ReplayEventsSince(ctx context.Context, tenantID trade.TenantID, since uint64) ([]adapters.PersistedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.log[tenantID]
	if !ok {
		return nil, nil
	}
	var out []adapters.PersistedEvent
	for _, e := range l.events {
		if e.Seq > since {
			out = append(out, e)
		}
	}
	return out, nil
}

var _ adapters.Persistence = (*Store)(nil)

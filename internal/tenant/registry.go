package tenant

import (
	"sync"

	engineerrors "github.com/barterloop/matchingengine/infrastructure/errors"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/graphindex"
)

// Registry maps tenant ids to isolated State, the sole cross-tenant shared
// resource besides external adapters (spec.md 5 "Shared-resource policy").
// The lock here is held only around create/destroy, never steady state.
type Registry struct {
	mu      sync.RWMutex
	tenants map[trade.TenantID]*State
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tenants: make(map[trade.TenantID]*State)}
}

// Get returns the State for tenantID, or UnknownTenant.
func (r *Registry) Get(tenantID trade.TenantID) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.tenants[tenantID]
	if !ok {
		return nil, engineerrors.UnknownTenant(string(tenantID))
	}
	return st, nil
}

// Create registers a new tenant with the given config, failing with
// TenantExists if one is already registered.
func (r *Registry) Create(tenantID trade.TenantID, cfg Config) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tenants[tenantID]; exists {
		return nil, engineerrors.TenantExists(string(tenantID))
	}
	st := New(tenantID, cfg, graphindex.New())
	r.tenants[tenantID] = st
	return st, nil
}

// Destroy removes tenantID from the registry. Callers must have already
// quiesced the tenant's DeltaCoordinator writer before calling this (the
// coordinator owns that lifecycle; the registry only releases the map
// entry once asked).
func (r *Registry) Destroy(tenantID trade.TenantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tenants[tenantID]; !exists {
		return engineerrors.UnknownTenant(string(tenantID))
	}
	delete(r.tenants, tenantID)
	return nil
}

// List returns every registered tenant id.
func (r *Registry) List() []trade.TenantID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]trade.TenantID, 0, len(r.tenants))
	for id := range r.tenants {
		ids = append(ids, id)
	}
	return ids
}

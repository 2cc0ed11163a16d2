// Package app wires one tenant's State, CycleStore, and DeltaCoordinator
// together and extends internal/tenant.Registry's create/destroy-lock
// pattern to the additional per-tenant resources a running engine needs
// beyond the bare authoritative state.
package app

import (
	"sync"

	"github.com/barterloop/matchingengine/domain/trade"
	engineerrors "github.com/barterloop/matchingengine/infrastructure/errors"
	"github.com/barterloop/matchingengine/infrastructure/logging"
	"github.com/barterloop/matchingengine/infrastructure/metrics"
	"github.com/barterloop/matchingengine/internal/adapters"
	"github.com/barterloop/matchingengine/internal/coordinator"
	"github.com/barterloop/matchingengine/internal/cycleengine"
	"github.com/barterloop/matchingengine/internal/cyclestore"
	"github.com/barterloop/matchingengine/internal/tenant"
)

// Tenant bundles everything one tenant needs at runtime.
type Tenant struct {
	State       *tenant.State
	Store       *cyclestore.Store
	Coordinator *coordinator.Coordinator
}

// App is the process-wide wiring: one Registry plus the per-tenant
// resources (CycleStore, Coordinator) the registry itself does not own.
type App struct {
	Registry *tenant.Registry
	Engine   *cycleengine.Engine
	Sink     adapters.EventSink
	Clock    adapters.Clock
	Log      *logging.Logger
	Metrics  *metrics.Metrics

	mu      sync.RWMutex
	tenants map[trade.TenantID]*Tenant
}

// New builds an App sharing one Engine/Sink/Clock/Logger across every tenant
// it creates, matching spec.md 5's "shared resources" list.
func New(engine *cycleengine.Engine, sink adapters.EventSink, clock adapters.Clock, log *logging.Logger, m *metrics.Metrics) *App {
	return &App{
		Registry: tenant.NewRegistry(),
		Engine:   engine,
		Sink:     sink,
		Clock:    clock,
		Log:      log,
		Metrics:  m,
		tenants:  make(map[trade.TenantID]*Tenant),
	}
}

// CreateTenant registers a new tenant, builds its CycleStore and
// Coordinator, and returns the bundle.
func (a *App) CreateTenant(id trade.TenantID, cfg tenant.Config) (*Tenant, error) {
	state, err := a.Registry.Create(id, cfg)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	store := cyclestore.New(cfg.MaxCyclesStored)
	coord := coordinator.New(state, store, a.Engine, a.Sink, a.Clock, a.Log)
	t := &Tenant{State: state, Store: store, Coordinator: coord}
	a.tenants[id] = t
	return t, nil
}

// Get returns the bundle for id, or UnknownTenant.
func (a *App) Get(id trade.TenantID) (*Tenant, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.tenants[id]
	if !ok {
		return nil, engineerrors.UnknownTenant(string(id))
	}
	return t, nil
}

// Destroy stops id's coordinator goroutine and removes every resource.
func (a *App) Destroy(id trade.TenantID) error {
	a.mu.Lock()
	t, ok := a.tenants[id]
	if !ok {
		a.mu.Unlock()
		return engineerrors.UnknownTenant(string(id))
	}
	delete(a.tenants, id)
	a.mu.Unlock()

	t.Coordinator.Close()
	return a.Registry.Destroy(id)
}

// List returns every registered tenant id.
func (a *App) List() []trade.TenantID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]trade.TenantID, 0, len(a.tenants))
	for id := range a.tenants {
		ids = append(ids, id)
	}
	return ids
}

// Tenants returns a snapshot of every registered bundle, for sweeps that
// need to iterate all of them (scheduler TTL sweeps, integrity checks).
func (a *App) Tenants() map[trade.TenantID]*Tenant {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[trade.TenantID]*Tenant, len(a.tenants))
	for id, t := range a.tenants {
		out[id] = t
	}
	return out
}

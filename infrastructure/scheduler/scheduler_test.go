package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/adapters"
	"github.com/barterloop/matchingengine/internal/app"
	"github.com/barterloop/matchingengine/internal/cycleengine"
	"github.com/barterloop/matchingengine/internal/tenant"
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakePersistence struct {
	snapshots int
}

func (f *fakePersistence) AppendEvent(ctx context.Context, tenantID trade.TenantID, event adapters.PersistedEvent) error {
	return nil
}
func (f *fakePersistence) SaveSnapshot(ctx context.Context, tenantID trade.TenantID, seq uint64, payload []byte) error {
	f.snapshots++
	return nil
}
func (f *fakePersistence) LoadLatestSnapshot(ctx context.Context, tenantID trade.TenantID) (uint64, []byte, bool, error) {
	return 0, nil, false, nil
}
func (f *fakePersistence) ReplayEventsSince(ctx context.Context, tenantID trade.TenantID, since uint64) ([]adapters.PersistedEvent, error) {
	return nil, nil
}

func TestSweepExpiredCycles_EvictsPastTTL(t *testing.T) {
	a := app.New(cycleengine.New(), nil, fakeClock{t: time.Now()}, nil, nil)
	cfg := tenant.DefaultConfig()
	cfg.CycleTTL = time.Millisecond
	bundle, err := a.CreateTenant("t1", cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer bundle.Coordinator.Close()

	bundle.Store.Upsert(trade.Cycle{
		Signature: trade.Signature{1},
		Steps: []trade.CycleStep{
			{From: "A", To: "B", Items: []trade.Item{{ID: "a"}}},
			{From: "B", To: "A", Items: []trade.Item{{ID: "b"}}},
		},
		LastSeen: time.Now().Add(-time.Hour),
	})
	if bundle.Store.Len() != 1 {
		t.Fatal("expected the cycle to be stored before the sweep")
	}

	s := New(a, nil, nil)
	s.sweepExpiredCycles()

	if bundle.Store.Len() != 0 {
		t.Fatalf("expected the sweep to evict the expired cycle, got %d remaining", bundle.Store.Len())
	}
}

func TestSnapshotTenants_SkipsWhenPersistenceDisabled(t *testing.T) {
	a := app.New(cycleengine.New(), nil, fakeClock{t: time.Now()}, nil, nil)
	bundle, err := a.CreateTenant("t1", tenant.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer bundle.Coordinator.Close()

	fp := &fakePersistence{}
	s := New(a, fp, nil)
	s.snapshotTenants()

	if fp.snapshots != 0 {
		t.Fatalf("expected no snapshots when EnablePersistence=false, got %d", fp.snapshots)
	}
}

func TestSnapshotTenants_SavesWhenPersistenceEnabled(t *testing.T) {
	a := app.New(cycleengine.New(), nil, fakeClock{t: time.Now()}, nil, nil)
	cfg := tenant.DefaultConfig()
	cfg.EnablePersistence = true
	bundle, err := a.CreateTenant("t1", cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer bundle.Coordinator.Close()

	fp := &fakePersistence{}
	s := New(a, fp, nil)
	s.snapshotTenants()

	if fp.snapshots != 1 {
		t.Fatalf("expected 1 snapshot, got %d", fp.snapshots)
	}
}

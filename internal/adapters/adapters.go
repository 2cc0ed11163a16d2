// Package adapters declares the pluggable boundary interfaces spec.md 2
// reserves for external integration: MetadataSource, PriceSource,
// EventSink, Clock, Persistence. The engine core depends only on these,
// never on a concrete backend.
package adapters

import (
	"context"
	"time"

	"github.com/barterloop/matchingengine/domain/trade"
)

// Metadata is what an external MetadataSource can tell the engine about an
// item it does not itself track (spec.md 1: "external asset metadata").
type Metadata struct {
	CollectionID trade.CollectionID
	Attributes   map[string]string
}

// MetadataSource resolves item metadata from outside the engine.
type MetadataSource interface {
	ItemMetadata(ctx context.Context, item trade.ItemID) (Metadata, error)
}

// PriceSource resolves a value hint for an item from outside the engine.
// The bool result reports whether a hint was available at all.
type PriceSource interface {
	ValueHint(ctx context.Context, item trade.ItemID) (float64, bool, error)
}

// EventSummary is the per-event notification spec.md 4.7 step 6 describes:
// "{eventId, cyclesDiscovered, cyclesEvicted, elapsed}".
type EventSummary struct {
	EventID          string
	TenantID         trade.TenantID
	CyclesDiscovered int
	CyclesEvicted    int
	BudgetExhausted  bool
	Elapsed          time.Duration
}

// EventSink receives discovery summaries; DeltaCoordinator depends only on
// this interface, never on a concrete transport (spec.md 2 domain stack).
type EventSink interface {
	PublishSummary(ctx context.Context, summary EventSummary) error
}

// Clock abstracts wall time so tests can control DiscoveredAt/LastSeen and
// TTL eviction deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// PersistedEvent is one entry in a tenant's append-only event log
// (spec.md 6: "per-tenant append-only event log {seq, ts, type, payload}").
type PersistedEvent struct {
	Seq     uint64
	Ts      time.Time
	Type    string
	Payload []byte
}

// Persistence implements the optional append-only log + periodic snapshot
// layout from spec.md 6. Recovery loads the latest snapshot then replays
// events with seq greater than the snapshot's.
type Persistence interface {
	AppendEvent(ctx context.Context, tenantID trade.TenantID, event PersistedEvent) error
	SaveSnapshot(ctx context.Context, tenantID trade.TenantID, seq uint64, payload []byte) error
	LoadLatestSnapshot(ctx context.Context, tenantID trade.TenantID) (seq uint64, payload []byte, found bool, err error)
	ReplayEventsSince(ctx context.Context, tenantID trade.TenantID, seq uint64) ([]PersistedEvent, error)
}

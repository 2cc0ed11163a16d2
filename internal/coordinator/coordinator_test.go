package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/adapters"
	"github.com/barterloop/matchingengine/internal/cycleengine"
	"github.com/barterloop/matchingengine/internal/cyclestore"
	"github.com/barterloop/matchingengine/internal/graphindex"
	"github.com/barterloop/matchingengine/internal/tenant"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

type recordingSink struct {
	mu        sync.Mutex
	summaries []adapters.EventSummary
}

func (r *recordingSink) PublishSummary(ctx context.Context, s adapters.EventSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, s)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.summaries)
}

func newTestCoordinator(t *testing.T) (*Coordinator, *recordingSink) {
	t.Helper()
	state := tenant.New("t1", tenant.DefaultConfig(), graphindex.New())
	store := cyclestore.New(1000)
	sink := &recordingSink{}
	c := New(state, store, cycleengine.New(), sink, &fakeClock{t: time.Now()}, nil)
	t.Cleanup(c.Close)
	return c, sink
}

func TestSubmitInventory_ThenWants_DiscoversCycle(t *testing.T) {
	c, sink := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.SubmitInventory(ctx, "A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitInventory(ctx, "B", []trade.Item{{ID: "b"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitWants(ctx, "B", []trade.ItemID{"a"}); err != nil {
		t.Fatal(err)
	}
	result, err := c.SubmitWants(ctx, "A", []trade.ItemID{"b"})
	if err != nil {
		t.Fatal(err)
	}
	if result.NewCyclesDiscovered != 1 {
		t.Fatalf("expected 1 newly discovered cycle, got %d", result.NewCyclesDiscovered)
	}
	cycles := c.QueryCycles("A", 10, 0)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 stored cycle, got %d", len(cycles))
	}
	if sink.count() == 0 {
		t.Fatal("expected at least one summary published")
	}
}

func TestSubmitInventory_OwnershipConflictRejectedNotFatal(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	if _, err := c.SubmitInventory(ctx, "A", []trade.Item{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatal(err)
	}
	result, err := c.SubmitInventory(ctx, "B", []trade.Item{{ID: "a"}, {ID: "c"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Rejected) != 1 || result.Rejected[0].ItemID != "a" {
		t.Fatalf("expected item 'a' rejected for conflict, got %+v", result.Rejected)
	}
	if owner, ok := c.state.OwnerOf("c"); !ok || owner != "B" {
		t.Fatal("expected item 'c' to still be accepted despite 'a' being rejected")
	}
}

func TestRemoveInventory_EvictsDependentCycles(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	if _, err := c.SubmitInventory(ctx, "A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitInventory(ctx, "B", []trade.Item{{ID: "b"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitWants(ctx, "B", []trade.ItemID{"a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitWants(ctx, "A", []trade.ItemID{"b"}); err != nil {
		t.Fatal(err)
	}
	if len(c.QueryCycles("A", 10, 0)) != 1 {
		t.Fatal("expected the cycle to exist before removal")
	}
	if _, err := c.RemoveInventory(ctx, "A", []trade.ItemID{"a"}); err != nil {
		t.Fatal(err)
	}
	if len(c.QueryCycles("A", 10, 0)) != 0 {
		t.Fatal("expected the cycle to be evicted once a participating item left inventory")
	}
}

func TestRemoveWants_EvictsDependentCycles(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	if _, err := c.SubmitInventory(ctx, "A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitInventory(ctx, "B", []trade.Item{{ID: "b"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitWants(ctx, "B", []trade.ItemID{"a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitWants(ctx, "A", []trade.ItemID{"b"}); err != nil {
		t.Fatal(err)
	}
	if len(c.QueryCycles("A", 10, 0)) != 1 {
		t.Fatal("expected the cycle to exist before the want is withdrawn")
	}
	if _, err := c.RemoveWants(ctx, "A", []trade.ItemID{"b"}); err != nil {
		t.Fatal(err)
	}
	if len(c.QueryCycles("A", 10, 0)) != 0 {
		t.Fatal("expected the cycle to be evicted once A no longer wants b")
	}
}

func TestRemoveCollectionWant_EvictsDependentCycles(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	if _, err := c.SubmitInventory(ctx, "A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitInventory(ctx, "B", []trade.Item{{ID: "b", CollectionID: "K"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitCollectionWant(ctx, "A", "K"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitWants(ctx, "B", []trade.ItemID{"a"}); err != nil {
		t.Fatal(err)
	}
	if len(c.QueryCycles("A", 10, 0)) != 1 {
		t.Fatal("expected the cycle to exist before the collection want is withdrawn")
	}
	if _, err := c.RemoveCollectionWant(ctx, "A", "K"); err != nil {
		t.Fatal(err)
	}
	if len(c.QueryCycles("A", 10, 0)) != 0 {
		t.Fatal("expected the cycle to be evicted once A no longer wants anything from K")
	}
}

func TestRejectCycle_EvictsFromStore(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	if _, err := c.SubmitInventory(ctx, "A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitInventory(ctx, "B", []trade.Item{{ID: "b"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitWants(ctx, "B", []trade.ItemID{"a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitWants(ctx, "A", []trade.ItemID{"b"}); err != nil {
		t.Fatal(err)
	}
	cycles := c.QueryCycles("A", 10, 0)
	if len(cycles) != 1 {
		t.Fatal("expected 1 cycle before rejection")
	}
	if _, err := c.RejectCycle(ctx, "A", cycles[0].Signature); err != nil {
		t.Fatal(err)
	}
	if len(c.QueryCycles("A", 10, 0)) != 0 {
		t.Fatal("expected the rejected cycle to be evicted from the store")
	}
}

func TestSubmit_ContextCancellationBeforeEnqueue(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SubmitInventory(ctx, "A", []trade.Item{{ID: "a"}})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestClose_WaitsForWriterToDrain(t *testing.T) {
	state := tenant.New("t1", tenant.DefaultConfig(), graphindex.New())
	store := cyclestore.New(1000)
	c := New(state, store, cycleengine.New(), nil, &fakeClock{t: time.Now()}, nil)

	ctx := context.Background()
	if _, err := c.SubmitInventory(ctx, "A", []trade.Item{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}
	c.Close()
	if state.ItemCount() != 1 {
		t.Fatal("expected the writer to have applied its queued command before Close returned")
	}
	select {
	case _, ok := <-c.queue:
		if ok {
			t.Fatal("expected the queue channel to be closed")
		}
	default:
		t.Fatal("expected the queue channel to be closed, not merely empty")
	}
}

func TestSystemState_ReflectsMutations(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	if _, err := c.SubmitInventory(ctx, "A", []trade.Item{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatal(err)
	}
	st := c.State()
	if st.Owners != 1 || st.Items != 2 {
		t.Fatalf("unexpected system state: %+v", st)
	}
}

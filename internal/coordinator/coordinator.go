// Package coordinator implements DeltaCoordinator (spec.md 4.7): one
// single-writer event loop per tenant that serializes mutations into
// TenantState, re-enumerates only the SCCs a patch touched, and keeps
// CycleStore in sync. Reads bypass the writer entirely, per spec.md 5's
// "readers share a read-consistent snapshot."
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	engineerrors "github.com/barterloop/matchingengine/infrastructure/errors"
	"github.com/barterloop/matchingengine/infrastructure/logging"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/adapters"
	"github.com/barterloop/matchingengine/internal/cycleengine"
	"github.com/barterloop/matchingengine/internal/cyclescorer"
	"github.com/barterloop/matchingengine/internal/cyclestore"
	"github.com/barterloop/matchingengine/internal/tenant"
)

type commandResult struct {
	value interface{}
	err   error
}

type command struct {
	fn       func() (interface{}, error)
	resultCh chan commandResult
}

// Coordinator is the single-writer event loop for one tenant.
type Coordinator struct {
	TenantID trade.TenantID

	state  *tenant.State
	store  *cyclestore.Store
	engine *cycleengine.Engine
	sink   adapters.EventSink
	clock  adapters.Clock
	log    *logging.Logger

	queue chan command
	seq   uint64
	wg    sync.WaitGroup
}

// New builds a Coordinator and starts its writer goroutine. Callers must
// call Close when the tenant is destroyed.
func New(state *tenant.State, store *cyclestore.Store, engine *cycleengine.Engine, sink adapters.EventSink, clock adapters.Clock, log *logging.Logger) *Coordinator {
	if clock == nil {
		clock = adapters.SystemClock{}
	}
	c := &Coordinator{
		TenantID: state.ID,
		state:    state,
		store:    store,
		engine:   engine,
		sink:     sink,
		clock:    clock,
		log:      log,
		queue:    make(chan command, 256),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// Close stops the writer goroutine and blocks until it has drained every
// queued command and exited, so a caller observes full quiescence before
// proceeding (e.g. tearing down the tenant the coordinator belongs to).
func (c *Coordinator) Close() {
	close(c.queue)
	c.wg.Wait()
}

func (c *Coordinator) run() {
	defer c.wg.Done()
	for cmd := range c.queue {
		c.process(cmd)
	}
}

// process applies one command with panic recovery isolating the fault to
// this single event, per spec.md 4.7's failure semantics: "Unexpected
// internal faults in an event are isolated to that event, logged, and the
// writer continues."
func (c *Coordinator) process(cmd command) {
	defer func() {
		if r := recover(); r != nil {
			if c.log != nil {
				c.log.Tenant(string(c.TenantID)).WithField("panic", r).Error("coordinator event panicked; isolated")
			}
			cmd.resultCh <- commandResult{err: engineerrors.Internal("internal fault", fmt.Errorf("%v", r))}
		}
	}()
	value, err := cmd.fn()
	cmd.resultCh <- commandResult{value: value, err: err}
}

// submit enqueues fn on the writer and blocks for its result, honoring
// ctx cancellation at both the enqueue and the wait step (spec.md 5
// "every writer op... carries a cancellation token").
func (c *Coordinator) submit(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	resultCh := make(chan commandResult, 1)
	select {
	case c.queue <- command{fn: fn, resultCh: resultCh}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-resultCh:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// rescan invokes CycleEngine over seeds, scores and upserts every
// surviving cycle, evicts stale entries touched by the changed items, and
// returns the discovery/eviction counts for the event summary.
func (c *Coordinator) rescan(seeds map[trade.OwnerID]struct{}, touchedItems []trade.ItemID) (discovered, evicted int, budgetExhausted bool) {
	for _, item := range touchedItems {
		evicted += c.store.EvictByItem(item)
	}
	if len(seeds) == 0 {
		return 0, evicted, false
	}
	result := c.engine.Discover(c.state, seeds)
	weights := c.state.Config.ScoreWeights
	for _, cyc := range result.Cycles {
		cyc.Score = cyclescorer.Score(cyc.Steps, weights)
		if cyc.Score < c.state.Config.MinCycleScore {
			continue
		}
		if c.store.Upsert(cyc) {
			discovered++
		}
	}
	return discovered, evicted, result.BudgetExhausted
}

func (c *Coordinator) emitSummary(ctx context.Context, eventID string, discovered, evicted int, budgetExhausted bool, elapsed time.Duration) {
	if c.sink == nil {
		return
	}
	_ = c.sink.PublishSummary(ctx, adapters.EventSummary{
		EventID:          eventID,
		TenantID:         c.TenantID,
		CyclesDiscovered: discovered,
		CyclesEvicted:    evicted,
		BudgetExhausted:  budgetExhausted,
		Elapsed:          elapsed,
	})
}

func (c *Coordinator) nextEventID() string {
	c.seq++
	return fmt.Sprintf("%s-%d", c.TenantID, c.seq)
}

// Package cycleengine is the hard algorithmic core of the matching engine:
// strongly-connected-component partition plus budgeted, deterministic
// elementary-cycle enumeration and parallel-edge item expansion. No pack
// library covers Tarjan/Johnson; this is textbook graph theory shaped into
// Go, the one core component grounded on algorithm, not on an example file.
package cycleengine

import (
	"sort"
	"time"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/tenant"
)

// Engine runs SCC partition + Johnson-style enumeration + combo expansion
// against a tenant's live state, per spec.md 4.4. It holds no state of its
// own; every call is scoped to one TenantState and one seed set.
type Engine struct {
	// Now is overridable for deterministic budget tests; defaults to
	// time.Now when left nil.
	Now func() time.Time
}

// New builds an Engine using the wall clock.
func New() *Engine {
	return &Engine{Now: time.Now}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Result is one enumeration pass's output: a partial, monotone result is
// always valid, even when the budget tripped before the graph was fully
// explored (spec.md 4.4 step 5).
type Result struct {
	Cycles          []trade.Cycle
	BudgetExhausted bool
	VisitedNodes    int
	Elapsed         time.Duration
}

// Discover enumerates every elementary cycle of length <= maxCycleLength
// touching at least one owner in seeds, scoped to state's current graph.
func (e *Engine) Discover(state *tenant.State, seeds map[trade.OwnerID]struct{}) Result {
	start := e.now()
	if len(seeds) == 0 {
		return Result{}
	}

	seedList := make([]trade.OwnerID, 0, len(seeds))
	for s := range seeds {
		seedList = append(seedList, s)
	}
	sort.Slice(seedList, func(i, j int) bool { return seedList[i] < seedList[j] })

	reach := reachableFromSeeds(state.Graph, seedList)
	sccs := stronglyConnectedComponents(state.Graph, reach)

	// Only SCCs actually containing a seed are enumerated (spec.md 4.4
	// step 2), in owner-id lexicographic order of their smallest member
	// for determinism (step 6).
	type candidate struct {
		least trade.OwnerID
		set   map[trade.OwnerID]struct{}
	}
	var candidates []candidate
	for _, comp := range sccs {
		hasSeed := false
		least := comp[0]
		set := make(map[trade.OwnerID]struct{}, len(comp))
		for _, v := range comp {
			set[v] = struct{}{}
			if v < least {
				least = v
			}
			if _, seeded := seeds[v]; seeded {
				hasSeed = true
			}
		}
		if hasSeed {
			candidates = append(candidates, candidate{least: least, set: set})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].least < candidates[j].least })

	budget := Budget{
		TimeMs: state.Config.EnumerationBudget.TimeMs,
		Nodes:  state.Config.EnumerationBudget.Nodes,
		Cycles: state.Config.EnumerationBudget.Cycles,
	}
	tr := newTracker(budget, start)

	var cycles []trade.Cycle
	now := e.now
	for _, c := range candidates {
		if tr.exhausted {
			break
		}
		enumerateElementaryCycles(state.Graph, c.set, state.Config.MaxCycleLength, tr, now, func(owners []trade.OwnerID) {
			for _, steps := range expandCombos(state, owners, state.Config.MaxItemCombos) {
				if cyc, ok := materialize(state, steps, now()); ok {
					cycles = append(cycles, cyc)
				}
			}
		})
	}

	return Result{
		Cycles:          cycles,
		BudgetExhausted: tr.exhausted,
		VisitedNodes:    tr.visited,
		Elapsed:         e.now().Sub(start),
	}
}

// materialize builds a trade.Cycle from concrete steps, applying the
// emission-time discard policies from spec.md 4.4's edge-case list: any
// item no longer held by its expected sender, or any participant having
// rejected another participant or the cycle's signature, drops the cycle.
func materialize(state *tenant.State, steps []trade.CycleStep, now time.Time) (trade.Cycle, bool) {
	for _, step := range steps {
		for _, it := range step.Items {
			owner, ok := state.OwnerOf(it.ID)
			if !ok || owner != step.From {
				return trade.Cycle{}, false
			}
		}
	}
	participants := make([]trade.OwnerID, len(steps))
	for i, step := range steps {
		participants[i] = step.From
	}
	for i, subject := range participants {
		for j, other := range participants {
			if i == j {
				continue
			}
			if state.HasRejectedOwner(subject, other) {
				return trade.Cycle{}, false
			}
		}
	}

	sig := trade.ComputeSignature(steps)
	for _, subject := range participants {
		if state.HasRejectedCycle(subject, sig) {
			return trade.Cycle{}, false
		}
	}

	collectionTrade := false
	for _, step := range steps {
		if step.CollectionTrade {
			collectionTrade = true
			break
		}
	}

	return trade.Cycle{
		Signature:       sig,
		Steps:           steps,
		CollectionTrade: collectionTrade,
		Status:          trade.StatusActive,
		DiscoveredAt:    now,
		LastSeen:        now,
	}, true
}

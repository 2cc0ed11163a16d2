package cycleengine

import (
	"sort"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/tenant"
)

// itemChoice is one candidate item satisfying a single cycle step, ranked
// for the greedy value-hint selection spec.md 4.4 step 3 asks for.
type itemChoice struct {
	item           trade.Item
	collectionOnly bool
}

func valueOf(it trade.Item) float64 {
	if it.ValueHint != nil {
		return *it.ValueHint
	}
	return 1.0 // missing hints are treated as neutral, matching CycleScorer
}

// stepOptions lists every live item from currently owns that to wants
// (direct or collection-only), sorted by descending value hint then item id.
func stepOptions(state *tenant.State, from, to trade.OwnerID) []itemChoice {
	var items []trade.ItemID
	for _, n := range state.Graph.OutNeighbors(from) {
		if n.To == to {
			items = n.Items
			break
		}
	}
	out := make([]itemChoice, 0, len(items))
	for _, id := range items {
		owner, ok := state.OwnerOf(id)
		if !ok || owner != from {
			continue
		}
		it, ok := state.Item(id)
		if !ok {
			continue
		}
		direct := state.WantsDirect(to, id)
		collectionOnly := false
		if !direct {
			if !state.WantsViaCollection(to, id) {
				continue
			}
			collectionOnly = true
		}
		out = append(out, itemChoice{item: it, collectionOnly: collectionOnly})
	}
	sort.Slice(out, func(i, j int) bool {
		vi, vj := valueOf(out[i].item), valueOf(out[j].item)
		if vi != vj {
			return vi > vj
		}
		return out[i].item.ID < out[j].item.ID
	})
	return out
}

// expandCombos multiplies out item choices for one simple owner cycle into
// concrete CycleSteps, bounded by maxCombos (spec.md 4.4 step 3). The first
// combo is the all-greedy best; further combos vary exactly one step away
// from it, ranked by the substituted item's value hint, highest first, so
// the bound never
// triggers a full cartesian blow-up. Returns nil if any step has no live
// candidate (an edge the DFS saw has since gone stale).
func expandCombos(state *tenant.State, owners []trade.OwnerID, maxCombos int) [][]trade.CycleStep {
	n := len(owners)
	options := make([][]itemChoice, n)
	for i, from := range owners {
		to := owners[(i+1)%n]
		opts := stepOptions(state, from, to)
		if len(opts) == 0 {
			return nil
		}
		options[i] = opts
	}

	type substitution struct {
		step, alt int
		value     float64
	}
	var subs []substitution
	for i, opts := range options {
		for alt := 1; alt < len(opts); alt++ {
			subs = append(subs, substitution{step: i, alt: alt, value: valueOf(opts[alt].item)})
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].value > subs[j].value })

	buildCombo := func(picks []int) []trade.CycleStep {
		steps := make([]trade.CycleStep, n)
		for i, from := range owners {
			to := owners[(i+1)%n]
			choice := options[i][picks[i]]
			steps[i] = trade.CycleStep{
				From:            from,
				To:              to,
				Items:           []trade.Item{choice.item},
				CollectionTrade: choice.collectionOnly,
			}
		}
		return steps
	}

	best := make([]int, n)
	combos := [][]trade.CycleStep{buildCombo(best)}
	for _, sub := range subs {
		if len(combos) >= maxCombos {
			break
		}
		picks := make([]int, n)
		copy(picks, best)
		picks[sub.step] = sub.alt
		combos = append(combos, buildCombo(picks))
	}
	return combos
}

package cycleengine

import (
	"time"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/graphindex"
)

// johnsonState is one running pass of the blocked-DFS cycle search rooted at
// a single vertex within a shrinking vertex set, per spec.md 4.4 step 2's
// "standard B-list discipline."
type johnsonState struct {
	graph     *graphindex.Index
	component map[trade.OwnerID]struct{}
	root      trade.OwnerID
	maxLen    int
	tracker   *tracker
	now       func() time.Time

	blocked  map[trade.OwnerID]bool
	blockMap map[trade.OwnerID]map[trade.OwnerID]struct{}
	stack    []trade.OwnerID
	stopped  bool

	emit func([]trade.OwnerID)
}

func (js *johnsonState) neighborsInComponent(v trade.OwnerID) []trade.OwnerID {
	var out []trade.OwnerID
	for _, n := range js.graph.OutNeighbors(v) {
		if _, ok := js.component[n.To]; ok {
			out = append(out, n.To)
		}
	}
	return out
}

func (js *johnsonState) unblock(v trade.OwnerID) {
	js.blocked[v] = false
	for w := range js.blockMap[v] {
		delete(js.blockMap[v], w)
		if js.blocked[w] {
			js.unblock(w)
		}
	}
}

func (js *johnsonState) addToBlockMap(w, v trade.OwnerID) {
	if js.blockMap[w] == nil {
		js.blockMap[w] = make(map[trade.OwnerID]struct{})
	}
	js.blockMap[w][v] = struct{}{}
}

// circuit searches for cycles through js.root starting at v, returning true
// if at least one cycle was found below v on this branch.
func (js *johnsonState) circuit(v trade.OwnerID) bool {
	if js.stopped {
		return false
	}
	found := false
	js.stack = append(js.stack, v)
	js.blocked[v] = true

	if js.tracker.touchNode(js.now()) {
		js.stopped = true
	}

	if !js.stopped {
		neighbors := js.neighborsInComponent(v)
		atLengthBound := len(js.stack) >= js.maxLen
		for _, w := range neighbors {
			if w == js.root {
				cycle := make([]trade.OwnerID, len(js.stack))
				copy(cycle, js.stack)
				js.emit(cycle)
				found = true
				if js.tracker.touchCycle() {
					js.stopped = true
				}
			} else if !atLengthBound && !js.blocked[w] {
				if js.circuit(w) {
					found = true
				}
			}
			if js.stopped {
				break
			}
		}
	}

	if found {
		js.unblock(v)
	} else {
		for _, w := range js.neighborsInComponent(v) {
			js.addToBlockMap(w, v)
		}
	}
	js.stack = js.stack[:len(js.stack)-1]
	if js.tracker.checkpoint(js.now()) {
		js.stopped = true
	}
	return found
}

// leastVertexComponent picks, among a set of non-trivial SCCs, the one
// containing the lexicographically smallest vertex (spec.md 4.4 step 6's
// "start-vertex order is owner-id lexicographic"), and returns that vertex
// plus its component as a set.
func leastVertexComponent(sccs [][]trade.OwnerID) (trade.OwnerID, map[trade.OwnerID]struct{}, bool) {
	var least trade.OwnerID
	var leastComponent []trade.OwnerID
	have := false
	for _, comp := range sccs {
		for _, v := range comp {
			if !have || v < least {
				least = v
				leastComponent = comp
				have = true
			}
		}
	}
	if !have {
		return "", nil, false
	}
	set := make(map[trade.OwnerID]struct{}, len(leastComponent))
	for _, v := range leastComponent {
		set[v] = struct{}{}
	}
	return least, set, true
}

// enumerateElementaryCycles runs classical Johnson cycle enumeration over
// the induced subgraph on vertices: repeatedly take the SCC containing the
// smallest remaining vertex, search for cycles rooted at it, then remove
// that vertex and recompute SCCs of the remainder, per spec.md 4.4 steps
// 1-2 and 6. emit is called once per discovered simple cycle (as an owner
// sequence, root-first); stops early once the budget tracker trips.
func enumerateElementaryCycles(g *graphindex.Index, vertices map[trade.OwnerID]struct{}, maxLen int, tr *tracker, now func() time.Time, emit func([]trade.OwnerID)) {
	remaining := make(map[trade.OwnerID]struct{}, len(vertices))
	for v := range vertices {
		remaining[v] = struct{}{}
	}

	for len(remaining) > 0 {
		if tr.exhausted {
			return
		}
		sccs := stronglyConnectedComponents(g, remaining)
		root, component, ok := leastVertexComponent(sccs)
		if !ok {
			return
		}
		js := &johnsonState{
			graph:     g,
			component: component,
			root:      root,
			maxLen:    maxLen,
			tracker:   tr,
			now:       now,
			blocked:   make(map[trade.OwnerID]bool),
			blockMap:  make(map[trade.OwnerID]map[trade.OwnerID]struct{}),
			emit:      emit,
		}
		js.circuit(root)
		delete(remaining, root)
		if js.stopped {
			return
		}
	}
}

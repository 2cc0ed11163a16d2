package cycleengine

import (
	"sort"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/graphindex"
)

// reachableFromSeeds returns every owner reachable from seeds following
// edges in either direction (spec.md 4.4 step 1: "the subgraph reachable
// from S (both directions)").
func reachableFromSeeds(g *graphindex.Index, seeds []trade.OwnerID) map[trade.OwnerID]struct{} {
	visited := make(map[trade.OwnerID]struct{})
	queue := make([]trade.OwnerID, 0, len(seeds))
	for _, s := range seeds {
		if _, ok := visited[s]; !ok {
			visited[s] = struct{}{}
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, n := range g.OutNeighbors(u) {
			if _, ok := visited[n.To]; !ok {
				visited[n.To] = struct{}{}
				queue = append(queue, n.To)
			}
		}
		for _, p := range g.InNeighbors(u) {
			if _, ok := visited[p]; !ok {
				visited[p] = struct{}{}
				queue = append(queue, p)
			}
		}
	}
	return visited
}

// tarjan holds the working state of one Tarjan lowlink pass, restricted to
// a fixed vertex set (spec.md 4.4 step 1: "A cycle cannot cross SCCs").
type tarjan struct {
	graph     *graphindex.Index
	vertices  map[trade.OwnerID]struct{}
	index     map[trade.OwnerID]int
	lowlink   map[trade.OwnerID]int
	onStack   map[trade.OwnerID]bool
	stack     []trade.OwnerID
	next      int
	sccs      [][]trade.OwnerID
}

// stronglyConnectedComponents computes the SCCs of the subgraph induced by
// vertices, discarding singletons (no self-loops are possible here, so a
// singleton SCC can never be a cycle). Returned components are in
// discovery order; callers sort owners within a component as needed.
func stronglyConnectedComponents(g *graphindex.Index, vertices map[trade.OwnerID]struct{}) [][]trade.OwnerID {
	t := &tarjan{
		graph:    g,
		vertices: vertices,
		index:    make(map[trade.OwnerID]int),
		lowlink:  make(map[trade.OwnerID]int),
		onStack:  make(map[trade.OwnerID]bool),
	}
	// Deterministic traversal order, matching spec.md 4.4 step 6's
	// "start-vertex order is owner-id lexicographic."
	ordered := make([]trade.OwnerID, 0, len(vertices))
	for v := range vertices {
		ordered = append(ordered, v)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	for _, v := range ordered {
		if _, seen := t.index[v]; !seen {
			t.strongConnect(v)
		}
	}
	out := make([][]trade.OwnerID, 0, len(t.sccs))
	for _, c := range t.sccs {
		if len(c) >= 2 {
			out = append(out, c)
		}
	}
	return out
}

func (t *tarjan) strongConnect(v trade.OwnerID) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, n := range t.graph.OutNeighbors(v) {
		w := n.To
		if _, inSet := t.vertices[w]; !inSet {
			continue
		}
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var component []trade.OwnerID
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, component)
	}
}

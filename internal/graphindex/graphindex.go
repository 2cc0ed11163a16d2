// Package graphindex maintains the derived directed multigraph that backs
// cycle discovery: an edge u->v exists iff owner u holds an item wanted by
// owner v, either directly or via a collection want. Grounded on the
// mutex-guarded adjacency/event-map shape of a behavioral spend graph
// (other_examples' SpendGraph), adapted here from bilateral volume
// tracking to ownership/want edges.
package graphindex

import (
	"sort"
	"sync"

	"github.com/barterloop/matchingengine/domain/trade"
)

// Index is the per-tenant GraphIndex (spec.md 4.3). All mutation happens
// through the patch API, called only by the owning tenant's coordinator.
type Index struct {
	mu sync.RWMutex

	// outEdges[u][v][item] holds every item owned by u that wants wanter v
	// could trade for; this is the adjacency + parallel-edge structure.
	outEdges map[trade.OwnerID]map[trade.OwnerID]map[trade.ItemID]struct{}
	// inEdges[v] is the set of owners u with at least one edge u->v; kept
	// for O(1) predecessor existence checks and fast edge removal.
	inEdges map[trade.OwnerID]map[trade.OwnerID]struct{}
	// itemToWanters[item] is the set of owners who want that item, directly.
	itemToWanters map[trade.ItemID]map[trade.OwnerID]struct{}
	// suppressed[v][u] records that v has rejected u; all u->v edges are
	// hidden while the suppression holds.
	suppressed map[trade.OwnerID]map[trade.OwnerID]struct{}
}

// New builds an empty Index.
func New() *Index {
	return &Index{
		outEdges:      make(map[trade.OwnerID]map[trade.OwnerID]map[trade.ItemID]struct{}),
		inEdges:       make(map[trade.OwnerID]map[trade.OwnerID]struct{}),
		itemToWanters: make(map[trade.ItemID]map[trade.OwnerID]struct{}),
		suppressed:    make(map[trade.OwnerID]map[trade.OwnerID]struct{}),
	}
}

func (g *Index) isSuppressed(u, v trade.OwnerID) bool {
	if byV, ok := g.suppressed[v]; ok {
		_, suppressed := byV[u]
		return suppressed
	}
	return false
}

func (g *Index) addEdge(u, v trade.OwnerID, item trade.ItemID, seeds map[trade.OwnerID]struct{}) {
	if u == v || g.isSuppressed(u, v) {
		return
	}
	if g.outEdges[u] == nil {
		g.outEdges[u] = make(map[trade.OwnerID]map[trade.ItemID]struct{})
	}
	if g.outEdges[u][v] == nil {
		g.outEdges[u][v] = make(map[trade.ItemID]struct{})
	}
	if _, exists := g.outEdges[u][v][item]; exists {
		return
	}
	g.outEdges[u][v][item] = struct{}{}

	if g.inEdges[v] == nil {
		g.inEdges[v] = make(map[trade.OwnerID]struct{})
	}
	g.inEdges[v][u] = struct{}{}

	seeds[u] = struct{}{}
	seeds[v] = struct{}{}
}

func (g *Index) removeEdge(u, v trade.OwnerID, item trade.ItemID, seeds map[trade.OwnerID]struct{}) {
	byV, ok := g.outEdges[u][v]
	if !ok {
		return
	}
	if _, exists := byV[item]; !exists {
		return
	}
	delete(byV, item)
	seeds[u] = struct{}{}
	seeds[v] = struct{}{}
	if len(byV) == 0 {
		delete(g.outEdges[u], v)
		if len(g.outEdges[u]) == 0 {
			delete(g.outEdges, u)
		}
		if ins, ok := g.inEdges[v]; ok {
			delete(ins, u)
			if len(ins) == 0 {
				delete(g.inEdges, v)
			}
		}
	}
}

// ItemOwnerView is the minimal ownership/want view GraphIndex needs to
// (re)derive edges for a single item; supplied by TenantState so the index
// never reaches back into it.
type ItemOwnerView struct {
	Owner             trade.OwnerID
	DirectWanters     []trade.OwnerID
	CollectionWanters []trade.OwnerID // owners who want item's collection (excluding Owner)
}

// AddItemEdges (re)computes every edge justified by item being owned by
// view.Owner, against its current direct and collection wanters. Returns the
// seed set of owners whose neighborhood changed.
func (g *Index) AddItemEdges(item trade.ItemID, view ItemOwnerView) map[trade.OwnerID]struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	seeds := make(map[trade.OwnerID]struct{})
	for _, w := range view.DirectWanters {
		g.addEdge(view.Owner, w, item, seeds)
	}
	for _, w := range view.CollectionWanters {
		g.addEdge(view.Owner, w, item, seeds)
	}
	return seeds
}

// RemoveItemEdges deletes every edge justified by item, regardless of which
// owner held it (the item may have just changed hands or been delisted).
// wanters is every owner who could have wanted it (direct or collection).
func (g *Index) RemoveItemEdges(item trade.ItemID, formerOwner trade.OwnerID, wanters []trade.OwnerID) map[trade.OwnerID]struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	seeds := make(map[trade.OwnerID]struct{})
	for _, w := range wanters {
		g.removeEdge(formerOwner, w, item, seeds)
	}
	return seeds
}

// AddDirectWant records that owner wants item, wiring an edge from item's
// current owner (if any, and if not itself) to owner.
func (g *Index) AddDirectWant(owner trade.OwnerID, item trade.ItemID, currentOwner trade.OwnerID, hasOwner bool) map[trade.OwnerID]struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	seeds := make(map[trade.OwnerID]struct{})
	if g.itemToWanters[item] == nil {
		g.itemToWanters[item] = make(map[trade.OwnerID]struct{})
	}
	g.itemToWanters[item][owner] = struct{}{}
	if hasOwner {
		g.addEdge(currentOwner, owner, item, seeds)
	}
	return seeds
}

// RemoveDirectWant undoes AddDirectWant.
func (g *Index) RemoveDirectWant(owner trade.OwnerID, item trade.ItemID, currentOwner trade.OwnerID, hasOwner bool) map[trade.OwnerID]struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	seeds := make(map[trade.OwnerID]struct{})
	if byItem, ok := g.itemToWanters[item]; ok {
		delete(byItem, owner)
		if len(byItem) == 0 {
			delete(g.itemToWanters, item)
		}
	}
	if hasOwner {
		g.removeEdge(currentOwner, owner, item, seeds)
	}
	return seeds
}

// AddCollectionWant wires edges from every current owner of a member item
// (other than owner itself) to owner, for every item currently in the
// collection.
func (g *Index) AddCollectionWant(owner trade.OwnerID, members map[trade.ItemID]trade.OwnerID) map[trade.OwnerID]struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	seeds := make(map[trade.OwnerID]struct{})
	for item, ownerOfItem := range members {
		if ownerOfItem == owner {
			continue
		}
		g.addEdge(ownerOfItem, owner, item, seeds)
	}
	return seeds
}

// RemoveCollectionWant tears down the edges AddCollectionWant installed.
func (g *Index) RemoveCollectionWant(owner trade.OwnerID, members map[trade.ItemID]trade.OwnerID) map[trade.OwnerID]struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	seeds := make(map[trade.OwnerID]struct{})
	for item, ownerOfItem := range members {
		if ownerOfItem == owner {
			continue
		}
		g.removeEdge(ownerOfItem, owner, item, seeds)
	}
	return seeds
}

// Suppress hides every u->v edge because v has rejected u.
func (g *Index) Suppress(u, v trade.OwnerID) map[trade.OwnerID]struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.suppressed[v] == nil {
		g.suppressed[v] = make(map[trade.OwnerID]struct{})
	}
	g.suppressed[v][u] = struct{}{}

	seeds := make(map[trade.OwnerID]struct{})
	if byV, ok := g.outEdges[u][v]; ok && len(byV) > 0 {
		seeds[u] = struct{}{}
		seeds[v] = struct{}{}
		delete(g.outEdges[u], v)
		if len(g.outEdges[u]) == 0 {
			delete(g.outEdges, u)
		}
		if ins, ok := g.inEdges[v]; ok {
			delete(ins, u)
			if len(ins) == 0 {
				delete(g.inEdges, v)
			}
		}
	}
	return seeds
}

// Unsuppress reverses Suppress. Re-adding the concrete edges, if any are
// still justified, is the caller's responsibility (it must recompute them
// from current ownership/want state, same as any other want-add).
func (g *Index) Unsuppress(u, v trade.OwnerID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if byV, ok := g.suppressed[v]; ok {
		delete(byV, u)
		if len(byV) == 0 {
			delete(g.suppressed, v)
		}
	}
}

// Neighbor is one (v, items) out-edge of an owner u, as listed by
// OutNeighbors for CycleEngine's deterministic DFS.
type Neighbor struct {
	To    trade.OwnerID
	Items []trade.ItemID
}

// OutNeighbors returns u's out-neighbors sorted by neighbor id, each with
// its items sorted by item id, per spec.md 4.4.6's determinism rule.
func (g *Index) OutNeighbors(u trade.OwnerID) []Neighbor {
	g.mu.RLock()
	defer g.mu.RUnlock()
	byV := g.outEdges[u]
	neighbors := make([]Neighbor, 0, len(byV))
	for v, items := range byV {
		itemIDs := make([]trade.ItemID, 0, len(items))
		for item := range items {
			itemIDs = append(itemIDs, item)
		}
		sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })
		neighbors = append(neighbors, Neighbor{To: v, Items: itemIDs})
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].To < neighbors[j].To })
	return neighbors
}

// InNeighbors returns the sorted, deduplicated set of owners with an edge
// into v, used by CycleEngine to compute the both-directions reachable
// subgraph a seed set induces (spec.md 4.4 step 1).
func (g *Index) InNeighbors(v trade.OwnerID) []trade.OwnerID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	us := g.inEdges[v]
	out := make([]trade.OwnerID, 0, len(us))
	for u := range us {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Vertices returns every owner id with at least one edge endpoint, sorted.
func (g *Index) Vertices() []trade.OwnerID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[trade.OwnerID]struct{})
	for u, outs := range g.outEdges {
		seen[u] = struct{}{}
		for v := range outs {
			seen[v] = struct{}{}
		}
	}
	vertices := make([]trade.OwnerID, 0, len(seen))
	for v := range seen {
		vertices = append(vertices, v)
	}
	sort.Slice(vertices, func(i, j int) bool { return vertices[i] < vertices[j] })
	return vertices
}

// EdgeCount returns the total number of (u,v,item) edges, for diagnostics.
func (g *Index) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, outs := range g.outEdges {
		for _, items := range outs {
			n += len(items)
		}
	}
	return n
}

// Snapshot returns a read-only {nodes, edges} view for IntegrityChecker's
// graph export (spec.md 4.8).
type EdgeView struct {
	From trade.OwnerID
	To   trade.OwnerID
	Item trade.ItemID
}

func (g *Index) Snapshot() (nodes []trade.OwnerID, edges []EdgeView) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[trade.OwnerID]struct{})
	for u, outs := range g.outEdges {
		seen[u] = struct{}{}
		for v, items := range outs {
			seen[v] = struct{}{}
			for item := range items {
				edges = append(edges, EdgeView{From: u, To: v, Item: item})
			}
		}
	}
	for v := range seen {
		nodes = append(nodes, v)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].Item < edges[j].Item
	})
	return nodes, edges
}

package hnsw

import "sort"

// Insert adds vec under external label and returns the internal id
// assigned to it. Internal ids are dense, zero-based, assigned in
// insertion order, and never reused for the lifetime of the graph.
//
// Insert implements the construction protocol of spec.md §4.2: draw a
// random assigned layer, zoom in greedily from the top layer down to just
// above the assigned layer to find a good local entry point, then at each
// layer from the lower of the assigned layer and the previous top layer
// down to 0, run a bounded best-first search
// for candidate neighbours, link the M closest (SIMPLE selection), and
// prune any neighbour whose degree now exceeds its layer's bound.
func (g *Graph) Insert(vec Vector, label uint64) (int, error) {
	if len(vec) != g.dim {
		return 0, ErrDimensionMismatch
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	assigned := g.randomLayer()

	if g.entryPoint == noEntryPoint {
		id := g.appendNode(vec, label, assigned)
		g.entryPoint = id
		g.topLayer = assigned
		return id, nil
	}

	oldTop := g.topLayer
	ep := g.entryPoint

	for layer := oldTop; layer > assigned; layer-- {
		w := g.searchLayer(vec, ep, 1, layer)
		ep = w.Min().id
	}

	id := g.appendNode(vec, label, assigned)

	for layer := min(assigned, oldTop); layer >= 0; layer-- {
		w := g.searchLayer(vec, ep, g.efConstruction, layer)
		candidates := w.Slice()
		if len(candidates) > g.m {
			candidates = candidates[:g.m]
		}

		for _, cand := range candidates {
			if !g.nodes[id].hasFriend(layer, cand.id) {
				g.nodes[id].addFriend(layer, cand.id)
			}
			if !g.nodes[cand.id].hasFriend(layer, id) {
				g.nodes[cand.id].addFriend(layer, id)
			}
			g.pruneAt(cand.id, layer)
		}

		if len(candidates) > 0 {
			ep = candidates[0].id
		}
	}

	if assigned > oldTop {
		g.topLayer = assigned
		g.entryPoint = id
	}

	return id, nil
}

// appendNode allocates the new node's storage, including an empty
// adjacency slice for every layer 0..assigned, and returns its internal
// id.
func (g *Graph) appendNode(vec Vector, label uint64, assigned int) int {
	cp := make(Vector, len(vec))
	copy(cp, vec)

	id := len(g.nodes)
	g.nodes = append(g.nodes, node{
		vec:     cp,
		label:   label,
		friends: make([][]int, assigned+1),
	})
	return id
}

// randomLayer draws the new node's highest layer: starting at 0, keep
// climbing while a fresh uniform draw falls under mL, capped at
// maxAssignedLayer. Each further layer is reached with probability
// mL = 1/ln(M), so layer probability decays geometrically with ratio mL.
func (g *Graph) randomLayer() int {
	l := 0
	for l < maxAssignedLayer && g.rng.Float64() < g.mL {
		l++
	}
	return l
}

// pruneAt restores id's degree bound at layer if the most recent link
// pushed it over M_max(layer): recompute id's distance to each of its
// current friends, keep the closest M_max(layer), and drop the rest. Each
// dropped friend also loses its reverse edge to id, so every edge stays
// bidirectional (invariant 3) once the insert completes.
func (g *Graph) pruneAt(id, layer int) {
	mMax := g.mMaxFor(layer)
	friends := g.nodes[id].friends[layer]
	if len(friends) <= mMax {
		return
	}

	type scored struct {
		id   int
		dist float32
	}
	scoredFriends := make([]scored, len(friends))
	for i, f := range friends {
		scoredFriends[i] = scored{id: f, dist: g.distance(g.nodes[id].vec, g.nodes[f].vec)}
	}
	sort.Slice(scoredFriends, func(i, j int) bool {
		if scoredFriends[i].dist != scoredFriends[j].dist {
			return scoredFriends[i].dist < scoredFriends[j].dist
		}
		return scoredFriends[i].id < scoredFriends[j].id
	})

	kept := make([]int, mMax)
	for i := 0; i < mMax; i++ {
		kept[i] = scoredFriends[i].id
	}
	g.nodes[id].friends[layer] = kept

	for _, dropped := range scoredFriends[mMax:] {
		g.nodes[dropped.id].removeFriend(layer, id)
	}
}

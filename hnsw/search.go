package hnsw

import "github.com/TFMV/vectordb/hnsw/heap"

// candidate is a (distance, internal id) pair used as the element type for
// both the candidate min-heap and the result max-heap in searchLayer.
// Distance ties are broken by smaller internal id, so a fixed insertion
// order and fixed random-layer sequence make every search deterministic
// (P6) even when several nodes share a distance to the query.
type candidate struct {
	id   int
	dist float32
}

func (c candidate) Less(o candidate) bool {
	if c.dist != o.dist {
		return c.dist < o.dist
	}
	return c.id < o.id
}

// Result is one entry of a SearchKnn response: the external label supplied
// at Insert time, and the raw (non-square-rooted, for the default metric)
// distance to the query.
type Result struct {
	Label uint64
	Dist  float32
}

// searchLayer implements the greedy best-first search described in
// spec.md §4.3: starting from ep, expand the closest unvisited candidate
// until no remaining candidate can improve the result set, and return up
// to ef closest nodes found at layer. ef=1 degenerates to the single-
// nearest-neighbour greedy walk used by zoom-in descent and insertion.
func (g *Graph) searchLayer(q Vector, ep int, ef int, layer int) *heap.Heap[candidate] {
	visited := make(map[int]bool, ef*4)

	d0 := g.distance(q, g.nodes[ep].vec)
	start := candidate{id: ep, dist: d0}

	c := &heap.Heap[candidate]{}
	c.Init(make([]candidate, 0, ef))
	c.Push(start)

	w := &heap.Heap[candidate]{}
	w.Init(make([]candidate, 0, ef))
	w.Push(start)

	visited[ep] = true

	for c.Len() > 0 {
		cur := c.Pop()
		dFar := w.Max().dist

		if cur.dist > dFar {
			break
		}

		for _, e := range g.nodes[cur.id].friendsAt(layer) {
			if visited[e] {
				continue
			}
			visited[e] = true

			de := g.distance(q, g.nodes[e].vec)
			if w.Len() < ef || de < dFar {
				cand := candidate{id: e, dist: de}
				w.Push(cand)
				c.Push(cand)
				if w.Len() > ef {
					w.PopLast()
				}
			}
		}
	}

	return w
}

// SearchKnn returns the k nearest neighbours of q, sorted by ascending
// distance. If the graph is empty, it returns an empty result rather than
// an error. efSearch is the dynamic candidate-list width used at layer 0;
// max(efSearch, k) candidates are considered there regardless of what the
// caller passes.
func (g *Graph) SearchKnn(q Vector, k, efSearch int) ([]Result, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(q) != g.dim {
		return nil, ErrDimensionMismatch
	}
	if len(g.nodes) == 0 {
		return nil, nil
	}
	if k <= 0 {
		return nil, nil
	}

	ep := g.entryPoint
	for layer := g.topLayer; layer >= 1; layer-- {
		w := g.searchLayer(q, ep, 1, layer)
		ep = w.Min().id
	}

	ef := efSearch
	if k > ef {
		ef = k
	}
	w := g.searchLayer(q, ep, ef, 0)

	all := w.Slice()
	if len(all) > k {
		all = all[:k]
	}

	out := make([]Result, len(all))
	for i, cand := range all {
		out[i] = Result{
			Label: g.nodes[cand.id].label,
			Dist:  cand.dist,
		}
	}
	return out, nil
}

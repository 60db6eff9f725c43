package hnsw

// Analyzer exposes read-only introspection over a Graph's layer structure,
// for tests and visualizers — the array-graph counterpart of NeighborsOf.
type Analyzer struct {
	Graph *Graph
}

// Height returns the number of layers currently in use (topLayer + 1).
func (a *Analyzer) Height() int {
	return a.Graph.TopLayer() + 1
}

// Topography returns the number of nodes present at each layer, indexed by
// layer number.
func (a *Analyzer) Topography() []int {
	g := a.Graph
	g.mu.RLock()
	defer g.mu.RUnlock()

	counts := make([]int, g.topLayer+1)
	for i := range g.nodes {
		top := g.nodes[i].layer()
		for l := 0; l <= top; l++ {
			counts[l]++
		}
	}
	return counts
}

// Connectivity returns the mean out-degree of nodes present at each layer,
// indexed by layer number.
func (a *Analyzer) Connectivity() []float64 {
	g := a.Graph
	g.mu.RLock()
	defer g.mu.RUnlock()

	sums := make([]float64, g.topLayer+1)
	counts := make([]int, g.topLayer+1)
	for i := range g.nodes {
		n := &g.nodes[i]
		for l := 0; l <= n.layer(); l++ {
			sums[l] += float64(len(n.friends[l]))
			counts[l]++
		}
	}

	out := make([]float64, len(sums))
	for l := range sums {
		if counts[l] > 0 {
			out[l] = sums[l] / float64(counts[l])
		}
	}
	return out
}

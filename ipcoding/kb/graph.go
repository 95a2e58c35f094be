package kb

import "sort"

// BundlingGraph is the directed keep -> drop graph over every non-modifiable bundling relation.
type BundlingGraph struct {
	adjacency map[string][]string
	edges     map[[2]string]Edge
}

// NewGraph builds a graph from edges. Parallel edges collapse to the first one seen and
// adjacency lists are sorted.
func NewGraph(edges []Edge) *BundlingGraph {
	g := &BundlingGraph{
		adjacency: make(map[string][]string),
		edges:     make(map[[2]string]Edge),
	}
	for _, e := range edges {
		key := [2]string{e.Keep, e.Drop}
		if _, ok := g.edges[key]; ok {
			continue
		}
		g.edges[key] = e
		g.adjacency[e.Keep] = append(g.adjacency[e.Keep], e.Drop)
		if _, ok := g.adjacency[e.Drop]; !ok {
			g.adjacency[e.Drop] = nil
		}
	}
	for n := range g.adjacency {
		sort.Strings(g.adjacency[n])
	}
	return g
}

// BuildGraph combines the static edges with the knowledge base's non-modifiable NCCI pairs and
// its bundling rules.
func BuildGraph(kb *KnowledgeBase, static []Edge) *BundlingGraph {
	edges := append([]Edge(nil), static...)
	edges = append(edges, kb.NCCIEdges()...)
	edges = append(edges, kb.BundlingEdges()...)
	return NewGraph(edges)
}

// NCCIEdges returns primary -> secondary edges for the pairs that do not allow a modifier.
func (kb *KnowledgeBase) NCCIEdges() []Edge {
	var edges []Edge
	for _, p := range kb.pairs {
		if p.ModifierAllowed {
			continue
		}
		edges = append(edges, Edge{Keep: p.Primary, Drop: p.Secondary, Source: "ncci_pairs", Reason: p.Reason})
	}
	return edges
}

// Nodes returns every code that appears in an edge, sorted.
func (g *BundlingGraph) Nodes() []string {
	nodes := make([]string, 0, len(g.adjacency))
	for n := range g.adjacency {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

// Successors returns the codes node bundles, sorted.
func (g *BundlingGraph) Successors(node string) []string {
	return g.adjacency[node]
}

// Edge returns the edge keep -> drop if the graph has one.
func (g *BundlingGraph) Edge(keep, drop string) (Edge, bool) {
	e, ok := g.edges[[2]string{keep, drop}]
	return e, ok
}

// Len is the number of distinct edges.
func (g *BundlingGraph) Len() int {
	return len(g.edges)
}

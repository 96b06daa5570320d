package graph

// NodeID identifies a vertex
type NodeID int

// Graph represents an undirected, unweighted graph as an adjacency list.
// Neighbor order follows edge insertion order, which keeps traversal
// results reproducible for identical input. A Graph is immutable once
// Build returns and may be read from any number of goroutines.
type Graph struct {
	adjacency map[NodeID][]NodeID
	edges     int
}

// Edge is an undirected pair of vertices
type Edge struct {
	U, V NodeID
}

// Build creates a graph from the given edges, inserting both directions of every edge
func Build(edges []Edge) *Graph {
	g := &Graph{
		adjacency: make(map[NodeID][]NodeID),
	}
	for _, e := range edges {
		g.adjacency[e.U] = append(g.adjacency[e.U], e.V)
		g.adjacency[e.V] = append(g.adjacency[e.V], e.U)
		g.edges++
	}
	return g
}

// Neighbors returns the neighbors of node in insertion order, or nil if the
// node is unknown. The returned slice is shared and must not be modified.
func (g *Graph) Neighbors(node NodeID) []NodeID {
	if g == nil {
		return nil
	}
	return g.adjacency[node]
}

// HasNode reports whether node appears in at least one edge
func (g *Graph) HasNode(node NodeID) bool {
	if g == nil {
		return false
	}
	_, exists := g.adjacency[node]
	return exists
}

// HasEdge reports whether u and v are adjacent
func (g *Graph) HasEdge(u, v NodeID) bool {
	for _, n := range g.Neighbors(u) {
		if n == v {
			return true
		}
	}
	return false
}

func (g *Graph) NodeCount() int {
	if g == nil {
		return 0
	}
	return len(g.adjacency)
}

// EdgeCount returns the number of edge pairs the graph was built from,
// duplicates included.
func (g *Graph) EdgeCount() int {
	if g == nil {
		return 0
	}
	return g.edges
}

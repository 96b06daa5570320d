package routing

import (
	"pathserver/graph"
)

// Path is an ordered vertex sequence from source (first) to destination
// (last), inclusive. An empty Path means no path was found.
type Path []graph.NodeID

func (p Path) Empty() bool {
	return len(p) == 0
}

// Hops returns the number of edges on the path, or -1 for an empty path
func (p Path) Hops() int {
	return len(p) - 1
}

// Copy creates a deep copy of a path
func (p Path) Copy() Path {
	if p == nil {
		return nil
	}
	nodes := make(Path, len(p))
	copy(nodes, p)
	return nodes
}

// Equal reports whether both paths visit the same nodes in the same order
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

package routing

import (
	"pathserver/graph"
)

// ShortestPath finds a minimum-hop path from source to dest with a
// breadth-first search. Among equal-length paths the one reached first by
// following neighbor insertion order is returned. The result is empty when
// either endpoint is absent from the graph or the two lie in different
// components; when source == dest the result is [source].
func ShortestPath(g *graph.Graph, source, dest graph.NodeID) Path {
	if !g.HasNode(source) || !g.HasNode(dest) {
		return nil
	}

	visited := map[graph.NodeID]bool{source: true}
	predecessors := make(map[graph.NodeID]graph.NodeID)
	queue := []graph.NodeID{source}

	for head := 0; head < len(queue); head++ {
		current := queue[head]
		if current == dest {
			return buildPath(predecessors, source, dest)
		}
		for _, neighbor := range g.Neighbors(current) {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			predecessors[neighbor] = current
			queue = append(queue, neighbor)
		}
	}
	return nil
}

// buildPath walks predecessors back from dest and reverses the result
func buildPath(predecessors map[graph.NodeID]graph.NodeID, source, dest graph.NodeID) Path {
	path := Path{dest}
	for node := dest; node != source; {
		node = predecessors[node]
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

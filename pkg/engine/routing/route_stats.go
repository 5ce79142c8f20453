package routing

import (
	"math"

	da "github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
)

// RouteStats is the shortest path between two nodes with its physical distance (m) and travel time (s).
type RouteStats struct {
	Path       []da.NodeID
	Distance   float64
	TravelTime float64
}

// NoPath is the sentinel returned when no route exists: nil path, NaN distance and time.
func NoPath() RouteStats {
	return RouteStats{
		Path:       nil,
		Distance:   math.NaN(),
		TravelTime: math.NaN(),
	}
}

func (rs RouteStats) Found() bool {
	return rs.Path != nil && !math.IsNaN(rs.Distance) && !math.IsNaN(rs.TravelTime)
}

// ShortestRouteStats computes the shortest orig-dest path by weight, then sums length and travel time
// of the minimum weight parallel edge between every consecutive pair of the path.
// Missing endpoints or unreachable destinations give NoPath, never an error.
func ShortestRouteStats(g *da.Graph, orig, dest da.NodeID, weight WeightKey) RouteStats {
	s, ok := g.GetVertexIndex(orig)
	if !ok {
		return NoPath()
	}
	t, ok := g.GetVertexIndex(dest)
	if !ok {
		return NoPath()
	}
	if weight == "" {
		weight = WeightLength
	}

	path, found := NewDijkstra(g, weight).ShortestPath(s, t)
	if !found {
		return NoPath()
	}
	return PathStats(g, path, weight)
}

// PathStats sums length and travel time along a vertex path.
func PathStats(g *da.Graph, path []da.Index, weight WeightKey) RouteStats {
	stats := RouteStats{Path: make([]da.NodeID, 0, len(path))}
	for i, v := range path {
		stats.Path = append(stats.Path, g.GetVertex(v).GetID())
		if i == 0 {
			continue
		}
		e := BestParallelEdge(g, path[i-1], v, weight)
		if e == nil {
			continue
		}
		if length, ok := e.GetLength(); ok {
			stats.Distance += length
		}
		if tt, ok := e.GetTravelTime(); ok {
			stats.TravelTime += tt
		}
	}
	return stats
}

// BestParallelEdge returns the minimum weight edge from u to v (first one on ties), or nil if there is none.
func BestParallelEdge(g *da.Graph, u, v da.Index, weight WeightKey) *da.Edge {
	var (
		best  *da.Edge
		bestW = math.Inf(1)
	)
	for _, eId := range g.GetParallelEdges(u, v) {
		e := g.GetEdge(eId)
		if w := EdgeWeight(e, weight); w < bestW {
			bestW = w
			best = e
		}
	}
	return best
}

// Package closure derives the restricted road graph of a closure day (the weekly feria).
package closure

import (
	"github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	DefaultBufferM = 700.0
	midpointRatio  = 0.5
)

// Zone is a disk of BufferM meters around Center, evaluated in utm coordinates.
type Zone struct {
	Center  geo.Coordinate
	BufferM float64
}

func NewZone(lat, lon, bufferM float64) Zone {
	return Zone{Center: geo.NewCoordinate(lat, lon), BufferM: bufferM}
}

// Result describes what Restrict did.
type Result struct {
	Zone         Zone
	Projection   geo.UTMZone
	RemovedEdges int
	// Degenerate is set when the closure removed every edge, the edgeless graph is returned as is.
	Degenerate bool
}

// Restrict returns a new graph without the edges whose midpoint lies inside zone, reduced to its
// largest weakly connected component. g is not modified.
func Restrict(g *datastructure.Graph, zone Zone) (*datastructure.Graph, Result) {
	lat, lon := g.Centroid()
	utm := geo.UTMZoneFor(lat, lon)
	proj := utm.Projection()

	center := proj(orb.Point{zone.Center.Lon, zone.Center.Lat})

	toRemove := ClosedEdges(g, center, zone.BufferM, proj)

	res := Result{Zone: zone, Projection: utm, RemovedEdges: len(toRemove)}

	restricted := g.FilterEdges(func(eId datastructure.Index, _ *datastructure.Edge) bool {
		_, closed := toRemove[eId]
		return !closed
	})

	if restricted.NumberOfEdges() == 0 {
		res.Degenerate = true
		return restricted, res
	}
	return restricted.LargestWeaklyConnectedComponent(), res
}

// ClosedEdges returns the ids of the edges whose projected midpoint is within bufferM of center.
func ClosedEdges(g *datastructure.Graph, center orb.Point, bufferM float64,
	proj orb.Projection) map[datastructure.Index]struct{} {
	closed := make(map[datastructure.Index]struct{})
	g.ForEachEdge(func(eId datastructure.Index, e *datastructure.Edge) {
		mid := EdgeMidpoint(g, e, proj)
		if planar.Distance(mid, center) < bufferM {
			closed[eId] = struct{}{}
		}
	})
	return closed
}

// EdgeMidpoint is the point halfway along the projected edge line.
func EdgeMidpoint(g *datastructure.Graph, e *datastructure.Edge, proj orb.Projection) orb.Point {
	line := geo.ProjectLineString(g.EdgeLine(e), proj)
	return geo.InterpolateNormalized(line, midpointRatio)
}

package spatialindex

import (
	"slices"

	da "github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"
)

// NodeIndex is an r-tree over the vertices of a graph, in utm coordinates (meter).
type NodeIndex struct {
	tr     *rtree.RTreeG[da.Index]
	zone   geo.UTMZone
	points []orb.Point
}

// NewNodeIndex indexes every vertex of graph projected to zone.
func NewNodeIndex(graph *da.Graph, zone geo.UTMZone) *NodeIndex {
	var tr rtree.RTreeG[da.Index]
	proj := zone.Projection()
	points := make([]orb.Point, graph.NumberOfVertices())

	graph.ForEachVertex(func(idx da.Index, v *da.Vertex) {
		p := proj(v.Point())
		points[idx] = p
		tr.Insert([2]float64{p.X(), p.Y()}, [2]float64{p.X(), p.Y()}, idx)
	})

	return &NodeIndex{
		tr:     &tr,
		zone:   zone,
		points: points,
	}
}

func (ni *NodeIndex) Zone() geo.UTMZone {
	return ni.zone
}

// ProjectedPoint is the utm position of vertex idx.
func (ni *NodeIndex) ProjectedPoint(idx da.Index) orb.Point {
	return ni.points[idx]
}

func (ni *NodeIndex) Project(c geo.Coordinate) orb.Point {
	return ni.zone.Forward(orb.Point{c.Lon, c.Lat})
}

// SearchWithinRadius returns the vertices whose planar distance to center is at most radius meter,
// sorted by index.
func (ni *NodeIndex) SearchWithinRadius(center orb.Point, radius float64) []da.Index {
	results := make([]da.Index, 0, 16)
	ni.tr.Search([2]float64{center.X() - radius, center.Y() - radius},
		[2]float64{center.X() + radius, center.Y() + radius},
		func(min, max [2]float64, data da.Index) bool {
			if planar.Distance(ni.points[data], center) <= radius {
				results = append(results, data)
			}
			return true
		})
	slices.Sort(results)
	return results
}

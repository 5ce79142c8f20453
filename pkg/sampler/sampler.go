package sampler

import (
	da "github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/geo"
	"github.com/lintang-b-s/navigatorx-eta/pkg/spatialindex"
	"github.com/paulmach/orb"
	"golang.org/x/exp/rand"
)

const (
	DefaultSeed     uint64  = 42
	DefaultMaxNodes         = 150
	DefaultRadiusM  float64 = 1500

	// below this many nodes inside the radius the whole node set is used.
	minRadiusCandidates = 10
)

// Sampler draws reproducible random node subsets. Each call reseeds its own generator,
// so identical inputs always give identical samples.
type Sampler struct {
	seed uint64
}

func New(seed uint64) *Sampler {
	return &Sampler{seed: seed}
}

func (s *Sampler) Seed() uint64 {
	return s.seed
}

// Sample returns at most maxNodes node ids within radiusM meter of center.
// A nil center means the centroid of the graph nodes.
func (s *Sampler) Sample(g *da.Graph, center *geo.Coordinate, maxNodes int, radiusM float64) []da.NodeID {
	n := g.NumberOfVertices()
	if n == 0 || maxNodes <= 0 {
		return []da.NodeID{}
	}

	cLat, cLon := g.Centroid()
	zone := geo.UTMZoneFor(cLat, cLon)
	index := spatialindex.NewNodeIndex(g, zone)

	var centerPoint orb.Point
	if center != nil {
		centerPoint = index.Project(*center)
	} else {
		centerPoint = projectedCentroid(index, n)
	}

	candidates := index.SearchWithinRadius(centerPoint, radiusM)
	if len(candidates) < minRadiusCandidates {
		candidates = make([]da.Index, n)
		for i := range candidates {
			candidates[i] = da.Index(i)
		}
	}

	rng := rand.New(rand.NewSource(s.seed))
	perm := rng.Perm(len(candidates))
	k := min(maxNodes, len(candidates))

	sample := make([]da.NodeID, 0, k)
	for _, p := range perm[:k] {
		sample = append(sample, g.GetVertex(candidates[p]).GetID())
	}
	return sample
}

func projectedCentroid(index *spatialindex.NodeIndex, n int) orb.Point {
	sumX, sumY := 0.0, 0.0
	for i := 0; i < n; i++ {
		p := index.ProjectedPoint(da.Index(i))
		sumX += p.X()
		sumY += p.Y()
	}
	return orb.Point{sumX / float64(n), sumY / float64(n)}
}

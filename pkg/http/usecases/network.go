package usecases

import (
	"sync"

	"github.com/lintang-b-s/navigatorx-eta/pkg/closure"
	da "github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/geo"
	"github.com/lintang-b-s/navigatorx-eta/pkg/spatialindex"
)

// RoadNetwork is the baseline graph and its closure day counterpart, both normalized.
type RoadNetwork struct {
	AreaRef string
	Normal  *da.Graph
	Feria   *da.Graph
	Closure closure.Result

	normalIndex *spatialindex.NodeIndex
	feriaIndex  *spatialindex.NodeIndex
}

func NewRoadNetwork(areaRef string, normal, feria *da.Graph, res closure.Result) *RoadNetwork {
	lat, lon := normal.Centroid()
	zone := geo.UTMZoneFor(lat, lon)
	return &RoadNetwork{
		AreaRef:     areaRef,
		Normal:      normal,
		Feria:       feria,
		Closure:     res,
		normalIndex: spatialindex.NewNodeIndex(normal, zone),
		feriaIndex:  spatialindex.NewNodeIndex(feria, zone),
	}
}

// Regime returns the graph and node index used on a closure day or a regular day.
func (n *RoadNetwork) Regime(closed bool) (*da.Graph, *spatialindex.NodeIndex) {
	if closed {
		return n.Feria, n.feriaIndex
	}
	return n.Normal, n.normalIndex
}

// NetworkStore holds the road network of the last training run.
type NetworkStore struct {
	mu      sync.RWMutex
	network *RoadNetwork
}

func NewNetworkStore() *NetworkStore {
	return &NetworkStore{}
}

func (s *NetworkStore) Set(n *RoadNetwork) {
	s.mu.Lock()
	s.network = n
	s.mu.Unlock()
}

func (s *NetworkStore) Get() (*RoadNetwork, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.network, s.network != nil
}

package osmparser

import (
	"strings"

	"github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-eta/pkg/geo"
	"github.com/lintang-b-s/navigatorx-eta/pkg/util"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

type node struct {
	id    int64
	coord NodeCoord
}

type NodeCoord struct {
	lat float64
	lon float64
}

func NewNodeCoord(lat, lon float64) NodeCoord {
	return NodeCoord{lat, lon}
}

type wayDirection struct {
	oneWay  bool
	forward bool
}

// GraphBuilder turns openstreetmap nodes & ways into a simplified drivable multigraph:
// ways are split only at real intersections and dead ends, interstitial nodes become edge geometry.
type GraphBuilder struct {
	logger      *zap.Logger
	wayNodeMap  map[int64]NodeType
	nodeCoords  map[int64]NodeCoord
	graph       *datastructure.Graph
	skippedWays int
}

func NewGraphBuilder(logger *zap.Logger) *GraphBuilder {
	return &GraphBuilder{
		logger: logger,
	}
}

func (b *GraphBuilder) Build(data *osm.OSM) *datastructure.Graph {
	b.wayNodeMap = make(map[int64]NodeType)
	b.nodeCoords = make(map[int64]NodeCoord, len(data.Nodes))
	b.graph = datastructure.NewGraphWithSize(len(data.Nodes)/4, len(data.Ways)*2)
	b.skippedWays = 0

	for _, n := range data.Nodes {
		b.nodeCoords[int64(n.ID)] = NewNodeCoord(n.Lat, n.Lon)
	}

	ways := make([]*osm.Way, 0, len(data.Ways))
	for _, way := range data.Ways {
		if len(way.Nodes) < 2 || !acceptOsmWay(way) {
			continue
		}
		ways = append(ways, way)
	}

	for _, way := range ways {
		nodes := b.wayNodes(way)
		for i, n := range nodes {
			if _, ok := b.wayNodeMap[n.id]; !ok {
				if i == 0 || i == len(nodes)-1 {
					b.wayNodeMap[n.id] = END_NODE
				} else {
					b.wayNodeMap[n.id] = BETWEEN_NODE
				}
			} else {
				b.wayNodeMap[n.id] = JUNCTION_NODE
			}
		}
	}

	for _, way := range ways {
		b.processWay(way)
	}

	b.logger.Sugar().Infof("number of vertices: %v, number of edges: %v, skipped ways: %v",
		b.graph.NumberOfVertices(), b.graph.NumberOfEdges(), b.skippedWays)
	return b.graph
}

// wayNodes returns the way nodes with known coordinates.
func (b *GraphBuilder) wayNodes(way *osm.Way) []node {
	nodes := make([]node, 0, len(way.Nodes))
	for _, wn := range way.Nodes {
		coord, ok := b.nodeCoords[int64(wn.ID)]
		if !ok {
			continue
		}
		nodes = append(nodes, node{id: int64(wn.ID), coord: coord})
	}
	return nodes
}

func (b *GraphBuilder) processWay(way *osm.Way) {
	nodes := b.wayNodes(way)
	if len(nodes) < 2 {
		b.skippedWays++
		return
	}

	dir := getWayDirection(way)
	maxSpeed := splitMaxSpeed(way.Tags.Find("maxspeed"))

	waySegment := []node{}
	for i, n := range nodes {
		waySegment = append(waySegment, n)
		if i > 0 && b.isRealNode(n.id) {
			b.processSegment(waySegment, int64(way.ID), dir, maxSpeed)
			waySegment = []node{n}
		}
	}
	if len(waySegment) > 1 {
		b.processSegment(waySegment, int64(way.ID), dir, maxSpeed)
	}
}

func (b *GraphBuilder) isRealNode(nodeID int64) bool {
	t := b.wayNodeMap[nodeID]
	return t == JUNCTION_NODE || t == END_NODE
}

func (b *GraphBuilder) processSegment(segment []node, wayID int64, dir wayDirection, maxSpeed []string) {
	if len(segment) == 2 && segment[0].id == segment[1].id {
		return
	} else if len(segment) > 2 && segment[0].id == segment[len(segment)-1].id {
		// loop
		b.addEdge(segment[0:len(segment)-1], wayID, dir, maxSpeed)
		b.addEdge(segment[len(segment)-2:], wayID, dir, maxSpeed)
	} else {
		b.addEdge(segment, wayID, dir, maxSpeed)
	}
}

func (b *GraphBuilder) addEdge(segment []node, wayID int64, dir wayDirection, maxSpeed []string) {
	from := segment[0]
	to := segment[len(segment)-1]
	if from.id == to.id {
		return
	}

	b.graph.AddVertex(datastructure.NodeID(from.id), from.coord.lat, from.coord.lon)
	b.graph.AddVertex(datastructure.NodeID(to.id), to.coord.lat, to.coord.lon)

	distance := 0.0
	points := make(orb.LineString, 0, len(segment))
	for i := 0; i < len(segment); i++ {
		points = append(points, orb.Point{segment[i].coord.lon, segment[i].coord.lat})
		if i > 0 {
			distance += geo.CalculateHaversineDistance(segment[i-1].coord.lat, segment[i-1].coord.lon,
				segment[i].coord.lat, segment[i].coord.lon)
		}
	}
	distanceInMeter := distance * 1000

	var geometry orb.LineString
	if len(points) > 2 {
		geometry = points
	}

	add := func(tail, head node, geometry orb.LineString) {
		e := datastructure.NewEdge(wayID, maxSpeed, geometry)
		e.SetLength(distanceInMeter)
		b.graph.AddEdge(datastructure.NodeID(tail.id), datastructure.NodeID(head.id), e)
	}

	switch {
	case dir.oneWay && dir.forward:
		add(from, to, geometry)
	case dir.oneWay:
		add(to, from, reversed(geometry))
	default:
		add(from, to, geometry)
		add(to, from, reversed(geometry))
	}
}

func reversed(ls orb.LineString) orb.LineString {
	if ls == nil {
		return nil
	}
	return orb.LineString(util.ReverseG([]orb.Point(ls)))
}

func splitMaxSpeed(tag string) []string {
	if strings.TrimSpace(tag) == "" {
		return nil
	}
	parts := strings.Split(tag, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isRestricted(value string) bool {
	if value == "no" || value == "restricted" {
		return true
	}
	return false
}

func getReversedOneWay(way *osm.Way) (bool, bool, bool, bool) {
	vehicleForward := way.Tags.Find("vehicle:forward")
	motorVehicleForward := way.Tags.Find("motor_vehicle:forward")
	vehicleBackward := way.Tags.Find("vehicle:backward")
	motorVehicleBackward := way.Tags.Find("motor_vehicle:backward")
	return isRestricted(vehicleForward), isRestricted(motorVehicleForward), isRestricted(vehicleBackward), isRestricted(motorVehicleBackward)
}

func getWayDirection(way *osm.Way) wayDirection {
	dir := wayDirection{forward: true}
	okvf, okmvf, okvb, okmvb := getReversedOneWay(way)

	switch way.Tags.Find("oneway") {
	case "yes", "true", "1":
		dir.oneWay = true
	case "-1", "reverse":
		dir.oneWay = true
		dir.forward = false
	}
	if junction := way.Tags.Find("junction"); junction == "roundabout" || junction == "circular" {
		dir.oneWay = true
	}
	if okvf || okmvf {
		// restricted/not allowed forward.
		dir.oneWay = true
		dir.forward = false
	} else if okvb || okmvb {
		dir.oneWay = true
	}
	return dir
}

func acceptOsmWay(way *osm.Way) bool {
	if way.Tags.Find("area") == "yes" {
		return false
	}
	if _, ok := restrictedAccess[way.Tags.Find("access")]; ok {
		return false
	}
	if way.Tags.Find("motor_vehicle") == "no" || way.Tags.Find("motorcar") == "no" {
		return false
	}
	if _, ok := skipService[way.Tags.Find("service")]; ok {
		return false
	}

	highway := way.Tags.Find("highway")
	junction := way.Tags.Find("junction")
	if highway != "" {
		if _, ok := acceptedHighway[highway]; ok {
			return true
		}
	} else if junction != "" {
		return true
	}
	return false
}

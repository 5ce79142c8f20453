package datastructure

import (
	"github.com/paulmach/orb"
)

type Index uint32

// NodeID is the external identity of a vertex (the openstreetmap node id).
type NodeID int64

const INVALID_VERTEX_ID = Index(^uint32(0))

type Vertex struct {
	lat float64
	lon float64
	id  NodeID
}

func NewVertex(lat, lon float64, id NodeID) Vertex {
	return Vertex{
		lat: lat,
		lon: lon,
		id:  id,
	}
}

func (v *Vertex) GetID() NodeID {
	return v.id
}

func (v *Vertex) GetLat() float64 {
	return v.lat
}

func (v *Vertex) GetLon() float64 {
	return v.lon
}

// Point returns the vertex as an orb point (lon, lat).
func (v *Vertex) Point() orb.Point {
	return orb.Point{v.lon, v.lat}
}

// Edge is one directed road segment. Length, speed and travel time are optional until
// the edge speed normalizer fills them in.
type Edge struct {
	tail, head Index
	key        int // position among the parallel edges of (tail, head)
	osmWayId   int64

	length    float64 // meter
	hasLength bool

	speedKph float64
	hasSpeed bool

	travelTime    float64 // second
	hasTravelTime bool

	maxSpeed []string       // raw maxspeed tag candidates
	geometry orb.LineString // lon/lat, nil when the segment is a straight line
}

func NewEdge(osmWayId int64, maxSpeed []string, geometry orb.LineString) Edge {
	return Edge{
		osmWayId: osmWayId,
		maxSpeed: maxSpeed,
		geometry: geometry,
	}
}

func (e *Edge) GetTail() Index {
	return e.tail
}

func (e *Edge) GetHead() Index {
	return e.head
}

func (e *Edge) GetKey() int {
	return e.key
}

func (e *Edge) GetOsmWayId() int64 {
	return e.osmWayId
}

func (e *Edge) GetLength() (float64, bool) {
	return e.length, e.hasLength
}

func (e *Edge) SetLength(length float64) {
	e.length = length
	e.hasLength = true
}

func (e *Edge) GetSpeedKph() (float64, bool) {
	return e.speedKph, e.hasSpeed
}

func (e *Edge) SetSpeedKph(speed float64) {
	e.speedKph = speed
	e.hasSpeed = true
}

func (e *Edge) GetTravelTime() (float64, bool) {
	return e.travelTime, e.hasTravelTime
}

func (e *Edge) SetTravelTime(travelTime float64) {
	e.travelTime = travelTime
	e.hasTravelTime = true
}

func (e *Edge) GetMaxSpeed() []string {
	return e.maxSpeed
}

func (e *Edge) GetGeometry() orb.LineString {
	return e.geometry
}

func (e *Edge) HasGeometry() bool {
	return len(e.geometry) >= 2
}

// Graph is a directed multigraph stored as arenas of vertices and edges.
// Out/in edge lists keep insertion order so every traversal is deterministic.
type Graph struct {
	vertices  []Vertex
	vertexIdx map[NodeID]Index

	edges    []Edge
	outEdges [][]Index
	inEdges  [][]Index
	parallel map[[2]Index][]Index
}

func NewGraph() *Graph {
	return NewGraphWithSize(0, 0)
}

func NewGraphWithSize(numVertices, numEdges int) *Graph {
	return &Graph{
		vertices:  make([]Vertex, 0, numVertices),
		vertexIdx: make(map[NodeID]Index, numVertices),
		edges:     make([]Edge, 0, numEdges),
		outEdges:  make([][]Index, 0, numVertices),
		inEdges:   make([][]Index, 0, numVertices),
		parallel:  make(map[[2]Index][]Index, numEdges),
	}
}

// AddVertex inserts a vertex, or returns the index of the existing vertex with the same id.
func (g *Graph) AddVertex(id NodeID, lat, lon float64) Index {
	if idx, ok := g.vertexIdx[id]; ok {
		return idx
	}
	idx := Index(len(g.vertices))
	g.vertices = append(g.vertices, NewVertex(lat, lon, id))
	g.vertexIdx[id] = idx
	g.outEdges = append(g.outEdges, nil)
	g.inEdges = append(g.inEdges, nil)
	return idx
}

// AddEdge appends e as a new parallel edge from tail to head. Both vertices must exist.
func (g *Graph) AddEdge(tail, head NodeID, e Edge) (Index, bool) {
	u, ok := g.vertexIdx[tail]
	if !ok {
		return 0, false
	}
	v, ok := g.vertexIdx[head]
	if !ok {
		return 0, false
	}

	pair := [2]Index{u, v}
	e.tail = u
	e.head = v
	e.key = len(g.parallel[pair])

	eId := Index(len(g.edges))
	g.edges = append(g.edges, e)
	g.outEdges[u] = append(g.outEdges[u], eId)
	g.inEdges[v] = append(g.inEdges[v], eId)
	g.parallel[pair] = append(g.parallel[pair], eId)
	return eId, true
}

func (g *Graph) NumberOfVertices() int {
	return len(g.vertices)
}

func (g *Graph) NumberOfEdges() int {
	return len(g.edges)
}

func (g *Graph) HasVertex(id NodeID) bool {
	_, ok := g.vertexIdx[id]
	return ok
}

func (g *Graph) GetVertexIndex(id NodeID) (Index, bool) {
	idx, ok := g.vertexIdx[id]
	return idx, ok
}

func (g *Graph) GetVertex(idx Index) *Vertex {
	return &g.vertices[idx]
}

func (g *Graph) GetVertexCoordinates(idx Index) (float64, float64) {
	return g.vertices[idx].lat, g.vertices[idx].lon
}

func (g *Graph) GetEdge(eId Index) *Edge {
	return &g.edges[eId]
}

func (g *Graph) GetOutEdges(u Index) []Index {
	return g.outEdges[u]
}

func (g *Graph) GetInEdges(v Index) []Index {
	return g.inEdges[v]
}

// GetParallelEdges returns the ordered edge ids from u to v.
func (g *Graph) GetParallelEdges(u, v Index) []Index {
	return g.parallel[[2]Index{u, v}]
}

func (g *Graph) ForEachVertex(handle func(idx Index, v *Vertex)) {
	for i := range g.vertices {
		handle(Index(i), &g.vertices[i])
	}
}

func (g *Graph) ForEachEdge(handle func(eId Index, e *Edge)) {
	for i := range g.edges {
		handle(Index(i), &g.edges[i])
	}
}

// EdgeLine returns the edge geometry, or the straight line tail -> head when it has none.
func (g *Graph) EdgeLine(e *Edge) orb.LineString {
	if e.HasGeometry() {
		return e.geometry
	}
	return orb.LineString{g.vertices[e.tail].Point(), g.vertices[e.head].Point()}
}

// Centroid is the mean of the vertex coordinates.
func (g *Graph) Centroid() (float64, float64) {
	if len(g.vertices) == 0 {
		return 0, 0
	}
	sumLat, sumLon := 0.0, 0.0
	for _, v := range g.vertices {
		sumLat += v.lat
		sumLon += v.lon
	}
	n := float64(len(g.vertices))
	return sumLat / n, sumLon / n
}

// FilterEdges returns a new graph holding every vertex of g and the edges accepted by keep.
// g is not modified.
func (g *Graph) FilterEdges(keep func(eId Index, e *Edge) bool) *Graph {
	ng := NewGraphWithSize(len(g.vertices), len(g.edges))
	for _, v := range g.vertices {
		ng.AddVertex(v.id, v.lat, v.lon)
	}
	for i := range g.edges {
		e := &g.edges[i]
		if !keep(Index(i), e) {
			continue
		}
		ng.AddEdge(g.vertices[e.tail].id, g.vertices[e.head].id, e.clone())
	}
	return ng
}

// Subgraph returns the graph induced by the given vertices, in the order they appear in g.
func (g *Graph) Subgraph(vertices []Index) *Graph {
	keep := make([]bool, len(g.vertices))
	for _, v := range vertices {
		keep[v] = true
	}

	ng := NewGraphWithSize(len(vertices), len(g.edges))
	for i, v := range g.vertices {
		if keep[i] {
			ng.AddVertex(v.id, v.lat, v.lon)
		}
	}
	for i := range g.edges {
		e := &g.edges[i]
		if !keep[e.tail] || !keep[e.head] {
			continue
		}
		ng.AddEdge(g.vertices[e.tail].id, g.vertices[e.head].id, e.clone())
	}
	return ng
}

func (g *Graph) Clone() *Graph {
	return g.FilterEdges(func(_ Index, _ *Edge) bool { return true })
}

func (e *Edge) clone() Edge {
	c := *e
	if e.maxSpeed != nil {
		c.maxSpeed = append([]string(nil), e.maxSpeed...)
	}
	if e.geometry != nil {
		c.geometry = append(orb.LineString(nil), e.geometry...)
	}
	return c
}

package routing

import (
	"math"

	da "github.com/lintang-b-s/navigatorx-eta/pkg/datastructure"
)

type WeightKey string

const (
	WeightLength     WeightKey = "length"
	WeightTravelTime WeightKey = "travel_time"
)

// EdgeWeight returns the weight of e under key. Edges without the attribute (or unknown keys) weigh 1.
func EdgeWeight(e *da.Edge, key WeightKey) float64 {
	var (
		w  float64
		ok bool
	)
	switch key {
	case WeightLength:
		w, ok = e.GetLength()
	case WeightTravelTime:
		w, ok = e.GetTravelTime()
	}
	if !ok {
		return 1
	}
	return w
}

// Dijkstra point to point search over a multigraph, relaxing every parallel edge.
type Dijkstra struct {
	graph  *da.Graph
	weight WeightKey

	dist      []float64
	parent    []da.Index
	settled   []bool
	heapNodes []*da.PriorityQueueNode[da.Index]
	pq        *da.MinHeap[da.Index]

	numSettledNodes int
}

func NewDijkstra(graph *da.Graph, weight WeightKey) *Dijkstra {
	return &Dijkstra{
		graph:  graph,
		weight: weight,
		pq:     da.NewFourAryHeap[da.Index](),
	}
}

func (us *Dijkstra) Preallocate() {
	n := us.graph.NumberOfVertices()
	us.dist = make([]float64, n)
	us.parent = make([]da.Index, n)
	us.settled = make([]bool, n)
	us.heapNodes = make([]*da.PriorityQueueNode[da.Index], n)
	for i := 0; i < n; i++ {
		us.dist[i] = math.Inf(1)
		us.parent[i] = da.INVALID_VERTEX_ID
	}
	us.pq.Preallocate(n)
	us.numSettledNodes = 0
}

// ShortestPath returns the vertices of the shortest s-t path, or false if t is unreachable.
func (us *Dijkstra) ShortestPath(s, t da.Index) ([]da.Index, bool) {
	us.Preallocate()

	us.dist[s] = 0
	us.heapNodes[s] = da.NewPriorityQueueNode(0, s)
	us.pq.Insert(us.heapNodes[s])

	for !us.pq.IsEmpty() {
		node, _ := us.pq.ExtractMin()
		u := node.GetItem()
		if us.settled[u] {
			continue
		}
		us.settled[u] = true
		us.numSettledNodes++
		if u == t {
			break
		}
		us.graphSearchUni(u)
	}

	if !us.settled[t] {
		return nil, false
	}

	path := []da.Index{t}
	for v := t; v != s; {
		v = us.parent[v]
		path = append(path, v)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}

func (us *Dijkstra) graphSearchUni(u da.Index) {
	for _, eId := range us.graph.GetOutEdges(u) {
		e := us.graph.GetEdge(eId)
		v := e.GetHead()
		if us.settled[v] {
			continue
		}

		newDist := us.dist[u] + EdgeWeight(e, us.weight)
		if newDist >= us.dist[v] {
			// not better
			continue
		}

		us.dist[v] = newDist
		us.parent[v] = u
		if us.heapNodes[v] != nil && us.heapNodes[v].GetPos() >= 0 {
			// is key already in the priority queue, decrease its key
			us.pq.DecreaseKey(us.heapNodes[v], newDist)
		} else {
			us.heapNodes[v] = da.NewPriorityQueueNode(newDist, v)
			us.pq.Insert(us.heapNodes[v])
		}
	}
}

func (us *Dijkstra) GetNumSettledNodes() int {
	return us.numSettledNodes
}

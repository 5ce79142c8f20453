package datastructure

import "slices"

// WeaklyConnectedComponents returns the weakly connected components of g (edge direction ignored).
// Components are ordered by their smallest vertex index, and vertices inside a component are sorted.
func (g *Graph) WeaklyConnectedComponents() [][]Index {
	n := g.NumberOfVertices()
	components := make([][]Index, 0, 10)
	visited := make([]bool, n)

	for s := Index(0); s < Index(n); s++ {
		if visited[s] {
			continue
		}
		component := make([]Index, 0, 10)
		g.dfs(s, &component, visited)
		slices.Sort(component)
		components = append(components, component)
	}
	return components
}

// dfs. iterative, road chains can be long.
func (g *Graph) dfs(s Index, output *[]Index, visited []bool) {
	stack := []Index{s}
	visited[s] = true
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		*output = append(*output, v)

		for _, eId := range g.outEdges[v] {
			w := g.edges[eId].head
			if !visited[w] {
				visited[w] = true
				stack = append(stack, w)
			}
		}
		for _, eId := range g.inEdges[v] {
			w := g.edges[eId].tail
			if !visited[w] {
				visited[w] = true
				stack = append(stack, w)
			}
		}
	}
}

// LargestWeaklyConnectedComponent returns the subgraph induced by the biggest weakly connected
// component. On ties the component holding the smaller vertex index wins.
func (g *Graph) LargestWeaklyConnectedComponent() *Graph {
	components := g.WeaklyConnectedComponents()
	if len(components) == 0 {
		return g.Clone()
	}
	largest := 0
	for i, c := range components {
		if len(c) > len(components[largest]) {
			largest = i
		}
	}
	return g.Subgraph(components[largest])
}

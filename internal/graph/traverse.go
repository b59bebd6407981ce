package graph

import "slices"

// BFS marking: unvisited nodes are white, queued nodes grey, expanded black.
type color uint8

const (
	white color = iota
	grey
	black
)

// IsConnected reports whether a breadth-first search from node 0 reaches
// every node. The empty graph is connected.
func IsConnected(g Graph) (bool, error) {
	n := g.NodeCount()
	if n == 0 {
		return true, nil
	}
	colors := make([]color, n)
	reached, err := bfs(g, 0, colors)
	if err != nil {
		return false, err
	}
	return reached == n, nil
}

// ComponentSizes returns the size of every connected component, searching
// from the lowest-numbered unvisited node each time.
func ComponentSizes(g Graph) ([]int, error) {
	n := g.NodeCount()
	colors := make([]color, n)
	var sizes []int
	for start := 0; start < n; start++ {
		if colors[start] != white {
			continue
		}
		size, err := bfs(g, start, colors)
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

// LargestComponentSize returns the size of the biggest component (0 if empty).
func LargestComponentSize(g Graph) (int, error) {
	sizes, err := ComponentSizes(g)
	if err != nil || len(sizes) == 0 {
		return 0, err
	}
	return slices.Max(sizes), nil
}

// ComponentCount returns the number of connected components.
func ComponentCount(g Graph) (int, error) {
	sizes, err := ComponentSizes(g)
	return len(sizes), err
}

// bfs blackens everything reachable from start and returns how many nodes
// it reached.
func bfs(g Graph, start int, colors []color) (int, error) {
	queue := []int{start}
	colors[start] = grey
	reached := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		nbrs, err := g.Neighbors(u)
		if err != nil {
			return reached, err
		}
		for _, v := range nbrs {
			if colors[v] == white {
				colors[v] = grey
				queue = append(queue, v)
			}
		}
		colors[u] = black
		reached++
	}
	return reached, nil
}

package graph

import "slices"

// AdjacencyList stores one neighbor slice per node. It is the default
// representation for large sparse base graphs.
type AdjacencyList struct {
	header
	adj [][]int
}

// NewAdjacencyList creates an edgeless graph with n nodes.
func NewAdjacencyList(n int) *AdjacencyList {
	return &AdjacencyList{
		header: header{n: n, name: "defaultName"},
		adj:    make([][]int, n),
	}
}

func (g *AdjacencyList) Neighbors(node int) ([]int, error) {
	if err := g.checkNode(node); err != nil {
		return nil, err
	}
	return g.adj[node], nil
}

func (g *AdjacencyList) AddEdge(u, v int) (bool, error) {
	if err := g.checkNode(u); err != nil {
		return false, err
	}
	if err := g.checkNode(v); err != nil {
		return false, err
	}
	if slices.Contains(g.adj[u], v) {
		return false, nil
	}
	g.adj[u] = append(g.adj[u], v)
	g.e++
	return true, nil
}

func (g *AdjacencyList) HasEdge(u, v int) (bool, error) {
	if err := g.checkNode(u); err != nil {
		return false, err
	}
	if err := g.checkNode(v); err != nil {
		return false, err
	}
	return slices.Contains(g.adj[u], v), nil
}

func (g *AdjacencyList) Degree(node int) (int, error) {
	if err := g.checkNode(node); err != nil {
		return 0, err
	}
	return len(g.adj[node]), nil
}

package graph

// AdjacencyMatrix stores a dense n×n edge matrix. Neighbor queries are O(n);
// it suits small graphs and tests.
type AdjacencyMatrix struct {
	header
	mat [][]bool
}

// NewAdjacencyMatrix creates an edgeless graph with n nodes.
func NewAdjacencyMatrix(n int) *AdjacencyMatrix {
	mat := make([][]bool, n)
	for i := range mat {
		mat[i] = make([]bool, n)
	}
	return &AdjacencyMatrix{
		header: header{n: n, name: "defaultName"},
		mat:    mat,
	}
}

func (g *AdjacencyMatrix) Neighbors(node int) ([]int, error) {
	if err := g.checkNode(node); err != nil {
		return nil, err
	}
	var out []int
	for j, ok := range g.mat[node] {
		if ok {
			out = append(out, j)
		}
	}
	return out, nil
}

func (g *AdjacencyMatrix) AddEdge(u, v int) (bool, error) {
	if err := g.checkNode(u); err != nil {
		return false, err
	}
	if err := g.checkNode(v); err != nil {
		return false, err
	}
	if g.mat[u][v] {
		return false, nil
	}
	g.mat[u][v] = true
	g.e++
	return true, nil
}

func (g *AdjacencyMatrix) HasEdge(u, v int) (bool, error) {
	if err := g.checkNode(u); err != nil {
		return false, err
	}
	if err := g.checkNode(v); err != nil {
		return false, err
	}
	return g.mat[u][v], nil
}

func (g *AdjacencyMatrix) Degree(node int) (int, error) {
	if err := g.checkNode(node); err != nil {
		return 0, err
	}
	d := 0
	for _, ok := range g.mat[node] {
		if ok {
			d++
		}
	}
	return d, nil
}

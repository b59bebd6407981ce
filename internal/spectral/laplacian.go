// Package spectral scores graph cohesion by algebraic connectivity: the
// second-smallest eigenvalue of the symmetric normalized Laplacian.
package spectral

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
)

// ErrNoConvergence is returned when the eigensolver fails.
var ErrNoConvergence = errors.New("eigendecomposition did not converge")

// NormalizedLaplacian builds L with L[i][i] = 1 for non-isolated i and
// L[i][j] = -1/sqrt(deg(i)*deg(j)) for every edge i→j. Only the edge
// direction read last survives for asymmetric pairs, so inputs are expected
// to store undirected edges in both directions.
func NormalizedLaplacian(g graph.Graph) (*mat.SymDense, error) {
	n := g.NodeCount()
	deg := make([]float64, n)
	for i := 0; i < n; i++ {
		d, err := g.Degree(i)
		if err != nil {
			return nil, err
		}
		deg[i] = float64(d)
	}

	l := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if deg[i] > 0 {
			l.SetSym(i, i, 1)
		}
		nbrs, err := g.Neighbors(i)
		if err != nil {
			return nil, err
		}
		for _, j := range nbrs {
			if j == i || deg[j] == 0 {
				continue
			}
			l.SetSym(i, j, -1/math.Sqrt(deg[i]*deg[j]))
		}
	}
	return l, nil
}

// AlgebraicConnectivity returns the second-smallest eigenvalue of g's
// normalized Laplacian. Graphs with fewer than two nodes and disconnected
// graphs have no valid score and yield an error wrapping graph.ErrNoScore.
func AlgebraicConnectivity(g graph.Graph) (float64, error) {
	n := g.NodeCount()
	if n < 2 {
		return 0, fmt.Errorf("%w: %d-node graph", graph.ErrNoScore, n)
	}
	connected, err := graph.IsConnected(g)
	if err != nil {
		return 0, err
	}
	if !connected {
		return 0, fmt.Errorf("%w: graph %s is disconnected", graph.ErrNoScore, g.Name())
	}

	l, err := NormalizedLaplacian(g)
	if err != nil {
		return 0, err
	}
	var es mat.EigenSym
	if !es.Factorize(l, false) {
		return 0, ErrNoConvergence
	}
	return secondSmallest(es.Values(nil))
}

// secondSmallest drops the smallest eigenvalue by index, not by value, so
// a near-zero λ1 that came out slightly negative or positive is still the
// one excluded.
func secondSmallest(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, fmt.Errorf("%w: %d eigenvalues", graph.ErrNoScore, len(values))
	}
	minIdx := 0
	for i, v := range values {
		if math.IsNaN(v) {
			return 0, fmt.Errorf("%w: NaN eigenvalue", graph.ErrNoScore)
		}
		if v < values[minIdx] {
			minIdx = i
		}
	}
	second := math.Inf(1)
	for i, v := range values {
		if i != minIdx && v < second {
			second = v
		}
	}
	return second, nil
}

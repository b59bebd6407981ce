package spectral_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
	"github.com/gyaneshwarpardhi/commerge/internal/spectral"
)

func undirected(t *testing.T, n int, edges ...[2]int) *graph.AdjacencyList {
	t.Helper()
	g := graph.NewAdjacencyList(n)
	for _, e := range edges {
		_, err := g.AddEdge(e[0], e[1])
		require.NoError(t, err)
		_, err = g.AddEdge(e[1], e[0])
		require.NoError(t, err)
	}
	return g
}

func complete(t *testing.T, n int) *graph.AdjacencyList {
	var edges [][2]int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			edges = append(edges, [2]int{i, j})
		}
	}
	return undirected(t, n, edges...)
}

func TestAlgebraicConnectivity_KnownSpectra(t *testing.T) {
	cycle6 := undirected(t, 6, [2]int{0, 1}, [2]int{1, 2}, [2]int{2, 3}, [2]int{3, 4}, [2]int{4, 5}, [2]int{5, 0})

	cases := []struct {
		name string
		g    graph.Graph
		want float64
	}{
		{"single edge", undirected(t, 2, [2]int{0, 1}), 2},
		{"path of three", undirected(t, 3, [2]int{0, 1}, [2]int{1, 2}), 1},
		{"triangle", complete(t, 3), 1.5},
		{"K4", complete(t, 4), 4.0 / 3},
		{"star", undirected(t, 4, [2]int{0, 1}, [2]int{0, 2}, [2]int{0, 3}), 1},
		{"cycle of six", cycle6, 1 - math.Cos(math.Pi/3)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := spectral.AlgebraicConnectivity(tc.g)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestAlgebraicConnectivity_Degenerate(t *testing.T) {
	cases := []struct {
		name string
		g    graph.Graph
	}{
		{"empty", graph.NewAdjacencyList(0)},
		{"single node", graph.NewAdjacencyList(1)},
		{"two isolated nodes", graph.NewAdjacencyList(2)},
		{"disconnected", undirected(t, 4, [2]int{0, 1}, [2]int{2, 3})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := spectral.AlgebraicConnectivity(tc.g)
			assert.ErrorIs(t, err, graph.ErrNoScore)
		})
	}
}

func TestAlgebraicConnectivity_CommunityView(t *testing.T) {
	// K4 on {0,1,2,3} inside a larger base; the view must score like K4.
	base := complete(t, 4)
	big := graph.NewAdjacencyList(8)
	for i := 0; i < 4; i++ {
		nbrs, _ := base.Neighbors(i)
		for _, j := range nbrs {
			_, _ = big.AddEdge(i+4, j+4)
		}
	}
	_, _ = big.AddEdge(0, 4)
	_, _ = big.AddEdge(4, 0)

	c, err := graph.NewCommunity(big, []int{7, 5, 6, 4})
	require.NoError(t, err)
	got, err := spectral.AlgebraicConnectivity(c)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/3, got, 1e-9)
}

func TestNormalizedLaplacian(t *testing.T) {
	g := undirected(t, 3, [2]int{0, 1}, [2]int{1, 2})
	g.AddEdge(2, 2) // self-loop only raises the degree
	l, err := spectral.NormalizedLaplacian(g)
	require.NoError(t, err)

	assert.Equal(t, 1.0, l.At(0, 0))
	assert.InDelta(t, -1/math.Sqrt(2), l.At(0, 1), 1e-12)
	assert.InDelta(t, -1/math.Sqrt(4), l.At(1, 2), 1e-12)
	assert.Equal(t, l.At(1, 2), l.At(2, 1))
	assert.Zero(t, l.At(0, 2))

	isolated := graph.NewAdjacencyList(2)
	l, err = spectral.NormalizedLaplacian(isolated)
	require.NoError(t, err)
	assert.Zero(t, l.At(0, 0))
}

func TestScorer_Memoizes(t *testing.T) {
	base := complete(t, 5)
	c, err := graph.NewCommunity(base, []int{0, 1, 2})
	require.NoError(t, err)

	s := spectral.NewScorer()
	v, err := s.Score(c)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, v, 1e-9)

	cached, state := c.Score().Value()
	assert.Equal(t, graph.ScoreComputed, state)
	assert.Equal(t, v, cached)
	assert.ErrorIs(t, c.Score().Set(9), graph.ErrScoreSet)
}

func TestScorer_PrecomputedWins(t *testing.T) {
	base := complete(t, 5)
	c, err := graph.NewCommunity(base, []int{0, 1, 2})
	require.NoError(t, err)
	require.NoError(t, c.Score().Set(0.25))

	v, err := spectral.NewScorer().Score(c)
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)
}

func TestScorer_InvalidIsSticky(t *testing.T) {
	base := graph.NewAdjacencyList(3)
	c, err := graph.NewCommunity(base, []int{0, 2})
	require.NoError(t, err)

	s := spectral.NewScorer()
	_, err = s.Score(c)
	assert.ErrorIs(t, err, graph.ErrNoScore)
	_, state := c.Score().Value()
	assert.Equal(t, graph.ScoreInvalid, state)
	_, err = s.Score(c)
	assert.ErrorIs(t, err, graph.ErrNoScore)
}

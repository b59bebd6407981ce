package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
)

// sizeScorer scores a community by its node count; no community is degenerate.
type sizeScorer struct{}

func (sizeScorer) Score(c *graph.Community) (float64, error) {
	return c.Score().Resolve(func() (float64, error) { return float64(c.NodeCount()), nil })
}

func pathBase(t *testing.T, n int) *graph.AdjacencyList {
	t.Helper()
	g := graph.NewAdjacencyList(n)
	for i := 0; i+1 < n; i++ {
		_, err := g.AddEdge(i, i+1)
		require.NoError(t, err)
		_, err = g.AddEdge(i+1, i)
		require.NoError(t, err)
	}
	return g
}

func communities(t *testing.T, base graph.Graph, sets ...[]int) []*graph.Community {
	t.Helper()
	out := make([]*graph.Community, len(sets))
	for i, ids := range sets {
		c, err := graph.NewCommunity(base, ids)
		require.NoError(t, err)
		out[i] = c
	}
	return out
}

func buildIndex(t *testing.T, base graph.Graph, cs []*graph.Community) *Index {
	t.Helper()
	idx, err := Build(base, cs, sizeScorer{}, Options{Seed: 7})
	require.NoError(t, err)
	return idx
}

// checkConsistency verifies that every live community sits exactly once in
// the bucket of each of its nodes and nowhere else, that buckets are sorted
// by size, and that the flat list matches the bucket contents.
func checkConsistency(idx *Index) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	inBuckets := make(map[*slot]int)
	for v, b := range idx.buckets {
		for i, s := range b {
			if !s.community.Contains(v) {
				return fmt.Errorf("slot %d in bucket %d without node", s.id, v)
			}
			if i > 0 && b[i-1].size() > s.size() {
				return fmt.Errorf("bucket %d out of order at %d", v, i)
			}
			inBuckets[s]++
		}
	}
	if len(idx.pos) != len(idx.all) {
		return fmt.Errorf("position map has %d entries for %d communities", len(idx.pos), len(idx.all))
	}
	for i, s := range idx.all {
		if idx.pos[s] != i {
			return fmt.Errorf("slot %d at %d recorded at %d", s.id, i, idx.pos[s])
		}
		if s.retired {
			return fmt.Errorf("retired slot %d still listed", s.id)
		}
		if inBuckets[s] != s.size() {
			return fmt.Errorf("slot %d in %d buckets, has %d nodes", s.id, inBuckets[s], s.size())
		}
	}
	if len(inBuckets) != len(idx.all) {
		return fmt.Errorf("%d communities in buckets, %d listed", len(inBuckets), len(idx.all))
	}
	return nil
}

func assertConsistent(t *testing.T, idx *Index) {
	t.Helper()
	require.NoError(t, checkConsistency(idx))
}

func TestBuild_OrdersBucketsBySize(t *testing.T) {
	base := pathBase(t, 6)
	cs := communities(t, base, []int{0, 1, 2, 3}, []int{1, 2}, []int{2, 3, 4}, []int{2})
	idx := buildIndex(t, base, cs)

	assertConsistent(t, idx)
	assert.Equal(t, 4, idx.Len())
	bucket := idx.Bucket(2)
	require.Len(t, bucket, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, []int{bucket[0].NodeCount(), bucket[1].NodeCount(), bucket[2].NodeCount(), bucket[3].NodeCount()})
	assert.Empty(t, idx.Bucket(5))
	assert.Nil(t, idx.Bucket(99))
}

func TestBuild_Rejects(t *testing.T) {
	base := pathBase(t, 4)
	other := pathBase(t, 4)

	_, err := Build(base, communities(t, other, []int{0, 1}), sizeScorer{}, Options{})
	assert.ErrorIs(t, err, graph.ErrForeignGraph)

	_, err = Build(base, communities(t, base, []int{}), sizeScorer{}, Options{})
	assert.Error(t, err)
}

func TestCandidate_LocksAnchor(t *testing.T) {
	base := pathBase(t, 4)
	idx := buildIndex(t, base, communities(t, base, []int{0, 1}, []int{1, 2}))

	n, err := idx.Candidate(context.Background())
	require.NoError(t, err)
	assert.True(t, n.anchor.isLocked())
	assert.True(t, n.Anchor().Contains(n.Node()))
	assert.Equal(t, 1, idx.LockedCount())

	n.Unlock()
	assert.Equal(t, 0, idx.LockedCount())
}

func TestCandidate_AllLockedBacksOffUntilDone(t *testing.T) {
	base := pathBase(t, 3)
	idx := buildIndex(t, base, communities(t, base, []int{0, 1, 2}))

	held, err := idx.Candidate(context.Background())
	require.NoError(t, err)
	defer held.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = idx.Candidate(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCandidate_EmptyIndex(t *testing.T) {
	base := pathBase(t, 3)
	idx := buildIndex(t, base, nil)
	_, err := idx.Candidate(context.Background())
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestUnlock_Twice_Panics(t *testing.T) {
	base := pathBase(t, 3)
	idx := buildIndex(t, base, communities(t, base, []int{0, 1}))
	n, err := idx.Candidate(context.Background())
	require.NoError(t, err)
	n.Unlock()
	assert.Panics(t, n.Unlock)
}

func TestSlot_UnlockNotHeld_Panics(t *testing.T) {
	s := &slot{}
	assert.Panics(t, s.unlock)
	require.True(t, s.tryLock())
	assert.False(t, s.tryLock())
	s.unlock()
	assert.False(t, s.isLocked())
}

func TestNext_ScansBucketSkippingAnchorAndLocked(t *testing.T) {
	base := pathBase(t, 5)
	cs := communities(t, base, []int{2}, []int{1, 2}, []int{2, 3}, []int{0, 1, 2, 3})
	idx := buildIndex(t, base, cs)

	// Anchor the largest community on node 2 directly.
	anchor := idx.buckets[2][3]
	require.True(t, anchor.tryLock())
	n := newNegotiation(idx, anchor, 2)

	// Hold the {1,2} community elsewhere.
	busy := idx.buckets[2][1]
	require.True(t, busy.tryLock())

	require.True(t, n.Next())
	assert.Same(t, cs[0], n.Partner())
	require.True(t, n.Next())
	assert.Same(t, cs[2], n.Partner())
	assert.False(t, idx.buckets[2][0].isLocked(), "previous partner released")
	assert.False(t, n.Next())
	assert.Same(t, cs[2], n.Partner(), "last partner kept until unlock")

	n.Unlock()
	busy.unlock()
	assert.Equal(t, 0, idx.LockedCount())
}

func TestNext_OffersEveryEntryDespiteConcurrentUpdate(t *testing.T) {
	base := pathBase(t, 5)
	// bucket[2] = [X{2}, Y{1,2}, Z{2,3}, U{2,3,4}, W{0,1,2,3}]; P{0,1} is outside it.
	cs := communities(t, base, []int{2}, []int{1, 2}, []int{2, 3}, []int{2, 3, 4}, []int{0, 1, 2, 3}, []int{0, 1})
	idx := buildIndex(t, base, cs)
	x, y, z, u, w := cs[0], cs[1], cs[2], cs[3], cs[4]

	anchor := idx.buckets[2][4]
	require.Same(t, w, anchor.community)
	require.True(t, anchor.tryLock())
	n := newNegotiation(idx, anchor, 2)

	// Another negotiation holds Y with P as its partner.
	other := newNegotiation(idx, idx.buckets[2][1], 1)
	require.True(t, other.anchor.tryLock())
	p := idx.buckets[0][0]
	require.Same(t, cs[5], p.community)
	require.True(t, p.tryLock())
	other.partner = p

	require.True(t, n.Next())
	assert.Same(t, x, n.Partner())
	require.True(t, n.Next())
	assert.Same(t, z, n.Partner(), "locked Y passed over")

	// Y leaves the bucket ahead of Z; U must still be offered.
	require.NoError(t, idx.Update(other))
	other.Unlock()

	require.True(t, n.Next())
	assert.Same(t, u, n.Partner())
	require.True(t, n.Next())
	assert.ElementsMatch(t, []int{0, 1, 2}, n.Partner().OriginalIDs(), "merge result inserted meanwhile")
	assert.NotSame(t, y, n.Partner())
	assert.False(t, n.Next())

	n.Unlock()
	assert.Equal(t, 0, idx.LockedCount())
	assertConsistent(t, idx)
}

func TestNegotiation_EdgeOverlapBelowThreshold(t *testing.T) {
	base := graph.NewAdjacencyList(6)
	for _, e := range [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}, {1, 4}} {
		_, err := base.AddEdge(e[0], e[1])
		require.NoError(t, err)
		_, err = base.AddEdge(e[1], e[0])
		require.NoError(t, err)
	}
	cs := communities(t, base, []int{0, 1, 2, 3}, []int{2, 3, 4, 5})
	idx := buildIndex(t, base, cs)

	anchor := idx.all[0]
	require.True(t, anchor.tryLock())
	n := newNegotiation(idx, anchor, 2)
	defer n.Unlock()
	require.True(t, n.Next())

	// a\b = {0,1}, b\a = {4,5}: cross edges 1-4 both ways = 2, inner({0,1}) = 2.
	ok, err := n.EdgesOverlapping(1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = n.EdgesOverlapping(1.01)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdate_ReplacesParentsWithMerge(t *testing.T) {
	base := pathBase(t, 6)
	cs := communities(t, base, []int{0, 1, 2}, []int{2, 3, 4}, []int{4, 5}, []int{1})
	idx := buildIndex(t, base, cs)

	anchor := idx.all[0]
	require.True(t, anchor.tryLock())
	n := newNegotiation(idx, anchor, 2)
	require.True(t, n.Next())
	require.Same(t, cs[1], n.Partner())

	require.NoError(t, idx.Update(n))
	assert.True(t, n.Committed())
	assert.False(t, n.Next())
	n.Unlock()

	assertConsistent(t, idx)
	assert.Equal(t, 3, idx.Len())
	live := idx.Communities()
	assert.NotContains(t, live, cs[0])
	assert.NotContains(t, live, cs[1])
	merged := idx.Bucket(3)
	require.Len(t, merged, 1)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, merged[0].OriginalIDs())
	// {1} (size 1) sorts ahead of the size-5 merge in bucket 1.
	b1 := idx.Bucket(1)
	require.Len(t, b1, 2)
	assert.Same(t, cs[3], b1[0])
	assert.Equal(t, 0, idx.LockedCount())
}

func TestUpdate_StaleAndMisuse(t *testing.T) {
	base := pathBase(t, 4)
	cs := communities(t, base, []int{0, 1}, []int{1, 2})
	idx := buildIndex(t, base, cs)

	anchor := idx.buckets[1][0]
	require.True(t, anchor.tryLock())
	n := newNegotiation(idx, anchor, 1)
	assert.Panics(t, func() { _ = idx.Update(n) }, "no partner")

	require.True(t, n.Next())
	require.NoError(t, idx.Update(n))
	err := idx.Update(n)
	assert.True(t, errors.Is(err, ErrStale))
	n.Unlock()
}

func TestNegotiation_OverlapAndDelta(t *testing.T) {
	base := pathBase(t, 6)
	cs := communities(t, base, []int{0, 1, 2, 3}, []int{1, 2, 3, 4, 5})
	idx := buildIndex(t, base, cs)

	anchor := idx.all[0]
	require.True(t, anchor.tryLock())
	n := newNegotiation(idx, anchor, 1)
	defer n.Unlock()
	require.True(t, n.Next())

	assert.True(t, n.NodesOverlapping(0.75))
	assert.False(t, n.NodesOverlapping(0.76))

	ok, err := n.EdgesOverlapping(0.5)
	require.NoError(t, err)
	// a\b = {0}, b\a = {4,5}: inner({0}) = 0, treated as nested.
	assert.True(t, ok)

	m, err := n.Merged()
	require.NoError(t, err)
	again, err := n.Merged()
	require.NoError(t, err)
	assert.Same(t, m, again)

	score, err := n.MergedScore()
	require.NoError(t, err)
	assert.Equal(t, 6.0, score)
}

func TestConcurrentNegotiations_NoLockLeak(t *testing.T) {
	const n = 60
	base := pathBase(t, n)
	var sets [][]int
	for i := 0; i+3 <= n; i++ {
		sets = append(sets, []int{i, i + 1, i + 2})
	}
	idx := buildIndex(t, base, communities(t, base, sets...))

	var wg sync.WaitGroup
	var mu sync.Mutex
	merges := 0
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				neg, err := idx.Candidate(context.Background())
				if err != nil {
					t.Error(err)
					return
				}
				func() {
					defer neg.Unlock()
					for neg.Next() {
						if neg.NodesOverlapping(0.6) && neg.Anchor().NodeCount()+neg.Partner().NodeCount() < 12 {
							if err := idx.Update(neg); err != nil {
								t.Error(err)
							}
							mu.Lock()
							merges++
							mu.Unlock()
							return
						}
					}
				}()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, idx.LockedCount())
	assert.Equal(t, len(sets)-merges, idx.Len())
	assertConsistent(t, idx)
}

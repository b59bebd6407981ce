// Package index maintains the inverted node → communities index that merge
// negotiations search, together with the per-community locks that keep
// negotiations from touching the same community at once.
package index

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
	"github.com/gyaneshwarpardhi/commerge/internal/metrics"
)

var (
	// ErrEmptyIndex is returned by Candidate when no community is left to anchor.
	ErrEmptyIndex = errors.New("index holds no communities")
	// ErrStale is returned by Update for a negotiation that can no longer commit.
	ErrStale = errors.New("negotiation is stale")
)

// DefaultCandidateAttempts bounds the draws made per critical section in Candidate.
const DefaultCandidateAttempts = 64

// Scorer supplies memoized community scores to negotiations.
type Scorer interface {
	Score(c *graph.Community) (float64, error)
}

// Options tune an Index.
type Options struct {
	// CandidateAttempts is the number of random draws Candidate makes while
	// holding the index lock before it backs off.
	CandidateAttempts int
	// Seed makes candidate sampling reproducible; 0 picks a random seed.
	Seed uint64
	// MaxBackoff caps the randomized sleep between bursts of draws.
	MaxBackoff time.Duration
}

// Index is the shared inverted index. buckets[v] lists, in ascending size
// order, every live community containing node v; all holds the same
// communities flat. Both are only touched with mu held.
type Index struct {
	base   graph.Graph
	scorer Scorer
	opts   Options

	mu      sync.Mutex
	rng     *rand.Rand
	buckets [][]*slot
	all     []*slot
	pos     map[*slot]int // position in all
	nextID  uint64
}

// Build indexes communities over base. Every community must be a view over base.
func Build(base graph.Graph, communities []*graph.Community, scorer Scorer, opts Options) (*Index, error) {
	if opts.CandidateAttempts <= 0 {
		opts.CandidateAttempts = DefaultCandidateAttempts
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = time.Millisecond
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	idx := &Index{
		base:    base,
		scorer:  scorer,
		opts:    opts,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		buckets: make([][]*slot, base.NodeCount()),
		all:     make([]*slot, 0, len(communities)),
		pos:     make(map[*slot]int, len(communities)),
	}
	for i, c := range communities {
		if c.Base() != base {
			return nil, fmt.Errorf("community %d: %w", i, graph.ErrForeignGraph)
		}
		if c.NodeCount() == 0 {
			return nil, fmt.Errorf("community %d is empty", i)
		}
		s := idx.newSlot(c)
		idx.appendFlat(s)
		for _, v := range c.OriginalIDs() {
			idx.buckets[v] = append(idx.buckets[v], s)
		}
	}
	for _, b := range idx.buckets {
		slices.SortStableFunc(b, func(x, y *slot) int { return x.size() - y.size() })
	}
	metrics.LiveCommunities.Set(float64(len(idx.all)))
	return idx, nil
}

// Len returns the number of live communities.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.all)
}

// Communities returns a snapshot of the live communities.
func (idx *Index) Communities() []*graph.Community {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := make([]*graph.Community, len(idx.all))
	for i, s := range idx.all {
		out[i] = s.community
	}
	return out
}

// Bucket returns a snapshot of the communities containing node v, in
// bucket order.
func (idx *Index) Bucket(v int) []*graph.Community {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if v < 0 || v >= len(idx.buckets) {
		return nil
	}
	out := make([]*graph.Community, len(idx.buckets[v]))
	for i, s := range idx.buckets[v] {
		out[i] = s.community
	}
	return out
}

// LockedCount reports how many live communities are currently locked.
func (idx *Index) LockedCount() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	n := 0
	for _, s := range idx.all {
		if s.isLocked() {
			n++
		}
	}
	return n
}

// Candidate locks a random community and returns a negotiation anchored on
// it. A node is drawn uniformly, then a community uniformly from that
// node's bucket; empty buckets and held locks are resampled. Nothing ever
// waits on a community lock: after CandidateAttempts failed draws the index
// lock is released and the caller sleeps a random moment before drawing
// again, until ctx is done.
func (idx *Index) Candidate(ctx context.Context) (*Negotiation, error) {
	for {
		n, err := idx.tryCandidate()
		if n != nil || err != nil {
			return n, err
		}
		backoff := time.Duration(rand.Int64N(int64(idx.opts.MaxBackoff))) + time.Microsecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func (idx *Index) tryCandidate() (*Negotiation, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if len(idx.all) == 0 || len(idx.buckets) == 0 {
		return nil, ErrEmptyIndex
	}
	for i := 0; i < idx.opts.CandidateAttempts; i++ {
		v := idx.rng.IntN(len(idx.buckets))
		b := idx.buckets[v]
		if len(b) == 0 {
			metrics.CandidateRetries.Inc()
			continue
		}
		s := b[idx.rng.IntN(len(b))]
		if !s.tryLock() {
			metrics.CandidateRetries.Inc()
			continue
		}
		return newNegotiation(idx, s, v), nil
	}
	return nil, nil
}

// Update commits n's merge: the anchor and partner leave every bucket and
// the flat list, and the merged community takes their place, all inside
// one critical section. The anchor and partner locks stay held by n until
// n.Unlock.
func (idx *Index) Update(n *Negotiation) error {
	if n.partner == nil {
		panic("index: update without partner")
	}
	merged, err := n.Merged()
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if n.released || n.anchor.retired || n.partner.retired {
		return ErrStale
	}
	if !n.anchor.isLocked() || !n.partner.isLocked() {
		panic("index: update of community not locked by its negotiation")
	}

	idx.remove(n.anchor)
	idx.remove(n.partner)

	s := idx.newSlot(merged)
	idx.appendFlat(s)
	for _, v := range merged.OriginalIDs() {
		idx.buckets[v] = insertBySize(idx.buckets[v], s)
	}
	n.committed = true
	metrics.LiveCommunities.Set(float64(len(idx.all)))
	return nil
}

func (idx *Index) newSlot(c *graph.Community) *slot {
	idx.nextID++
	return &slot{id: idx.nextID, community: c}
}

func (idx *Index) appendFlat(s *slot) {
	idx.pos[s] = len(idx.all)
	idx.all = append(idx.all, s)
}

// remove unlinks s from its buckets and swap-deletes it from the flat list.
func (idx *Index) remove(s *slot) {
	for _, v := range s.community.OriginalIDs() {
		b := idx.buckets[v]
		if i := slices.Index(b, s); i >= 0 {
			idx.buckets[v] = slices.Delete(b, i, i+1)
		}
	}
	i := idx.pos[s]
	last := len(idx.all) - 1
	idx.all[i] = idx.all[last]
	idx.pos[idx.all[i]] = i
	idx.all[last] = nil
	idx.all = idx.all[:last]
	delete(idx.pos, s)
	s.retired = true
}

// insertBySize places s after every entry of equal or smaller size.
func insertBySize(b []*slot, s *slot) []*slot {
	i := len(b)
	for j, other := range b {
		if other.size() > s.size() {
			i = j
			break
		}
	}
	return slices.Insert(b, i, s)
}

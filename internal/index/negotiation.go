package index

import (
	"time"

	"github.com/gyaneshwarpardhi/commerge/internal/delta"
	"github.com/gyaneshwarpardhi/commerge/internal/graph"
	"github.com/gyaneshwarpardhi/commerge/internal/metrics"
)

// Negotiation holds one locked anchor community and searches the anchor's
// source bucket for a partner to merge with. It is owned by a single
// goroutine and must be released with Unlock exactly once, whatever the
// outcome.
type Negotiation struct {
	idx     *Index
	anchor  *slot
	partner *slot // locked when non-nil
	node    int   // key of the bucket the anchor was drawn from
	seen    map[*slot]struct{}
	merged  *graph.Community
	started time.Time

	committed bool
	released  bool
}

func newNegotiation(idx *Index, anchor *slot, node int) *Negotiation {
	metrics.NegotiationsStarted.Inc()
	return &Negotiation{
		idx:     idx,
		anchor:  anchor,
		node:    node,
		seen:    make(map[*slot]struct{}),
		started: time.Now(),
	}
}

// Anchor returns the community the negotiation was opened on.
func (n *Negotiation) Anchor() *graph.Community { return n.anchor.community }

// Partner returns the current partner, or nil before the first successful Next.
func (n *Negotiation) Partner() *graph.Community {
	if n.partner == nil {
		return nil
	}
	return n.partner.community
}

// Node returns the node whose bucket is being scanned.
func (n *Negotiation) Node() int { return n.node }

// Committed reports whether Index.Update accepted this negotiation.
func (n *Negotiation) Committed() bool { return n.committed }

// Next advances through the anchor's bucket and adopts the first other
// community it can lock as the new partner, releasing the previous one.
// Every entry is offered at most once. Progress is tracked by entry rather
// than by position, so merges committed elsewhere that shift the bucket
// never hide an unexamined entry, and a merge result inserted meanwhile is
// offered too. It returns false once the bucket is exhausted; the last
// partner, if any, stays locked until Unlock.
func (n *Negotiation) Next() bool {
	if n.released || n.committed {
		return false
	}
	n.idx.mu.Lock()
	defer n.idx.mu.Unlock()
	for _, s := range n.idx.buckets[n.node] {
		if s == n.anchor || s == n.partner {
			continue
		}
		if _, ok := n.seen[s]; ok {
			continue
		}
		n.seen[s] = struct{}{}
		if !s.tryLock() {
			continue
		}
		if n.partner != nil {
			n.partner.unlock()
		}
		n.partner = s
		n.merged = nil
		return true
	}
	return false
}

// NodesOverlapping reports whether the share of the anchor's nodes that
// also belong to the partner is at least threshold.
func (n *Negotiation) NodesOverlapping(threshold float64) bool {
	return n.anchor.community.NodeOverlapFraction(n.partner.community) >= threshold
}

// EdgesOverlapping reports whether the edge overlap between anchor and
// partner is at least threshold. See graph.EdgeOverlapFraction.
func (n *Negotiation) EdgesOverlapping(threshold float64) (bool, error) {
	f, err := graph.EdgeOverlapFraction(n.anchor.community, n.partner.community)
	if err != nil {
		return false, err
	}
	return f >= threshold, nil
}

// Merged returns the union of anchor and partner, building it on first use.
func (n *Negotiation) Merged() (*graph.Community, error) {
	if n.merged == nil {
		m, err := n.anchor.community.Merge(n.partner.community)
		if err != nil {
			return nil, err
		}
		n.merged = m
	}
	return n.merged, nil
}

// MergedScore returns the score of the merge result.
func (n *Negotiation) MergedScore() (float64, error) {
	m, err := n.Merged()
	if err != nil {
		return 0, err
	}
	return n.idx.scorer.Score(m)
}

// ScoreDelta rates the merge with the given strategy. Any community without
// a valid score yields an error wrapping graph.ErrNoScore.
func (n *Negotiation) ScoreDelta(s delta.Strategy) (float64, error) {
	merged, err := n.MergedScore()
	if err != nil {
		return 0, err
	}
	a, err := n.idx.scorer.Score(n.anchor.community)
	if err != nil {
		return 0, err
	}
	b, err := n.idx.scorer.Score(n.partner.community)
	if err != nil {
		return 0, err
	}
	return s.Delta(delta.Inputs{
		Merged:      merged,
		Anchor:      a,
		Partner:     b,
		AnchorSize:  n.anchor.size(),
		PartnerSize: n.partner.size(),
	}), nil
}

// Unlock releases the anchor and any partner. Calling it twice panics.
func (n *Negotiation) Unlock() {
	if n.released {
		panic("index: negotiation released twice")
	}
	n.released = true
	n.anchor.unlock()
	if n.partner != nil {
		n.partner.unlock()
	}
	metrics.NegotiationDuration.Observe(float64(time.Since(n.started).Microseconds()) / 1000)
}

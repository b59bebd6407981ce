package engine

import (
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/commerge/internal/config"
	"github.com/gyaneshwarpardhi/commerge/internal/delta"
	"github.com/gyaneshwarpardhi/commerge/internal/graph"
	"github.com/gyaneshwarpardhi/commerge/internal/index"
)

// Policy decides whether a negotiated pair is merged. All thresholds are
// inclusive.
type Policy struct {
	NodeOverlap    float64
	EdgeOverlap    float64
	MinImprovement float64
	Strategy       delta.Strategy
}

// NewPolicy resolves the acceptance section of a config against reg.
func NewPolicy(acc config.AcceptanceConf, reg *delta.Registry) (*Policy, error) {
	s, err := reg.Get(acc.DeltaStrategy)
	if err != nil {
		return nil, fmt.Errorf("acceptance policy: %w", err)
	}
	return &Policy{
		NodeOverlap:    acc.NodeOverlap,
		EdgeOverlap:    acc.EdgeOverlap,
		MinImprovement: acc.MinImprovement,
		Strategy:       s,
	}, nil
}

// verdict is the outcome of evaluating one anchor/partner pair.
type verdict struct {
	accept      bool
	improvement float64
	reason      string // abort reason when err != nil
	err         error
}

// evaluate checks the overlap thresholds and the score delta, cheapest
// test first. A pair involving a community without a valid score is
// rejected, never accepted and never an error.
func (p *Policy) evaluate(n *index.Negotiation) verdict {
	if !n.NodesOverlapping(p.NodeOverlap) {
		return verdict{}
	}
	ok, err := n.EdgesOverlapping(p.EdgeOverlap)
	if err != nil {
		return verdict{reason: "overlap", err: err}
	}
	if !ok {
		return verdict{}
	}
	d, err := n.ScoreDelta(p.Strategy)
	switch {
	case errors.Is(err, graph.ErrNoScore):
		return verdict{}
	case err != nil:
		return verdict{reason: "score", err: err}
	}
	if d < p.MinImprovement {
		return verdict{}
	}
	return verdict{accept: true, improvement: d}
}

func (p *Policy) String() string {
	name := "<nil>"
	if p.Strategy != nil {
		name = p.Strategy.Name()
	}
	return fmt.Sprintf("node>=%g edge>=%g delta(%s)>=%g", p.NodeOverlap, p.EdgeOverlap, name, p.MinImprovement)
}

// Reconfigure validates acc and swaps it in as the acceptance policy.
func (o *Orchestrator) Reconfigure(acc config.AcceptanceConf, reg *delta.Registry) (*Policy, error) {
	if err := config.ValidateAcceptance(acc, reg.Names()); err != nil {
		return nil, err
	}
	p, err := NewPolicy(acc, reg)
	if err != nil {
		return nil, err
	}
	o.SwapPolicy(p)
	return p, nil
}

package spectral

import (
	"errors"
	"time"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
	"github.com/gyaneshwarpardhi/commerge/internal/metrics"
)

// Scorer computes community scores on demand and memoizes them on the
// community itself. It is safe for concurrent use.
type Scorer struct{}

// NewScorer returns a Scorer.
func NewScorer() *Scorer { return &Scorer{} }

// Score returns c's algebraic connectivity, computing it at most once.
func (s *Scorer) Score(c *graph.Community) (float64, error) {
	return c.Score().Resolve(func() (float64, error) {
		start := time.Now()
		v, err := AlgebraicConnectivity(c)
		metrics.ScoreDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
		switch {
		case err == nil:
			metrics.ScoresComputed.WithLabelValues("valid").Inc()
		case errors.Is(err, graph.ErrNoScore):
			metrics.ScoresComputed.WithLabelValues("invalid").Inc()
		default:
			metrics.ScoresComputed.WithLabelValues("error").Inc()
		}
		return v, err
	})
}

package engine

import (
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/commerge/internal/metrics"
)

// Stats accumulates the counters of one run. It is shared by all workers
// and mirrors every increment into the process-wide prometheus metrics.
type Stats struct {
	mu           sync.Mutex
	negotiations int64
	pairs        int64
	merges       int64
	aborts       int64
	improvement  float64
}

// StatsSnapshot is a consistent copy of the counters.
type StatsSnapshot struct {
	Negotiations int64   `json:"negotiations"`
	Pairs        int64   `json:"pairs_examined"`
	Merges       int64   `json:"merges"`
	Aborts       int64   `json:"aborts"`
	Improvement  float64 `json:"cumulative_improvement"`
}

func (s *Stats) negotiation() {
	s.mu.Lock()
	s.negotiations++
	s.mu.Unlock()
}

func (s *Stats) pair() {
	s.mu.Lock()
	s.pairs++
	s.mu.Unlock()
	metrics.PairsExamined.Inc()
}

func (s *Stats) merge(improvement float64) {
	s.mu.Lock()
	s.merges++
	s.improvement += improvement
	s.mu.Unlock()
	metrics.MergesCommitted.Inc()
	if improvement > 0 {
		metrics.ScoreImprovement.Add(improvement)
	}
}

func (s *Stats) abort(reason string) {
	s.mu.Lock()
	s.aborts++
	s.mu.Unlock()
	metrics.NegotiationsAborted.WithLabelValues(reason).Inc()
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		Negotiations: s.negotiations,
		Pairs:        s.pairs,
		Merges:       s.merges,
		Aborts:       s.aborts,
		Improvement:  s.improvement,
	}
}

// Summary describes a finished run.
type Summary struct {
	RunID     string        `json:"run_id"`
	Elapsed   time.Duration `json:"elapsed"`
	Stats     StatsSnapshot `json:"stats"`
	Remaining int           `json:"remaining_communities"`
}

// PairsPerSecond is the examination throughput of the run.
func (s Summary) PairsPerSecond() float64 { return perSecond(s.Stats.Pairs, s.Elapsed) }

// MergesPerSecond is the commit throughput of the run.
func (s Summary) MergesPerSecond() float64 { return perSecond(s.Stats.Merges, s.Elapsed) }

// AverageImprovement is the mean score delta of committed merges.
func (s Summary) AverageImprovement() float64 {
	if s.Stats.Merges == 0 {
		return 0
	}
	return s.Stats.Improvement / float64(s.Stats.Merges)
}

func perSecond(n int64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}

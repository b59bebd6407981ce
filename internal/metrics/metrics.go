package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NegotiationsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commerge_negotiations_total",
		Help: "Total number of anchor communities locked by a worker.",
	})

	PairsExamined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commerge_pairs_examined_total",
		Help: "Total number of anchor/partner pairs evaluated against the acceptance policy.",
	})

	MergesCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commerge_merges_committed_total",
		Help: "Total number of merges committed to the community index.",
	})

	NegotiationsAborted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commerge_negotiations_aborted_total",
		Help: "Total number of negotiations abandoned on an error, labelled by reason.",
	}, []string{"reason"})

	ScoreImprovement = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commerge_score_improvement_total",
		Help: "Cumulative positive score delta of committed merges.",
	})

	CandidateRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commerge_candidate_retries_total",
		Help: "Empty-bucket draws and failed try-locks during candidate selection.",
	})

	LiveCommunities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "commerge_live_communities",
		Help: "Current number of communities in the index.",
	})

	ScoresComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commerge_scores_computed_total",
		Help: "Spectral scores computed, labelled by outcome (valid, invalid, error).",
	}, []string{"outcome"})

	ScoreDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "commerge_score_duration_ms",
		Help:    "Eigendecomposition latency in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000},
	})

	NegotiationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "commerge_negotiation_duration_ms",
		Help:    "Time from anchor lock to unlock in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000},
	})
)

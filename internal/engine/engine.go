// Package engine drives the concurrent merge search: a fixed pool of
// workers repeatedly negotiates merges against a shared index until a
// wall-clock deadline, then persists what is left.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
	"github.com/gyaneshwarpardhi/commerge/internal/index"
)

// Sink receives the final community list of a run. Every community has a
// resolved score state when Save is called.
type Sink interface {
	Save(runID string, communities []*graph.Community) error
}

// Config holds the fixed run settings.
type Config struct {
	Workers  int
	Walltime time.Duration
}

// Orchestrator owns one merge run.
type Orchestrator struct {
	idx    *index.Index
	scorer index.Scorer
	policy atomic.Pointer[Policy]
	conf   Config
	sink   Sink
	log    *slog.Logger
	stats  *Stats
	runID  string

	stop    atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
}

// New creates an Orchestrator. sink and logger may be nil.
func New(idx *index.Index, scorer index.Scorer, policy *Policy, conf Config, sink Sink, logger *slog.Logger) *Orchestrator {
	if conf.Workers < 1 {
		conf.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		idx:    idx,
		scorer: scorer,
		conf:   conf,
		sink:   sink,
		stats:  &Stats{},
		runID:  uuid.NewString(),
	}
	o.log = logger.With("run_id", o.runID)
	o.policy.Store(policy)
	return o
}

// RunID identifies this run in logs and output file names.
func (o *Orchestrator) RunID() string { return o.runID }

// Stats returns the live accumulator.
func (o *Orchestrator) Stats() *Stats { return o.stats }

// Index returns the index being merged.
func (o *Orchestrator) Index() *index.Index { return o.idx }

// Policy returns the acceptance policy currently in force.
func (o *Orchestrator) Policy() *Policy { return o.policy.Load() }

// SwapPolicy atomically replaces the acceptance policy (used on hot-reload).
// Negotiations already in progress finish under the policy they started with.
func (o *Orchestrator) SwapPolicy(p *Policy) {
	o.policy.Store(p)
	o.log.Info("acceptance policy swapped", "policy", p.String())
}

// Stop asks the workers to finish their current negotiation and exit.
func (o *Orchestrator) Stop() {
	o.stop.Store(true)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// Run negotiates merges until the walltime elapses, ctx is cancelled or
// Stop is called, waits for every worker and persists the remaining
// communities. Run may only be called once.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return nil, errors.New("engine: run already started")
	}
	o.started = true
	runCtx, cancel := context.WithTimeout(ctx, o.conf.Walltime)
	o.cancel = cancel
	o.mu.Unlock()
	defer cancel()

	// The stop flag is what workers check between negotiations; the
	// context only interrupts candidate backoff.
	release := context.AfterFunc(runCtx, func() { o.stop.Store(true) })
	defer release()

	start := time.Now()
	pool := newLoopPool(runCtx, o.conf.Workers, o.work)
	o.log.Info("merge run started",
		"workers", pool.Size(),
		"walltime", o.conf.Walltime,
		"communities", o.idx.Len(),
		"policy", o.Policy().String(),
	)
	runErr := pool.Wait()
	elapsed := time.Since(start)

	sum := &Summary{
		RunID:     o.runID,
		Elapsed:   elapsed,
		Stats:     o.stats.Snapshot(),
		Remaining: o.idx.Len(),
	}
	o.log.Info("merge run finished",
		"elapsed", elapsed.Round(time.Millisecond),
		"pairs", sum.Stats.Pairs,
		"pairs_per_sec", sum.PairsPerSecond(),
		"merges", sum.Stats.Merges,
		"merges_per_sec", sum.MergesPerSecond(),
		"avg_improvement", sum.AverageImprovement(),
		"aborts", sum.Stats.Aborts,
		"remaining", sum.Remaining,
	)
	if runErr != nil {
		return sum, fmt.Errorf("engine: worker failed: %w", runErr)
	}
	if err := o.persist(); err != nil {
		return sum, err
	}
	return sum, nil
}

// work is one worker loop. The stop flag is only honoured between
// negotiations, so a worker never exits holding a lock.
func (o *Orchestrator) work(ctx context.Context, worker int) error {
	log := o.log.With("worker", worker)
	for !o.stop.Load() {
		err := o.negotiate(ctx, log)
		switch {
		case err == nil:
		case errors.Is(err, index.ErrEmptyIndex):
			log.Debug("index empty, worker exiting")
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}
	return nil
}

// negotiate runs one negotiation to acceptance or exhaustion. Data errors
// abort the negotiation, not the run.
func (o *Orchestrator) negotiate(ctx context.Context, log *slog.Logger) error {
	n, err := o.idx.Candidate(ctx)
	if err != nil {
		return err
	}
	defer n.Unlock()
	o.stats.negotiation()

	policy := o.policy.Load()
	for n.Next() {
		o.stats.pair()
		v := policy.evaluate(n)
		if v.err != nil {
			o.abort(log, v.reason, v.err)
			return nil
		}
		if !v.accept {
			continue
		}
		if err := o.idx.Update(n); err != nil {
			o.abort(log, "commit", err)
			return nil
		}
		o.stats.merge(v.improvement)
		log.Debug("merge committed",
			"anchor_size", n.Anchor().NodeCount(),
			"partner_size", n.Partner().NodeCount(),
			"improvement", v.improvement,
		)
		return nil
	}
	return nil
}

func (o *Orchestrator) abort(log *slog.Logger, reason string, err error) {
	o.stats.abort(reason)
	log.Warn("negotiation aborted", "reason", reason, "err", err)
}

// persist resolves every missing score and hands the communities to the sink.
func (o *Orchestrator) persist() error {
	if o.sink == nil {
		return nil
	}
	comms := o.idx.Communities()
	var g errgroup.Group
	g.SetLimit(o.conf.Workers)
	for _, c := range comms {
		g.Go(func() error {
			if _, err := o.scorer.Score(c); err != nil && !errors.Is(err, graph.ErrNoScore) {
				o.log.Warn("score before persist failed", "community", c.Name(), "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := o.sink.Save(o.runID, comms); err != nil {
		return fmt.Errorf("engine: persist: %w", err)
	}
	o.log.Info("communities persisted", "count", len(comms))
	return nil
}

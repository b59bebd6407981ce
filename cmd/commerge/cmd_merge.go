package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/commerge/internal/api"
	"github.com/gyaneshwarpardhi/commerge/internal/config"
	"github.com/gyaneshwarpardhi/commerge/internal/delta"
	"github.com/gyaneshwarpardhi/commerge/internal/engine"
	"github.com/gyaneshwarpardhi/commerge/internal/index"
	"github.com/gyaneshwarpardhi/commerge/internal/spectral"
	"github.com/gyaneshwarpardhi/commerge/internal/store"
)

type mergeFlags struct {
	configPath string
	watch      bool
	in         inputFlags
	cfg        config.MergeConfig
}

func newMergeCmd() *cobra.Command {
	return bindMergeCmd(&mergeFlags{})
}

// bindMergeCmd builds the merge command over f. Flag defaults are the
// config defaults, so a flags-only run and a config file that omits a
// setting agree.
func bindMergeCmd(f *mergeFlags) *cobra.Command {
	def := config.Default()
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge overlapping communities until the walltime elapses",
		Long: `merge loads the base graph and the initial communities, runs the
concurrent merge search for the configured walltime (or until SIGINT/SIGTERM)
and writes the surviving communities with their scores to the output dir.

Settings come from --config and may be overridden by flags. With --watch the
acceptance section of the config file is hot-reloaded during the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "YAML config file")
	fl.BoolVar(&f.watch, "watch", false, "hot-reload the acceptance section of --config")
	f.in.register(cmd, def.Input.Format)
	fl.IntVar(&f.cfg.Engine.Workers, "workers", def.Engine.Workers, "number of concurrent workers")
	fl.IntVar(&f.cfg.Engine.WalltimeSeconds, "walltime", def.Engine.WalltimeSeconds, "wall-clock budget in seconds")
	fl.IntVar(&f.cfg.Engine.CandidateAttempts, "candidate-attempts", def.Engine.CandidateAttempts, "random draws per index lock before backing off")
	fl.Uint64Var(&f.cfg.Engine.Seed, "seed", def.Engine.Seed, "sampling seed (0 = random)")
	fl.Float64Var(&f.cfg.Acceptance.NodeOverlap, "node-overlap", def.Acceptance.NodeOverlap, "minimum node overlap fraction")
	fl.Float64Var(&f.cfg.Acceptance.EdgeOverlap, "edge-overlap", def.Acceptance.EdgeOverlap, "minimum edge overlap fraction")
	fl.Float64Var(&f.cfg.Acceptance.MinImprovement, "min-improvement", def.Acceptance.MinImprovement, "minimum score delta of an accepted merge")
	fl.StringVar(&f.cfg.Acceptance.DeltaStrategy, "strategy", def.Acceptance.DeltaStrategy, "score delta strategy (average, larger)")
	fl.StringVarP(&f.cfg.Output.Dir, "out", "o", def.Output.Dir, "output directory")
	fl.BoolVar(&f.cfg.Output.Compress, "compress", def.Output.Compress, "snappy-compress the output file")
	fl.StringVar(&f.cfg.Status.Addr, "status-addr", def.Status.Addr, "serve /healthz, /metrics and /v1/stats on this address")
	return cmd
}

// resolveConfig merges the config file (if any) with the flags that were
// set explicitly on the command line. Without a config file every flag
// applies, defaults included.
func resolveConfig(cmd *cobra.Command, f *mergeFlags) (*config.MergeConfig, *config.Loader, error) {
	def := config.Default()
	def.Version = "1"
	cfg := &def
	var loader *config.Loader
	if f.configPath != "" {
		l, err := config.NewLoader(f.configPath)
		if err != nil {
			return nil, nil, err
		}
		loader = l
		cp := *l.Config()
		cfg = &cp
	}

	set := cmd.Flags().Changed
	override := func(name string, apply func()) {
		if loader == nil || set(name) {
			apply()
		}
	}
	override("graph", func() { cfg.Input.Graph = f.in.graph })
	override("representation", func() { cfg.Input.Representation = f.in.representation })
	override("communities", func() { cfg.Input.Communities = f.in.communities })
	override("format", func() { cfg.Input.Format = f.in.format })
	override("skip", func() { cfg.Input.Skip = f.in.skip })
	override("workers", func() { cfg.Engine.Workers = f.cfg.Engine.Workers })
	override("walltime", func() { cfg.Engine.WalltimeSeconds = f.cfg.Engine.WalltimeSeconds })
	override("candidate-attempts", func() { cfg.Engine.CandidateAttempts = f.cfg.Engine.CandidateAttempts })
	override("seed", func() { cfg.Engine.Seed = f.cfg.Engine.Seed })
	override("node-overlap", func() { cfg.Acceptance.NodeOverlap = f.cfg.Acceptance.NodeOverlap })
	override("edge-overlap", func() { cfg.Acceptance.EdgeOverlap = f.cfg.Acceptance.EdgeOverlap })
	override("min-improvement", func() { cfg.Acceptance.MinImprovement = f.cfg.Acceptance.MinImprovement })
	override("strategy", func() { cfg.Acceptance.DeltaStrategy = f.cfg.Acceptance.DeltaStrategy })
	override("out", func() { cfg.Output.Dir = f.cfg.Output.Dir })
	override("compress", func() { cfg.Output.Compress = f.cfg.Output.Compress })
	override("status-addr", func() { cfg.Status.Addr = f.cfg.Status.Addr })
	return cfg, loader, nil
}

func runMerge(cmd *cobra.Command, f *mergeFlags) error {
	cfg, loader, err := resolveConfig(cmd, f)
	if err != nil {
		return err
	}
	reg := delta.DefaultRegistry()
	if err := config.Validate(cfg, reg.Names()); err != nil {
		return err
	}
	if f.watch && loader == nil {
		return errors.New("--watch requires --config")
	}

	in := inputFlags{
		graph:          cfg.Input.Graph,
		representation: cfg.Input.Representation,
		communities:    cfg.Input.Communities,
		format:         cfg.Input.Format,
		skip:           cfg.Input.Skip,
	}
	base, cs, err := in.load()
	if err != nil {
		return err
	}

	scorer := spectral.NewScorer()
	idx, err := index.Build(base, cs, scorer, index.Options{
		CandidateAttempts: cfg.Engine.CandidateAttempts,
		Seed:              cfg.Engine.Seed,
		MaxBackoff:        time.Duration(cfg.Engine.MaxBackoffMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	policy, err := engine.NewPolicy(cfg.Acceptance, reg)
	if err != nil {
		return err
	}
	if err := ensureDir(cfg.Output.Dir); err != nil {
		return err
	}
	sink := &store.FileSink{Dir: cfg.Output.Dir, Compress: cfg.Output.Compress, Scorer: scorer}
	orch := engine.New(idx, scorer, policy, engine.Config{
		Workers:  cfg.Engine.Workers,
		Walltime: time.Duration(cfg.Engine.WalltimeSeconds) * time.Second,
	}, sink, slog.Default())

	if f.watch {
		loader.OnChange(func(c *config.MergeConfig) {
			if _, err := orch.Reconfigure(c.Acceptance, reg); err != nil {
				slog.Warn("hot-reload skipped: acceptance invalid", "err", err)
			}
		})
		stopWatch, err := loader.Watch()
		if err != nil {
			slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
		} else {
			defer stopWatch()
		}
	}

	if cfg.Status.Addr != "" {
		srv := &http.Server{
			Addr:         cfg.Status.Addr,
			Handler:      api.New(orch, loader, reg),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			slog.Info("status server starting", "addr", cfg.Status.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("status server error", "err", err)
			}
		}()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	sum, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s finished after %s\n", sum.RunID, sum.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "pairs examined: %d (%.1f/s)\n", sum.Stats.Pairs, sum.PairsPerSecond())
	fmt.Fprintf(out, "merges: %d (%.2f/s), average improvement %.4f\n", sum.Stats.Merges, sum.MergesPerSecond(), sum.AverageImprovement())
	fmt.Fprintf(out, "communities: %d -> %d\n", len(cs), sum.Remaining)
	fmt.Fprintf(out, "written to %s\n", sink.Path)
	return nil
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
	"github.com/gyaneshwarpardhi/commerge/internal/spectral"
	"github.com/gyaneshwarpardhi/commerge/internal/store"
)

func newScoreCmd() *cobra.Command {
	var (
		in      inputFlags
		out     string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the spectral score of every community",
		Long: `score reads a community list and writes it back in the scored format,
so a later merge run does not have to compute the initial scores.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.required(); err != nil {
				return err
			}
			_, cs, err := in.load()
			if err != nil {
				return err
			}
			scorer := spectral.NewScorer()
			invalid, err := scoreAll(cs, scorer, workers)
			if err != nil {
				return err
			}
			slog.Info("scores computed", "communities", len(cs), "without_score", invalid)

			w, err := createOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := store.WriteCommunities(w, cs, store.FormatScored, scorer); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
	}
	in.register(cmd, string(store.FormatNodeList))
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file (- for stdout, .sz for snappy)")
	cmd.Flags().IntVar(&workers, "workers", 4, "number of concurrent eigendecompositions")
	return cmd
}

// scoreAll resolves every score with up to workers goroutines and reports
// how many communities have no valid score.
func scoreAll(cs []*graph.Community, scorer *spectral.Scorer, workers int) (int, error) {
	var invalid atomic.Int64
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i, c := range cs {
		g.Go(func() error {
			_, err := scorer.Score(c)
			switch {
			case errors.Is(err, graph.ErrNoScore):
				invalid.Add(1)
			case err != nil:
				return fmt.Errorf("community %d: %w", i, err)
			}
			return nil
		})
	}
	err := g.Wait()
	return int(invalid.Load()), err
}

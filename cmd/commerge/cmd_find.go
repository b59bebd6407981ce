package main

import (
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
	"github.com/gyaneshwarpardhi/commerge/internal/spectral"
	"github.com/gyaneshwarpardhi/commerge/internal/store"
)

type findQuery struct {
	target  float64
	epsilon float64
	minSize int
	limit   int
}

func newFindCmd() *cobra.Command {
	var (
		in  inputFlags
		q   findQuery
		out string
	)
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Print communities whose score is close to a target",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.required(); err != nil {
				return err
			}
			_, cs, err := in.load()
			if err != nil {
				return err
			}
			scorer := spectral.NewScorer()
			found, err := findByScore(cs, scorer, q)
			if err != nil {
				return err
			}
			w, err := createOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := store.WriteCommunities(w, found, store.FormatScored, scorer); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
	}
	in.register(cmd, string(store.FormatScored))
	cmd.Flags().Float64Var(&q.target, "target", 0.5, "score to look for")
	cmd.Flags().Float64Var(&q.epsilon, "epsilon", 0.01, "accepted distance from --target")
	cmd.Flags().IntVar(&q.minSize, "min-size", 1, "minimum community size")
	cmd.Flags().IntVar(&q.limit, "limit", 10, "maximum number of matches (0 = all)")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file (- for stdout, .sz for snappy)")
	return cmd
}

func findByScore(cs []*graph.Community, scorer *spectral.Scorer, q findQuery) ([]*graph.Community, error) {
	var found []*graph.Community
	for i, c := range cs {
		if q.limit > 0 && len(found) >= q.limit {
			break
		}
		if c.NodeCount() < q.minSize {
			continue
		}
		v, err := scorer.Score(c)
		if errors.Is(err, graph.ErrNoScore) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("community %d: %w", i, err)
		}
		if math.Abs(v-q.target) <= q.epsilon {
			found = append(found, c)
		}
	}
	return found, nil
}

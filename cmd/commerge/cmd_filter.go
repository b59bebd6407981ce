package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
	"github.com/gyaneshwarpardhi/commerge/internal/spectral"
	"github.com/gyaneshwarpardhi/commerge/internal/store"
)

func newFilterCmd() *cobra.Command {
	var (
		in               inputFlags
		out              string
		cutoff           float64
		dropDisconnected bool
	)
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Remove star-like hub nodes from every community",
		Long: `filter drops, from each community, the nodes whose in-community degree
exceeds cutoff times the community size, reports communities that fall apart
and writes the filtered communities with their scores.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.required(); err != nil {
				return err
			}
			if cutoff <= 0 {
				return fmt.Errorf("--cutoff must be positive, got %v", cutoff)
			}
			_, cs, err := in.load()
			if err != nil {
				return err
			}
			kept, disconnected, err := filterStarlike(cs, cutoff, dropDisconnected)
			if err != nil {
				return err
			}
			slog.Info("communities filtered", "read", len(cs), "written", len(kept), "disconnected", disconnected)

			w, err := createOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := store.WriteCommunities(w, kept, store.FormatScored, spectral.NewScorer()); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
	}
	in.register(cmd, string(store.FormatNodeList))
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file (- for stdout, .sz for snappy)")
	cmd.Flags().Float64Var(&cutoff, "cutoff", 0.5, "maximum degree as a fraction of community size")
	cmd.Flags().BoolVar(&dropDisconnected, "drop-disconnected", false, "omit communities that become disconnected")
	return cmd
}

func filterStarlike(cs []*graph.Community, cutoff float64, dropDisconnected bool) ([]*graph.Community, int, error) {
	var kept []*graph.Community
	disconnected := 0
	for i, c := range cs {
		f, err := c.RemoveHighDegreeNodes(cutoff)
		if err != nil {
			return nil, 0, fmt.Errorf("community %d: %w", i, err)
		}
		if f.NodeCount() == 0 {
			slog.Debug("community emptied by filter", "index", i, "size", c.NodeCount())
			continue
		}
		ok, err := graph.IsConnected(f)
		if err != nil {
			return nil, 0, fmt.Errorf("community %d: %w", i, err)
		}
		if !ok {
			disconnected++
			largest, _ := graph.LargestComponentSize(f)
			slog.Info("community disconnected by filter",
				"index", i, "size", c.NodeCount(), "filtered_size", f.NodeCount(), "largest_component", largest)
			if dropDisconnected {
				continue
			}
		}
		kept = append(kept, f)
	}
	return kept, disconnected, nil
}

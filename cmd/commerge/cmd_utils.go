package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
	"github.com/gyaneshwarpardhi/commerge/internal/store"
)

// inputFlags are shared by every subcommand that reads a graph and communities.
type inputFlags struct {
	graph          string
	representation string
	communities    string
	format         string
	skip           int
}

func (f *inputFlags) register(cmd *cobra.Command, defaultFormat string) {
	cmd.Flags().StringVarP(&f.graph, "graph", "g", "", "base graph in METIS format (.sz for snappy)")
	cmd.Flags().StringVar(&f.representation, "representation", "list", "base graph storage (list, matrix)")
	cmd.Flags().StringVarP(&f.communities, "communities", "c", "", "community list, one per line (.sz for snappy)")
	cmd.Flags().StringVar(&f.format, "format", defaultFormat, "community list format (nodelist, scored)")
	cmd.Flags().IntVar(&f.skip, "skip", 1, "keep only every skip-th community")
}

func (f *inputFlags) required() error {
	if f.graph == "" {
		return fmt.Errorf("--graph is required")
	}
	if f.communities == "" {
		return fmt.Errorf("--communities is required")
	}
	return nil
}

func (f *inputFlags) load() (graph.Graph, []*graph.Community, error) {
	base, err := loadGraph(f.graph, graph.Representation(f.representation))
	if err != nil {
		return nil, nil, err
	}
	cs, err := loadCommunities(f.communities, base, store.Format(f.format), f.skip)
	if err != nil {
		return nil, nil, err
	}
	return base, cs, nil
}

func loadGraph(path string, rep graph.Representation) (graph.Graph, error) {
	r, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	g, err := store.ParseMetis(r, rep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("graph loaded", "path", path, "nodes", g.NodeCount(), "edges", g.EdgeCount()/2)
	return g, nil
}

func loadCommunities(path string, base graph.Graph, format store.Format, skip int) ([]*graph.Community, error) {
	r, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	if skip > 1 {
		slog.Warn("skipping communities", "keep_every", skip)
	}
	cs, err := store.ReadCommunities(r, base, format, skip)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Info("communities loaded", "path", path, "count", len(cs))
	return cs, nil
}

// createOutput opens path for writing; "" and "-" mean the command's stdout.
func createOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	return store.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return nil
}

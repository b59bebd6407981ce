package store

import (
	"fmt"
	"path/filepath"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
)

// FileSink persists the final communities of a merge run into Dir as
// communities-<run id>.txt, snappy-compressed when Compress is set.
type FileSink struct {
	Dir      string
	Compress bool
	Scorer   Scorer

	// Path is set to the written file after a successful Save.
	Path string
}

// Save writes cs in the scored format so the file can seed another run.
func (s *FileSink) Save(runID string, cs []*graph.Community) error {
	name := "communities-" + runID + ".txt"
	if s.Compress {
		name += CompressedExt
	}
	path := filepath.Join(s.Dir, name)
	w, err := Create(path)
	if err != nil {
		return err
	}
	if err := WriteCommunities(w, cs, FormatScored, s.Scorer); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	s.Path = path
	return nil
}

// Package store reads and writes base graphs and community lists.
package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
)

// ErrFormat is wrapped by every error caused by malformed input.
var ErrFormat = errors.New("malformed input")

const maxLine = 64 << 20

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return sc
}

func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "%")
}

// ParseMetis reads a METIS adjacency file. The first non-comment line holds
// the node count n and the undirected edge count e; any further header
// fields are skipped. Line i+1 lists the 0-based neighbors of node i, so
// every edge appears twice; a neighbor repeated on one line counts once
// against e. Lines starting with '%' are comments.
func ParseMetis(r io.Reader, rep graph.Representation) (graph.Graph, error) {
	sc := newScanner(r)
	lineNo := 0

	var header []string
	for sc.Scan() {
		lineNo++
		if isComment(sc.Text()) || strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		header = strings.Fields(sc.Text())
		break
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("metis: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: metis: missing header", ErrFormat)
	}
	n, err := strconv.Atoi(header[0])
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: metis: line %d: bad node count %q", ErrFormat, lineNo, header[0])
	}
	e, err := strconv.Atoi(header[1])
	if err != nil || e < 0 {
		return nil, fmt.Errorf("%w: metis: line %d: bad edge count %q", ErrFormat, lineNo, header[1])
	}
	for _, f := range header[2:] {
		slog.Warn("skipping metis header field", "value", f)
	}

	g, err := graph.New(rep, n)
	if err != nil {
		return nil, err
	}
	node, entries := 0, 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if isComment(line) {
			continue
		}
		fields := strings.Fields(line)
		if node >= n {
			if len(fields) == 0 {
				continue
			}
			return nil, fmt.Errorf("%w: metis: line %d: more than %d node lines", ErrFormat, lineNo, n)
		}
		for _, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("%w: metis: line %d: unknown token %q", ErrFormat, lineNo, f)
			}
			added, err := g.AddEdge(node, v)
			if err != nil {
				return nil, fmt.Errorf("%w: metis: line %d: %v", ErrFormat, lineNo, err)
			}
			if added {
				entries++
			}
		}
		node++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("metis: %w", err)
	}
	if entries%2 != 0 {
		return nil, fmt.Errorf("%w: metis: uneven edge count %d", ErrFormat, entries)
	}
	if entries/2 != e {
		return nil, fmt.Errorf("%w: metis: header declares %d edges, found %d", ErrFormat, e, entries/2)
	}
	return g, nil
}

// edgeCounter is implemented by views whose edge count depends on lookups
// that can fail, such as *graph.Community.
type edgeCounter interface {
	CountEdges() (int, error)
}

// WriteMetis writes g in the format read by ParseMetis.
func WriteMetis(w io.Writer, g graph.Graph) error {
	e := g.EdgeCount()
	if ec, ok := g.(edgeCounter); ok {
		n, err := ec.CountEdges()
		if err != nil {
			return fmt.Errorf("metis: count edges: %w", err)
		}
		e = n
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d\n", g.NodeCount(), e/2)
	for i := 0; i < g.NodeCount(); i++ {
		nbs, err := g.Neighbors(i)
		if err != nil {
			return err
		}
		for j, v := range nbs {
			if j > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.Itoa(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

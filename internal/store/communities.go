package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/commerge/internal/graph"
)

// Format selects the layout of a community list.
type Format string

const (
	// FormatNodeList lines hold only original node ids.
	FormatNodeList Format = "nodelist"
	// FormatScored lines start with the community's score, or "nan" when it
	// has no valid score, followed by its node ids.
	FormatScored Format = "scored"
)

// Scorer resolves a community score. It matches spectral.Scorer.
type Scorer interface {
	Score(c *graph.Community) (float64, error)
}

// ReadCommunities reads one community per line over base. Only every
// skip-th community is kept (skip <= 1 keeps all). Blank and '%' lines are
// ignored.
func ReadCommunities(r io.Reader, base graph.Graph, format Format, skip int) ([]*graph.Community, error) {
	if format != FormatNodeList && format != FormatScored {
		return nil, fmt.Errorf("communities: unknown format %q", format)
	}
	if skip < 1 {
		skip = 1
	}
	sc := newScanner(r)
	var out []*graph.Community
	lineNo, entry := 0, 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 || isComment(line) {
			continue
		}
		entry++
		if (entry-1)%skip != 0 {
			continue
		}
		c, err := parseCommunity(base, format, fields)
		if err != nil {
			return nil, fmt.Errorf("communities: line %d: %w", lineNo, err)
		}
		out = append(out, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("communities: %w", err)
	}
	return out, nil
}

func parseCommunity(base graph.Graph, format Format, fields []string) (*graph.Community, error) {
	score, hasScore := 0.0, false
	if format == FormatScored {
		v, err := parseScore(fields[0])
		if err != nil {
			return nil, err
		}
		score, hasScore = v, true
		fields = fields[1:]
	}
	ids := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown token %q", ErrFormat, f)
		}
		ids[i] = v
	}
	c, err := graph.NewCommunity(base, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if hasScore {
		if err := c.Score().Set(score); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parseScore(tok string) (float64, error) {
	if strings.EqualFold(tok, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad score %q", ErrFormat, tok)
	}
	return v, nil
}

// WriteCommunities writes cs in the given format, one line each. For the
// scored format unset scores are resolved through scorer; a nil scorer
// makes an unset score an error.
func WriteCommunities(w io.Writer, cs []*graph.Community, format Format, scorer Scorer) error {
	bw := bufio.NewWriter(w)
	for i, c := range cs {
		if format == FormatScored {
			tok, err := scoreToken(c, scorer)
			if err != nil {
				return fmt.Errorf("communities: entry %d: %w", i, err)
			}
			bw.WriteString(tok)
			bw.WriteByte(' ')
		}
		for j, v := range c.OriginalIDs() {
			if j > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.Itoa(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func scoreToken(c *graph.Community, scorer Scorer) (string, error) {
	v, state := c.Score().Value()
	if state == graph.ScoreUnset && scorer != nil {
		if _, err := scorer.Score(c); err != nil && !errors.Is(err, graph.ErrNoScore) {
			return "", err
		}
		v, state = c.Score().Value()
	}
	switch state {
	case graph.ScoreUnset:
		return "", fmt.Errorf("score of %s not computed", c.Name())
	case graph.ScoreInvalid:
		return "nan", nil
	}
	return strconv.FormatFloat(v, 'g', -1, 64), nil
}

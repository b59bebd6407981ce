package api_test

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/commerge/internal/api"
	"github.com/gyaneshwarpardhi/commerge/internal/config"
	"github.com/gyaneshwarpardhi/commerge/internal/delta"
	"github.com/gyaneshwarpardhi/commerge/internal/engine"
	"github.com/gyaneshwarpardhi/commerge/internal/graph"
	"github.com/gyaneshwarpardhi/commerge/internal/index"
)

type sizeScorer struct{}

func (sizeScorer) Score(c *graph.Community) (float64, error) {
	return c.Score().Resolve(func() (float64, error) { return float64(c.NodeCount()), nil })
}

const cfgYAML = `
version: "1"
input:
  graph: g.metis
  communities: c.txt
acceptance:
  node_overlap: 0.5
  delta_strategy: %s
`

func orchestrator(t *testing.T) *engine.Orchestrator {
	t.Helper()
	g := graph.NewAdjacencyList(4)
	for _, e := range [][2]int{{0, 1}, {1, 2}, {2, 3}} {
		_, err := g.AddEdge(e[0], e[1])
		require.NoError(t, err)
		_, err = g.AddEdge(e[1], e[0])
		require.NoError(t, err)
	}
	a, err := graph.NewCommunity(g, []int{0, 1, 2})
	require.NoError(t, err)
	b, err := graph.NewCommunity(g, []int{1, 2, 3})
	require.NoError(t, err)
	idx, err := index.Build(g, []*graph.Community{a, b}, sizeScorer{}, index.Options{Seed: 1})
	require.NoError(t, err)

	p := &engine.Policy{NodeOverlap: 0.5, MinImprovement: 100, Strategy: delta.Average{}}
	return engine.New(idx, sizeScorer{}, p, engine.Config{Workers: 1, Walltime: time.Second}, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeConfig(t *testing.T, strategy string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "commerge.yaml")
	require.NoError(t, os.WriteFile(p, []byte(fmt.Sprintf(cfgYAML, strategy)), 0o644))
	return p
}

func TestHealthz(t *testing.T) {
	h := api.New(orchestrator(t), nil, delta.DefaultRegistry())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStats(t *testing.T) {
	o := orchestrator(t)
	h := api.New(o, nil, delta.DefaultRegistry())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RunID       string `json:"run_id"`
		Communities int    `json:"communities"`
		Locked      int    `json:"locked"`
		Stats       struct {
			Merges int64 `json:"merges"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, o.RunID(), body.RunID)
	assert.Equal(t, 2, body.Communities)
	assert.Zero(t, body.Locked)
	assert.Zero(t, body.Stats.Merges)
}

func TestMetrics(t *testing.T) {
	h := api.New(orchestrator(t), nil, delta.DefaultRegistry())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "commerge_live_communities")
}

func TestReloadConfig(t *testing.T) {
	t.Run("without loader", func(t *testing.T) {
		h := api.New(orchestrator(t), nil, delta.DefaultRegistry())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/config/reload", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("swaps policy", func(t *testing.T) {
		o := orchestrator(t)
		l, err := config.NewLoader(writeConfig(t, "larger"))
		require.NoError(t, err)
		h := api.New(o, l, delta.DefaultRegistry())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/config/reload", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "larger", o.Policy().Strategy.Name())
		assert.Equal(t, 0.01, o.Policy().MinImprovement)
	})

	t.Run("rejects unknown strategy", func(t *testing.T) {
		o := orchestrator(t)
		l, err := config.NewLoader(writeConfig(t, "median"))
		require.NoError(t, err)
		h := api.New(o, l, delta.DefaultRegistry())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/config/reload", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "average", o.Policy().Strategy.Name())
	})

	t.Run("wrong method", func(t *testing.T) {
		h := api.New(orchestrator(t), nil, delta.DefaultRegistry())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/config/reload", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

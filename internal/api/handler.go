// Package api serves the status surface of a running merge.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/commerge/internal/config"
	"github.com/gyaneshwarpardhi/commerge/internal/delta"
	"github.com/gyaneshwarpardhi/commerge/internal/engine"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	orch     *engine.Orchestrator
	loader   *config.Loader
	registry *delta.Registry
	mux      *http.ServeMux
}

// New creates an HTTP handler and registers all routes. loader may be nil
// when the run was configured from flags only; reload is then unavailable.
func New(orch *engine.Orchestrator, loader *config.Loader, reg *delta.Registry) http.Handler {
	h := &Handler{orch: orch, loader: loader, registry: reg, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /v1/stats", h.stats)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

type statsResponse struct {
	RunID       string               `json:"run_id"`
	Stats       engine.StatsSnapshot `json:"stats"`
	Communities int                  `json:"communities"`
	Locked      int                  `json:"locked"`
	Policy      string               `json:"policy"`
}

// GET /v1/stats: live counters of the run.
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	idx := h.orch.Index()
	writeJSON(w, http.StatusOK, statsResponse{
		RunID:       h.orch.RunID(),
		Stats:       h.orch.Stats().Snapshot(),
		Communities: idx.Len(),
		Locked:      idx.LockedCount(),
		Policy:      h.orch.Policy().String(),
	})
}

// POST /v1/config/reload: re-read the config file and swap the acceptance policy.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil {
		writeError(w, http.StatusConflict, "run was not started from a config file")
		return
	}
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	p, err := h.orch.Reconfigure(cfg.Acceptance, h.registry)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"policy":   p.String(),
	})
}

// GET /healthz: always 200.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

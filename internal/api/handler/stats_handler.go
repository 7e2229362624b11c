package handler

import (
	"net/http"

	"github.com/proposalhub/notify-fabric/internal/engine"
)

// StatsHandler serves the engine's operational snapshot for ops dashboards.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type StatsHandler struct {
	eng *engine.Engine
}

func NewStatsHandler(eng *engine.Engine) *StatsHandler {
	return &StatsHandler{eng: eng}
}

// GetStats handles GET /api/v1/stats
//
// @Summary  Dispatch engine statistics snapshot
// @Tags     stats
// @Produce  json
// @Success  200  {object}  engine.Statistics
// @Router   /api/v1/stats [get]
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.eng.Statistics())
}

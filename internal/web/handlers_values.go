package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/measurestats/internal/core"
	"github.com/JonMunkholm/measurestats/internal/logging"
)

const healthTimeout = 2 * time.Second

// handleRecentValues returns the newest samples of one file.
// count defaults to the configured recent count.
func (s *Server) handleRecentValues(w http.ResponseWriter, r *http.Request) {
	p := newQueryParser(r)
	fileName := p.value(paramFileName)
	count := p.intParam(paramCount)
	if err := p.err(); err != nil {
		s.respondError(w, r, err)
		return
	}

	items, err := s.service.RecentSamples(r.Context(), fileName, count)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, items)
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status   string                   `json:"status"`
	Database string                   `json:"database"`
	Imports  core.ImportLimiterStatus `json:"imports"`
}

// handleHealth reports store reachability and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:   "ok",
		Database: "ok",
		Imports:  s.service.ImportLimiterStatus(),
	}
	status := http.StatusOK

	if err := s.service.Ping(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Database = "unreachable"
		logging.FromContext(ctx).Warn("health check failed", "error", err, "code", core.MapError(err).Code)
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, status, resp)
}

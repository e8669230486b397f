package web

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/measurestats/internal/core"
	"github.com/JonMunkholm/measurestats/internal/logging"
	"github.com/JonMunkholm/measurestats/internal/web/templates"
)

// handleResults returns one page of summaries as JSON, or as an HTML table
// when the client accepts text/html.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSummaryFilter(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	page, err := s.service.Results(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.ResultsPage(resultsParams(page, r.URL.Query())).Render(r.Context(), w); err != nil {
			logging.FromContext(r.Context()).Error("render results page", "error", err)
		}
		return
	}
	writeJSON(w, page)
}

// handleExport writes every matching summary as CSV or Parquet, ignoring paging.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := core.ParseExportFormat(r.URL.Query().Get(paramFormat))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	filter, err := parseSummaryFilter(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	items, err := s.service.Export(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="results.%s"`, format))
	if err := core.WriteSummaries(w, format, items); err != nil {
		logging.FromContext(r.Context()).Error("write export", "format", format, "error", err, "rows", len(items))
	}
}

// handleSummary returns the summary of a single file.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	fileName, err := url.PathUnescape(chi.URLParam(r, "fileName"))
	if err != nil {
		s.respondError(w, r, core.NewValidationError("file name is not valid"))
		return
	}

	summary, err := s.service.Summary(r.Context(), fileName)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, summary)
}

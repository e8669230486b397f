package web

// Shared request parsing and response helpers used across handlers.

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cast"

	"github.com/JonMunkholm/measurestats/internal/core"
)

// Query parameter names for summary filters.
const (
	paramFileName             = "fileName"
	paramFirstStartFrom       = "firstStartFrom"
	paramFirstStartTo         = "firstStartTo"
	paramAvgValueFrom         = "avgValueFrom"
	paramAvgValueTo           = "avgValueTo"
	paramAvgExecutionTimeFrom = "avgExecutionTimeFrom"
	paramAvgExecutionTimeTo   = "avgExecutionTimeTo"
	paramPage                 = "page"
	paramPageSize             = "pageSize"
	paramCount                = "count"
	paramFormat               = "format"
)

// queryParser reads typed query parameters and collects every problem.
type queryParser struct {
	r    *http.Request
	errs []string
}

func newQueryParser(r *http.Request) *queryParser {
	return &queryParser{r: r}
}

func (p *queryParser) value(name string) string {
	return strings.TrimSpace(p.r.URL.Query().Get(name))
}

// floatParam returns nil when the parameter is absent.
func (p *queryParser) floatParam(name string) *float64 {
	v := p.value(name)
	if v == "" {
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.errs = append(p.errs, fmt.Sprintf("%s must be a number", name))
		return nil
	}
	return &f
}

// timeParam returns nil when the parameter is absent. Values without a zone are
// read as UTC.
func (p *queryParser) timeParam(name string) *time.Time {
	v := p.value(name)
	if v == "" {
		return nil
	}
	t, err := dateparse.ParseIn(v, time.UTC)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s must be a date", name))
		return nil
	}
	t = t.UTC()
	return &t
}

// intParam returns 0 when the parameter is absent.
func (p *queryParser) intParam(name string) int {
	v := p.value(name)
	if v == "" {
		return 0
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s must be an integer", name))
		return 0
	}
	return i
}

func (p *queryParser) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return core.NewValidationError(p.errs...)
}

// parseSummaryFilter extracts summary criteria and paging from the query
// string. Paging is clamped later by the query service.
func parseSummaryFilter(r *http.Request) (core.SummaryFilter, error) {
	p := newQueryParser(r)
	f := core.SummaryFilter{
		FileName:             p.value(paramFileName),
		FirstStartFrom:       p.timeParam(paramFirstStartFrom),
		FirstStartTo:         p.timeParam(paramFirstStartTo),
		AvgValueFrom:         p.floatParam(paramAvgValueFrom),
		AvgValueTo:           p.floatParam(paramAvgValueTo),
		AvgExecutionTimeFrom: p.floatParam(paramAvgExecutionTimeFrom),
		AvgExecutionTimeTo:   p.floatParam(paramAvgExecutionTimeTo),
		Page:                 p.intParam(paramPage),
		PageSize:             p.intParam(paramPageSize),
	}
	return f, p.err()
}

// wantsHTML reports whether the client asked for an HTML page.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

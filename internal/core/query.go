package core

import (
	"context"
	"math"
	"strings"
)

// Paging defaults and bounds.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Recent-sample defaults and bounds.
const (
	DefaultRecentCount = 10
	MaxRecentCount     = 1000
)

// NormalizePage clamps paging input: page < 1 becomes 1, pageSize < 1
// becomes DefaultPageSize, pageSize > MaxPageSize becomes MaxPageSize.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// QueryOptions configures a QueryService. Zero values select defaults.
type QueryOptions struct {
	RecentDefault int
	RecentMax     int
}

// QueryService answers read-only questions about stored imports.
type QueryService struct {
	store         Store
	recentDefault int
	recentMax     int
}

// NewQueryService creates a QueryService.
func NewQueryService(store Store, opts QueryOptions) *QueryService {
	q := &QueryService{store: store, recentDefault: opts.RecentDefault, recentMax: opts.RecentMax}
	if q.recentMax <= 0 {
		q.recentMax = MaxRecentCount
	}
	if q.recentDefault <= 0 {
		q.recentDefault = DefaultRecentCount
	}
	if q.recentDefault > q.recentMax {
		q.recentDefault = q.recentMax
	}
	return q
}

// Results returns one page of summaries matching f, newest first start
// first, together with the total match count.
func (q *QueryService) Results(ctx context.Context, f SummaryFilter) (SummaryPage, error) {
	page, pageSize := NormalizePage(f.Page, f.PageSize)
	fs := BuildFilters(f)

	total, err := q.store.CountSummaries(ctx, fs)
	if err != nil {
		return SummaryPage{}, err
	}

	result := SummaryPage{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		Items:      []Summary{},
	}

	// Pages past the end (including absurd page numbers) are empty.
	if int64(page-1) >= (total+int64(pageSize)-1)/int64(pageSize) || page-1 > math.MaxInt/pageSize {
		return result, nil
	}

	items, err := q.store.FindSummaries(ctx, fs, Window{Offset: (page - 1) * pageSize, Limit: pageSize})
	if err != nil {
		return SummaryPage{}, err
	}
	if items != nil {
		result.Items = items
	}
	return result, nil
}

// Export returns every summary matching f in result order, ignoring paging.
func (q *QueryService) Export(ctx context.Context, f SummaryFilter) ([]Summary, error) {
	items, err := q.store.FindSummaries(ctx, BuildFilters(f), Window{})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Summary{}
	}
	return items, nil
}

// Summary returns the stored summary for fileName, or ErrNotFound.
func (q *QueryService) Summary(ctx context.Context, fileName string) (Summary, error) {
	if strings.TrimSpace(fileName) == "" {
		return Summary{}, NewValidationError("file name is required")
	}
	return q.store.GetSummary(ctx, fileName)
}

// RecentSamples returns up to n samples of fileName, newest first.
// An unknown file yields an empty list. n < 1 selects the configured default
// and n is capped at the configured maximum.
func (q *QueryService) RecentSamples(ctx context.Context, fileName string, n int) ([]RecentSample, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, NewValidationError("file name is required")
	}
	if n < 1 {
		n = q.recentDefault
	}
	if n > q.recentMax {
		n = q.recentMax
	}

	items, err := q.store.RecentSamples(ctx, fileName, n)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []RecentSample{}
	}
	return items, nil
}

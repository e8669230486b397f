package core

import (
	"context"
	"time"
)

// Sample is a single validated measurement row.
type Sample struct {
	FileName             string
	Date                 time.Time // always UTC
	ExecutionTimeSeconds float64
	Value                float64
}

// Summary holds the aggregated statistics for one imported file.
// There is exactly one Summary per FileName.
type Summary struct {
	FileName         string    `json:"fileName"`
	ImportID         string    `json:"importId"`
	DeltaSeconds     float64   `json:"deltaSeconds"`
	FirstStart       time.Time `json:"firstStart"`
	AvgExecutionTime float64   `json:"avgExecutionTime"`
	AvgValue         float64   `json:"avgValue"`
	MedianValue      float64   `json:"medianValue"`
	MaxValue         float64   `json:"maxValue"`
	MinValue         float64   `json:"minValue"`
	SampleCount      int       `json:"sampleCount"`
	ImportedAt       time.Time `json:"importedAt"`
}

// ImportResult is returned after a successful import.
type ImportResult struct {
	FileName         string    `json:"fileName"`
	ImportID         string    `json:"importId"`
	ImportedCount    int       `json:"importedCount"`
	DeltaSeconds     float64   `json:"deltaSeconds"`
	FirstStart       time.Time `json:"firstStart"`
	AvgExecutionTime float64   `json:"avgExecutionTime"`
	AvgValue         float64   `json:"avgValue"`
	MedianValue      float64   `json:"medianValue"`
	MaxValue         float64   `json:"maxValue"`
	MinValue         float64   `json:"minValue"`
	DurationMs       int64     `json:"durationMs"`
}

// RecentSample is a raw sample as returned by recent-sample queries.
type RecentSample struct {
	Date                 time.Time `json:"date"`
	ExecutionTimeSeconds float64   `json:"executionTimeSeconds"`
	Value                float64   `json:"value"`
}

// SummaryFilter carries the optional criteria for summary queries.
// Nil pointers and an empty FileName mean "no criterion".
type SummaryFilter struct {
	FileName             string
	FirstStartFrom       *time.Time
	FirstStartTo         *time.Time
	AvgValueFrom         *float64
	AvgValueTo           *float64
	AvgExecutionTimeFrom *float64
	AvgExecutionTimeTo   *float64
	Page                 int
	PageSize             int
}

// SummaryPage is one page of summaries plus the total number of matches.
type SummaryPage struct {
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalCount int64     `json:"totalCount"`
	Items      []Summary `json:"items"`
}

// TotalPages returns the number of pages needed for TotalCount.
func (p SummaryPage) TotalPages() int {
	if p.PageSize <= 0 || p.TotalCount == 0 {
		return 0
	}
	return int((p.TotalCount + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// Window selects a slice of an ordered result. Limit <= 0 means no limit.
type Window struct {
	Offset int
	Limit  int
}

// Store is the persistence collaborator used by the importer and queries.
// Implementations live in the store package.
type Store interface {
	// WithTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise, including on panic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// CountSummaries returns the number of summaries matching fs.
	CountSummaries(ctx context.Context, fs FilterSet) (int64, error)

	// FindSummaries returns summaries matching fs ordered by first start
	// descending, then file name ascending.
	FindSummaries(ctx context.Context, fs FilterSet, w Window) ([]Summary, error)

	// GetSummary returns the summary for fileName or ErrNotFound.
	GetSummary(ctx context.Context, fileName string) (Summary, error)

	// RecentSamples returns up to limit samples for fileName, newest first.
	RecentSamples(ctx context.Context, fileName string, limit int) ([]RecentSample, error)

	Ping(ctx context.Context) error
}

// Tx is the set of writes performed while replacing a file's data.
type Tx interface {
	// LockFile serializes concurrent replacements of the same file.
	LockFile(ctx context.Context, fileName string) error
	DeleteSamples(ctx context.Context, fileName string) (int64, error)
	DeleteSummary(ctx context.Context, fileName string) (int64, error)
	InsertSamples(ctx context.Context, importID string, samples []Sample) (int64, error)
	InsertSummary(ctx context.Context, s Summary) error
}

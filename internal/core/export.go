package core

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/parquet-go/parquet-go"
)

// ExportFormat selects the encoding used by WriteSummaries.
type ExportFormat string

const (
	FormatCSV     ExportFormat = "csv"
	FormatParquet ExportFormat = "parquet"
)

// ParseExportFormat accepts "csv" (also the empty string) and "parquet".
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatCSV):
		return FormatCSV, nil
	case string(FormatParquet):
		return FormatParquet, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unsupported export format %q", s))
	}
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	if f == FormatParquet {
		return "application/vnd.apache.parquet"
	}
	return "text/csv; charset=utf-8"
}

// WriteSummaries writes items to w in the given format.
func WriteSummaries(w io.Writer, format ExportFormat, items []Summary) error {
	if format == FormatParquet {
		return WriteSummariesParquet(w, items)
	}
	return WriteSummariesCSV(w, items)
}

// summaryRecord is the CSV shape of a Summary. Times are RFC 3339 in UTC.
type summaryRecord struct {
	FileName         string  `csv:"file_name"`
	ImportID         string  `csv:"import_id"`
	FirstStart       string  `csv:"first_start"`
	DeltaSeconds     float64 `csv:"delta_seconds"`
	AvgExecutionTime float64 `csv:"avg_execution_time"`
	AvgValue         float64 `csv:"avg_value"`
	MedianValue      float64 `csv:"median_value"`
	MaxValue         float64 `csv:"max_value"`
	MinValue         float64 `csv:"min_value"`
	SampleCount      int     `csv:"sample_count"`
	ImportedAt       string  `csv:"imported_at"`
}

// WriteSummariesCSV writes items as CSV with a header row, in the given order.
func WriteSummariesCSV(w io.Writer, items []Summary) error {
	records := make([]*summaryRecord, len(items))
	for i, s := range items {
		records[i] = &summaryRecord{
			FileName:         s.FileName,
			ImportID:         s.ImportID,
			FirstStart:       s.FirstStart.UTC().Format(time.RFC3339Nano),
			DeltaSeconds:     s.DeltaSeconds,
			AvgExecutionTime: s.AvgExecutionTime,
			AvgValue:         s.AvgValue,
			MedianValue:      s.MedianValue,
			MaxValue:         s.MaxValue,
			MinValue:         s.MinValue,
			SampleCount:      s.SampleCount,
			ImportedAt:       s.ImportedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	// The header row is written even when records is empty.
	return gocsv.Marshal(records, w)
}

// summaryParquetRow is the Parquet shape of a Summary.
type summaryParquetRow struct {
	FileName         string    `parquet:"file_name,dict"`
	ImportID         string    `parquet:"import_id"`
	FirstStart       time.Time `parquet:"first_start,timestamp(millisecond)"`
	DeltaSeconds     float64   `parquet:"delta_seconds"`
	AvgExecutionTime float64   `parquet:"avg_execution_time"`
	AvgValue         float64   `parquet:"avg_value"`
	MedianValue      float64   `parquet:"median_value"`
	MaxValue         float64   `parquet:"max_value"`
	MinValue         float64   `parquet:"min_value"`
	SampleCount      int64     `parquet:"sample_count"`
	ImportedAt       time.Time `parquet:"imported_at,timestamp(millisecond)"`
}

// WriteSummariesParquet writes items as a single Parquet file.
func WriteSummariesParquet(w io.Writer, items []Summary) error {
	rows := make([]summaryParquetRow, len(items))
	for i, s := range items {
		rows[i] = summaryParquetRow{
			FileName:         s.FileName,
			ImportID:         s.ImportID,
			FirstStart:       s.FirstStart.UTC(),
			DeltaSeconds:     s.DeltaSeconds,
			AvgExecutionTime: s.AvgExecutionTime,
			AvgValue:         s.AvgValue,
			MedianValue:      s.MedianValue,
			MaxValue:         s.MaxValue,
			MinValue:         s.MinValue,
			SampleCount:      int64(s.SampleCount),
			ImportedAt:       s.ImportedAt.UTC(),
		}
	}

	pw := parquet.NewGenericWriter[summaryParquetRow](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

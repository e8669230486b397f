package core

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
)

func TestWriteSummariesCSV(t *testing.T) {
	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []Summary{
		{
			FileName: "b.csv", ImportID: "id-b", FirstStart: first, DeltaSeconds: 10,
			AvgExecutionTime: 1.5, AvgValue: 20, MedianValue: 20, MaxValue: 30, MinValue: 10,
			SampleCount: 3, ImportedAt: first.Add(time.Hour),
		},
		{FileName: "a.csv", ImportID: "id-a", FirstStart: first.Add(-time.Hour), SampleCount: 1},
	}

	var buf bytes.Buffer
	if err := WriteSummariesCSV(&buf, items); err != nil {
		t.Fatalf("WriteSummariesCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "file_name,import_id,first_start,delta_seconds") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "b.csv,id-b,2024-03-01T12:00:00Z,10,") {
		t.Errorf("first row = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "a.csv,") {
		t.Errorf("rows not in input order: %q", lines[2])
	}
}

func TestWriteSummariesCSV_EmptyKeepsHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummariesCSV(&buf, nil); err != nil {
		t.Fatalf("WriteSummariesCSV() error = %v", err)
	}
	got := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(got, "file_name,") || strings.Contains(got, "\n") {
		t.Errorf("output = %q, want header only", got)
	}
}

func TestWriteSummariesParquet(t *testing.T) {
	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []Summary{
		{FileName: "b.csv", ImportID: "id-b", FirstStart: first, AvgValue: 20, MedianValue: 20, SampleCount: 3, ImportedAt: first},
		{FileName: "a.csv", ImportID: "id-a", FirstStart: first.Add(-time.Hour), AvgValue: 5, SampleCount: 1, ImportedAt: first},
	}

	var buf bytes.Buffer
	if err := WriteSummariesParquet(&buf, items); err != nil {
		t.Fatalf("WriteSummariesParquet() error = %v", err)
	}

	rows, err := parquet.Read[summaryParquetRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("parquet.Read() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].FileName != "b.csv" || rows[0].SampleCount != 3 || !rows[0].FirstStart.Equal(first) {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].FileName != "a.csv" || rows[1].AvgValue != 5 {
		t.Errorf("rows[1] = %+v", rows[1])
	}
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ExportFormat
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"csv", FormatCSV, false},
		{" Parquet ", FormatParquet, false},
		{"xlsx", "", true},
	}

	for _, tt := range tests {
		got, err := ParseExportFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseExportFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if _, ok := AsValidation(err); !ok {
				t.Errorf("ParseExportFormat(%q) error is not a ValidationError", tt.in)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ParseExportFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package templates

import (
	"fmt"
	"strconv"
	"time"

	"github.com/JonMunkholm/measurestats/internal/core"
)

var summaryColumns = []string{
	"File", "First start", "Delta (s)", "Avg execution (s)",
	"Avg value", "Median", "Max", "Min", "Samples", "Imported",
}

// summaryCells returns one table row, in summaryColumns order.
func summaryCells(s core.Summary) []string {
	return []string{
		s.FileName,
		s.FirstStart.UTC().Format(time.RFC3339),
		formatFloat(s.DeltaSeconds),
		formatFloat(s.AvgExecutionTime),
		formatFloat(s.AvgValue),
		formatFloat(s.MedianValue),
		formatFloat(s.MaxValue),
		formatFloat(s.MinValue),
		strconv.Itoa(s.SampleCount),
		s.ImportedAt.UTC().Format(time.RFC3339),
	}
}

func pageLabel(p core.SummaryPage) string {
	return fmt.Sprintf("Page %d of %d (%d results)", p.Page, p.TotalPages(), p.TotalCount)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

package core

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// Aggregate computes the summary statistics for one file's samples.
//
// Minimum and maximum date, both means, and the value extremes are gathered
// in a single pass; the median is taken from a sorted copy of the values.
// samples must be non-empty; an empty slice yields an *InvariantError.
func Aggregate(fileName string, samples []Sample) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, &InvariantError{Op: "aggregate", Message: "no samples to aggregate"}
	}

	first := samples[0]
	minDate, maxDate := first.Date, first.Date
	minValue, maxValue := first.Value, first.Value
	var sumExec, sumValue float64
	values := make(stats.Float64Data, len(samples))

	for i, s := range samples {
		if s.Date.Before(minDate) {
			minDate = s.Date
		}
		if s.Date.After(maxDate) {
			maxDate = s.Date
		}
		if s.Value < minValue {
			minValue = s.Value
		}
		if s.Value > maxValue {
			maxValue = s.Value
		}
		sumExec += s.ExecutionTimeSeconds
		sumValue += s.Value
		values[i] = s.Value
	}

	median, err := stats.Median(values)
	if err != nil {
		return Summary{}, fmt.Errorf("aggregate %s: median: %w", fileName, err)
	}

	n := float64(len(samples))
	return Summary{
		FileName:         fileName,
		DeltaSeconds:     maxDate.Sub(minDate).Seconds(),
		FirstStart:       minDate.UTC(),
		AvgExecutionTime: sumExec / n,
		AvgValue:         sumValue / n,
		MedianValue:      median,
		MaxValue:         maxValue,
		MinValue:         minValue,
		SampleCount:      len(samples),
	}, nil
}

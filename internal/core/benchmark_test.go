package core

import (
	"context"
	"strings"
	"testing"
	"time"
)

// ============================================================================
// Field Parsing Benchmarks
// ============================================================================

// BenchmarkParseNumber benchmarks numeric field parsing, run twice per line.
func BenchmarkParseNumber(b *testing.B) {
	testCases := []string{
		"12",
		"0.125",
		"1.5e3",
		"  42.75 ",
		"0x1F", // rejected
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			parseNumber(tc)
		}
	}
}

// BenchmarkParseSampleDate benchmarks timestamp parsing across accepted forms.
func BenchmarkParseSampleDate(b *testing.B) {
	testCases := []string{
		"2024-01-15T10:00:00Z",
		"2024-01-15T10:00:00.1234Z",
		"2024-01-15T10:00:00.1234567+02:00",
		"2024-01-15T10:00:00.0000000", // round trip without zone
		"2024-01-15T10:00:00.123456Z", // rejected
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			parseSampleDate(tc)
		}
	}
}

// BenchmarkParseLine benchmarks one valid data line.
func BenchmarkParseLine(b *testing.B) {
	now := time.Now()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		parseLine("2024-01-15T10:00:00.0000Z;1.25;42", 2, now)
	}
}

// BenchmarkParseLine_Invalid benchmarks a line that fails on every range check.
func BenchmarkParseLine_Invalid(b *testing.B) {
	now := time.Now()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		parseLine("1999-01-15T10:00:00Z;-1;-2", 2, now)
	}
}

// ============================================================================
// Whole File Benchmarks
// ============================================================================

// BenchmarkParse_MaxRows benchmarks parsing a file at the row limit.
func BenchmarkParse_MaxRows(b *testing.B) {
	data := buildRows(DefaultMaxRows)
	p := NewParser(0)
	ctx := context.Background()

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Parse(ctx, "bench.csv", strings.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkAggregate benchmarks summary computation including the median sort.
func BenchmarkAggregate(b *testing.B) {
	samples, err := NewParser(0).Parse(context.Background(), "bench.csv", strings.NewReader(buildRows(DefaultMaxRows)))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Aggregate("bench.csv", samples); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkImport benchmarks the full import path against the in-memory fake.
func BenchmarkImport(b *testing.B) {
	data := buildRows(1000)
	im := NewImporter(newFakeStore(), ImporterOptions{})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := im.Import(ctx, "bench.csv", strings.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Filter Benchmarks
// ============================================================================

// BenchmarkBuildFilters benchmarks filter construction with every criterion set.
func BenchmarkBuildFilters(b *testing.B) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	lo, hi := 10.0, 20.0
	f := SummaryFilter{
		FileName:             "a.csv",
		FirstStartFrom:       &from,
		FirstStartTo:         &to,
		AvgValueFrom:         &lo,
		AvgValueTo:           &hi,
		AvgExecutionTimeFrom: &lo,
		AvgExecutionTimeTo:   &hi,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildFilters(f).Conditions()
	}
}

// BenchmarkFilterMatchParallel benchmarks in-memory matching under contention.
func BenchmarkFilterMatchParallel(b *testing.B) {
	lo, hi := 10.0, 20.0
	fs := BuildFilters(SummaryFilter{FileName: "a.csv", AvgValueFrom: &lo, AvgValueTo: &hi})
	s := Summary{FileName: "a.csv", AvgValue: 15}

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			fs.Match(s)
		}
	})
}

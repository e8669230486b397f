package core

import (
	"context"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/measurestats/internal/logging"
)

// DefaultMaxRows is the largest number of samples a single file may hold.
const DefaultMaxRows = 10000

const (
	fieldSeparator = ";"
	fieldCount     = 3
	headerPrefix   = "date;"
)

// minSampleDate is the earliest timestamp accepted in a sample row.
var minSampleDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// dateForm pairs the exact shape of an accepted timestamp with the layout
// used to read it. time.Parse alone accepts any fraction width after the
// seconds and ',' as the decimal mark, so the shape is matched first.
type dateForm struct {
	shape  *regexp.Regexp
	layout string
}

// dateForms are the accepted timestamp forms:
//   - UTC with up to 4 fractional digits: 2024-01-01T10:00:00.1234Z
//   - round trip with exactly 7 fractional digits and an optional zone:
//     2024-01-01T10:00:00.1234567+02:00; without a zone it is read as UTC
var dateForms = []dateForm{
	{
		shape:  regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d{1,4})?Z$`),
		layout: "2006-01-02T15:04:05.9999Z07:00",
	},
	{
		shape:  regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{7}(Z|[+-]\d{2}:\d{2})$`),
		layout: "2006-01-02T15:04:05.0000000Z07:00",
	},
	{
		shape:  regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{7}$`),
		layout: "2006-01-02T15:04:05.0000000",
	},
}

// Parser validates a ';'-delimited sample stream.
//
// Each line must be "timestamp;executionTimeSeconds;value". The first line is
// skipped when it starts with "Date;". Every line problem is collected; the
// stream is rejected as a whole if any line is invalid.
type Parser struct {
	// MaxRows caps the number of retained samples (default: DefaultMaxRows).
	MaxRows int

	// Now returns the current time; the upper bound for sample dates.
	Now func() time.Time
}

// NewParser creates a Parser with the given row cap.
// A non-positive maxRows selects DefaultMaxRows.
func NewParser(maxRows int) *Parser {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Parser{MaxRows: maxRows, Now: time.Now}
}

// Parse reads r to the end and returns the samples in line order.
//
// Errors:
//   - *ValidationError when fileName is blank (r is not read)
//   - *ValidationError wrapping ErrCapacityExceeded once more than MaxRows
//     rows have been retained (returned immediately)
//   - *ValidationError with all line messages when any line is invalid
//   - *ValidationError when the stream holds no rows
//   - ctx.Err() when the context is cancelled between lines
func (p *Parser) Parse(ctx context.Context, fileName string, r io.Reader) ([]Sample, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, NewValidationError("file name is required")
	}

	maxRows := p.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	nowFn := p.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	now := nowFn().UTC()

	lr := newLineReader(r)
	var (
		samples []Sample
		errs    []string
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, ok, err := lr.next()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fileName, err)
		}
		if !ok {
			break
		}

		lineNo := lr.LineNumber()
		if lineNo == 1 && isHeaderLine(line) {
			continue
		}

		sample, lineErrs := parseLine(line, lineNo, now)
		errs = append(errs, lineErrs...)

		// Once anything has failed the file is rejected, so stop retaining.
		if len(errs) > 0 {
			continue
		}

		sample.FileName = fileName
		samples = append(samples, sample)
		if len(samples) > maxRows {
			return nil, capacityError(maxRows)
		}
	}

	logging.FromContext(ctx).Debug("parsed sample file",
		"file_name", fileName,
		"lines", lr.LineNumber(),
		"bytes", lr.BytesRead(),
		"samples", len(samples),
		"errors", len(errs),
	)

	if len(errs) > 0 {
		return nil, &ValidationError{Messages: errs}
	}
	if len(samples) == 0 {
		return nil, NewValidationError("file contains no rows")
	}
	return samples, nil
}

// isHeaderLine reports whether line is the optional column header.
func isHeaderLine(line string) bool {
	t := strings.TrimSpace(line)
	return len(t) >= len(headerPrefix) && strings.EqualFold(t[:len(headerPrefix)], headerPrefix)
}

// parseLine validates one data line.
//
// Structural and format problems stop checking the line. Range problems
// (date bounds, negative numbers) are recorded and checking continues, so a
// single line can report several range messages.
func parseLine(line string, lineNo int, now time.Time) (Sample, []string) {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("line %d: ", lineNo)+fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(line) == "" {
		fail("empty line is not allowed")
		return Sample{}, errs
	}

	parts := strings.Split(line, fieldSeparator)
	if len(parts) != fieldCount {
		fail("expected %d fields, got %d", fieldCount, len(parts))
		return Sample{}, errs
	}

	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			fail("missing values")
			return Sample{}, errs
		}
	}

	date, ok := parseSampleDate(parts[0])
	if !ok {
		fail("invalid date format")
		return Sample{}, errs
	}
	if date.Before(minSampleDate) || date.After(now) {
		fail("date is out of range")
	}

	execTime, ok := parseNumber(parts[1])
	if !ok {
		fail("invalid execution time format")
		return Sample{}, errs
	}
	if execTime < 0 {
		fail("execution time is negative")
	}

	value, ok := parseNumber(parts[2])
	if !ok {
		fail("invalid value format")
		return Sample{}, errs
	}
	if value < 0 {
		fail("value is negative")
	}

	return Sample{
		Date:                 date,
		ExecutionTimeSeconds: execTime,
		Value:                value,
	}, errs
}

// parseSampleDate parses a timestamp field and converts it to UTC.
func parseSampleDate(s string) (time.Time, bool) {
	for _, f := range dateForms {
		if !f.shape.MatchString(s) {
			continue
		}
		t, err := time.ParseInLocation(f.layout, s, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

// parseNumber parses a decimal number with '.' as separator and optional
// exponent. Hex notation and non-finite values are rejected.
func parseNumber(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if strings.ContainsAny(t, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

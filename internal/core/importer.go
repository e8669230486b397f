package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/measurestats/internal/logging"
)

// DefaultBatchSize is the number of samples written per insert batch.
const DefaultBatchSize = 1000

// ImporterOptions configures an Importer. Zero values select defaults.
type ImporterOptions struct {
	BatchSize     int
	MaxRows       int
	Timeout       time.Duration
	MaxConcurrent int
	MaxWait       time.Duration
}

// Importer replaces the stored samples and summary of a file with the
// contents of a new upload.
type Importer struct {
	store     Store
	parser    *Parser
	limiter   *ImportLimiter
	batchSize int
	timeout   time.Duration

	now   func() time.Time
	newID func() string
}

// NewImporter creates an Importer that persists through store.
func NewImporter(store Store, opts ImporterOptions) *Importer {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Importer{
		store:     store,
		parser:    NewParser(opts.MaxRows),
		limiter:   NewImportLimiter(opts.MaxConcurrent, opts.MaxWait),
		batchSize: batchSize,
		timeout:   opts.Timeout,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Limiter exposes the concurrency limiter for status and shutdown.
func (im *Importer) Limiter() *ImportLimiter {
	return im.limiter
}

// Import parses r, aggregates the samples and atomically replaces all data
// stored for fileName.
//
// Validation and aggregation run before any transaction is opened, so a bad
// file leaves the previous data untouched. The replacement itself runs in one
// transaction holding the per-file lock: delete samples, delete summary,
// insert samples in batches, insert summary, commit. Any failure rolls back
// the whole replacement.
//
// Returns ErrTooManyImports if no import slot frees up within the wait time.
func (im *Importer) Import(ctx context.Context, fileName string, r io.Reader) (ImportResult, error) {
	start := time.Now()

	if err := im.limiter.Acquire(ctx); err != nil {
		return ImportResult{}, err
	}
	defer im.limiter.Release()

	if im.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, im.timeout)
		defer cancel()
	}

	samples, err := im.parser.Parse(ctx, fileName, r)
	if err != nil {
		return ImportResult{}, err
	}

	summary, err := Aggregate(fileName, samples)
	if err != nil {
		return ImportResult{}, err
	}

	importID := im.newID()
	summary.ImportID = importID
	summary.ImportedAt = im.now().UTC()

	logger := logging.WithFields(ctx, "import_id", importID, "file_name", fileName)

	var replaced int64
	err = im.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.LockFile(ctx, fileName); err != nil {
			return fmt.Errorf("lock file: %w", err)
		}

		n, err := tx.DeleteSamples(ctx, fileName)
		if err != nil {
			return fmt.Errorf("delete samples: %w", err)
		}
		replaced = n

		if _, err := tx.DeleteSummary(ctx, fileName); err != nil {
			return fmt.Errorf("delete summary: %w", err)
		}

		for _, batch := range chunk(samples, im.batchSize) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := tx.InsertSamples(ctx, importID, batch); err != nil {
				return fmt.Errorf("insert samples: %w", err)
			}
		}

		if err := tx.InsertSummary(ctx, summary); err != nil {
			return fmt.Errorf("insert summary: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error("import failed", "error", err)
		return ImportResult{}, fmt.Errorf("import %s: %w", fileName, err)
	}

	elapsed := time.Since(start)
	logger.Info("import completed",
		"samples", len(samples),
		"replaced_samples", replaced,
		"duration_ms", elapsed.Milliseconds(),
	)

	return ImportResult{
		FileName:         fileName,
		ImportID:         importID,
		ImportedCount:    len(samples),
		DeltaSeconds:     summary.DeltaSeconds,
		FirstStart:       summary.FirstStart,
		AvgExecutionTime: summary.AvgExecutionTime,
		AvgValue:         summary.AvgValue,
		MedianValue:      summary.MedianValue,
		MaxValue:         summary.MaxValue,
		MinValue:         summary.MinValue,
		DurationMs:       elapsed.Milliseconds(),
	}, nil
}

// chunk splits items into consecutive slices of at most size elements.
// The slices share the backing array of items.
func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

const validFile = "Date;ExecutionTime;Value\n" +
	"2024-01-01T10:00:00Z;1;10\n" +
	"2024-01-01T10:00:05Z;2;20\n" +
	"2024-01-01T10:00:10Z;3;30\n"

func newTestImporter(store Store, opts ImporterOptions) *Importer {
	im := NewImporter(store, opts)
	im.parser.Now = func() time.Time { return fixedNow }
	im.now = func() time.Time { return fixedNow }
	ids := 0
	im.newID = func() string {
		ids++
		return fmt.Sprintf("00000000-0000-0000-0000-%012d", ids)
	}
	return im
}

// ============================================================================
// Import Tests
// ============================================================================

func TestImport_Success(t *testing.T) {
	store := newFakeStore()
	im := newTestImporter(store, ImporterOptions{})

	res, err := im.Import(context.Background(), "a.csv", strings.NewReader(validFile))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if res.ImportedCount != 3 {
		t.Errorf("ImportedCount = %d, want 3", res.ImportedCount)
	}
	if res.ImportID == "" {
		t.Error("ImportID is empty")
	}
	if res.DeltaSeconds != 10 || res.AvgValue != 20 || res.MedianValue != 20 || res.AvgExecutionTime != 2 {
		t.Errorf("unexpected result: %+v", res)
	}

	sum, err := store.GetSummary(context.Background(), "a.csv")
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if sum.ImportID != res.ImportID {
		t.Errorf("stored ImportID = %q, want %q", sum.ImportID, res.ImportID)
	}
	if !sum.ImportedAt.Equal(fixedNow) {
		t.Errorf("ImportedAt = %v, want %v", sum.ImportedAt, fixedNow)
	}

	wantCalls := []string{"lock", "delete_samples", "delete_summary", "insert_samples", "insert_summary"}
	if strings.Join(store.calls, ",") != strings.Join(wantCalls, ",") {
		t.Errorf("calls = %v, want %v", store.calls, wantCalls)
	}
}

func TestImport_ReplacesPreviousData(t *testing.T) {
	store := newFakeStore()
	im := newTestImporter(store, ImporterOptions{})
	ctx := context.Background()

	first, err := im.Import(ctx, "a.csv", strings.NewReader(validFile))
	if err != nil {
		t.Fatalf("first Import() error = %v", err)
	}
	second, err := im.Import(ctx, "a.csv", strings.NewReader("2024-02-01T00:00:00Z;1;99\n"))
	if err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	if first.ImportID == second.ImportID {
		t.Error("re-import should get a new import id")
	}

	if len(store.summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(store.summaries))
	}
	if got := store.summaries["a.csv"]; got.ImportID != second.ImportID || got.AvgValue != 99 {
		t.Errorf("summary not replaced: %+v", got)
	}
	if len(store.samples["a.csv"]) != 1 {
		t.Errorf("samples = %d, want 1", len(store.samples["a.csv"]))
	}
}

func TestImport_InvalidFileLeavesStoreUntouched(t *testing.T) {
	store := newFakeStore()
	im := newTestImporter(store, ImporterOptions{})
	ctx := context.Background()

	if _, err := im.Import(ctx, "a.csv", strings.NewReader(validFile)); err != nil {
		t.Fatalf("seed Import() error = %v", err)
	}
	txBefore := store.txCount

	_, err := im.Import(ctx, "a.csv", strings.NewReader("2024-01-01T10:00:00Z;1;-5\n"))
	if _, ok := AsValidation(err); !ok {
		t.Fatalf("Import() error = %v, want ValidationError", err)
	}
	if store.txCount != txBefore {
		t.Error("a transaction was opened for an invalid file")
	}
	if len(store.samples["a.csv"]) != 3 {
		t.Errorf("previous samples changed: %d", len(store.samples["a.csv"]))
	}
}

func TestImport_RowLimit(t *testing.T) {
	t.Run("exactly at limit", func(t *testing.T) {
		store := newFakeStore()
		im := newTestImporter(store, ImporterOptions{BatchSize: 1000})

		res, err := im.Import(context.Background(), "big.csv", strings.NewReader(buildRows(DefaultMaxRows)))
		if err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		if res.ImportedCount != DefaultMaxRows || len(store.samples["big.csv"]) != DefaultMaxRows {
			t.Errorf("ImportedCount = %d, stored = %d; want %d", res.ImportedCount, len(store.samples["big.csv"]), DefaultMaxRows)
		}
	})

	t.Run("one over limit persists nothing", func(t *testing.T) {
		store := newFakeStore()
		im := newTestImporter(store, ImporterOptions{})
		ctx := context.Background()

		if _, err := im.Import(ctx, "big.csv", strings.NewReader(validFile)); err != nil {
			t.Fatalf("seed Import() error = %v", err)
		}
		before := store.summaries["big.csv"]
		txBefore := store.txCount
		callsBefore := len(store.calls)

		_, err := im.Import(ctx, "big.csv", strings.NewReader(buildRows(DefaultMaxRows+1)))
		if !errors.Is(err, ErrCapacityExceeded) {
			t.Fatalf("Import() error = %v, want ErrCapacityExceeded", err)
		}
		if msgs, ok := AsValidation(err); !ok || len(msgs) != 1 {
			t.Errorf("messages = %v, want a single validation message", msgs)
		}

		if store.txCount != txBefore {
			t.Error("a transaction was opened for an oversized file")
		}
		if len(store.calls) != callsBefore {
			t.Errorf("store writes after rejection: %v", store.calls[callsBefore:])
		}
		if got := store.summaries["big.csv"]; got.ImportID != before.ImportID || got.SampleCount != 3 {
			t.Errorf("previous summary changed: %+v", got)
		}
		if len(store.samples["big.csv"]) != 3 {
			t.Errorf("previous samples changed: %d", len(store.samples["big.csv"]))
		}
		if st := im.Limiter().Status(); st.Active != 0 {
			t.Errorf("limiter slot not released: %+v", st)
		}
	})
}

func TestImport_RollbackOnFailure(t *testing.T) {
	steps := []string{"lock", "delete_samples", "delete_summary", "insert_samples", "insert_summary"}

	for _, step := range steps {
		t.Run(step, func(t *testing.T) {
			store := newFakeStore()
			im := newTestImporter(store, ImporterOptions{})
			ctx := context.Background()

			seed, err := im.Import(ctx, "a.csv", strings.NewReader(validFile))
			if err != nil {
				t.Fatalf("seed Import() error = %v", err)
			}

			store.failOn = step
			_, err = im.Import(ctx, "a.csv", strings.NewReader("2024-02-01T00:00:00Z;1;99\n"))
			if !errors.Is(err, store.failErr) {
				t.Fatalf("Import() error = %v, want injected failure", err)
			}
			if !strings.Contains(err.Error(), "import a.csv") {
				t.Errorf("error not wrapped with file name: %v", err)
			}

			if got := store.summaries["a.csv"]; got.ImportID != seed.ImportID {
				t.Errorf("summary changed after failed import: %+v", got)
			}
			if len(store.samples["a.csv"]) != 3 {
				t.Errorf("samples changed after failed import: %d", len(store.samples["a.csv"]))
			}
		})
	}
}

func TestImport_Batching(t *testing.T) {
	store := newFakeStore()
	im := newTestImporter(store, ImporterOptions{BatchSize: 4})

	if _, err := im.Import(context.Background(), "big.csv", strings.NewReader(buildRows(10))); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	want := []int{4, 4, 2}
	if fmt.Sprint(store.batches) != fmt.Sprint(want) {
		t.Errorf("batches = %v, want %v", store.batches, want)
	}
	if len(store.samples["big.csv"]) != 10 {
		t.Errorf("stored %d samples, want 10", len(store.samples["big.csv"]))
	}
}

func TestImport_TooManyImports(t *testing.T) {
	store := newFakeStore()
	im := newTestImporter(store, ImporterOptions{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})

	if !im.Limiter().TryAcquire() {
		t.Fatal("TryAcquire() failed on an idle limiter")
	}
	defer im.Limiter().Release()

	_, err := im.Import(context.Background(), "a.csv", strings.NewReader(validFile))
	if !errors.Is(err, ErrTooManyImports) {
		t.Fatalf("Import() error = %v, want ErrTooManyImports", err)
	}
	if store.txCount != 0 {
		t.Error("store touched while no import slot was available")
	}
}

func TestImport_ReleasesSlotOnError(t *testing.T) {
	im := newTestImporter(newFakeStore(), ImporterOptions{MaxConcurrent: 1})

	for range 3 {
		if _, err := im.Import(context.Background(), "a.csv", strings.NewReader("garbage")); err == nil {
			t.Fatal("Import() expected error")
		}
	}
	if got := im.Limiter().ActiveCount(); got != 0 {
		t.Errorf("ActiveCount() = %d after failed imports, want 0", got)
	}
}

func TestImport_ConcurrentDifferentFiles(t *testing.T) {
	store := newFakeStore()
	im := NewImporter(store, ImporterOptions{MaxConcurrent: 3})
	im.parser.Now = func() time.Time { return fixedNow }

	var wg sync.WaitGroup
	for i := range 6 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("f%d.csv", i)
			if _, err := im.Import(context.Background(), name, strings.NewReader(validFile)); err != nil {
				t.Errorf("Import(%s) error = %v", name, err)
			}
		}(i)
	}
	wg.Wait()

	if len(store.summaries) != 6 {
		t.Errorf("summaries = %d, want 6", len(store.summaries))
	}
}

// ============================================================================
// chunk Tests
// ============================================================================

func TestChunk(t *testing.T) {
	tests := []struct {
		n, size int
		want    []int
	}{
		{0, 3, nil},
		{3, 3, []int{3}},
		{7, 3, []int{3, 3, 1}},
		{5, 0, []int{5}},
		{2, 10, []int{2}},
	}

	for _, tt := range tests {
		items := make([]int, tt.n)
		var got []int
		for _, c := range chunk(items, tt.size) {
			got = append(got, len(c))
		}
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("chunk(%d, %d) sizes = %v, want %v", tt.n, tt.size, got, tt.want)
		}
	}
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/measurestats/internal/core"
)

// Every backend runs the same behavioural suite; newStore must return an
// empty store with its schema in place.

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func makeSamples(fileName string, values ...float64) []core.Sample {
	out := make([]core.Sample, len(values))
	for i, v := range values {
		out[i] = core.Sample{
			FileName:             fileName,
			Date:                 baseTime.Add(time.Duration(i) * time.Minute),
			ExecutionTimeSeconds: float64(i + 1),
			Value:                v,
		}
	}
	return out
}

func makeSummary(fileName string, firstStart time.Time, avgValue, avgExec float64, count int) core.Summary {
	return core.Summary{
		FileName:         fileName,
		ImportID:         uuid.NewString(),
		DeltaSeconds:     60,
		FirstStart:       firstStart,
		AvgExecutionTime: avgExec,
		AvgValue:         avgValue,
		MedianValue:      avgValue,
		MaxValue:         avgValue + 1,
		MinValue:         avgValue - 1,
		SampleCount:      count,
		ImportedAt:       baseTime.Add(time.Hour),
	}
}

// replaceFile performs the same write sequence as the importer.
func replaceFile(ctx context.Context, st core.Store, sum core.Summary, samples []core.Sample) error {
	return st.WithTx(ctx, func(tx core.Tx) error {
		if err := tx.LockFile(ctx, sum.FileName); err != nil {
			return err
		}
		if _, err := tx.DeleteSamples(ctx, sum.FileName); err != nil {
			return err
		}
		if _, err := tx.DeleteSummary(ctx, sum.FileName); err != nil {
			return err
		}
		if _, err := tx.InsertSamples(ctx, sum.ImportID, samples); err != nil {
			return err
		}
		return tx.InsertSummary(ctx, sum)
	})
}

func testStoreContract(t *testing.T, newStore func(t *testing.T) Backend) {
	t.Run("empty store", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		n, err := st.CountSummaries(ctx, core.FilterSet{})
		if err != nil || n != 0 {
			t.Fatalf("CountSummaries() = %d, %v; want 0, nil", n, err)
		}
		items, err := st.FindSummaries(ctx, core.FilterSet{}, core.Window{Limit: 10})
		if err != nil || len(items) != 0 {
			t.Fatalf("FindSummaries() = %v, %v; want empty", items, err)
		}
		if _, err := st.GetSummary(ctx, "missing.csv"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("GetSummary() error = %v, want ErrNotFound", err)
		}
		recent, err := st.RecentSamples(ctx, "missing.csv", 10)
		if err != nil || len(recent) != 0 {
			t.Errorf("RecentSamples() = %v, %v; want empty", recent, err)
		}
		if err := st.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("insert and read back", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		sum := makeSummary("a.csv", baseTime, 20, 2, 3)
		if err := replaceFile(ctx, st, sum, makeSamples("a.csv", 10, 20, 30)); err != nil {
			t.Fatalf("replaceFile() error = %v", err)
		}

		got, err := st.GetSummary(ctx, "a.csv")
		if err != nil {
			t.Fatalf("GetSummary() error = %v", err)
		}
		if got.ImportID != sum.ImportID {
			t.Errorf("ImportID = %q, want %q", got.ImportID, sum.ImportID)
		}
		if !got.FirstStart.Equal(sum.FirstStart) || got.FirstStart.Location() != time.UTC {
			t.Errorf("FirstStart = %v, want %v in UTC", got.FirstStart, sum.FirstStart)
		}
		if got.AvgValue != 20 || got.SampleCount != 3 || got.MaxValue != 21 || got.MinValue != 19 {
			t.Errorf("unexpected summary: %+v", got)
		}
	})

	t.Run("replace removes previous data", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		if err := replaceFile(ctx, st, makeSummary("a.csv", baseTime, 20, 2, 3), makeSamples("a.csv", 10, 20, 30)); err != nil {
			t.Fatalf("first import: %v", err)
		}
		second := makeSummary("a.csv", baseTime, 5, 1, 2)
		if err := replaceFile(ctx, st, second, makeSamples("a.csv", 4, 6)); err != nil {
			t.Fatalf("second import: %v", err)
		}

		n, _ := st.CountSummaries(ctx, core.FilterSet{})
		if n != 1 {
			t.Errorf("CountSummaries() = %d, want 1", n)
		}
		got, _ := st.GetSummary(ctx, "a.csv")
		if got.ImportID != second.ImportID || got.SampleCount != 2 {
			t.Errorf("summary not replaced: %+v", got)
		}
		recent, _ := st.RecentSamples(ctx, "a.csv", 10)
		if len(recent) != 2 {
			t.Errorf("RecentSamples() returned %d rows, want 2", len(recent))
		}
	})

	t.Run("failed transaction leaves data untouched", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		orig := makeSummary("a.csv", baseTime, 20, 2, 3)
		if err := replaceFile(ctx, st, orig, makeSamples("a.csv", 10, 20, 30)); err != nil {
			t.Fatalf("seed: %v", err)
		}

		boom := errors.New("boom")
		err := st.WithTx(ctx, func(tx core.Tx) error {
			if _, err := tx.DeleteSamples(ctx, "a.csv"); err != nil {
				return err
			}
			if _, err := tx.DeleteSummary(ctx, "a.csv"); err != nil {
				return err
			}
			if _, err := tx.InsertSamples(ctx, uuid.NewString(), makeSamples("a.csv", 99)); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("WithTx() error = %v, want boom", err)
		}

		got, err := st.GetSummary(ctx, "a.csv")
		if err != nil || got.ImportID != orig.ImportID {
			t.Errorf("summary changed after rollback: %+v, %v", got, err)
		}
		recent, _ := st.RecentSamples(ctx, "a.csv", 10)
		if len(recent) != 3 {
			t.Errorf("RecentSamples() returned %d rows after rollback, want 3", len(recent))
		}
	})

	t.Run("duplicate summary is rejected", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		if err := replaceFile(ctx, st, makeSummary("a.csv", baseTime, 1, 1, 1), makeSamples("a.csv", 1)); err != nil {
			t.Fatalf("seed: %v", err)
		}
		err := st.WithTx(ctx, func(tx core.Tx) error {
			return tx.InsertSummary(ctx, makeSummary("a.csv", baseTime, 2, 2, 1))
		})
		if err == nil {
			t.Fatal("expected error inserting a second summary for the same file")
		}
	})

	t.Run("ordering window and filters", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		seed := []core.Summary{
			makeSummary("b.csv", baseTime, 10, 1, 1),
			makeSummary("a.csv", baseTime, 20, 2, 1),
			makeSummary("c.csv", baseTime.Add(time.Hour), 30, 3, 1),
			makeSummary("d.csv", baseTime.Add(-time.Hour), 40, 4, 1),
		}
		for _, s := range seed {
			if err := replaceFile(ctx, st, s, makeSamples(s.FileName, s.AvgValue)); err != nil {
				t.Fatalf("seed %s: %v", s.FileName, err)
			}
		}

		all, err := st.FindSummaries(ctx, core.FilterSet{}, core.Window{})
		if err != nil {
			t.Fatalf("FindSummaries() error = %v", err)
		}
		wantOrder := []string{"c.csv", "a.csv", "b.csv", "d.csv"}
		if len(all) != len(wantOrder) {
			t.Fatalf("FindSummaries() returned %d items, want %d", len(all), len(wantOrder))
		}
		for i, name := range wantOrder {
			if all[i].FileName != name {
				t.Errorf("item %d = %s, want %s", i, all[i].FileName, name)
			}
		}

		page, _ := st.FindSummaries(ctx, core.FilterSet{}, core.Window{Offset: 2, Limit: 2})
		if len(page) != 2 || page[0].FileName != "b.csv" || page[1].FileName != "d.csv" {
			t.Errorf("window {2,2} = %v", names(page))
		}

		lo, hi := 15.0, 35.0
		fs := core.BuildFilters(core.SummaryFilter{AvgValueFrom: &lo, AvgValueTo: &hi})
		n, err := st.CountSummaries(ctx, fs)
		if err != nil || n != 2 {
			t.Errorf("CountSummaries(avg 15..35) = %d, %v; want 2", n, err)
		}

		from := baseTime
		fs = core.BuildFilters(core.SummaryFilter{FirstStartFrom: &from})
		got, _ := st.FindSummaries(ctx, fs, core.Window{})
		if len(got) != 3 {
			t.Errorf("first start >= base returned %v, want 3 items", names(got))
		}

		fs = core.BuildFilters(core.SummaryFilter{FileName: "d.csv"})
		got, _ = st.FindSummaries(ctx, fs, core.Window{Limit: 10})
		if len(got) != 1 || got[0].FileName != "d.csv" {
			t.Errorf("file name filter returned %v", names(got))
		}

		execTo := 2.0
		fs = core.BuildFilters(core.SummaryFilter{AvgExecutionTimeTo: &execTo})
		n, _ = st.CountSummaries(ctx, fs)
		if n != 2 {
			t.Errorf("CountSummaries(exec <= 2) = %d, want 2", n)
		}
	})

	t.Run("recent samples newest first", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		samples := makeSamples("a.csv", 1, 2, 3, 4, 5)
		if err := replaceFile(ctx, st, makeSummary("a.csv", baseTime, 3, 3, 5), samples); err != nil {
			t.Fatalf("seed: %v", err)
		}

		recent, err := st.RecentSamples(ctx, "a.csv", 3)
		if err != nil {
			t.Fatalf("RecentSamples() error = %v", err)
		}
		if len(recent) != 3 {
			t.Fatalf("RecentSamples() returned %d rows, want 3", len(recent))
		}
		for i, want := range []float64{5, 4, 3} {
			if recent[i].Value != want {
				t.Errorf("recent[%d].Value = %v, want %v", i, recent[i].Value, want)
			}
		}
		if !recent[0].Date.Equal(samples[4].Date) {
			t.Errorf("recent[0].Date = %v, want %v", recent[0].Date, samples[4].Date)
		}
	})

	t.Run("batched inserts in one transaction", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		samples := make([]core.Sample, 0, 2500)
		for i := range 2500 {
			samples = append(samples, core.Sample{
				FileName:             "big.csv",
				Date:                 baseTime.Add(time.Duration(i) * time.Second),
				ExecutionTimeSeconds: 1,
				Value:                float64(i),
			})
		}
		sum := makeSummary("big.csv", baseTime, 1249.5, 1, len(samples))

		err := st.WithTx(ctx, func(tx core.Tx) error {
			for start := 0; start < len(samples); start += 1000 {
				end := min(start+1000, len(samples))
				n, err := tx.InsertSamples(ctx, sum.ImportID, samples[start:end])
				if err != nil {
					return err
				}
				if int(n) != end-start {
					t.Errorf("InsertSamples() = %d, want %d", n, end-start)
				}
			}
			return tx.InsertSummary(ctx, sum)
		})
		if err != nil {
			t.Fatalf("WithTx() error = %v", err)
		}

		recent, _ := st.RecentSamples(ctx, "big.csv", 1)
		if len(recent) != 1 || recent[0].Value != 2499 {
			t.Errorf("RecentSamples() = %+v, want last sample", recent)
		}
	})
}

func names(items []core.Summary) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = s.FileName
	}
	return out
}

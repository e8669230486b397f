package core

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// fakeStore is an in-memory Store that records write calls and can be told
// to fail at a named step. Changes are staged and applied only on commit.
type fakeStore struct {
	mu        sync.Mutex
	samples   map[string][]Sample
	summaries map[string]Summary

	failOn   string // "lock", "delete_samples", "delete_summary", "insert_samples", "insert_summary", "find", "count", "recent"
	failErr  error
	calls    []string
	batches  []int
	txCount  int
	lastFind Window
	lastFS   FilterSet
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		samples:   make(map[string][]Sample),
		summaries: make(map[string]Summary),
		failErr:   errors.New("injected failure"),
	}
}

func (f *fakeStore) fail(step string) error {
	if f.failOn == step {
		return f.failErr
	}
	return nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCount++

	tx := &fakeTx{f: f, samples: map[string][]Sample{}, summaries: map[string]*Summary{}}
	if err := fn(tx); err != nil {
		return err
	}
	for name, list := range tx.samples {
		if len(list) == 0 {
			delete(f.samples, name)
		} else {
			f.samples[name] = list
		}
	}
	for name, s := range tx.summaries {
		if s == nil {
			delete(f.summaries, name)
		} else {
			f.summaries[name] = *s
		}
	}
	return nil
}

func (f *fakeStore) CountSummaries(_ context.Context, fs FilterSet) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("count"); err != nil {
		return 0, err
	}
	var n int64
	for _, s := range f.summaries {
		if fs.Match(s) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) FindSummaries(_ context.Context, fs FilterSet, w Window) ([]Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFind = w
	f.lastFS = fs
	if err := f.fail("find"); err != nil {
		return nil, err
	}

	var items []Summary
	for _, s := range f.summaries {
		if fs.Match(s) {
			items = append(items, s)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].FirstStart.Equal(items[j].FirstStart) {
			return items[i].FirstStart.After(items[j].FirstStart)
		}
		return items[i].FileName < items[j].FileName
	})
	if w.Limit <= 0 {
		return items, nil
	}
	if w.Offset >= len(items) {
		return nil, nil
	}
	return items[w.Offset:min(w.Offset+w.Limit, len(items))], nil
}

func (f *fakeStore) GetSummary(_ context.Context, fileName string) (Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.summaries[fileName]
	if !ok {
		return Summary{}, ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) RecentSamples(_ context.Context, fileName string, limit int) ([]RecentSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "recent")
	if err := f.fail("recent"); err != nil {
		return nil, err
	}

	list := append([]Sample(nil), f.samples[fileName]...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Date.After(list[j].Date) })
	if len(list) > limit {
		list = list[:limit]
	}
	if len(list) == 0 {
		return nil, nil
	}
	out := make([]RecentSample, len(list))
	for i, s := range list {
		out[i] = RecentSample{Date: s.Date, ExecutionTimeSeconds: s.ExecutionTimeSeconds, Value: s.Value}
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

type fakeTx struct {
	f         *fakeStore
	samples   map[string][]Sample
	summaries map[string]*Summary
}

func (t *fakeTx) LockFile(_ context.Context, fileName string) error {
	t.f.calls = append(t.f.calls, "lock")
	return t.f.fail("lock")
}

func (t *fakeTx) DeleteSamples(_ context.Context, fileName string) (int64, error) {
	t.f.calls = append(t.f.calls, "delete_samples")
	if err := t.f.fail("delete_samples"); err != nil {
		return 0, err
	}
	n := int64(len(t.f.samples[fileName]))
	t.samples[fileName] = []Sample{}
	return n, nil
}

func (t *fakeTx) DeleteSummary(_ context.Context, fileName string) (int64, error) {
	t.f.calls = append(t.f.calls, "delete_summary")
	if err := t.f.fail("delete_summary"); err != nil {
		return 0, err
	}
	t.summaries[fileName] = nil
	return 1, nil
}

func (t *fakeTx) InsertSamples(_ context.Context, _ string, samples []Sample) (int64, error) {
	t.f.calls = append(t.f.calls, "insert_samples")
	t.f.batches = append(t.f.batches, len(samples))
	if err := t.f.fail("insert_samples"); err != nil {
		return 0, err
	}
	for _, s := range samples {
		t.samples[s.FileName] = append(t.samples[s.FileName], s)
	}
	return int64(len(samples)), nil
}

func (t *fakeTx) InsertSummary(_ context.Context, s Summary) error {
	t.f.calls = append(t.f.calls, "insert_summary")
	if err := t.f.fail("insert_summary"); err != nil {
		return err
	}
	t.summaries[s.FileName] = &s
	return nil
}

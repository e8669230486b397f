package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/measurestats/internal/core"
)

type memSample struct {
	seq      int64
	importID string
	sample   core.Sample
}

// Memory is a process-local store. Writers are serialized for the whole
// transaction and their changes become visible together on commit.
type Memory struct {
	writeMu sync.Mutex

	mu        sync.RWMutex
	seq       int64
	samples   map[string][]memSample
	summaries map[string]core.Summary
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		samples:   make(map[string][]memSample),
		summaries: make(map[string]core.Summary),
	}
}

func (m *Memory) EnsureSchema(context.Context) error { return nil }
func (m *Memory) Close() error                       { return nil }
func (m *Memory) Ping(context.Context) error         { return nil }

func (m *Memory) WithTx(ctx context.Context, fn func(tx core.Tx) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	tx := &memTx{
		m:         m,
		nextSeq:   m.seq,
		samples:   make(map[string][]memSample),
		summaries: make(map[string]*core.Summary),
	}
	m.mu.RUnlock()
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for name, list := range tx.samples {
		if len(list) == 0 {
			delete(m.samples, name)
			continue
		}
		m.samples[name] = list
	}
	for name, s := range tx.summaries {
		if s == nil {
			delete(m.summaries, name)
			continue
		}
		m.summaries[name] = *s
	}
	m.seq = tx.nextSeq
	return nil
}

func (m *Memory) CountSummaries(_ context.Context, fs core.FilterSet) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, s := range m.summaries {
		if fs.Match(s) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) FindSummaries(_ context.Context, fs core.FilterSet, w core.Window) ([]core.Summary, error) {
	m.mu.RLock()
	items := make([]core.Summary, 0, len(m.summaries))
	for _, s := range m.summaries {
		if fs.Match(s) {
			items = append(items, s)
		}
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.FirstStart.Equal(b.FirstStart) {
			return a.FirstStart.After(b.FirstStart)
		}
		return a.FileName < b.FileName
	})

	if w.Limit <= 0 {
		return items, nil
	}
	if w.Offset >= len(items) {
		return nil, nil
	}
	end := min(w.Offset+w.Limit, len(items))
	return items[w.Offset:end], nil
}

func (m *Memory) GetSummary(_ context.Context, fileName string) (core.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.summaries[fileName]
	if !ok {
		return core.Summary{}, core.ErrNotFound
	}
	return s, nil
}

func (m *Memory) RecentSamples(_ context.Context, fileName string, limit int) ([]core.RecentSample, error) {
	m.mu.RLock()
	list := append([]memSample(nil), m.samples[fileName]...)
	m.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.sample.Date.Equal(b.sample.Date) {
			return a.sample.Date.After(b.sample.Date)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	out := make([]core.RecentSample, len(list))
	for i, ms := range list {
		out[i] = core.RecentSample{
			Date:                 ms.sample.Date,
			ExecutionTimeSeconds: ms.sample.ExecutionTimeSeconds,
			Value:                ms.sample.Value,
		}
	}
	return out, nil
}

// memTx stages changes per file name. A staged empty sample list or nil
// summary marks a deletion.
type memTx struct {
	m         *Memory
	nextSeq   int64
	samples   map[string][]memSample
	summaries map[string]*core.Summary
}

func errDuplicateSummary(fileName string) error {
	return fmt.Errorf("duplicate key: summary for %q already exists", fileName)
}

func (t *memTx) sampleView(fileName string) []memSample {
	if list, ok := t.samples[fileName]; ok {
		return list
	}
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	return append([]memSample(nil), t.m.samples[fileName]...)
}

func (t *memTx) LockFile(context.Context, string) error {
	return nil
}

func (t *memTx) DeleteSamples(_ context.Context, fileName string) (int64, error) {
	n := int64(len(t.sampleView(fileName)))
	t.samples[fileName] = []memSample{}
	return n, nil
}

func (t *memTx) DeleteSummary(_ context.Context, fileName string) (int64, error) {
	var exists bool
	if s, ok := t.summaries[fileName]; ok {
		exists = s != nil
	} else {
		t.m.mu.RLock()
		_, exists = t.m.summaries[fileName]
		t.m.mu.RUnlock()
	}
	t.summaries[fileName] = nil
	if exists {
		return 1, nil
	}
	return 0, nil
}

func (t *memTx) InsertSamples(ctx context.Context, importID string, samples []core.Sample) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for _, s := range samples {
		t.nextSeq++
		list := t.sampleView(s.FileName)
		t.samples[s.FileName] = append(list, memSample{seq: t.nextSeq, importID: importID, sample: s})
	}
	return int64(len(samples)), nil
}

func (t *memTx) InsertSummary(_ context.Context, s core.Summary) error {
	if cur, ok := t.summaries[s.FileName]; ok && cur != nil {
		return errDuplicateSummary(s.FileName)
	}
	if _, ok := t.summaries[s.FileName]; !ok {
		t.m.mu.RLock()
		_, exists := t.m.summaries[s.FileName]
		t.m.mu.RUnlock()
		if exists {
			return errDuplicateSummary(s.FileName)
		}
	}
	t.summaries[s.FileName] = &s
	return nil
}

package vector

import (
	"context"
	"sort"
	"sync"
)

// Memory is a brute-force in-memory Store. It backs tests and runs
// where no vector DB path is configured.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]Record
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]Record)}
}

func (m *Memory) Exists(_ context.Context, collection string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[collection]
	return ok, nil
}

func (m *Memory) Count(_ context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection]), nil
}

func (m *Memory) Add(_ context.Context, collection string, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.collections[collection]
	for _, r := range records {
		replaced := false
		for i := range existing {
			if existing[i].ID == r.ID {
				existing[i] = cloneRecord(r)
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, cloneRecord(r))
		}
	}
	m.collections[collection] = existing
	return nil
}

func (m *Memory) Nearest(_ context.Context, collection string, vec []float32, k int) ([]Hit, error) {
	m.mu.RLock()
	records, ok := m.collections[collection]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNoCollection
	}
	if len(records) == 0 || k <= 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(records))
	for _, r := range records {
		hits = append(hits, Hit{
			ID:       r.ID,
			Distance: cosineDistance(vec, r.Vector),
			Metadata: r.Metadata,
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *Memory) Close() error { return nil }

func cloneRecord(r Record) Record {
	vec := make([]float32, len(r.Vector))
	copy(vec, r.Vector)
	meta := make(map[string]string, len(r.Metadata))
	for k, v := range r.Metadata {
		meta[k] = v
	}
	return Record{ID: r.ID, Vector: vec, Metadata: meta}
}

package testutil

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/KaranOps/ContextCut/internal/catalog"
	"github.com/KaranOps/ContextCut/internal/store"
)

// MockStore is a thread-safe in-memory implementation of
// store.DataStore for testing.
type MockStore struct {
	mu sync.Mutex

	Runs    map[string]*store.Run
	Catalog catalog.Catalog
	Media   map[string]store.Media

	CreateRunErr error
	CatalogErr   error

	CreateRunCalls int
	StepCalls      []string
}

func NewMockStore() *MockStore {
	return &MockStore{
		Runs:    make(map[string]*store.Run),
		Catalog: catalog.Catalog{},
		Media:   make(map[string]store.Media),
	}
}

func (m *MockStore) CreateRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateRunCalls++
	if m.CreateRunErr != nil {
		return m.CreateRunErr
	}
	now := time.Now().UTC()
	m.Runs[runID] = &store.Run{RunID: runID, Status: store.RunPending, CreatedAt: now, UpdatedAt: now}
	return nil
}

func (m *MockStore) SetRunStep(_ context.Context, runID, step string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Runs[runID]
	if !ok {
		return store.ErrNotFound
	}
	m.StepCalls = append(m.StepCalls, step)
	r.Status = store.RunProcessing
	r.Step = step
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockStore) CompleteRun(_ context.Context, runID string, result json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Runs[runID]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = store.RunCompleted
	r.Result = append(json.RawMessage(nil), result...)
	r.Error = nil
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockStore) FailRun(_ context.Context, runID, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Runs[runID]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = store.RunFailed
	msg := errMsg
	r.Error = &msg
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockStore) GetRun(_ context.Context, runID string) (*store.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Runs[runID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MockStore) QueryRuns(_ context.Context, status string, limit int) ([]store.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []store.Run
	for _, r := range m.Runs {
		if status != "" && r.Status != status {
			continue
		}
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MockStore) UpsertCatalog(_ context.Context, cat catalog.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CatalogErr != nil {
		return m.CatalogErr
	}
	for id, entries := range cat {
		m.Catalog[id] = entries
	}
	return nil
}

func (m *MockStore) LoadCatalog(_ context.Context) (catalog.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CatalogErr != nil {
		return nil, m.CatalogErr
	}
	cp := catalog.Catalog{}
	for id, entries := range m.Catalog {
		cp[id] = entries
	}
	return cp, nil
}

func (m *MockStore) UpsertMedia(_ context.Context, md store.Media) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if md.CreatedAt.IsZero() {
		md.CreatedAt = time.Now().UTC()
	}
	m.Media[md.ID] = md
	return nil
}

func (m *MockStore) ListMedia(_ context.Context) ([]store.Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []store.Media
	for _, md := range m.Media {
		results = append(results, md)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

func (m *MockStore) Close() {}

// RunStatus returns the current status of a run, or "" if unknown.
func (m *MockStore) RunStatus(runID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.Runs[runID]; ok {
		return r.Status
	}
	return ""
}

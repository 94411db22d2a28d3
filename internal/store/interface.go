package store

import (
	"context"
	"encoding/json"

	"github.com/KaranOps/ContextCut/internal/catalog"
)

// DataStore is the interface consumed by the API server and the
// generation pipeline. The concrete implementation is *Store
// (pgx-backed).
type DataStore interface {
	CreateRun(ctx context.Context, runID string) error
	SetRunStep(ctx context.Context, runID, step string) error
	CompleteRun(ctx context.Context, runID string, result json.RawMessage) error
	FailRun(ctx context.Context, runID, errMsg string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	QueryRuns(ctx context.Context, status string, limit int) ([]Run, error)

	UpsertCatalog(ctx context.Context, cat catalog.Catalog) error
	LoadCatalog(ctx context.Context) (catalog.Catalog, error)

	UpsertMedia(ctx context.Context, m Media) error
	ListMedia(ctx context.Context) ([]Media, error)

	Close()
}

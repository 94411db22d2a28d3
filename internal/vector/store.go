package vector

import (
	"context"
	"errors"
)

// ErrNoCollection is returned by Nearest when the collection has never
// been written. Callers treat this as a cold start, not a failure.
var ErrNoCollection = errors.New("collection does not exist")

// Record is one stored vector with its flattened metadata.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Hit is one nearest-neighbor result. Distance is cosine distance, so
// similarity is 1 - Distance.
type Hit struct {
	ID       string
	Distance float64
	Metadata map[string]string
}

// Store persists vectors grouped by collection name. Collections from
// different embedding models must never be mixed; the caller derives
// the collection name from the model id.
//
// Implementations must support concurrent reads. Writes are serialized
// by the Index above this layer.
type Store interface {
	Exists(ctx context.Context, collection string) (bool, error)
	Count(ctx context.Context, collection string) (int, error)
	Add(ctx context.Context, collection string, records []Record) error
	// Nearest returns up to k hits ordered by ascending cosine distance.
	Nearest(ctx context.Context, collection string, vec []float32, k int) ([]Hit, error)
	Close() error
}

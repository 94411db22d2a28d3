package embed

import "context"

// Embedder turns text into a vector. Implementations must be safe for
// concurrent use; the catalog index shares one across all queries.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// ModelID identifies the embedding model. Vectors from distinct
	// model ids are never mixed in one collection.
	ModelID() string
}

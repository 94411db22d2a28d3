package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/KaranOps/ContextCut/internal/catalog"
	"github.com/KaranOps/ContextCut/internal/embed"
	"github.com/KaranOps/ContextCut/internal/timeline"
	"github.com/tidwall/sjson"
)

// Index embeds catalog descriptions into a model-scoped collection and
// answers similarity queries against it.
type Index struct {
	store    Store
	embedder embed.Embedder
	prefix   string

	// Serializes re-indexing across overlapping generation runs.
	// Queries read without taking this lock.
	indexMu sync.Mutex
}

func NewIndex(store Store, embedder embed.Embedder, collectionPrefix string) *Index {
	if collectionPrefix == "" {
		collectionPrefix = "broll"
	}
	return &Index{store: store, embedder: embedder, prefix: collectionPrefix}
}

// CollectionName derives the storage namespace from the embedding model
// id. Distinct models get distinct collections so their vector spaces
// never mix.
func (ix *Index) CollectionName() string {
	sanitized := strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(ix.embedder.ModelID())
	return ix.prefix + "_" + sanitized
}

// IndexCatalog embeds every catalog entry and stores it.
//
// Idempotency is a size heuristic, not a content hash: when the
// collection already holds at least len(cat) vectors the call is a
// no-op, so editing the description of an already-indexed id and
// re-indexing does NOT refresh its stored vector. Known limitation.
func (ix *Index) IndexCatalog(ctx context.Context, cat catalog.Catalog) error {
	ix.indexMu.Lock()
	defer ix.indexMu.Unlock()

	collection := ix.CollectionName()
	count, err := ix.store.Count(ctx, collection)
	if err != nil {
		return fmt.Errorf("count collection %s: %w", collection, err)
	}
	if count >= len(cat) && len(cat) > 0 {
		slog.Info("collection already populated, skipping re-index",
			"collection", collection, "stored", count, "catalog", len(cat))
		return nil
	}

	records := make([]Record, 0, len(cat))
	for id, entries := range cat {
		description := catalog.DescriptionText(id, entries)
		vec, err := ix.embedder.Embed(ctx, description)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("embedding failed, leaving entry unindexed", "id", id, "error", err)
			continue
		}
		records = append(records, Record{
			ID:       id,
			Vector:   vec,
			Metadata: catalog.FlattenMetadata(entries),
		})
	}
	if len(records) == 0 {
		return nil
	}

	if err := ix.store.Add(ctx, collection, records); err != nil {
		return fmt.Errorf("store %d vectors in %s: %w", len(records), collection, err)
	}
	slog.Info("catalog indexed", "collection", collection, "count", len(records))
	return nil
}

// Query returns the catalog entries most similar to text, best first.
// Each candidate is the flattened metadata with "id" and
// "similarity_score" merged in. A missing collection (cold start) and
// an embedding failure both yield an empty result, not an error.
func (ix *Index) Query(ctx context.Context, text string, topK int, threshold float64) ([]timeline.Candidate, error) {
	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("query embedding failed, treating as retrieval miss", "error", err)
		return nil, nil
	}

	hits, err := ix.store.Nearest(ctx, ix.CollectionName(), vec, topK)
	if errors.Is(err, ErrNoCollection) {
		slog.Warn("collection not found, returning no candidates", "collection", ix.CollectionName())
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", err)
	}

	candidates := make([]timeline.Candidate, 0, len(hits))
	for _, h := range hits {
		similarity := 1 - h.Distance
		if similarity < threshold {
			continue
		}
		c, err := candidateJSON(h, similarity)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func candidateJSON(h Hit, similarity float64) (timeline.Candidate, error) {
	meta, err := json.Marshal(h.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal candidate metadata: %w", err)
	}
	out, err := sjson.SetBytes(meta, "id", h.ID)
	if err != nil {
		return nil, fmt.Errorf("merge candidate id: %w", err)
	}
	out, err = sjson.SetBytes(out, "similarity_score", similarity)
	if err != nil {
		return nil, fmt.Errorf("merge similarity score: %w", err)
	}
	return timeline.Candidate(out), nil
}

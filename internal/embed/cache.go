package embed

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cached memoizes vectors per model|text for a TTL. Narration segments
// are re-embedded on every generation run otherwise, and catalog
// queries repeat heavily during tuning.
type Cached struct {
	inner Embedder
	cache *gocache.Cache
}

func NewCached(inner Embedder, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *Cached) ModelID() string { return c.inner.ModelID() }

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.inner.ModelID() + "|" + text
	if v, ok := c.cache.Get(key); ok {
		return cloneVector(v.([]float32)), nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, cloneVector(vec), gocache.DefaultExpiration)
	return vec, nil
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}

package embed

import (
	"context"
	"errors"
	"log/slog"
)

// Chain tries each provider in order until one returns a vector.
// ModelID comes from the primary provider: a fallback must serve the
// same model, otherwise its vectors would land in the wrong collection.
type Chain struct {
	providers []Embedder
}

func NewChain(providers ...Embedder) *Chain {
	return &Chain{providers: providers}
}

func (c *Chain) ModelID() string {
	if len(c.providers) == 0 {
		return ""
	}
	return c.providers[0].ModelID()
}

func (c *Chain) Embed(ctx context.Context, text string) ([]float32, error) {
	var errs []error
	for i, p := range c.providers {
		vec, err := p.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("embedding provider failed, trying next", "provider", i, "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no embedding providers configured")
	}
	return nil, errors.Join(errs...)
}

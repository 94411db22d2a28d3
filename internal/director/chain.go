package director

import (
	"context"
	"errors"
	"log/slog"

	"github.com/KaranOps/ContextCut/internal/timeline"
)

// Chain tries each director in order and returns the first successful
// draft. A malformed-but-delivered reply still counts as a failure for
// fallback purposes since the next provider may produce a usable one.
type Chain struct {
	directors []Director
}

func NewChain(directors ...Director) *Chain {
	return &Chain{directors: directors}
}

func (c *Chain) Propose(ctx context.Context, segments []timeline.SegmentWithOptions) ([]timeline.ProposedEvent, error) {
	if len(c.directors) == 0 {
		return nil, errors.New("no directors configured")
	}
	var errs []error
	for i, d := range c.directors {
		proposals, err := d.Propose(ctx, segments)
		if err == nil {
			return proposals, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("director failed, trying next", "position", i, "error", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// Package generate runs the full timeline pipeline: make sure the
// catalog is indexed, attach retrieval candidates to each narration
// segment, ask the director for a draft, then validate the draft into
// the final timeline.
package generate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KaranOps/ContextCut/internal/catalog"
	"github.com/KaranOps/ContextCut/internal/director"
	"github.com/KaranOps/ContextCut/internal/timeline"
)

// Indexer brings the vector collection up to date with the catalog.
type Indexer interface {
	IndexCatalog(ctx context.Context, cat catalog.Catalog) error
}

// Annotator attaches ranked B-roll candidates to narration segments.
type Annotator interface {
	Annotate(ctx context.Context, segments []timeline.NarrationSegment) ([]timeline.SegmentWithOptions, error)
}

// Generator wires the pipeline stages together. Each stage is an
// interface so callers can swap in fakes or alternate providers.
type Generator struct {
	indexer   Indexer
	annotator Annotator
	director  director.Director
	rules     timeline.Rules
}

func New(indexer Indexer, annotator Annotator, d director.Director, rules timeline.Rules) *Generator {
	return &Generator{indexer: indexer, annotator: annotator, director: d, rules: rules}
}

// Run produces the validated timeline for one narration transcript.
// A director failure aborts the run; there is no partial timeline.
func (g *Generator) Run(ctx context.Context, segments []timeline.NarrationSegment, cat catalog.Catalog) (timeline.Timeline, error) {
	if len(cat) > 0 {
		if err := g.indexer.IndexCatalog(ctx, cat); err != nil {
			return timeline.Timeline{}, fmt.Errorf("index catalog: %w", err)
		}
	}

	annotated, err := g.annotator.Annotate(ctx, segments)
	if err != nil {
		return timeline.Timeline{}, fmt.Errorf("retrieve candidates: %w", err)
	}

	proposals, err := g.director.Propose(ctx, annotated)
	if err != nil {
		return timeline.Timeline{}, fmt.Errorf("director: %w", err)
	}

	accepted := timeline.Validate(segments, proposals, g.rules)
	slog.Info("timeline generated",
		"segments", len(segments),
		"proposed", len(proposals),
		"accepted", len(accepted))

	return timeline.Timeline{Events: accepted}, nil
}

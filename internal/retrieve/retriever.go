package retrieve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KaranOps/ContextCut/internal/timeline"
)

// Searcher is the slice of the catalog index the retriever needs.
// The concrete implementation is *vector.Index.
type Searcher interface {
	Query(ctx context.Context, text string, topK int, threshold float64) ([]timeline.Candidate, error)
}

// Retriever annotates narration segments with their top-K catalog
// candidates. The index must have been (re)built earlier in the run.
type Retriever struct {
	index     Searcher
	topK      int
	threshold float64
}

func New(index Searcher, topK int, threshold float64) *Retriever {
	return &Retriever{index: index, topK: topK, threshold: threshold}
}

// Annotate attaches available_broll to every segment. An empty list is
// valid and means no B-roll may be placed on that segment.
func (r *Retriever) Annotate(ctx context.Context, segments []timeline.NarrationSegment) ([]timeline.SegmentWithOptions, error) {
	out := make([]timeline.SegmentWithOptions, 0, len(segments))
	for _, seg := range segments {
		candidates, err := r.index.Query(ctx, seg.Text, r.topK, r.threshold)
		if err != nil {
			return nil, fmt.Errorf("retrieve candidates for segment at %.2f: %w", seg.Start, err)
		}
		if candidates == nil {
			candidates = []timeline.Candidate{}
		}
		out = append(out, timeline.SegmentWithOptions{
			NarrationSegment: seg,
			AvailableBroll:   candidates,
		})
	}
	slog.Debug("segments annotated", "segments", len(segments))
	return out, nil
}

// Package director calls the external LLM collaborator that drafts
// B-roll placement proposals. The core never trusts its output: every
// proposal goes through the admission filter in package timeline.
package director

import (
	"context"

	"github.com/KaranOps/ContextCut/internal/timeline"
)

// Director proposes a draft placement sequence for the annotated
// narration. A failure or malformed reply is fatal for the run; the
// caller must never fabricate a partial timeline from it.
type Director interface {
	Propose(ctx context.Context, segments []timeline.SegmentWithOptions) ([]timeline.ProposedEvent, error)
}

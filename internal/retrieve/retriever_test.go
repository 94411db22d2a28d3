package retrieve

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/KaranOps/ContextCut/internal/timeline"
)

type fakeSearcher struct {
	byText map[string][]timeline.Candidate
	err    error
	topK   int
}

func (f *fakeSearcher) Query(_ context.Context, text string, topK int, _ float64) ([]timeline.Candidate, error) {
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.byText[text], nil
}

func TestAnnotate_AttachesCandidatesPerSegment(t *testing.T) {
	searcher := &fakeSearcher{byText: map[string][]timeline.Candidate{
		"cooking dinner": {json.RawMessage(`{"id":"clip1","similarity_score":0.8}`)},
	}}
	r := New(searcher, 5, 0.3)

	segments := []timeline.NarrationSegment{
		{Start: 0, End: 5, Text: "cooking dinner"},
		{Start: 5, End: 10, Text: "nothing matches this"},
	}
	annotated, err := r.Annotate(context.Background(), segments)
	if err != nil {
		t.Fatalf("annotate failed: %v", err)
	}
	if len(annotated) != 2 {
		t.Fatalf("expected 2 annotated segments, got %d", len(annotated))
	}
	if len(annotated[0].AvailableBroll) != 1 {
		t.Errorf("expected 1 candidate on first segment, got %d", len(annotated[0].AvailableBroll))
	}
	if annotated[1].AvailableBroll == nil || len(annotated[1].AvailableBroll) != 0 {
		t.Errorf("expected empty (non-nil) candidate list, got %#v", annotated[1].AvailableBroll)
	}
	if searcher.topK != 5 {
		t.Errorf("expected topK forwarded, got %d", searcher.topK)
	}
}

func TestAnnotate_EmptyListSerializesAsArray(t *testing.T) {
	r := New(&fakeSearcher{}, 3, 0.3)
	annotated, err := r.Annotate(context.Background(), []timeline.NarrationSegment{{Start: 0, End: 1, Text: "x"}})
	if err != nil {
		t.Fatalf("annotate failed: %v", err)
	}
	blob, _ := json.Marshal(annotated[0])
	if string(blob) == "" || !json.Valid(blob) {
		t.Fatalf("bad serialization: %s", blob)
	}
	var round map[string]any
	json.Unmarshal(blob, &round)
	if _, ok := round["available_broll"].([]any); !ok {
		t.Errorf("available_broll must serialize as an array, got %s", blob)
	}
}

func TestAnnotate_PropagatesQueryError(t *testing.T) {
	r := New(&fakeSearcher{err: errors.New("store broken")}, 3, 0.3)
	if _, err := r.Annotate(context.Background(), []timeline.NarrationSegment{{Text: "x"}}); err == nil {
		t.Fatal("expected error to propagate")
	}
}

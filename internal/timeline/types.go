package timeline

import "encoding/json"

// NarrationSegment is one timestamped line of the A-roll transcript.
// Segments are ordered, non-overlapping and cover [0, totalEnd].
type NarrationSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Candidate is one retrieval hit for a narration segment: the flattened
// B-roll metadata with "id" and "similarity_score" merged in.
type Candidate = json.RawMessage

// SegmentWithOptions is a narration segment annotated with the B-roll
// candidates the Director is allowed to pick from. An empty list means
// no B-roll may be placed on this segment.
type SegmentWithOptions struct {
	NarrationSegment
	AvailableBroll []Candidate `json:"available_broll"`
}

// ProposedEvent is one placement proposal from the Director. It is
// untrusted input: nothing about it is assumed internally consistent.
type ProposedEvent struct {
	ARollStart       float64 `json:"a_roll_start"`
	DurationSec      float64 `json:"duration_sec"`
	BrollID          *string `json:"b_roll_id"`
	BrollStartOffset float64 `json:"b_roll_start_offset"`
	Confidence       float64 `json:"confidence"`
	Reason           string  `json:"reason"`
}

// AcceptedEvent is a proposal that survived admission control. It keeps
// the Director's fields except duration_sec, which is overridden to the
// span of the matched narration segment.
type AcceptedEvent struct {
	ARollStart       float64 `json:"a_roll_start"`
	DurationSec      float64 `json:"duration_sec"`
	BrollID          *string `json:"b_roll_id"`
	BrollStartOffset float64 `json:"b_roll_start_offset"`
	Confidence       float64 `json:"confidence"`
	Reason           string  `json:"reason"`
}

// Timeline is the final accepted edit, ascending by a_roll_start.
type Timeline struct {
	Events []AcceptedEvent `json:"timeline"`
}

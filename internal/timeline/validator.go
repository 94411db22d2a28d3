package timeline

import (
	"log/slog"
	"math"
	"sort"
)

// Rules holds the pacing parameters for one generation run.
type Rules struct {
	MinBrollDuration float64
	CoolDownSeconds  float64
	DiversityWindow  float64
	MinConfidence    float64
	StartTolerance   float64
}

// DefaultStartTolerance is the anchor-matching epsilon used when a
// Rules value leaves StartTolerance unset.
const DefaultStartTolerance = 0.1

// Validate runs admission control over the Director's proposals and
// returns the pacing-correct timeline.
//
// Proposals are sorted by a_roll_start and processed once, in order.
// Each proposal is judged only against previously accepted state: no
// lookahead, no backtracking. The result is deterministic but not
// globally optimal: an earlier marginal proposal can block a later
// better one.
func Validate(segments []NarrationSegment, proposals []ProposedEvent, rules Rules) []AcceptedEvent {
	accepted := []AcceptedEvent{}
	if len(segments) == 0 {
		return accepted
	}

	tolerance := rules.StartTolerance
	if tolerance <= 0 {
		tolerance = DefaultStartTolerance
	}

	sorted := make([]ProposedEvent, len(proposals))
	copy(sorted, proposals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ARollStart < sorted[j].ARollStart
	})

	totalEnd := segments[len(segments)-1].End
	lastAcceptedEnd := math.Inf(-1)
	usageHistory := map[string][]float64{}

	for _, p := range sorted {
		if p.Confidence < rules.MinConfidence {
			slog.Debug("dropping proposal: confidence below floor",
				"start", p.ARollStart, "confidence", p.Confidence, "floor", rules.MinConfidence)
			continue
		}

		seg, ok := anchorSegment(segments, p.ARollStart, tolerance)
		if !ok {
			slog.Debug("dropping proposal: start matches no narration segment", "start", p.ARollStart)
			continue
		}

		// The proposal's own duration_sec is discarded: every accepted
		// clip spans exactly one narration segment.
		duration := seg.End - seg.Start

		if p.ARollStart+duration > totalEnd+tolerance {
			slog.Debug("dropping proposal: exceeds total narration length", "start", p.ARollStart)
			continue
		}

		if duration < rules.MinBrollDuration {
			slog.Debug("dropping proposal: below minimum cut length",
				"start", p.ARollStart, "duration", duration, "min", rules.MinBrollDuration)
			continue
		}

		if p.ARollStart-lastAcceptedEnd < rules.CoolDownSeconds {
			slog.Debug("dropping proposal: cool-down violation",
				"start", p.ARollStart, "gap", p.ARollStart-lastAcceptedEnd, "cool_down", rules.CoolDownSeconds)
			continue
		}

		// A null b_roll_id (A-roll only) skips the diversity check but
		// still consumes cool-down budget below.
		if p.BrollID != nil {
			if reusedTooSoon(usageHistory[*p.BrollID], p.ARollStart, rules.DiversityWindow) {
				slog.Debug("dropping proposal: diversity violation", "start", p.ARollStart, "b_roll_id", *p.BrollID)
				continue
			}
		}

		accepted = append(accepted, AcceptedEvent{
			ARollStart:       p.ARollStart,
			DurationSec:      duration,
			BrollID:          p.BrollID,
			BrollStartOffset: p.BrollStartOffset,
			Confidence:       p.Confidence,
			Reason:           p.Reason,
		})
		lastAcceptedEnd = p.ARollStart + duration
		if p.BrollID != nil {
			usageHistory[*p.BrollID] = append(usageHistory[*p.BrollID], p.ARollStart)
		}
	}

	return accepted
}

func anchorSegment(segments []NarrationSegment, start, tolerance float64) (NarrationSegment, bool) {
	for _, s := range segments {
		if math.Abs(s.Start-start) < tolerance {
			return s, true
		}
	}
	return NarrationSegment{}, false
}

func reusedTooSoon(history []float64, start, window float64) bool {
	for _, t := range history {
		if math.Abs(start-t) < window {
			return true
		}
	}
	return false
}

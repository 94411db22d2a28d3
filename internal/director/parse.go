package director

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaranOps/ContextCut/internal/timeline"
	"github.com/tidwall/gjson"
)

// parseReply decodes the model's reply into proposals. Markdown code
// fences are tolerated; anything else that deviates from the
// {"timeline": [...]} schema is an error.
func parseReply(raw string) ([]timeline.ProposedEvent, error) {
	clean := stripFences(raw)
	if clean == "" {
		return nil, fmt.Errorf("empty reply from model")
	}
	if !gjson.Valid(clean) {
		return nil, fmt.Errorf("reply is not valid JSON")
	}

	tl := gjson.Get(clean, "timeline")
	if !tl.Exists() {
		return nil, fmt.Errorf("reply has no timeline field")
	}
	if !tl.IsArray() {
		return nil, fmt.Errorf("timeline field is not an array")
	}

	var proposals []timeline.ProposedEvent
	if err := json.Unmarshal([]byte(tl.Raw), &proposals); err != nil {
		return nil, fmt.Errorf("decode timeline entries: %w", err)
	}
	return proposals, nil
}

func stripFences(raw string) string {
	clean := strings.TrimSpace(raw)
	if strings.HasPrefix(clean, "```json") {
		clean = clean[len("```json"):]
	} else if strings.HasPrefix(clean, "```") {
		clean = clean[len("```"):]
	}
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	return strings.TrimSpace(clean)
}

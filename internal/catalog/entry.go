package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Technical carries the nested shot descriptors produced by the vision
// pipeline that catalogued the clip.
type Technical struct {
	ShotType       string `json:"shot_type,omitempty" yaml:"shot_type,omitempty"`
	CameraMovement string `json:"camera_movement,omitempty" yaml:"camera_movement,omitempty"`
	Lighting       string `json:"lighting,omitempty" yaml:"lighting,omitempty"`
}

// Entry is one B-roll shot descriptor. A single asset id may carry one
// Entry or a sequence of them (one per shot); see Normalize.
type Entry struct {
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Activity    string     `json:"activity,omitempty" yaml:"activity,omitempty"`
	Category    string     `json:"category,omitempty" yaml:"category,omitempty"`
	Intent      string     `json:"intent,omitempty" yaml:"intent,omitempty"`
	Technical   *Technical `json:"technical,omitempty" yaml:"technical,omitempty"`
	SearchTags  []string   `json:"search_tags,omitempty" yaml:"search_tags,omitempty"`
}

// Catalog maps asset id (filename or asset key) to its shot records.
type Catalog map[string][]Entry

// Normalize decodes a raw catalog where each id maps to either a single
// record or a sequence of records, into the uniform sequence form.
func Normalize(raw map[string]json.RawMessage) (Catalog, error) {
	out := make(Catalog, len(raw))
	for id, blob := range raw {
		var many []Entry
		if err := json.Unmarshal(blob, &many); err == nil {
			out[id] = many
			continue
		}
		var one Entry
		if err := json.Unmarshal(blob, &one); err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", id, err)
		}
		out[id] = []Entry{one}
	}
	return out, nil
}

// DescriptionText fuses the descriptive fields of every shot record for
// one asset into a single retrieval document. Duplicate fragments are
// collapsed with set semantics; ordering is normalized so the same
// catalog always yields the same text. Falls back to the id when the
// records carry no usable text.
func DescriptionText(id string, entries []Entry) string {
	seen := map[string]struct{}{}
	for _, e := range entries {
		parts := []string{e.Description, e.Activity, e.Category, e.Intent}
		if e.Technical != nil {
			parts = append(parts, e.Technical.ShotType, e.Technical.CameraMovement, e.Technical.Lighting)
		}
		if len(e.SearchTags) > 0 {
			parts = append(parts, strings.Join(e.SearchTags, " "))
		}
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				seen[p] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return id
	}
	fragments := make([]string, 0, len(seen))
	for p := range seen {
		fragments = append(fragments, p)
	}
	sort.Strings(fragments)
	return strings.Join(fragments, " ")
}

// FlattenMetadata reduces the first shot record to a flat string map
// suitable for the vector store: primitives kept as-is, the tag list
// joined into one string, and the nested technical block flattened one
// level with a parent-key prefix.
func FlattenMetadata(entries []Entry) map[string]string {
	flat := map[string]string{}
	if len(entries) == 0 {
		return flat
	}
	e := entries[0]
	put := func(k, v string) {
		if strings.TrimSpace(v) != "" {
			flat[k] = v
		}
	}
	put("description", e.Description)
	put("activity", e.Activity)
	put("category", e.Category)
	put("intent", e.Intent)
	if e.Technical != nil {
		put("technical_shot_type", e.Technical.ShotType)
		put("technical_camera_movement", e.Technical.CameraMovement)
		put("technical_lighting", e.Technical.Lighting)
	}
	if len(e.SearchTags) > 0 {
		put("search_tags", strings.Join(e.SearchTags, ", "))
	}
	return flat
}

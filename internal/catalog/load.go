package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a catalog from a JSON or YAML file. The top level maps
// asset id to either one record or a list of records.
func LoadFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var direct map[string][]Entry
		if err := yaml.Unmarshal(data, &direct); err == nil {
			return Catalog(direct), nil
		}
		var single map[string]Entry
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parse yaml catalog: %w", err)
		}
		out := make(Catalog, len(single))
		for id, e := range single {
			out[id] = []Entry{e}
		}
		return out, nil
	default:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse json catalog: %w", err)
		}
		return Normalize(raw)
	}
}

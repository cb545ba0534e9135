package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/skyroof/safetymonitor/internal/safety"
)

// LoadRegistry reads a roof registry file. Two layouts are accepted: a bare
// array of {"name","url"} objects, or an object with "roofs" and an optional
// "location". Field names match case-insensitively.
//
// Entries without a name or URL, and repeated names, are dropped. The first
// occurrence of a name wins.
func LoadRegistry(path string) (safety.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return safety.Registry{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes registry JSON in either accepted layout.
func ParseRegistry(data []byte) (safety.Registry, error) {
	var reg safety.Registry

	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return reg, fmt.Errorf("%w: empty file", ErrRegistry)
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &reg.Roofs); err != nil {
			return safety.Registry{}, fmt.Errorf("%w: %w", ErrRegistry, err)
		}
	default:
		if err := json.Unmarshal(trimmed, &reg); err != nil {
			return safety.Registry{}, fmt.Errorf("%w: %w", ErrRegistry, err)
		}
	}

	reg.Roofs = cleanRoofs(reg.Roofs)
	return reg, nil
}

func cleanRoofs(in []safety.RoofConfig) []safety.RoofConfig {
	out := make([]safety.RoofConfig, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, r := range in {
		if r.Name == "" || r.URL == "" || seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out
}

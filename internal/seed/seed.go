// Package seed loads fixture files used to pre-populate in-memory slot
// stores. Files are YAML; JSON documents are accepted as well since the
// decoder treats them as YAML flow syntax.
//
//	slots:
//	  - key: "@game/raw"
//	    value: '{"v":"1","c":0,"s":2,"p":"{}"}'
//	records:
//	  - id: "@game/board"
//	    version: "3"
//	    value: {turn: 4, players: [a, b]}
//
// Slot entries are written verbatim. Record entries are saved through the
// storage codec by the caller, so they pick the inline or chunked layout.
package seed

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one raw slot.
type Entry struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Record is one logical value to be saved through the codec.
type Record struct {
	ID      string `yaml:"id"`
	Version string `yaml:"version"`
	Value   any    `yaml:"value"`
}

// File is the decoded seed document.
type File struct {
	Slots   []Entry  `yaml:"slots"`
	Records []Record `yaml:"records"`
}

// Load reads and validates the seed file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a seed document.
func Parse(data []byte) (*File, error) {
	f := &File{}
	if len(bytes.TrimSpace(data)) == 0 {
		return f, nil
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	for i, e := range f.Slots {
		if strings.TrimSpace(e.Key) == "" {
			return nil, fmt.Errorf("seed: slot entry %d missing key", i)
		}
	}
	for i, r := range f.Records {
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("seed: record entry %d missing id", i)
		}
		f.Records[i].Value = normalize(r.Value)
	}
	return f, nil
}

// normalize converts YAML-decoded maps into JSON-encodable ones.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			t[k] = normalize(inner)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[fmt.Sprint(k)] = normalize(inner)
		}
		return out
	case []any:
		for i, inner := range t {
			t[i] = normalize(inner)
		}
		return t
	default:
		return v
	}
}

package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Format is the encoding of a workflow document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension. Unknown
// extensions are read as YAML, which also accepts JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads a workflow graph from a YAML or JSON file.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("graph: reading %s: %w", path, err)
	}
	g, err := Decode(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("graph: parsing %s: %w", path, err)
	}
	return g, nil
}

// Decode parses a workflow graph. The graph is not validated.
func Decode(data []byte, format Format) (*Graph, error) {
	var g Graph
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&g); err != nil {
			return nil, err
		}
		normalizeNumbers(&g)
	case FormatYAML:
		if err := yaml.Unmarshal(data, &g); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return &g, nil
}

// normalizeNumbers converts json.Number settings into int or float64 so
// both encodings produce the same values.
func normalizeNumbers(g *Graph) {
	for i := range g.Nodes {
		g.Nodes[i].Settings = normalizeValue(g.Nodes[i].Settings)
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeValue(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalizeValue(inner)
		}
		return t
	default:
		return v
	}
}

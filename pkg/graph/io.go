package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
)

// document is the flat canonical serialization of a Graph.
type document struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

func (g *Graph) document() document {
	return document{Nodes: g.Nodes(), Edges: g.Edges()}
}

// MarshalJSON writes the canonical flat shape.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.document())
}

// UnmarshalJSON normalizes data into g, replacing its contents.
func (g *Graph) UnmarshalJSON(data []byte) error {
	parsed, err := Normalize(data)
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}

// WriteJSON writes g as indented JSON.
func WriteJSON(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g.document()); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteYAML writes g as YAML.
func WriteYAML(g *Graph, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(g.document()); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return enc.Close()
}

// ReadFile reads and normalizes a payload file.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

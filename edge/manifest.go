package edge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML description of an edge run: the vertex files whose
// keys populate the translation table and the edge files to rewrite. Command
// line arguments take precedence over manifest values.
type Manifest struct {
	Type       string `yaml:"type"`       // csv or jsonl
	SmartAttr  string `yaml:"smartGraphAttribute"`
	SmartIndex int    `yaml:"smartIndex"`
	Separator  string `yaml:"separator"`
	QuoteChar  string `yaml:"quoteChar"`

	Vertices []ManifestVertex `yaml:"vertices"`
	Edges    []ManifestEdge   `yaml:"edges"`
}

type ManifestVertex struct {
	File       string `yaml:"file"`
	Collection string `yaml:"collection"`
}

type ManifestEdge struct {
	File    string `yaml:"file"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Renames []struct {
		Col  int    `yaml:"col"`
		Name string `yaml:"name"`
	} `yaml:"renames"`
}

// Specs converts the manifest edge entries to edge specs.
func (m *Manifest) Specs() []Spec {
	var specs []Spec
	for _, e := range m.Edges {
		sp := Spec{File: e.File, FromColl: e.From, ToColl: e.To}
		for _, r := range e.Renames {
			sp.Renames = append(sp.Renames, Rename{Col: r.Col, Name: r.Name})
		}
		specs = append(specs, sp)
	}
	return specs
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("cannot parse manifest %s: %w", path, err)
	}
	return &m, nil
}

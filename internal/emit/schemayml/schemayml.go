// Package schemayml renders a dbt-style schema.yml with column
// descriptions and generic data tests.
package schemayml

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// File is the top-level schema.yml document.
type File struct {
	Version int     `yaml:"version"`
	Models  []Model `yaml:"models"`
}

// Model is one table entry.
type Model struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Meta        Meta     `yaml:"meta"`
	Columns     []Column `yaml:"columns"`
}

// Meta carries the inferred modeling metadata.
type Meta struct {
	Layer          core.Layer          `yaml:"layer"`
	Classification core.Classification `yaml:"classification"`
	Grain          string              `yaml:"grain,omitempty"`
}

// Column is one column entry. Tests hold plain names ("unique") or
// single-key maps ({relationships: {...}}).
type Column struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	DataType    string `yaml:"data_type"`
	Tests       []any  `yaml:"tests,omitempty"`
}

// Relationship is the argument of a relationships test.
type Relationship struct {
	To    string `yaml:"to"`
	Field string `yaml:"field"`
}

// Build assembles the schema document of a state.
func Build(s *core.ModelState, sqlType func(core.ColumnProfile) string) File {
	f := File{Version: 2, Models: []Model{}}
	for _, t := range s.Tables() {
		m := Model{
			Name: t.Name,
			Meta: Meta{
				Layer:          t.Layer,
				Classification: s.Classification(t.Name),
				Grain:          t.Grain,
			},
			Columns: make([]Column, 0, len(t.Columns)),
		}
		if t.Grain != "" {
			m.Description = fmt.Sprintf("One row per %s row.", t.Grain)
		}
		for _, c := range t.Columns {
			col := Column{
				Name:        c.Name,
				Description: s.Description(t.Name, c.Name),
				DataType:    sqlType(c),
			}
			if c.Name == t.PrimaryKey {
				col.Tests = append(col.Tests, "unique", "not_null")
			} else if c.Count > 0 && c.Nulls == 0 {
				col.Tests = append(col.Tests, "not_null")
			}
			if e, ok := s.EdgeFor(t.Name, c.Name); ok {
				col.Tests = append(col.Tests, map[string]Relationship{
					"relationships": {To: fmt.Sprintf("ref('%s')", e.ParentTable), Field: e.ParentColumn},
				})
			}
			m.Columns = append(m.Columns, col)
		}
		f.Models = append(f.Models, m)
	}
	return f
}

// Marshal encodes the document with two-space indentation.
func Marshal(f File) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("failed to encode schema.yml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode schema.yml: %w", err)
	}
	return buf.Bytes(), nil
}

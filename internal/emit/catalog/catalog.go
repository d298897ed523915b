// Package catalog renders the JSON documents describing a model: the data
// catalog, the star schema view and the graph model export.
package catalog

import (
	"encoding/json"
	"math"

	"github.com/leapstack-labs/leapmodel/internal/dimension"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// GeneratedBy identifies the producer in emitted documents.
const GeneratedBy = "leapmodel"

// Column is the catalog entry of one column.
type Column struct {
	Name         string          `json:"name"`
	Type         core.ColumnType `json:"type"`
	Role         core.ColumnRole `json:"role"`
	Layer        core.Layer      `json:"layer"`
	Nullable     bool            `json:"nullable"`
	Unique       bool            `json:"unique"`
	Nulls        int             `json:"nulls"`
	NullPct      float64         `json:"null_pct"`
	Distinct     int             `json:"distinct"`
	Description  string          `json:"description,omitempty"`
	SampleValues []string        `json:"sample_values"`
	Source       *core.ColumnRef `json:"source,omitempty"`
}

// Table is the catalog entry of one table.
type Table struct {
	Name           string              `json:"name"`
	Rows           int                 `json:"rows"`
	Layer          core.Layer          `json:"layer"`
	Classification core.Classification `json:"classification"`
	PrimaryKey     string              `json:"primary_key,omitempty"`
	Synthesized    bool                `json:"synthesized,omitempty"`
	Grain          string              `json:"grain,omitempty"`
	Columns        []Column            `json:"columns"`
}

// Relationship is the catalog entry of one edge.
type Relationship struct {
	From       core.ColumnRef `json:"from"`
	To         core.ColumnRef `json:"to"`
	Confidence float64        `json:"confidence"`
	Basis      core.Basis     `json:"basis"`
}

// Catalog is the full data catalog.
type Catalog struct {
	GeneratedBy   string         `json:"generated_by"`
	Tables        []Table        `json:"tables"`
	Relationships []Relationship `json:"relationships"`
}

// Build assembles the catalog of a state. Tables and columns keep model
// order.
func Build(s *core.ModelState) Catalog {
	c := Catalog{GeneratedBy: GeneratedBy, Tables: []Table{}, Relationships: []Relationship{}}
	for _, t := range s.Tables() {
		entry := Table{
			Name:           t.Name,
			Rows:           t.RowCount,
			Layer:          t.Layer,
			Classification: s.Classification(t.Name),
			PrimaryKey:     t.PrimaryKey,
			Synthesized:    t.Synthesized,
			Grain:          t.Grain,
			Columns:        make([]Column, 0, len(t.Columns)),
		}
		for i := range t.Columns {
			col := &t.Columns[i]
			samples := col.Samples
			if samples == nil {
				samples = []string{}
			}
			entry.Columns = append(entry.Columns, Column{
				Name:         col.Name,
				Type:         col.Type,
				Role:         col.Role,
				Layer:        col.Layer,
				Nullable:     col.Nullable,
				Unique:       col.Unique(),
				Nulls:        col.Nulls,
				NullPct:      round(col.NullRatio * 100),
				Distinct:     col.Distinct,
				Description:  s.Description(t.Name, col.Name),
				SampleValues: samples,
				Source:       col.Source,
			})
		}
		c.Tables = append(c.Tables, entry)
	}
	for _, e := range s.Edges() {
		c.Relationships = append(c.Relationships, Relationship{
			From:       e.Child(),
			To:         e.Parent(),
			Confidence: round(e.Confidence),
			Basis:      e.Basis,
		})
	}
	return c
}

// Star is the star schema document.
type Star struct {
	Facts      []core.StarFact `json:"facts"`
	Dimensions []string        `json:"dimensions"`
}

// BuildStar returns the star view of a state.
func BuildStar(s *core.ModelState) Star {
	facts := s.Star()
	if facts == nil {
		facts = []core.StarFact{}
	}
	dims := dimension.Dimensions(facts)
	if dims == nil {
		dims = []string{}
	}
	return Star{Facts: facts, Dimensions: dims}
}

// ModelColumn is a column of the graph model export.
type ModelColumn struct {
	Type        core.ColumnType `json:"type"`
	Description string          `json:"description"`
	IsPrimary   bool            `json:"is_primary"`
}

// ModelTable is a table of the graph model export.
type ModelTable struct {
	PrimaryKey string                 `json:"primary_key"`
	Columns    map[string]ModelColumn `json:"columns"`
}

// ForeignKey is an edge of the graph model export.
type ForeignKey struct {
	Table      string     `json:"table"`
	Column     string     `json:"column"`
	RefTable   string     `json:"ref_table"`
	RefColumn  string     `json:"ref_column"`
	Confidence float64    `json:"confidence"`
	Basis      core.Basis `json:"basis"`
}

// Meta summarizes the graph model export.
type Meta struct {
	GeneratedBy string `json:"generated_by"`
	Tables      int    `json:"tables"`
	ForeignKeys int    `json:"foreign_keys"`
	Facts       int    `json:"facts"`
	Dimensions  int    `json:"dimensions"`
}

// Model is the graph model export: tables keyed by name.
type Model struct {
	Tables      map[string]ModelTable `json:"tables"`
	ForeignKeys []ForeignKey          `json:"foreign_keys"`
	Meta        Meta                  `json:"_meta"`
}

// BuildModel returns the graph model export of a state.
func BuildModel(s *core.ModelState) Model {
	m := Model{
		Tables:      make(map[string]ModelTable),
		ForeignKeys: []ForeignKey{},
	}
	for _, t := range s.Tables() {
		mt := ModelTable{PrimaryKey: t.PrimaryKey, Columns: make(map[string]ModelColumn, len(t.Columns))}
		for _, c := range t.Columns {
			mt.Columns[c.Name] = ModelColumn{
				Type:        c.Type,
				Description: s.Description(t.Name, c.Name),
				IsPrimary:   c.Name == t.PrimaryKey,
			}
		}
		m.Tables[t.Name] = mt
	}
	for _, e := range s.Edges() {
		m.ForeignKeys = append(m.ForeignKeys, ForeignKey{
			Table:      e.ChildTable,
			Column:     e.ChildColumn,
			RefTable:   e.ParentTable,
			RefColumn:  e.ParentColumn,
			Confidence: round(e.Confidence),
			Basis:      e.Basis,
		})
	}
	m.Meta = Meta{
		GeneratedBy: GeneratedBy,
		Tables:      len(m.Tables),
		ForeignKeys: len(m.ForeignKeys),
		Facts:       len(s.TablesWith(core.ClassFact)),
		Dimensions:  len(s.TablesWith(core.ClassDimension)),
	}
	return m
}

// Marshal encodes a document as indented JSON with a trailing newline.
func Marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}

package core

import (
	"errors"
	"fmt"
)

// ErrFrozen is returned when a frozen ModelState is mutated.
var ErrFrozen = errors.New("model state is frozen")

// ModelState is the schema under construction, handed from stage to stage.
// Tables keep insertion order; every mutation is additive.
type ModelState struct {
	raw      []*RawTable
	order    []string
	tables   map[string]*TableProfile
	edges    []RelationshipEdge
	classes  map[string]Classification
	star     []StarFact
	descs    map[string]map[string]string
	frozen   bool
	rawIndex map[string]int
}

// NewModelState creates an empty state.
func NewModelState() *ModelState {
	return &ModelState{
		tables:   make(map[string]*TableProfile),
		classes:  make(map[string]Classification),
		descs:    make(map[string]map[string]string),
		rawIndex: make(map[string]int),
	}
}

// Frozen reports whether Freeze has been called.
func (s *ModelState) Frozen() bool { return s.frozen }

// Freeze makes the state read-only.
func (s *ModelState) Freeze() { s.frozen = true }

// AddRaw appends an ingested table.
func (s *ModelState) AddRaw(t *RawTable) error {
	if s.frozen {
		return ErrFrozen
	}
	if _, exists := s.rawIndex[t.Name]; exists {
		return fmt.Errorf("raw table %q already exists", t.Name)
	}
	s.rawIndex[t.Name] = len(s.raw)
	s.raw = append(s.raw, t)
	return nil
}

// Raw returns ingested tables in ingestion order.
func (s *ModelState) Raw() []*RawTable {
	return s.raw
}

// RawTable returns an ingested table by name.
func (s *ModelState) RawTable(name string) (*RawTable, bool) {
	i, ok := s.rawIndex[name]
	if !ok {
		return nil, false
	}
	return s.raw[i], true
}

// AddTable appends a table profile. Table names are unique.
func (s *ModelState) AddTable(t *TableProfile) error {
	if s.frozen {
		return ErrFrozen
	}
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if _, exists := s.tables[t.Name]; exists {
		return fmt.Errorf("table %q already exists", t.Name)
	}
	s.tables[t.Name] = t
	s.order = append(s.order, t.Name)
	s.classes[t.Name] = ClassRaw
	return nil
}

// Table returns a table profile by name.
func (s *ModelState) Table(name string) (*TableProfile, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// HasTable reports whether the table exists.
func (s *ModelState) HasTable(name string) bool {
	_, ok := s.tables[name]
	return ok
}

// Tables returns table profiles in insertion order.
func (s *ModelState) Tables() []*TableProfile {
	out := make([]*TableProfile, len(s.order))
	for i, name := range s.order {
		out[i] = s.tables[name]
	}
	return out
}

// TableNames returns table names in insertion order.
func (s *ModelState) TableNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SetPrimaryKey revises the primary key of a table.
func (s *ModelState) SetPrimaryKey(table, column string) error {
	if s.frozen {
		return ErrFrozen
	}
	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("table %q does not exist", table)
	}
	if column != "" && !t.HasColumn(column) {
		return fmt.Errorf("column %q does not exist in table %q", column, table)
	}
	t.PrimaryKey = column
	return nil
}

// SetEdges replaces the relationship set.
func (s *ModelState) SetEdges(edges []RelationshipEdge) error {
	if s.frozen {
		return ErrFrozen
	}
	s.edges = edges
	return nil
}

// AddEdge appends one relationship edge.
func (s *ModelState) AddEdge(e RelationshipEdge) error {
	if s.frozen {
		return ErrFrozen
	}
	s.edges = append(s.edges, e)
	return nil
}

// Edges returns all relationship edges.
func (s *ModelState) Edges() []RelationshipEdge {
	return s.edges
}

// EdgesFrom returns edges whose child is the table.
func (s *ModelState) EdgesFrom(table string) []RelationshipEdge {
	var out []RelationshipEdge
	for _, e := range s.edges {
		if e.ChildTable == table {
			out = append(out, e)
		}
	}
	return out
}

// EdgesTo returns edges whose parent is the table.
func (s *ModelState) EdgesTo(table string) []RelationshipEdge {
	var out []RelationshipEdge
	for _, e := range s.edges {
		if e.ParentTable == table {
			out = append(out, e)
		}
	}
	return out
}

// EdgeFor returns the edge leaving a child column, if any.
func (s *ModelState) EdgeFor(table, column string) (RelationshipEdge, bool) {
	for _, e := range s.edges {
		if e.ChildTable == table && e.ChildColumn == column {
			return e, true
		}
	}
	return RelationshipEdge{}, false
}

// Classify sets the classification of a table.
func (s *ModelState) Classify(table string, c Classification) error {
	if s.frozen {
		return ErrFrozen
	}
	if _, ok := s.tables[table]; !ok {
		return fmt.Errorf("table %q does not exist", table)
	}
	s.classes[table] = c
	return nil
}

// Classification returns the classification of a table (raw by default).
func (s *ModelState) Classification(table string) Classification {
	if c, ok := s.classes[table]; ok {
		return c
	}
	return ClassRaw
}

// TablesWith returns tables of the given class in insertion order.
func (s *ModelState) TablesWith(c Classification) []*TableProfile {
	var out []*TableProfile
	for _, name := range s.order {
		if s.classes[name] == c {
			out = append(out, s.tables[name])
		}
	}
	return out
}

// SetStar replaces the derived star view.
func (s *ModelState) SetStar(star []StarFact) error {
	if s.frozen {
		return ErrFrozen
	}
	s.star = star
	return nil
}

// Star returns the derived star view.
func (s *ModelState) Star() []StarFact {
	return s.star
}

// SetDescription records a column description.
func (s *ModelState) SetDescription(table, column, text string) error {
	if s.frozen {
		return ErrFrozen
	}
	if s.descs[table] == nil {
		s.descs[table] = make(map[string]string)
	}
	s.descs[table][column] = text
	return nil
}

// Description returns the description of a column, or "".
func (s *ModelState) Description(table, column string) string {
	return s.descs[table][column]
}

// Snapshot is the serializable view of a ModelState.
type Snapshot struct {
	Tables          []*TableProfile              `json:"tables"`
	Edges           []RelationshipEdge           `json:"edges"`
	Classifications map[string]Classification    `json:"classifications"`
	Star            []StarFact                   `json:"star"`
	Descriptions    map[string]map[string]string `json:"descriptions,omitempty"`
}

// Snapshot returns the serializable view of the state.
func (s *ModelState) Snapshot() Snapshot {
	classes := make(map[string]Classification, len(s.classes))
	for k, v := range s.classes {
		classes[k] = v
	}
	var descs map[string]map[string]string
	if len(s.descs) > 0 {
		descs = make(map[string]map[string]string, len(s.descs))
		for t, cols := range s.descs {
			descs[t] = make(map[string]string, len(cols))
			for c, d := range cols {
				descs[t][c] = d
			}
		}
	}
	return Snapshot{
		Tables:          s.Tables(),
		Edges:           s.edges,
		Classifications: classes,
		Star:            s.star,
		Descriptions:    descs,
	}
}

package core

import (
	"fmt"
	"strings"
)

// ColumnType is the semantic type inferred for a column.
type ColumnType string

// Column type constants.
const (
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeText    ColumnType = "text"
	TypeDate    ColumnType = "date"
)

// IsNumeric reports whether the type holds numbers.
func (t ColumnType) IsNumeric() bool {
	return t == TypeInteger || t == TypeFloat
}

// ColumnRole tags how a column participates in keys.
type ColumnRole string

// Column role constants.
const (
	RoleIdentifier  ColumnRole = "identifier"
	RoleAttribute   ColumnRole = "attribute"
	RoleFKCandidate ColumnRole = "fk-candidate"
)

// Layer is a materialization stage of the schema.
type Layer string

// Layer constants, ordered from raw to modeled.
const (
	LayerBronze Layer = "bronze"
	LayerSilver Layer = "silver"
	LayerGold   Layer = "gold"
)

// Layers lists all layers in materialization order.
var Layers = []Layer{LayerBronze, LayerSilver, LayerGold}

// Rank orders layers: bronze < silver < gold.
func (l Layer) Rank() int {
	switch l {
	case LayerSilver:
		return 1
	case LayerGold:
		return 2
	default:
		return 0
	}
}

// Classification is the dimensional role of a table.
type Classification string

// Classification constants.
const (
	ClassFact      Classification = "fact"
	ClassDimension Classification = "dimension"
	ClassRaw       Classification = "raw"
)

// Basis names the heuristic that produced a relationship edge.
type Basis string

// Basis constants.
const (
	BasisNameMatch    Basis = "name-match"
	BasisValueOverlap Basis = "value-overlap"
	BasisBoth         Basis = "both"
	// BasisManual marks edges forced by configuration.
	BasisManual Basis = "manual"
)

// ColumnRef identifies a column of a table.
type ColumnRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// String returns "table.column".
func (r ColumnRef) String() string {
	return r.Table + "." + r.Column
}

// RawTable is one ingested table: ordered columns and string records.
type RawTable struct {
	// Name is the normalized table name
	Name string
	// Source is the file the table was read from
	Source string
	// Columns is the ordered column set shared by every record
	Columns []string
	// Records maps column name to raw string value
	Records []Record
}

// Record is one row of raw values keyed by column name.
type Record map[string]string

// Values returns the raw values of a column in record order.
func (t *RawTable) Values(column string) []string {
	out := make([]string, len(t.Records))
	for i, r := range t.Records {
		out[i] = r[column]
	}
	return out
}

// ColumnProfile is the inferred shape of one column.
// It is immutable once produced by the profiler.
type ColumnProfile struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
	// Layout is the Go time layout that matched, for date columns
	Layout    string     `json:"layout,omitempty"`
	Nullable  bool       `json:"nullable"`
	Count     int        `json:"count"`
	Nulls     int        `json:"nulls"`
	Distinct  int        `json:"distinct"`
	NullRatio float64    `json:"null_ratio"`
	Role      ColumnRole `json:"role"`
	Layer     Layer      `json:"layer"`
	Samples   []string   `json:"samples,omitempty"`
	// Source is set for columns projected into synthesized tables
	Source *ColumnRef `json:"source,omitempty"`
	// Values holds the distinct non-null sampled values, sorted
	Values []string `json:"-"`
}

// DistinctRatio is distinct values over sampled rows.
func (c *ColumnProfile) DistinctRatio() float64 {
	if c.Count == 0 {
		return 0
	}
	return float64(c.Distinct) / float64(c.Count)
}

// Unique reports whether every sampled value is present and distinct.
func (c *ColumnProfile) Unique() bool {
	return c.Count > 0 && c.Nulls == 0 && c.Distinct == c.Count
}

// TableProfile aggregates column profiles for one table.
type TableProfile struct {
	Name    string          `json:"name"`
	Columns []ColumnProfile `json:"columns"`
	// PrimaryKey is empty when no key was inferred
	PrimaryKey string `json:"primary_key,omitempty"`
	Layer      Layer  `json:"layer"`
	RowCount   int    `json:"row_count"`
	// Synthesized marks tables created by the dimensional modeler
	Synthesized bool `json:"synthesized,omitempty"`
	// Grain names the table whose rows define a synthesized fact
	Grain string `json:"grain,omitempty"`
	// NonAdditive lists fact measures repeated across grain rows, such as
	// order totals on a line-level fact. Summing them over-counts.
	NonAdditive []string `json:"non_additive,omitempty"`
}

// Column returns the named column profile.
func (t *TableProfile) Column(name string) (*ColumnProfile, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// HasColumn reports whether the table defines the column.
func (t *TableProfile) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// ColumnNames returns column names in source order.
func (t *TableProfile) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// RelationshipEdge is a proposed foreign key from child to parent.
type RelationshipEdge struct {
	ChildTable   string  `json:"child_table"`
	ChildColumn  string  `json:"child_column"`
	ParentTable  string  `json:"parent_table"`
	ParentColumn string  `json:"parent_column"`
	Confidence   float64 `json:"confidence"`
	Basis        Basis   `json:"basis"`
	// NameScore and OverlapScore explain the confidence
	NameScore    float64 `json:"name_score"`
	OverlapScore float64 `json:"overlap_score"`
}

// Child returns the child column reference.
func (e RelationshipEdge) Child() ColumnRef {
	return ColumnRef{Table: e.ChildTable, Column: e.ChildColumn}
}

// Parent returns the parent column reference.
func (e RelationshipEdge) Parent() ColumnRef {
	return ColumnRef{Table: e.ParentTable, Column: e.ParentColumn}
}

// StarJoin links a fact column to a dimension key.
type StarJoin struct {
	Column          string `json:"column"`
	Dimension       string `json:"dimension"`
	DimensionColumn string `json:"dimension_column"`
}

// StarFact pairs a fact table with the dimensions it references.
type StarFact struct {
	Fact     string   `json:"fact"`
	Grain    string   `json:"grain,omitempty"`
	Measures []string `json:"measures"`
	// NonAdditive measures must be aggregated at their source grain
	NonAdditive []string   `json:"non_additive,omitempty"`
	Joins       []StarJoin `json:"joins"`
}

// ParseColumnRef parses "table.column".
func ParseColumnRef(s string) (ColumnRef, error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return ColumnRef{}, fmt.Errorf("invalid column reference %q: want table.column", s)
	}
	return ColumnRef{Table: s[:i], Column: s[i+1:]}, nil
}

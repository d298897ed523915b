package sqlddl

import (
	"fmt"

	"github.com/leapstack-labs/leapmodel/internal/profile"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// Scope selects which tables a script covers.
type Scope string

// Scopes. The layer scopes are materialization scripts.
const (
	ScopeModel  Scope = "model"
	ScopeBronze Scope = Scope(core.LayerBronze)
	ScopeSilver Scope = Scope(core.LayerSilver)
	ScopeGold   Scope = Scope(core.LayerGold)
)

// LayerScope returns the materialization scope of a layer.
func LayerScope(l core.Layer) Scope { return Scope(l) }

// Options configures script building.
type Options struct {
	// Schemas maps layers to schema names; missing layers use the layer name
	Schemas map[core.Layer]string
}

func (o Options) schema(l core.Layer) string {
	if s, ok := o.Schemas[l]; ok && s != "" {
		return s
	}
	return string(l)
}

// SQLType maps an inferred column type to a SQL type.
func SQLType(c core.ColumnProfile) string {
	switch c.Type {
	case core.TypeInteger:
		return "INTEGER"
	case core.TypeFloat:
		return "DOUBLE PRECISION"
	case core.TypeDate:
		if profile.HasTime(c.Layout) {
			return "TIMESTAMP"
		}
		return "DATE"
	default:
		return "TEXT"
	}
}

// Build renders the tables and foreign keys of a scope.
//
// The model scope places every table in its layer's schema and creates
// tables only when missing. Layer scopes drop and recreate their tables:
// bronze holds every ingested table with all columns, silver the ingested
// tables restricted to silver columns, gold the fact and dimension tables.
func Build(s *core.ModelState, scope Scope, opts Options) (Script, error) {
	switch scope {
	case ScopeModel:
		return buildModel(s, opts), nil
	case ScopeBronze, ScopeSilver, ScopeGold:
		return buildLayer(s, core.Layer(scope), opts), nil
	default:
		return Script{}, fmt.Errorf("unknown script scope %q", scope)
	}
}

func tableDef(schema string, t *core.TableProfile, keep func(core.ColumnProfile) bool, drop bool) Table {
	out := Table{Schema: schema, Name: t.Name, Drop: drop}
	for _, c := range t.Columns {
		if keep != nil && !keep(c) {
			continue
		}
		out.Columns = append(out.Columns, Column{
			Name:       c.Name,
			Type:       SQLType(c),
			PrimaryKey: c.Name == t.PrimaryKey,
		})
	}
	return out
}

func buildModel(s *core.ModelState, opts Options) Script {
	script := Script{IfNotExists: true}
	where := make(map[string]string)

	for _, layer := range core.Layers {
		schema := opts.schema(layer)
		added := false
		for _, t := range s.Tables() {
			if t.Layer != layer {
				continue
			}
			if !added {
				script.Schemas = appendUnique(script.Schemas, schema)
				added = true
			}
			script.Tables = append(script.Tables, tableDef(schema, t, nil, false))
			where[t.Name] = schema
		}
	}

	for _, e := range s.Edges() {
		childSchema, ok := where[e.ChildTable]
		if !ok {
			continue
		}
		refSchema, ok := where[e.ParentTable]
		if !ok {
			continue
		}
		script.ForeignKeys = append(script.ForeignKeys, fkOf(e, childSchema, refSchema))
	}
	return script
}

func buildLayer(s *core.ModelState, layer core.Layer, opts Options) Script {
	schema := opts.schema(layer)
	script := Script{IfNotExists: true}

	var keep func(core.ColumnProfile) bool
	include := func(t *core.TableProfile) bool { return !t.Synthesized }
	switch layer {
	case core.LayerSilver:
		keep = func(c core.ColumnProfile) bool { return c.Layer == core.LayerSilver }
	case core.LayerGold:
		include = func(t *core.TableProfile) bool {
			c := s.Classification(t.Name)
			return c == core.ClassFact || c == core.ClassDimension
		}
	}

	for _, t := range s.Tables() {
		if !include(t) {
			continue
		}
		def := tableDef(schema, t, keep, true)
		if len(def.Columns) == 0 {
			continue
		}
		script.Tables = append(script.Tables, def)
	}
	if len(script.Tables) == 0 {
		return script
	}
	script.Schemas = []string{schema}

	bronze := opts.schema(core.LayerBronze)
	for _, e := range s.Edges() {
		child, ok := script.Table(schema, e.ChildTable)
		if !ok || !hasColumn(child, e.ChildColumn) {
			continue
		}
		refSchema := schema
		if parent, ok := script.Table(schema, e.ParentTable); !ok || !hasColumn(parent, e.ParentColumn) {
			// every ingested table lives in bronze with all its columns
			p, ok := s.Table(e.ParentTable)
			if !ok || p.Synthesized {
				continue
			}
			refSchema = bronze
		}
		script.ForeignKeys = append(script.ForeignKeys, fkOf(e, schema, refSchema))
	}
	return script
}

func fkOf(e core.RelationshipEdge, schema, refSchema string) ForeignKey {
	return ForeignKey{
		Schema:    schema,
		Table:     e.ChildTable,
		Column:    e.ChildColumn,
		RefSchema: refSchema,
		RefTable:  e.ParentTable,
		RefColumn: e.ParentColumn,
	}
}

func hasColumn(t Table, name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

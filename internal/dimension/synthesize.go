package dimension

import (
	"slices"
	"strconv"

	"github.com/leapstack-labs/leapmodel/internal/naming"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// link is how a synthesized fact reaches one dimension source.
type link struct {
	via    string // table holding the foreign key (the candidate or its junction)
	column string
	parent string
	edge   core.RelationshipEdge
}

// plan is one fact to synthesize around a measure-bearing table.
type plan struct {
	measure  *core.TableProfile
	junction *core.TableProfile
	links    []link
}

func (p plan) reach() []string {
	out := make([]string, len(p.links))
	for i, l := range p.links {
		out[i] = l.parent
	}
	return out
}

func (p plan) grain() *core.TableProfile {
	if p.junction != nil {
		return p.junction
	}
	return p.measure
}

// planFor collects the dimensions reachable from m directly or through the
// first junction table that references m and another parent.
func planFor(s *core.ModelState, m *core.TableProfile) plan {
	p := plan{measure: m}
	seen := map[string]bool{m.Name: true}

	add := func(table string) {
		for _, e := range s.EdgesFrom(table) {
			if seen[e.ParentTable] {
				continue
			}
			seen[e.ParentTable] = true
			p.links = append(p.links, link{via: table, column: e.ChildColumn, parent: e.ParentTable, edge: e})
		}
	}

	add(m.Name)
	for _, e := range s.EdgesTo(m.Name) {
		j := e.ChildTable
		if j == m.Name || s.Classification(j) != core.ClassRaw {
			continue
		}
		if hasOtherParent(s, j, m.Name) {
			jt, _ := s.Table(j)
			p.junction = jt
			add(j)
			break
		}
	}
	return p
}

func hasOtherParent(s *core.ModelState, table, except string) bool {
	for _, parent := range parents(s, table) {
		if parent != except {
			return true
		}
	}
	return false
}

// synthesize builds facts and dimensions when no fact table exists.
func synthesize(s *core.ModelState, opts Options) error {
	var plans []plan
	for _, t := range s.Tables() {
		if t.Synthesized || s.Classification(t.Name) != core.ClassRaw {
			continue
		}
		if !hasMonetaryMeasure(s, t) {
			continue
		}
		p := planFor(s, t)
		if len(p.links) >= 2 {
			plans = append(plans, p)
		}
	}
	// larger reach first, insertion order otherwise
	slices.SortStableFunc(plans, func(a, b plan) int {
		return len(b.links) - len(a.links)
	})

	dims := make(map[string]*core.TableProfile)
	var done [][]string
	for _, p := range plans {
		reach := p.reach()
		if coveredBy(reach, done) {
			opts.Logger.Debug("skipping fact candidate", "table", p.measure.Name, "reason", "reach already covered")
			continue
		}
		if err := buildFact(s, p, dims, opts); err != nil {
			return err
		}
		done = append(done, reach)
	}
	return nil
}

func coveredBy(reach []string, done [][]string) bool {
	for _, d := range done {
		covered := true
		for _, r := range reach {
			if !slices.Contains(d, r) {
				covered = false
				break
			}
		}
		if covered {
			return true
		}
	}
	return false
}

// factName names the fact synthesized around a measure-bearing table.
func factName(measure string) string {
	entity := naming.Singular(measure)
	if slices.Contains(salesEntities, entity) {
		return "fact_sales"
	}
	return "fact_" + entity
}

// uniqueName returns base, or base with a _synth suffix when taken.
func uniqueName(s *core.ModelState, base string) string {
	if !s.HasTable(base) {
		return base
	}
	name := base + "_synth"
	for i := 2; s.HasTable(name); i++ {
		name = base + "_synth_" + strconv.Itoa(i)
	}
	return name
}

func project(src *core.TableProfile, col *core.ColumnProfile, role core.ColumnRole) core.ColumnProfile {
	c := *col
	c.Role = role
	c.Layer = core.LayerGold
	c.Source = &core.ColumnRef{Table: src.Name, Column: col.Name}
	return c
}

func buildFact(s *core.ModelState, p plan, dims map[string]*core.TableProfile, opts Options) error {
	grain := p.grain()
	fact := &core.TableProfile{
		Name:        uniqueName(s, factName(p.measure.Name)),
		Layer:       core.LayerGold,
		RowCount:    grain.RowCount,
		Synthesized: true,
		Grain:       grain.Name,
	}
	names := make(map[string]bool)
	addColumn := func(src *core.TableProfile, col *core.ColumnProfile, role core.ColumnRole) string {
		c := project(src, col, role)
		if names[c.Name] {
			base := naming.Singular(src.Name) + "_" + col.Name
			c.Name = base
			for i := 2; names[c.Name]; i++ {
				c.Name = base + "_" + strconv.Itoa(i)
			}
		}
		names[c.Name] = true
		fact.Columns = append(fact.Columns, c)
		return c.Name
	}

	if pk, ok := grain.Column(grain.PrimaryKey); ok {
		fact.PrimaryKey = addColumn(grain, pk, core.RoleIdentifier)
	}
	if p.junction != nil {
		if pk, ok := p.measure.Column(p.measure.PrimaryKey); ok {
			addColumn(p.measure, pk, core.RoleAttribute)
		}
	}

	type fk struct {
		column string
		link   link
	}
	var fks []fk
	for _, l := range p.links {
		src, _ := s.Table(l.via)
		col, ok := src.Column(l.column)
		if !ok {
			continue
		}
		fks = append(fks, fk{column: addColumn(src, col, core.RoleFKCandidate), link: l})
	}

	for _, src := range []*core.TableProfile{p.measure, p.junction} {
		if src == nil {
			continue
		}
		for i := range src.Columns {
			if measureOf(s, src, &src.Columns[i]) == notMeasure {
				continue
			}
			name := addColumn(src, &src.Columns[i], core.RoleAttribute)
			// order-level values repeat on every line of the junction grain
			if p.junction != nil && src == p.measure {
				fact.NonAdditive = append(fact.NonAdditive, name)
			}
		}
	}

	if err := s.AddTable(fact); err != nil {
		return err
	}
	if err := s.Classify(fact.Name, core.ClassFact); err != nil {
		return err
	}
	opts.Logger.Info("synthesized fact", "table", fact.Name, "grain", fact.Grain, "dimensions", len(fks))

	for _, f := range fks {
		dim, err := dimensionFor(s, f.link, dims, opts)
		if err != nil {
			return err
		}
		parentColumn := f.link.edge.ParentColumn
		if dim.Name != f.link.parent {
			parentColumn = dimensionColumn(s, dim, f.link)
		}
		e := core.RelationshipEdge{
			ChildTable:   fact.Name,
			ChildColumn:  f.column,
			ParentTable:  dim.Name,
			ParentColumn: parentColumn,
			Confidence:   f.link.edge.Confidence,
			Basis:        f.link.edge.Basis,
			NameScore:    f.link.edge.NameScore,
			OverlapScore: f.link.edge.OverlapScore,
		}
		if err := s.AddEdge(e); err != nil {
			return err
		}
	}
	return nil
}

// dimensionFor returns the dimension standing in for a raw parent table,
// synthesizing it on first use.
func dimensionFor(s *core.ModelState, l link, dims map[string]*core.TableProfile, opts Options) (*core.TableProfile, error) {
	source := l.parent
	if d, ok := dims[source]; ok {
		return d, nil
	}
	src, ok := s.Table(source)
	if !ok {
		return nil, &core.ModelingError{Table: source, Msg: "relationship references unknown table"}
	}
	if s.Classification(source) == core.ClassDimension {
		dims[source] = src
		return src, nil
	}

	dim := &core.TableProfile{
		Name:        uniqueName(s, "dim_"+naming.Singular(source)),
		Layer:       core.LayerGold,
		RowCount:    src.RowCount,
		Synthesized: true,
	}
	// forced edges may target a column other than the inferred key
	key := l.edge.ParentColumn
	if _, ok := src.Column(key); !ok {
		key = src.PrimaryKey
	}
	if pk, ok := src.Column(key); ok {
		dim.Columns = append(dim.Columns, project(src, pk, core.RoleIdentifier))
		dim.PrimaryKey = pk.Name
	}
	for i := range src.Columns {
		c := &src.Columns[i]
		if c.Name == key || c.Role != core.RoleAttribute {
			continue
		}
		if c.Type == core.TypeText || c.Type == core.TypeDate {
			dim.Columns = append(dim.Columns, project(src, c, core.RoleAttribute))
		}
	}

	if err := s.AddTable(dim); err != nil {
		return nil, err
	}
	if err := s.Classify(dim.Name, core.ClassDimension); err != nil {
		return nil, err
	}
	opts.Logger.Info("synthesized dimension", "table", dim.Name, "source", source)
	dims[source] = dim
	return dim, nil
}

// dimensionColumn returns the dimension column projected from the link's
// parent column. A dimension built for an earlier link may key on another
// column; the referenced one is then projected as an attribute.
func dimensionColumn(s *core.ModelState, dim *core.TableProfile, l link) string {
	for _, c := range dim.Columns {
		if c.Source != nil && c.Source.Table == l.parent && c.Source.Column == l.edge.ParentColumn {
			return c.Name
		}
	}
	src, ok := s.Table(l.parent)
	if !ok {
		return dim.PrimaryKey
	}
	col, ok := src.Column(l.edge.ParentColumn)
	if !ok || dim.HasColumn(col.Name) {
		return dim.PrimaryKey
	}
	dim.Columns = append(dim.Columns, project(src, col, core.RoleAttribute))
	return col.Name
}

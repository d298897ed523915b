package dimension

import (
	"strings"

	"github.com/leapstack-labs/leapmodel/internal/naming"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// monetaryTokens mark measures that make a table a fact candidate.
var monetaryTokens = []string{
	"amount", "price", "cost", "revenue", "sales", "total",
	"profit", "fee", "tax", "discount", "balance",
}

// countTokens mark additive measures that only ride along in facts.
var countTokens = []string{"quantity", "qty", "units", "count"}

// salesEntities name the entities whose synthesized fact is called fact_sales.
var salesEntities = []string{"order", "sale", "transaction", "invoice", "purchase", "payment"}

// explicitClass returns the classification implied by a table name prefix.
func explicitClass(name string) (core.Classification, bool) {
	switch {
	case strings.HasPrefix(name, "fact_"), strings.HasPrefix(name, "fct_"):
		return core.ClassFact, true
	case strings.HasPrefix(name, "dim_"):
		return core.ClassDimension, true
	default:
		return "", false
	}
}

// measureKind classifies a column as a monetary or count measure.
type measureKind int

const (
	notMeasure measureKind = iota
	countMeasure
	monetaryMeasure
)

func measureOf(s *core.ModelState, t *core.TableProfile, c *core.ColumnProfile) measureKind {
	if !c.Type.IsNumeric() || c.Role != core.RoleAttribute || c.Name == t.PrimaryKey {
		return notMeasure
	}
	if naming.IsKeyLike(c.Name) {
		return notMeasure
	}
	if _, isFK := s.EdgeFor(t.Name, c.Name); isFK {
		return notMeasure
	}
	switch {
	case naming.ContainsAny(c.Name, monetaryTokens):
		return monetaryMeasure
	case naming.ContainsAny(c.Name, countTokens):
		return countMeasure
	default:
		return notMeasure
	}
}

// Measures returns the measure columns of a table in column order.
func Measures(s *core.ModelState, t *core.TableProfile) []string {
	var out []string
	for i := range t.Columns {
		if measureOf(s, t, &t.Columns[i]) != notMeasure {
			out = append(out, t.Columns[i].Name)
		}
	}
	return out
}

func hasMonetaryMeasure(s *core.ModelState, t *core.TableProfile) bool {
	for i := range t.Columns {
		if measureOf(s, t, &t.Columns[i]) == monetaryMeasure {
			return true
		}
	}
	return false
}

// parents returns the distinct parent tables of t in edge order.
func parents(s *core.ModelState, table string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range s.EdgesFrom(table) {
		if e.ParentTable == table || seen[e.ParentTable] {
			continue
		}
		seen[e.ParentTable] = true
		out = append(out, e.ParentTable)
	}
	return out
}

func isFact(s *core.ModelState, t *core.TableProfile) bool {
	return len(parents(s, t.Name)) >= 2 && hasMonetaryMeasure(s, t)
}

// isDimension applies the narrow-table rule to a table referenced by a fact.
func isDimension(s *core.ModelState, t *core.TableProfile, maxColumns int) bool {
	if t.PrimaryKey == "" || len(t.Columns) > maxColumns {
		return false
	}
	if len(s.EdgesFrom(t.Name)) > 1 {
		return false
	}
	descriptive, numeric := 0, 0
	for i := range t.Columns {
		c := &t.Columns[i]
		if c.Role != core.RoleAttribute || c.Name == t.PrimaryKey {
			continue
		}
		switch {
		case c.Type == core.TypeText || c.Type == core.TypeDate:
			descriptive++
		case c.Type.IsNumeric():
			numeric++
		}
	}
	return descriptive >= numeric
}

// referencedByFact reports whether any fact has an edge into the table.
func referencedByFact(s *core.ModelState, table string) bool {
	for _, e := range s.EdgesTo(table) {
		if s.Classification(e.ChildTable) == core.ClassFact {
			return true
		}
	}
	return false
}

// classify assigns fact and dimension classes to existing tables.
func classify(s *core.ModelState, opts Options) error {
	for _, t := range s.Tables() {
		if c, ok := explicitClass(t.Name); ok {
			if err := s.Classify(t.Name, c); err != nil {
				return err
			}
			continue
		}
		if isFact(s, t) {
			if err := s.Classify(t.Name, core.ClassFact); err != nil {
				return err
			}
		}
	}

	for _, t := range s.Tables() {
		if s.Classification(t.Name) != core.ClassRaw {
			continue
		}
		if referencedByFact(s, t.Name) && isDimension(s, t, opts.MaxDimensionColumns) {
			if err := s.Classify(t.Name, core.ClassDimension); err != nil {
				return err
			}
		}
	}
	return nil
}

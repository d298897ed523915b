package dimension

import (
	"slices"

	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// BuildStar derives the star view: every fact with its additive measures
// and its joins to dimension tables, in fact column order.
func BuildStar(s *core.ModelState) []core.StarFact {
	var star []core.StarFact
	for _, fact := range s.TablesWith(core.ClassFact) {
		sf := core.StarFact{
			Fact:        fact.Name,
			Grain:       fact.Grain,
			Measures:    []string{},
			NonAdditive: fact.NonAdditive,
			Joins:       []core.StarJoin{},
		}
		for _, m := range Measures(s, fact) {
			if !slices.Contains(fact.NonAdditive, m) {
				sf.Measures = append(sf.Measures, m)
			}
		}
		for _, col := range fact.Columns {
			e, ok := s.EdgeFor(fact.Name, col.Name)
			if !ok || s.Classification(e.ParentTable) != core.ClassDimension {
				continue
			}
			sf.Joins = append(sf.Joins, core.StarJoin{
				Column:          col.Name,
				Dimension:       e.ParentTable,
				DimensionColumn: e.ParentColumn,
			})
		}
		star = append(star, sf)
	}
	return star
}

// Dimensions returns the distinct dimension tables joined by the star view.
func Dimensions(star []core.StarFact) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range star {
		for _, j := range f.Joins {
			if !seen[j.Dimension] {
				seen[j.Dimension] = true
				out = append(out, j.Dimension)
			}
		}
	}
	return out
}

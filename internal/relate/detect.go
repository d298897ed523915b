// Package relate proposes foreign-key edges between profiled tables.
//
// Candidates come from two heuristics. Name matching pairs a column such as
// orders.customer_id with the key of customers, and is confirmed by value
// overlap whenever both sides carry sampled values. Value overlap alone is
// only trusted for key-like columns with a near-total match. Every edge
// records its basis and partial scores so a wrong inference can be traced
// and overridden.
package relate

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapmodel/internal/naming"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// Default scoring parameters.
const (
	DefaultNameWeight     = 0.4
	DefaultOverlapWeight  = 0.6
	DefaultMinOverlap     = 0.8
	DefaultNameOnlyCap    = 0.5
	DefaultOverlapOnlyMin = 0.95
)

// Override forces an edge from Child to Parent.
type Override struct {
	Child  core.ColumnRef
	Parent core.ColumnRef
}

// Options configures detection.
type Options struct {
	NameWeight    float64
	OverlapWeight float64
	// MinOverlap is the overlap a name-matched candidate needs to be eligible
	MinOverlap float64
	// NameOnlyCap scales the name score when no overlap data exists
	NameOnlyCap float64
	// OverlapOnlyMin is the overlap a candidate without a name match needs
	OverlapOnlyMin float64

	Overrides []Override
	Ignore    []core.ColumnRef

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.NameWeight == 0 && o.OverlapWeight == 0 {
		o.NameWeight = DefaultNameWeight
		o.OverlapWeight = DefaultOverlapWeight
	}
	if o.MinOverlap == 0 {
		o.MinOverlap = DefaultMinOverlap
	}
	if o.NameOnlyCap == 0 {
		o.NameOnlyCap = DefaultNameOnlyCap
	}
	if o.OverlapOnlyMin == 0 {
		o.OverlapOnlyMin = DefaultOverlapOnlyMin
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// candidate is a scored edge plus the data needed to break ties.
type candidate struct {
	edge     core.RelationshipEdge
	distance int
}

// better reports whether c should be kept over other.
func (c candidate) better(other candidate) bool {
	if c.edge.Confidence != other.edge.Confidence {
		return c.edge.Confidence > other.edge.Confidence
	}
	if c.distance != other.distance {
		return c.distance < other.distance
	}
	return c.edge.ParentTable < other.edge.ParentTable
}

// Detect proposes at most one edge per child column, ordered by table
// then column order of the input.
func Detect(tables []*core.TableProfile, opts Options) ([]core.RelationshipEdge, error) {
	opts = opts.withDefaults()

	ignored, forced, err := resolveOverrides(tables, opts)
	if err != nil {
		return nil, err
	}

	var edges []core.RelationshipEdge
	for _, t := range tables {
		for i := range t.Columns {
			col := &t.Columns[i]
			ref := core.ColumnRef{Table: t.Name, Column: col.Name}

			if e, ok := forced[ref]; ok {
				edges = append(edges, e)
				opts.Logger.Debug("forced relationship", "child", ref.String(), "parent", e.Parent().String())
				continue
			}
			if ignored[ref] {
				continue
			}

			best, ok := bestCandidate(t, col, tables, opts)
			if !ok {
				continue
			}
			opts.Logger.Debug("detected relationship",
				"child", ref.String(),
				"parent", best.edge.Parent().String(),
				"confidence", best.edge.Confidence,
				"basis", best.edge.Basis,
			)
			edges = append(edges, best.edge)
		}
	}
	return edges, nil
}

// bestCandidate scores col against every other table's key.
func bestCandidate(t *core.TableProfile, col *core.ColumnProfile, tables []*core.TableProfile, opts Options) (candidate, bool) {
	var prefix string
	switch {
	case col.Role == core.RoleFKCandidate:
		prefix, _ = naming.KeyPrefix(col.Name)
	case overlapOnly(t, col):
		prefix = naming.KeyStem(col.Name)
	default:
		return candidate{}, false
	}

	var (
		best  candidate
		found bool
	)
	for _, p := range tables {
		if p.Name == t.Name || p.PrimaryKey == "" {
			continue
		}
		pk, ok := p.Column(p.PrimaryKey)
		if !ok {
			continue
		}

		c, ok := score(t, col, prefix, p, pk, opts)
		if !ok {
			continue
		}
		if !found || c.better(best) {
			best, found = c, true
		}
	}
	return best, found
}

// overlapOnly reports whether a column may be matched on values alone.
// Only text key-like columns that are not the table's own key qualify:
// small integer sequences overlap across unrelated tables, and measures
// such as quantity must never be linked.
func overlapOnly(t *core.TableProfile, col *core.ColumnProfile) bool {
	if col.Role != core.RoleAttribute || col.Type != core.TypeText {
		return false
	}
	if col.Name == t.PrimaryKey || col.Name == "id" {
		return false
	}
	return naming.IsKeyLike(col.Name) && col.Distinct >= 2
}

func score(t *core.TableProfile, col *core.ColumnProfile, prefix string, p *core.TableProfile, pk *core.ColumnProfile, opts Options) (candidate, bool) {
	edge := core.RelationshipEdge{
		ChildTable:   t.Name,
		ChildColumn:  col.Name,
		ParentTable:  p.Name,
		ParentColumn: pk.Name,
	}
	c := candidate{distance: naming.Levenshtein(prefix, naming.Singular(p.Name))}

	if col.Role != core.RoleFKCandidate {
		if col.Type != pk.Type {
			return c, false
		}
		overlap, ok := valueOverlap(col, pk)
		if !ok || overlap < opts.OverlapOnlyMin {
			return c, false
		}
		edge.OverlapScore = overlap
		edge.Confidence = clamp(opts.OverlapWeight * overlap)
		edge.Basis = core.BasisValueOverlap
		c.edge = edge
		return c, true
	}

	name := NameScore(prefix, p.Name)
	if name == 0 || !compatible(col.Type, pk.Type) {
		return c, false
	}
	edge.NameScore = name

	overlap, ok := valueOverlap(col, pk)
	if !ok {
		edge.Confidence = clamp(name * opts.NameOnlyCap)
		edge.Basis = core.BasisNameMatch
		c.edge = edge
		return c, true
	}
	if overlap < opts.MinOverlap {
		return c, false
	}
	edge.OverlapScore = overlap
	edge.Confidence = Confidence(name, overlap, opts)
	edge.Basis = core.BasisBoth
	c.edge = edge
	return c, true
}

// Explain renders an edge with its basis and partial scores.
func Explain(e core.RelationshipEdge) string {
	var b strings.Builder
	b.WriteString(e.Child().String())
	b.WriteString(" -> ")
	b.WriteString(e.Parent().String())
	b.WriteString(" (")
	b.WriteString(string(e.Basis))
	switch e.Basis {
	case core.BasisBoth:
		b.WriteString(", name ")
		b.WriteString(formatScore(e.NameScore))
		b.WriteString(", overlap ")
		b.WriteString(formatScore(e.OverlapScore))
	case core.BasisNameMatch:
		b.WriteString(", name ")
		b.WriteString(formatScore(e.NameScore))
	case core.BasisValueOverlap:
		b.WriteString(", overlap ")
		b.WriteString(formatScore(e.OverlapScore))
	}
	b.WriteString(")")
	return b.String()
}

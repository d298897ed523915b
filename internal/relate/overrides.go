package relate

import (
	"fmt"

	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// resolveOverrides validates configured overrides against the tables and
// returns the ignored child columns and the forced edges by child column.
func resolveOverrides(tables []*core.TableProfile, opts Options) (map[core.ColumnRef]bool, map[core.ColumnRef]core.RelationshipEdge, error) {
	byName := make(map[string]*core.TableProfile, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	check := func(ref core.ColumnRef) error {
		t, ok := byName[ref.Table]
		if !ok {
			return &core.ModelingError{Table: ref.Table, Column: ref.Column, Msg: "override references unknown table"}
		}
		if !t.HasColumn(ref.Column) {
			return &core.ModelingError{Table: ref.Table, Column: ref.Column, Msg: "override references unknown column"}
		}
		return nil
	}

	ignored := make(map[core.ColumnRef]bool, len(opts.Ignore))
	for _, ref := range opts.Ignore {
		if err := check(ref); err != nil {
			return nil, nil, err
		}
		ignored[ref] = true
	}

	forced := make(map[core.ColumnRef]core.RelationshipEdge, len(opts.Overrides))
	for _, o := range opts.Overrides {
		if err := check(o.Child); err != nil {
			return nil, nil, err
		}
		if err := check(o.Parent); err != nil {
			return nil, nil, err
		}
		if _, dup := forced[o.Child]; dup {
			return nil, nil, &core.ModelingError{
				Table:  o.Child.Table,
				Column: o.Child.Column,
				Msg:    fmt.Sprintf("conflicting overrides for %s", o.Child),
			}
		}
		forced[o.Child] = core.RelationshipEdge{
			ChildTable:   o.Child.Table,
			ChildColumn:  o.Child.Column,
			ParentTable:  o.Parent.Table,
			ParentColumn: o.Parent.Column,
			Confidence:   1.0,
			Basis:        core.BasisManual,
		}
	}
	return ignored, forced, nil
}

// ParseOverride builds an override from two "table.column" references.
func ParseOverride(child, parent string) (Override, error) {
	c, err := core.ParseColumnRef(child)
	if err != nil {
		return Override{}, err
	}
	p, err := core.ParseColumnRef(parent)
	if err != nil {
		return Override{}, err
	}
	return Override{Child: c, Parent: p}, nil
}

// ParseRefs parses a list of "table.column" references.
func ParseRefs(refs []string) ([]core.ColumnRef, error) {
	out := make([]core.ColumnRef, 0, len(refs))
	for _, s := range refs {
		r, err := core.ParseColumnRef(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

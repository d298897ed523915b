package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/leapstack-labs/leapmodel/internal/dag"
	"github.com/leapstack-labs/leapmodel/internal/describe"
	"github.com/leapstack-labs/leapmodel/internal/dimension"
	"github.com/leapstack-labs/leapmodel/internal/ingest"
	"github.com/leapstack-labs/leapmodel/internal/profile"
	"github.com/leapstack-labs/leapmodel/internal/relate"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// Core stage names.
const (
	StepIngest        = "ingest"
	StepProfile       = "profile"
	StepRelationships = "relationships"
	StepModel         = "model"
	StepDescribe      = "describe"
	StepFinalize      = "finalize"
)

func (p *Pipeline) coreSteps() []Step {
	return []Step{
		{Name: StepIngest, Run: p.ingest},
		{Name: StepProfile, After: []string{StepIngest}, Run: p.profile},
		{Name: StepRelationships, After: []string{StepProfile}, Run: p.relationships},
		{Name: StepModel, After: []string{StepRelationships}, Run: p.model},
		{
			Name:  StepDescribe,
			After: []string{StepModel},
			When:  func() bool { return p.opts.Describer != nil },
			Run:   p.describe,
		},
		{Name: StepFinalize, After: []string{StepModel, StepDescribe}, Run: Finalize},
	}
}

func (p *Pipeline) ingest(ctx context.Context, s *core.ModelState) (*core.ModelState, error) {
	src := p.opts.Source
	if src == nil {
		var err error
		if src, err = ingest.Open(p.opts.Input, p.opts.Ingest); err != nil {
			return nil, err
		}
	}
	tables, err := src.Tables(ctx)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, &core.IngestionError{Source: p.opts.Input, Msg: "input contains no tables"}
	}
	for _, t := range tables {
		if err := ingest.Validate(t); err != nil {
			return nil, err
		}
		if err := s.AddRaw(t); err != nil {
			return nil, &core.IngestionError{Source: t.Source, Table: t.Name, Msg: "cannot add table", Err: err}
		}
	}
	p.opts.Logger.Info("ingested tables", "count", len(tables))
	return s, nil
}

func (p *Pipeline) profile(ctx context.Context, s *core.ModelState) (*core.ModelState, error) {
	tps, err := profile.ProfileTables(ctx, s.Raw(), p.opts.Profile)
	if err != nil {
		return nil, err
	}
	for _, tp := range tps {
		if err := s.AddTable(tp); err != nil {
			return nil, &core.ProfilingError{Table: tp.Name, Msg: "cannot add profile", Err: err}
		}
	}
	return s, nil
}

func (p *Pipeline) relationships(_ context.Context, s *core.ModelState) (*core.ModelState, error) {
	edges, err := relate.Detect(s.Tables(), p.opts.Relate)
	if err != nil {
		return nil, err
	}
	if err := s.SetEdges(edges); err != nil {
		return nil, &core.ModelingError{Msg: "cannot store relationships", Err: err}
	}
	p.opts.Logger.Info("detected relationships", "count", len(edges))
	return s, nil
}

func (p *Pipeline) model(_ context.Context, s *core.ModelState) (*core.ModelState, error) {
	if err := dimension.Model(s, p.opts.Dimension); err != nil {
		return nil, err
	}
	p.opts.Logger.Info("modeled schema",
		"facts", len(s.TablesWith(core.ClassFact)),
		"dimensions", len(s.TablesWith(core.ClassDimension)),
	)
	return s, nil
}

// describe asks the describer for every column. Failures leave an empty
// description; once the describer reports ErrUnavailable it is not asked
// again.
func (p *Pipeline) describe(ctx context.Context, s *core.ModelState) (*core.ModelState, error) {
	d := p.opts.Describer
	available := true
	described := 0
	for _, t := range s.Tables() {
		for _, col := range t.Columns {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			text := ""
			if available {
				out, err := d.Describe(ctx, t.Name, col)
				switch {
				case errors.Is(err, describe.ErrUnavailable):
					p.opts.Logger.Warn("describer unavailable, continuing without descriptions", "error", err)
					available = false
				case err != nil:
					p.opts.Logger.Debug("describe failed", "table", t.Name, "column", col.Name, "error", err)
				default:
					text = out
					described++
				}
			}
			if err := s.SetDescription(t.Name, col.Name, text); err != nil {
				return nil, &core.ModelingError{Table: t.Name, Column: col.Name, Msg: "cannot store description", Err: err}
			}
		}
	}
	p.opts.Logger.Info("described columns", "count", described)
	return s, nil
}

// Finalize checks the model invariants, rejects foreign key cycles and
// freezes the state.
func Finalize(_ context.Context, s *core.ModelState) (*core.ModelState, error) {
	for _, t := range s.Tables() {
		if t.PrimaryKey != "" && !t.HasColumn(t.PrimaryKey) {
			return nil, &core.ModelingError{Table: t.Name, Column: t.PrimaryKey, Msg: "primary key names a missing column"}
		}
		if pk, ok := t.Column(t.PrimaryKey); ok && pk.Count > 0 && !pk.Unique() {
			return nil, &core.ModelingError{Table: t.Name, Column: t.PrimaryKey, Msg: "primary key is not unique"}
		}
	}

	seen := make(map[core.ColumnRef]bool)
	g := dag.NewGraph()
	for _, name := range s.TableNames() {
		g.AddNode(name, nil)
	}
	for _, e := range s.Edges() {
		child, parent := e.Child(), e.Parent()
		if seen[child] {
			return nil, &core.ModelingError{Table: child.Table, Column: child.Column, Msg: "column has more than one relationship"}
		}
		seen[child] = true
		if err := columnExists(s, child); err != nil {
			return nil, err
		}
		if err := columnExists(s, parent); err != nil {
			return nil, err
		}
		if child.Table == parent.Table {
			continue
		}
		if err := g.AddEdge(parent.Table, child.Table); err != nil {
			return nil, &core.ModelingError{Table: child.Table, Column: child.Column, Msg: "invalid relationship", Err: err}
		}
	}
	if cyclic, path := g.HasCycle(); cyclic {
		return nil, &core.ModelingError{Table: path[0], Msg: "foreign key cycle: " + strings.Join(path, " -> ")}
	}

	s.Freeze()
	return s, nil
}

func columnExists(s *core.ModelState, ref core.ColumnRef) error {
	t, ok := s.Table(ref.Table)
	if !ok {
		return &core.ModelingError{Table: ref.Table, Msg: "relationship references a missing table"}
	}
	if !t.HasColumn(ref.Column) {
		return &core.ModelingError{Table: ref.Table, Column: ref.Column, Msg: "relationship references a missing column"}
	}
	return nil
}

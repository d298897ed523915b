package pipeline

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/leapstack-labs/leapmodel/internal/emit"
	"github.com/leapstack-labs/leapmodel/internal/emit/catalog"
	"github.com/leapstack-labs/leapmodel/internal/emit/erd"
	"github.com/leapstack-labs/leapmodel/internal/emit/schemayml"
	"github.com/leapstack-labs/leapmodel/internal/emit/sqlddl"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// Artifact step names.
const (
	EmitSQL        = "emit-sql"
	EmitERD        = "emit-erd"
	EmitCatalog    = "emit-catalog"
	EmitStar       = "emit-star"
	EmitModelJSON  = "emit-model-json"
	EmitSchemaYAML = "emit-schema-yaml"
)

// MaterializeStep returns the step name of a layer materialization.
func MaterializeStep(l core.Layer) string {
	return "materialize-" + string(l)
}

// MaterializePath returns where a layer script is written.
func MaterializePath(dir string, l core.Layer) string {
	return filepath.Join(dir, string(l), "schema.sql")
}

func (p *Pipeline) emitSteps() []Step {
	out := p.opts.Outputs
	after := []string{StepFinalize}
	set := func(path string) func() bool {
		return func() bool { return path != "" }
	}

	steps := []Step{
		{Name: EmitSQL, After: after, When: set(out.SQL), Emit: p.writer(EmitSQL, out.SQL, func(s *core.ModelState) ([]byte, error) {
			return p.script(s, sqlddl.ScopeModel)
		})},
		{Name: EmitERD, After: after, When: set(out.ERD), Emit: p.writer(EmitERD, out.ERD, func(s *core.ModelState) ([]byte, error) {
			return erd.Render(s, erd.Resolve(out.ERDFormat, out.ERD)), nil
		})},
		{Name: EmitCatalog, After: after, When: set(out.Catalog), Emit: p.writer(EmitCatalog, out.Catalog, func(s *core.ModelState) ([]byte, error) {
			return catalog.Marshal(catalog.Build(s))
		})},
		{Name: EmitStar, After: after, When: set(out.Star), Emit: p.writer(EmitStar, out.Star, func(s *core.ModelState) ([]byte, error) {
			return catalog.Marshal(catalog.BuildStar(s))
		})},
		{Name: EmitModelJSON, After: after, When: set(out.ModelJSON), Emit: p.writer(EmitModelJSON, out.ModelJSON, func(s *core.ModelState) ([]byte, error) {
			return catalog.Marshal(catalog.BuildModel(s))
		})},
		{Name: EmitSchemaYAML, After: after, When: set(out.SchemaYAML), Emit: p.writer(EmitSchemaYAML, out.SchemaYAML, func(s *core.ModelState) ([]byte, error) {
			return schemayml.Marshal(schemayml.Build(s, sqlddl.SQLType))
		})},
	}

	for _, layer := range core.Layers {
		name := MaterializeStep(layer)
		path := MaterializePath(out.MaterializeDir, layer)
		steps = append(steps, Step{
			Name:  name,
			After: after,
			When:  func() bool { return slices.Contains(out.Materialize, layer) },
			Emit: p.writer(name, path, func(s *core.ModelState) ([]byte, error) {
				return p.script(s, sqlddl.LayerScope(layer))
			}),
		})
	}
	return steps
}

func (p *Pipeline) script(s *core.ModelState, scope sqlddl.Scope) ([]byte, error) {
	script, err := sqlddl.Build(s, scope, sqlddl.Options{Schemas: p.opts.Outputs.Schemas})
	if err != nil {
		return nil, err
	}
	return []byte(script.String()), nil
}

// writer adapts a render function into an emitter writing path.
func (p *Pipeline) writer(name, path string, render func(*core.ModelState) ([]byte, error)) Emitter {
	return func(ctx context.Context, s *core.ModelState) emit.Result {
		res := emit.Result{Name: name, Path: path}
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		data, err := render(s)
		if err != nil {
			res.Err = err
			return res
		}
		res.Err = emit.WriteFile(path, data)
		return res
	}
}

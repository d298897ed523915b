// Package pipeline runs the modeling stages and the artifact emitters in
// dependency order over a single ModelState.
//
// Core stages fail fast: the first failure is returned as is and nothing
// is emitted. Emitters run after Finalize and fail independently, each
// reporting its own emit.Result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapmodel/internal/dag"
	"github.com/leapstack-labs/leapmodel/internal/describe"
	"github.com/leapstack-labs/leapmodel/internal/dimension"
	"github.com/leapstack-labs/leapmodel/internal/emit"
	"github.com/leapstack-labs/leapmodel/internal/emit/erd"
	"github.com/leapstack-labs/leapmodel/internal/ingest"
	"github.com/leapstack-labs/leapmodel/internal/profile"
	"github.com/leapstack-labs/leapmodel/internal/relate"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// Stage advances the model state or fails.
type Stage func(ctx context.Context, s *core.ModelState) (*core.ModelState, error)

// Emitter writes one artifact from a frozen state.
type Emitter func(ctx context.Context, s *core.ModelState) emit.Result

// Step is one node of the pipeline graph. Exactly one of Run and Emit is set.
type Step struct {
	Name  string
	After []string
	// When reports whether the step is enabled; nil means always
	When func() bool
	Run  Stage
	Emit Emitter
}

func (s Step) enabled() bool {
	return s.When == nil || s.When()
}

// Outputs selects the artifacts to write. Empty paths disable an artifact.
type Outputs struct {
	SQL        string
	ERD        string
	ERDFormat  erd.Format
	Catalog    string
	Star       string
	ModelJSON  string
	SchemaYAML string
	// Materialize lists the layers to write as <MaterializeDir>/<layer>/schema.sql
	Materialize    []core.Layer
	MaterializeDir string
	// Schemas maps layers to SQL schema names
	Schemas map[core.Layer]string
}

// Options configures a pipeline run.
type Options struct {
	// Input is a file or directory; ignored when Source is set
	Input     string
	Source    ingest.Source
	Ingest    ingest.Options
	Profile   profile.Options
	Relate    relate.Options
	Dimension dimension.Options
	// Describer enables the describe stage when non-nil
	Describer describe.Describer
	Outputs   Outputs
	Logger    *slog.Logger
}

// Report is the outcome of a run.
type Report struct {
	State    *core.ModelState
	Steps    []string
	Results  []emit.Result
	Duration time.Duration
}

// Failed returns the artifacts that could not be written.
func (r *Report) Failed() []emit.Result {
	return emit.Failed(r.Results)
}

// Pipeline is a configured run graph.
type Pipeline struct {
	opts  Options
	steps []Step
}

// New creates a pipeline with the standard steps.
func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Ingest.Logger == nil {
		opts.Ingest.Logger = opts.Logger
	}
	if opts.Profile.Logger == nil {
		opts.Profile.Logger = opts.Logger
	}
	if opts.Relate.Logger == nil {
		opts.Relate.Logger = opts.Logger
	}
	if opts.Dimension.Logger == nil {
		opts.Dimension.Logger = opts.Logger
	}
	p := &Pipeline{opts: opts}
	p.steps = append(p.coreSteps(), p.emitSteps()...)
	return p
}

// Steps returns every step, enabled or not.
func (p *Pipeline) Steps() []Step {
	return p.steps
}

// graph loads the enabled steps into a DAG.
func (p *Pipeline) graph() (*dag.Graph, error) {
	g := dag.NewGraph()
	for _, s := range p.steps {
		if s.enabled() {
			g.AddNode(s.Name, s)
		}
	}
	for _, s := range p.steps {
		if !s.enabled() {
			continue
		}
		for _, dep := range s.After {
			if _, ok := g.Node(dep); !ok {
				continue
			}
			if err := g.AddEdge(dep, s.Name); err != nil {
				return nil, fmt.Errorf("invalid pipeline step %s: %w", s.Name, err)
			}
		}
	}
	return g, nil
}

// Plan returns the enabled steps grouped by dependency level.
func (p *Pipeline) Plan() ([][]string, error) {
	g, err := p.graph()
	if err != nil {
		return nil, err
	}
	return g.Levels()
}

// Run executes the enabled steps in topological order.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	g, err := p.graph()
	if err != nil {
		return nil, err
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	report := &Report{State: core.NewModelState()}
	for _, n := range order {
		step := n.Data.(Step)
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Steps = append(report.Steps, step.Name)

		if step.Emit != nil {
			res := step.Emit(ctx, report.State)
			if res.Err != nil {
				p.opts.Logger.Warn("artifact failed", "artifact", res.Name, "path", res.Path, "error", res.Err)
			} else {
				p.opts.Logger.Info("wrote artifact", "artifact", res.Name, "path", res.Path)
			}
			report.Results = append(report.Results, res)
			continue
		}

		stepStart := time.Now()
		next, err := step.Run(ctx, report.State)
		if err != nil {
			p.opts.Logger.Debug("stage failed", "stage", step.Name, "error", err)
			report.Duration = time.Since(start)
			return report, err
		}
		report.State = next
		p.opts.Logger.Debug("stage complete", "stage", step.Name, "duration", time.Since(stepStart))
	}
	report.Duration = time.Since(start)
	return report, nil
}

// Run is a convenience wrapper around New(opts).Run(ctx).
func Run(ctx context.Context, opts Options) (*Report, error) {
	return New(opts).Run(ctx)
}

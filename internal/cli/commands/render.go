package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapmodel/internal/cli/output"
	"github.com/leapstack-labs/leapmodel/internal/pipeline"
	"github.com/leapstack-labs/leapmodel/internal/relate"
	"github.com/leapstack-labs/leapmodel/internal/state"
)

// renderReport prints the outcome of a model run.
func renderReport(r *output.Renderer, report *pipeline.Report, run *state.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(summarize(report, run))
	}

	s := report.State
	r.Header(1, fmt.Sprintf("Model (%d tables, %d relationships)", len(s.Tables()), len(s.Edges())))

	rows := make([][]any, 0, len(s.Tables()))
	for _, t := range s.Tables() {
		name := t.Name
		if t.Synthesized {
			name += " *"
		}
		rows = append(rows, []any{name, t.RowCount, t.Layer, s.Classification(t.Name), t.PrimaryKey})
	}
	r.Table([]string{"Table", "Rows", "Layer", "Class", "Primary key"}, rows)
	if len(s.Edges()) > 0 {
		r.Header(2, "Relationships")
		for _, e := range s.Edges() {
			r.Println("  " + relate.Explain(e))
		}
	}

	if len(report.Results) > 0 {
		r.Header(2, "Artifacts")
		for _, res := range report.Results {
			if res.OK() {
				r.StatusLine(res.Name, "written", res.Path)
			} else {
				r.StatusLine(res.Name, "failed", res.Err.Error())
			}
		}
	}

	footer := "Completed in " + since(report.Duration)
	if run != nil {
		footer += " (run " + shortID(run.ID) + ")"
	}
	if failed := report.Failed(); len(failed) > 0 {
		r.Warning(fmt.Sprintf("%s with %d failed artifact(s)", footer, len(failed)))
	} else {
		r.Success(footer)
	}
	return nil
}

// renderPlan prints the enabled steps level by level.
func renderPlan(cc *CommandContext, p *pipeline.Pipeline) error {
	levels, err := p.Plan()
	if err != nil {
		return err
	}
	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{"levels": levels})
	}
	r.Header(1, "Plan")
	for i, level := range levels {
		r.KeyValue(fmt.Sprintf("Level %d", i), strings.Join(level, ", "))
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

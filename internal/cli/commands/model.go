package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapmodel/internal/emit"
	"github.com/leapstack-labs/leapmodel/internal/pipeline"
	"github.com/leapstack-labs/leapmodel/internal/state"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// NewModelCommand creates the model command.
func NewModelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "model <input>",
		Aliases: []string{"run"},
		Short:   "Infer a dimensional model from tabular files",
		Long: `Profile every table of <input> (a file or a directory of CSV, TSV, JSON,
NDJSON or Parquet files), detect foreign keys, classify facts and dimensions
and write the requested artifacts.

Core failures abort the run before anything is written. When an artifact
cannot be written the others are still produced and the command exits
non-zero.`,
		Example: `  # Write DDL and an ER diagram
  leapmodel model data/ --out model.sql --erd erd.dot

  # Materialize the medallion layers under build/
  leapmodel model data/ --materialize-bronze --materialize-silver --materialize-gold \
    --materialize-dir build --layer-schema-map bronze=raw,gold=mart

  # Show the step plan without running it
  leapmodel model data/ --out model.sql --plan

  # Re-run whenever the input changes
  leapmodel model data/ --out model.sql --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModel(cmd, args[0])
		},
	}

	f := cmd.Flags()
	f.String("out", "", "Write the model DDL script to this path")
	f.String("erd", "", "Write the ER diagram to this path")
	f.String("erd-format", "", "ER diagram format (auto|dot|mermaid)")
	f.String("catalog", "", "Write the JSON catalog to this path")
	f.String("star", "", "Write the star schema JSON to this path")
	f.String("model-json", "", "Write the graph model JSON to this path")
	f.String("schema-yaml", "", "Write a dbt schema.yml to this path")
	for _, l := range core.Layers {
		f.Bool("materialize-"+string(l), false, fmt.Sprintf("Write <materialize-dir>/%s/schema.sql", l))
	}
	f.String("materialize-dir", "", "Directory for materialized layer scripts")
	f.String("layer-schema-map", "", "Schema per layer, e.g. bronze=raw,silver=clean,gold=mart")
	f.Bool("no-history", false, "Do not record the run in the state database")
	f.Bool("watch", false, "Re-run when the input changes")
	f.Bool("plan", false, "Print the step plan and exit")
	addPipelineFlags(cmd)

	return cmd
}

func runModel(cmd *cobra.Command, input string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	opts, err := cc.PipelineOptions(input)
	if err != nil {
		return err
	}

	if plan, _ := cmd.Flags().GetBool("plan"); plan {
		return renderPlan(cc, pipeline.New(opts))
	}

	ctx := cmd.Context()
	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		return watchInput(ctx, input, defaultDebounce, cc.Logger, func() error {
			if err := modelOnce(ctx, cc, input, opts); err != nil {
				cc.Renderer.Error(err.Error())
			}
			return nil
		})
	}
	return modelOnce(ctx, cc, input, opts)
}

// modelOnce runs the pipeline, records it in the run history and renders
// the report.
func modelOnce(ctx context.Context, cc *CommandContext, input string, opts pipeline.Options) error {
	var store *state.SQLiteStore
	var run *state.Run
	if cc.Cfg.History {
		var err error
		if store, err = cc.OpenStore(); err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		if run, err = store.CreateRun(ctx, input); err != nil {
			return err
		}
	}

	report, err := pipeline.Run(ctx, opts)
	if report == nil {
		report = &pipeline.Report{}
	}
	failed := report.Failed()
	runErr := err
	if runErr == nil && len(failed) > 0 {
		runErr = artifactsError(failed)
	}

	if run != nil {
		var snapshot *core.ModelState
		if report.State != nil && report.State.Frozen() {
			snapshot = report.State
		}
		// a canceled run is still closed in the history
		if err := store.CompleteRun(context.WithoutCancel(ctx), run.ID, snapshot, report.Results, runErr); err != nil {
			cc.Logger.Warn("failed to record run", slog.String("id", run.ID), slog.Any("error", err))
		}
	}

	if err != nil {
		return err
	}
	if err := renderReport(cc.Renderer, report, run); err != nil {
		return err
	}
	return runErr
}

var errArtifacts = errors.New("artifacts failed")

func artifactsError(failed []emit.Result) error {
	names := make([]string, len(failed))
	for i, r := range failed {
		names[i] = r.Name
	}
	return fmt.Errorf("%w: %d of the requested artifacts could not be written (%s)", errArtifacts, len(failed), strings.Join(names, ", "))
}

// modelSummary is the JSON shape of a model run.
type modelSummary struct {
	RunID         string             `json:"run_id,omitempty"`
	DurationMS    int64              `json:"duration_ms"`
	Tables        []tableSummary     `json:"tables"`
	Relationships []relationshipJSON `json:"relationships"`
	Artifacts     []state.Artifact   `json:"artifacts"`
}

type tableSummary struct {
	Name           string `json:"name"`
	Rows           int    `json:"rows"`
	Layer          string `json:"layer"`
	Classification string `json:"classification"`
	PrimaryKey     string `json:"primary_key,omitempty"`
	Synthesized    bool   `json:"synthesized,omitempty"`
}

type relationshipJSON struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Confidence float64 `json:"confidence"`
	Basis      string  `json:"basis"`
}

func summarize(report *pipeline.Report, run *state.Run) modelSummary {
	sum := modelSummary{
		DurationMS:    report.Duration.Milliseconds(),
		Tables:        []tableSummary{},
		Relationships: []relationshipJSON{},
		Artifacts:     []state.Artifact{},
	}
	if run != nil {
		sum.RunID = run.ID
	}
	if s := report.State; s != nil {
		for _, t := range s.Tables() {
			sum.Tables = append(sum.Tables, tableSummary{
				Name:           t.Name,
				Rows:           t.RowCount,
				Layer:          string(t.Layer),
				Classification: string(s.Classification(t.Name)),
				PrimaryKey:     t.PrimaryKey,
				Synthesized:    t.Synthesized,
			})
		}
		for _, e := range s.Edges() {
			sum.Relationships = append(sum.Relationships, relationshipJSON{
				From:       e.Child().String(),
				To:         e.Parent().String(),
				Confidence: e.Confidence,
				Basis:      string(e.Basis),
			})
		}
	}
	for _, r := range report.Results {
		a := state.Artifact{Name: r.Name, Path: r.Path}
		if r.Err != nil {
			a.Error = r.Err.Error()
		}
		sum.Artifacts = append(sum.Artifacts, a)
	}
	return sum
}

func since(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

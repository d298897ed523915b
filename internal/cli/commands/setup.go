package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapmodel/internal/cli/config"
	"github.com/leapstack-labs/leapmodel/internal/cli/output"
	"github.com/leapstack-labs/leapmodel/internal/describe"
	"github.com/leapstack-labs/leapmodel/internal/dimension"
	"github.com/leapstack-labs/leapmodel/internal/emit/erd"
	"github.com/leapstack-labs/leapmodel/internal/ingest"
	"github.com/leapstack-labs/leapmodel/internal/pipeline"
	"github.com/leapstack-labs/leapmodel/internal/profile"
	"github.com/leapstack-labs/leapmodel/internal/relate"
	"github.com/leapstack-labs/leapmodel/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds the context from the config loaded by the root
// command. Commands run without the root (as in tests) load the config
// from their own flags.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		var err error
		if cfg, err = config.Load("", "", cmd.Flags()); err != nil {
			return nil, err
		}
	}
	mode, err := output.ParseMode(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// PipelineOptions converts the config into pipeline options for input.
func (c *CommandContext) PipelineOptions(input string) (pipeline.Options, error) {
	cfg := c.Cfg
	overrides, err := cfg.RelateOverrides()
	if err != nil {
		return pipeline.Options{}, err
	}
	ignore, err := cfg.IgnoreRefs()
	if err != nil {
		return pipeline.Options{}, err
	}
	erdFormat, err := erd.ParseFormat(cfg.Outputs.ERDFormat)
	if err != nil {
		return pipeline.Options{}, err
	}
	describer, err := describe.New(describe.Config{
		Backend:  cfg.Describe.Backend,
		Endpoint: cfg.Describe.Endpoint,
		Model:    cfg.Describe.Model,
		Timeout:  cfg.Describe.Timeout,
	})
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Input:  input,
		Ingest: ingest.Options{Delimiter: cfg.Delimiter()},
		Profile: profile.Options{
			SampleSize: cfg.Profile.SampleSize,
			Workers:    cfg.Profile.Workers,
			NullTokens: cfg.Profile.NullTokens,
		},
		Relate: relate.Options{
			NameWeight:    cfg.Relationships.NameWeight,
			OverlapWeight: cfg.Relationships.OverlapWeight,
			MinOverlap:    cfg.Relationships.MinOverlap,
			Overrides:     overrides,
			Ignore:        ignore,
		},
		Dimension: dimension.Options{
			MaxDimensionColumns: cfg.Model.MaxDimensionColumns,
			DisableSynthesis:    cfg.Model.DisableSynthesis,
		},
		Describer: describer,
		Outputs: pipeline.Outputs{
			SQL:            cfg.Outputs.SQL,
			ERD:            cfg.Outputs.ERD,
			ERDFormat:      erdFormat,
			Catalog:        cfg.Outputs.Catalog,
			Star:           cfg.Outputs.Star,
			ModelJSON:      cfg.Outputs.ModelJSON,
			SchemaYAML:     cfg.Outputs.SchemaYAML,
			Materialize:    cfg.MaterializeLayers(),
			MaterializeDir: cfg.Outputs.MaterializeDir,
			Schemas:        cfg.Schemas(),
		},
		Logger: c.Logger,
	}, nil
}

// OpenStore opens the run history database, creating its directory.
func (c *CommandContext) OpenStore() (*state.SQLiteStore, error) {
	if dir := filepath.Dir(c.Cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	return store, nil
}

// addPipelineFlags registers the flags shared by pipeline-running commands.
func addPipelineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("sample-size", 0, "Maximum values profiled per column")
	f.Int("workers", 0, "Tables profiled concurrently (0 = number of CPUs)")
	f.String("delimiter", "", "CSV field delimiter (default ,)")
	f.String("describe", "", "Column describer (none|heuristic|ollama)")
	f.Bool("no-synthesis", false, "Do not synthesize a fact table when none is found")
	_ = cmd.RegisterFlagCompletionFunc("describe", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{describe.BackendNone, describe.BackendHeuristic, describe.BackendOllama}, cobra.ShellCompDirectiveNoFileComp
	})
}

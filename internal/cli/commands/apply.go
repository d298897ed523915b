package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapmodel/internal/adapter"
	"github.com/leapstack-labs/leapmodel/internal/cli/output"
	"github.com/leapstack-labs/leapmodel/internal/emit/sqlddl"
	"github.com/leapstack-labs/leapmodel/internal/pipeline"
)

var applyScopes = []string{
	string(sqlddl.ScopeModel), string(sqlddl.ScopeBronze), string(sqlddl.ScopeSilver), string(sqlddl.ScopeGold),
}

// NewApplyCommand creates the apply command.
func NewApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <input>",
		Short: "Create the inferred schema in the configured target database",
		Long: `Infer the model of <input> and execute one DDL script against the target
configured under target: in leapmodel.yaml. Only tables, keys and schemas
are created; no rows are loaded. DuckDB targets skip the foreign key
statements because DuckDB cannot add them to existing tables.`,
		Example: `  # Create the full model in the configured target
  leapmodel apply data/

  # Recreate only the gold layer in the prod environment
  leapmodel apply data/ --scope gold --env prod

  # Print the statements without connecting
  leapmodel apply data/ --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args[0])
		},
	}
	cmd.Flags().String("scope", string(sqlddl.ScopeModel), "Script to apply ("+strings.Join(applyScopes, "|")+")")
	cmd.Flags().String("layer-schema-map", "", "Schema per layer, e.g. bronze=raw,silver=clean,gold=mart")
	cmd.Flags().Bool("dry-run", false, "Print the statements instead of executing them")
	_ = cmd.RegisterFlagCompletionFunc("scope", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return applyScopes, cobra.ShellCompDirectiveNoFileComp
	})
	addPipelineFlags(cmd)
	return cmd
}

func runApply(cmd *cobra.Command, input string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	scope, _ := cmd.Flags().GetString("scope")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if !dryRun && cc.Cfg.Target == nil {
		return errors.New("no target configured\nHint: add a target: section to leapmodel.yaml or use --dry-run")
	}

	opts, err := cc.PipelineOptions(input)
	if err != nil {
		return err
	}
	opts.Outputs = pipeline.Outputs{}
	report, err := pipeline.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}
	script, err := sqlddl.Build(report.State, sqlddl.Scope(strings.ToLower(scope)), sqlddl.Options{Schemas: cc.Cfg.Schemas()})
	if err != nil {
		return err
	}

	r := cc.Renderer
	if dryRun {
		r.Printf("%s", script.String())
		return nil
	}

	a, err := adapter.NewAdapter(cc.Cfg.Target.AdapterConfig(), cc.Logger)
	if err != nil {
		return err
	}
	if err := a.Connect(cmd.Context(), cc.Cfg.Target.AdapterConfig()); err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	res, err := adapter.Apply(cmd.Context(), a, script, cc.Logger)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"target":               a.Name(),
			"scope":                scope,
			"statements":           res.Executed,
			"skipped_foreign_keys": res.SkippedForeignKeys,
		})
	}
	msg := fmt.Sprintf("Applied %d statements to %s", res.Executed, a.Name())
	if res.SkippedForeignKeys > 0 {
		msg += fmt.Sprintf(" (%d foreign keys skipped)", res.SkippedForeignKeys)
	}
	r.Success(msg)
	return nil
}

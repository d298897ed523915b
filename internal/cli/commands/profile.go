package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapmodel/internal/cli/output"
	"github.com/leapstack-labs/leapmodel/internal/ingest"
	"github.com/leapstack-labs/leapmodel/internal/profile"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// NewProfileCommand creates the profile command.
func NewProfileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile <input>",
		Short: "Profile the columns of every input table",
		Long: `Read <input> and print the inferred type, role, layer and statistics of
every column, without detecting relationships or writing artifacts.`,
		Example: `  leapmodel profile data/
  leapmodel profile orders.csv --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd, args[0])
		},
	}
	addPipelineFlags(cmd)
	return cmd
}

func runProfile(cmd *cobra.Command, input string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	opts, err := cc.PipelineOptions(input)
	if err != nil {
		return err
	}
	opts.Ingest.Logger = cc.Logger
	opts.Profile.Logger = cc.Logger

	src, err := ingest.Open(input, opts.Ingest)
	if err != nil {
		return err
	}
	raws, err := src.Tables(cmd.Context())
	if err != nil {
		return err
	}
	for _, raw := range raws {
		if err := ingest.Validate(raw); err != nil {
			return err
		}
	}
	tables, err := profile.ProfileTables(cmd.Context(), raws, opts.Profile)
	if err != nil {
		return err
	}
	return renderProfiles(cc.Renderer, tables)
}

func renderProfiles(r *output.Renderer, tables []*core.TableProfile) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(tables)
	}
	for _, t := range tables {
		title := fmt.Sprintf("%s (%d rows)", t.Name, t.RowCount)
		if t.PrimaryKey != "" {
			title += ", primary key " + t.PrimaryKey
		}
		r.Header(2, title)
		rows := make([][]any, 0, len(t.Columns))
		for _, c := range t.Columns {
			rows = append(rows, []any{
				c.Name, c.Type, c.Role, c.Layer,
				fmt.Sprintf("%d (%.1f%%)", c.Nulls, c.NullRatio*100),
				c.Distinct,
				strings.Join(c.Samples, ", "),
			})
		}
		r.Table([]string{"Column", "Type", "Role", "Layer", "Nulls", "Distinct", "Samples"}, rows)
	}
	return nil
}

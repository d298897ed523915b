package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapmodel/internal/cli/output"
	"github.com/leapstack-labs/leapmodel/internal/pipeline"
	"github.com/leapstack-labs/leapmodel/internal/relate"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// NewRelationshipsCommand creates the relationships command.
func NewRelationshipsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "relationships <input>",
		Aliases: []string{"rels"},
		Short:   "Show detected foreign keys and how they were scored",
		Example: `  leapmodel relationships data/
  leapmodel relationships data/ --min-confidence 0.8 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelationships(cmd, args[0])
		},
	}
	cmd.Flags().Float64("min-confidence", 0, "Only show relationships at or above this confidence")
	addPipelineFlags(cmd)
	return cmd
}

func runRelationships(cmd *cobra.Command, input string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	opts, err := cc.PipelineOptions(input)
	if err != nil {
		return err
	}
	opts.Outputs = pipeline.Outputs{}
	opts.Describer = nil

	report, err := pipeline.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	minConf, _ := cmd.Flags().GetFloat64("min-confidence")
	var edges []core.RelationshipEdge
	for _, e := range report.State.Edges() {
		if e.Confidence >= minConf {
			edges = append(edges, e)
		}
	}
	return renderEdges(cc.Renderer, edges)
}

func renderEdges(r *output.Renderer, edges []core.RelationshipEdge) error {
	if r.EffectiveMode() == output.ModeJSON {
		if edges == nil {
			edges = []core.RelationshipEdge{}
		}
		return r.JSON(edges)
	}
	r.Header(1, fmt.Sprintf("Relationships (%d)", len(edges)))
	if len(edges) == 0 {
		r.Muted("No relationships detected")
		return nil
	}
	rows := make([][]any, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, []any{e.Child().String(), e.Parent().String(), fmt.Sprintf("%.2f", e.Confidence), e.Basis})
	}
	r.Table([]string{"Child", "Parent", "Confidence", "Basis"}, rows)
	for _, e := range edges {
		r.Println("  " + relate.Explain(e))
	}
	return nil
}

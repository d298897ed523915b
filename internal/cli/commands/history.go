package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapmodel/internal/cli/output"
	"github.com/leapstack-labs/leapmodel/internal/state"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded model runs",
		Long: `List the runs recorded in the state database (--state), newest first.
Use "history show <id>" for the tables and artifacts of one run; a unique
prefix of the run ID is enough.`,
		Args: cobra.NoArgs,
		RunE: runHistoryList,
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	cmd.AddCommand(newHistoryShowCommand(), newHistoryDeleteCommand())
	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, args[0])
		},
	}
}

func newHistoryDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a recorded run",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			store, err := cc.OpenStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := store.DeleteRun(cmd.Context(), run.ID); err != nil {
				return err
			}
			cc.Renderer.Success("Deleted run " + shortID(run.ID))
			return nil
		},
	}
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	store, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []*state.Run{}
		}
		return r.JSON(runs)
	}
	if len(runs) == 0 {
		r.Muted("No runs recorded")
		return nil
	}
	rows := make([][]any, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []any{
			shortID(run.ID),
			run.StartedAt.Local().Format(time.DateTime),
			run.Status,
			run.Input,
			run.Tables,
			run.Relationships,
			since(run.Duration()),
		})
	}
	r.Table([]string{"ID", "Started", "Status", "Input", "Tables", "Relationships", "Duration"}, rows)
	return nil
}

type runDetail struct {
	*state.Run
	Artifacts []state.Artifact `json:"artifacts"`
	Snapshot  *core.Snapshot   `json:"snapshot,omitempty"`
}

func runHistoryShow(cmd *cobra.Command, id string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	store, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	artifacts, err := store.Artifacts(ctx, run.ID)
	if err != nil {
		return err
	}
	detail := runDetail{Run: run, Artifacts: artifacts}
	// runs that failed before the model froze have no snapshot
	detail.Snapshot, err = store.Snapshot(ctx, run.ID)
	if err != nil && !errors.Is(err, state.ErrRunNotFound) {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(detail)
	}
	r.Header(1, "Run "+shortID(run.ID))
	r.KeyValue("ID", run.ID)
	r.KeyValue("Input", run.Input)
	r.KeyValue("Status", string(run.Status))
	r.KeyValue("Started", run.StartedAt.Local().Format(time.DateTime))
	if run.CompletedAt != nil {
		r.KeyValue("Duration", since(run.Duration()))
	}
	if run.Error != "" {
		r.KeyValue("Error", run.Error)
	}
	r.KeyValue("Summary", fmt.Sprintf("%d tables, %d relationships, %d facts, %d dimensions",
		run.Tables, run.Relationships, run.Facts, run.Dimensions))

	if snap := detail.Snapshot; snap != nil && len(snap.Tables) > 0 {
		r.Header(2, "Tables")
		rows := make([][]any, 0, len(snap.Tables))
		for _, t := range snap.Tables {
			rows = append(rows, []any{t.Name, t.RowCount, snap.Classifications[t.Name], t.PrimaryKey})
		}
		r.Table([]string{"Table", "Rows", "Class", "Primary key"}, rows)
	}
	if len(artifacts) > 0 {
		r.Header(2, "Artifacts")
		for _, a := range artifacts {
			if a.Error != "" {
				r.StatusLine(a.Name, "failed", a.Error)
				continue
			}
			r.StatusLine(a.Name, "written", a.Path)
		}
	}
	return nil
}

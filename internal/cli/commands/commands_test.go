package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapmodel/internal/state"
	"github.com/leapstack-labs/leapmodel/internal/testutil"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// execute runs cmd under a bare root carrying the global flags.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "leapmodel", SilenceUsage: true, SilenceErrors: true}
	pf := root.PersistentFlags()
	pf.String("state", "", "")
	pf.StringP("output", "o", "", "")
	pf.BoolP("verbose", "v", false, "")
	root.AddCommand(cmd)

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{cmd.Name()}, args...))
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func retailDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteCSV(t, dir, testutil.Retail())
	return dir
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewModelCommand(), "model <input>", []string{"out", "erd", "erd-format", "catalog", "star", "model-json", "schema-yaml",
			"materialize-bronze", "materialize-silver", "materialize-gold", "materialize-dir", "layer-schema-map",
			"no-history", "watch", "plan", "sample-size", "workers", "delimiter", "describe", "no-synthesis"}},
		{NewProfileCommand(), "profile <input>", []string{"sample-size", "workers", "delimiter"}},
		{NewRelationshipsCommand(), "relationships <input>", []string{"min-confidence", "sample-size"}},
		{NewApplyCommand(), "apply <input>", []string{"scope", "dry-run", "layer-schema-map"}},
		{NewHistoryCommand(), "history", []string{"limit"}},
		{NewVersionCommand("1.2.3"), "version", nil},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			for _, name := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(name), name)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, NewVersionCommand("1.2.3"))
	require.NoError(t, err)
	assert.Equal(t, "leapmodel v1.2.3\n", out)
}

func TestModel_JSON(t *testing.T) {
	in := retailDir(t)
	out := t.TempDir()
	statePath := filepath.Join(t.TempDir(), "state.db")

	stdout, err := execute(t, NewModelCommand(), in,
		"--out", filepath.Join(out, "model.sql"),
		"--erd", filepath.Join(out, "erd.mmd"),
		"--state", statePath,
		"-o", "json")
	require.NoError(t, err)

	var sum modelSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &sum))
	assert.NotEmpty(t, sum.RunID)
	assert.Len(t, sum.Artifacts, 2)
	for _, a := range sum.Artifacts {
		assert.Empty(t, a.Error, a.Name)
		assert.FileExists(t, a.Path)
	}

	var fact *tableSummary
	for i := range sum.Tables {
		if sum.Tables[i].Classification == string(core.ClassFact) {
			fact = &sum.Tables[i]
		}
	}
	require.NotNil(t, fact)
	assert.Equal(t, "fact_sales", fact.Name)
	assert.True(t, fact.Synthesized)
	assert.NotEmpty(t, sum.Relationships)

	// the run is recorded with its snapshot
	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(statePath))
	defer func() { _ = store.Close() }()
	run, err := store.GetRun(context.Background(), sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusCompleted, run.Status)
	assert.Equal(t, len(sum.Tables), run.Tables)
	snap, err := store.Snapshot(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Tables, len(sum.Tables))
}

func TestModel_Markdown(t *testing.T) {
	in := retailDir(t)
	stdout, err := execute(t, NewModelCommand(), in, "--no-history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Model (")
	assert.Contains(t, stdout, "| fact_sales * |")
	assert.Contains(t, stdout, "## Relationships")
	assert.Contains(t, stdout, "orders.customer_id -> customers.customer_id")
	assert.Contains(t, stdout, "- Completed in")
	assert.NotContains(t, stdout, "(run ")
}

func TestModel_NoHistory(t *testing.T) {
	in := retailDir(t)
	statePath := filepath.Join(t.TempDir(), "sub", "state.db")
	_, err := execute(t, NewModelCommand(), in, "--no-history", "--state", statePath)
	require.NoError(t, err)
	assert.NoFileExists(t, statePath)
}

func TestModel_ArtifactFailure(t *testing.T) {
	in := retailDir(t)
	out := t.TempDir()
	blocker := filepath.Join(out, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	statePath := filepath.Join(t.TempDir(), "state.db")

	stdout, err := execute(t, NewModelCommand(), in,
		"--out", filepath.Join(out, "model.sql"),
		"--erd", filepath.Join(blocker, "erd.dot"),
		"--state", statePath)
	require.Error(t, err)
	assert.ErrorIs(t, err, errArtifacts)
	assert.Contains(t, err.Error(), "emit-erd")
	assert.FileExists(t, filepath.Join(out, "model.sql"))
	assert.Contains(t, stdout, "- **emit-erd**: failed")
	assert.Contains(t, stdout, "- **emit-sql**: written")

	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(statePath))
	defer func() { _ = store.Close() }()
	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunStatusFailed, runs[0].Status)
	// the model froze before the artifact failed
	_, err = store.Snapshot(context.Background(), runs[0].ID)
	assert.NoError(t, err)
}

func TestModel_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing input", []string{filepath.Join(t.TempDir(), "nope"), "--no-history"}, "nope"},
		{"bad output mode", []string{t.TempDir(), "--no-history", "-o", "yaml"}, `unknown output format "yaml"`},
		{"bad describer", []string{t.TempDir(), "--no-history", "--describe", "gpt"}, "gpt"},
		{"no args", nil, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewModelCommand(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestModel_Plan(t *testing.T) {
	stdout, err := execute(t, NewModelCommand(), t.TempDir(), "--out", "model.sql", "--plan", "-o", "json")
	require.NoError(t, err)

	var plan struct {
		Levels [][]string `json:"levels"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &plan))
	require.NotEmpty(t, plan.Levels)
	assert.Equal(t, []string{"ingest"}, plan.Levels[0])
	assert.Contains(t, plan.Levels[len(plan.Levels)-1], "emit-sql")
	assert.NoFileExists(t, "model.sql")
}

func TestProfile_JSON(t *testing.T) {
	stdout, err := execute(t, NewProfileCommand(), retailDir(t), "-o", "json")
	require.NoError(t, err)

	var tables []core.TableProfile
	require.NoError(t, json.Unmarshal([]byte(stdout), &tables))
	require.Len(t, tables, 4)
	byName := make(map[string]core.TableProfile)
	for _, tp := range tables {
		byName[tp.Name] = tp
	}
	assert.Equal(t, "customer_id", byName["customers"].PrimaryKey)
	assert.Equal(t, 20, byName["order_items"].RowCount)
	col, ok := (&core.TableProfile{Columns: byName["orders"].Columns}).Column("order_date")
	require.True(t, ok)
	assert.Equal(t, core.TypeDate, col.Type)
}

func TestProfile_Markdown(t *testing.T) {
	stdout, err := execute(t, NewProfileCommand(), retailDir(t))
	require.NoError(t, err)
	assert.Contains(t, stdout, "## customers (5 rows), primary key customer_id")
	assert.Contains(t, stdout, "| Column | Type | Role | Layer | Nulls | Distinct | Samples |")
}

func TestRelationships(t *testing.T) {
	in := retailDir(t)

	stdout, err := execute(t, NewRelationshipsCommand(), in, "-o", "json")
	require.NoError(t, err)
	var edges []core.RelationshipEdge
	require.NoError(t, json.Unmarshal([]byte(stdout), &edges))
	require.NotEmpty(t, edges)
	found := false
	for _, e := range edges {
		if e.Child().String() == "orders.customer_id" {
			found = true
			assert.Equal(t, "customers.customer_id", e.Parent().String())
		}
	}
	assert.True(t, found)

	stdout, err = execute(t, NewRelationshipsCommand(), in, "-o", "json", "--min-confidence", "1.01")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", stdout)

	stdout, err = execute(t, NewRelationshipsCommand(), in, "--min-confidence", "1.01")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No relationships detected")
}

func TestApply_DryRun(t *testing.T) {
	tests := []struct {
		scope string
		want  []string
	}{
		{"model", []string{`CREATE TABLE "gold"."fact_sales"`, "ADD FOREIGN KEY"}},
		{"bronze", []string{`CREATE SCHEMA IF NOT EXISTS "raw";`, `DROP TABLE IF EXISTS "raw"."orders" CASCADE;`}},
	}
	in := retailDir(t)
	for _, tt := range tests {
		t.Run(tt.scope, func(t *testing.T) {
			stdout, err := execute(t, NewApplyCommand(), in, "--dry-run", "--scope", tt.scope, "--layer-schema-map", "bronze=raw")
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, stdout, w)
			}
		})
	}
}

func TestApply_NoTarget(t *testing.T) {
	_, err := execute(t, NewApplyCommand(), retailDir(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no target configured")
}

func TestApply_DuckDB(t *testing.T) {
	db := filepath.Join(t.TempDir(), "warehouse.duckdb")
	t.Setenv("LEAPMODEL_TARGET__TYPE", "DuckDB")
	t.Setenv("LEAPMODEL_TARGET__DATABASE", db)

	stdout, err := execute(t, NewApplyCommand(), retailDir(t), "-o", "json")
	require.NoError(t, err)

	var res struct {
		Target             string `json:"target"`
		Statements         int    `json:"statements"`
		SkippedForeignKeys int    `json:"skipped_foreign_keys"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "duckdb", res.Target)
	assert.Positive(t, res.Statements)
	assert.Positive(t, res.SkippedForeignKeys)
	assert.FileExists(t, db)
}

func TestHistory(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.db")

	stdout, err := execute(t, NewHistoryCommand(), "--state", statePath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs recorded")

	_, err = execute(t, NewModelCommand(), retailDir(t), "--state", statePath)
	require.NoError(t, err)

	stdout, err = execute(t, NewHistoryCommand(), "--state", statePath, "-o", "json")
	require.NoError(t, err)
	var runs []state.Run
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	require.Len(t, runs, 1)
	id := runs[0].ID

	stdout, err = execute(t, NewHistoryCommand(), "show", id[:8], "--state", statePath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Run "+id[:8])
	assert.Contains(t, stdout, "- **Status**: completed")
	assert.Contains(t, stdout, "## Tables")

	stdout, err = execute(t, NewHistoryCommand(), "delete", id, "--state", statePath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "- Deleted run "+id[:8])

	_, err = execute(t, NewHistoryCommand(), "show", id, "--state", statePath)
	assert.ErrorIs(t, err, state.ErrRunNotFound)
}

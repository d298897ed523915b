package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapmodel/internal/relate"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leapmodel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func modelFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("model", pflag.ContinueOnError)
	fs.String("state", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	fs.String("out", "", "")
	fs.String("erd", "", "")
	fs.Int("sample-size", 0, "")
	fs.String("describe", "", "")
	fs.Bool("no-history", false, "")
	fs.Bool("watch", false, "")
	fs.Bool("materialize-bronze", false, "")
	fs.Bool("materialize-silver", false, "")
	fs.Bool("materialize-gold", false, "")
	fs.String("layer-schema-map", "", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("", "", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.True(t, cfg.History)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, 10000, cfg.Profile.SampleSize)
	assert.InDelta(t, relate.DefaultNameWeight, cfg.Relationships.NameWeight, 1e-9)
	assert.InDelta(t, relate.DefaultOverlapWeight, cfg.Relationships.OverlapWeight, 1e-9)
	assert.Equal(t, 12, cfg.Model.MaxDimensionColumns)
	assert.Equal(t, "none", cfg.Describe.Backend)
	assert.Equal(t, 30*time.Second, cfg.Describe.Timeout)
	assert.Equal(t, ".", cfg.Outputs.MaterializeDir)
	assert.Nil(t, cfg.Target)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
output: json
profile:
  sample_size: 500
relationships:
  min_overlap: 0.7
  overrides:
    - child: orders.buyer
      parent: customers.customer_id
  ignore:
    - orders.quantity
describe:
  backend: ollama
  timeout: 5s
outputs:
  sql: out/model.sql
  materialize: [gold, bronze]
  layer_schemas:
    silver: clean
target:
  type: DuckDB
  database: ${LEAPMODEL_TEST_DB}
  params:
    settings:
      threads: 2
`)
	t.Setenv("LEAPMODEL_TEST_DB", "model.duckdb")

	cfg, err := Load(path, "", nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 500, cfg.Profile.SampleSize)
	assert.InDelta(t, 0.7, cfg.Relationships.MinOverlap, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.Describe.Timeout)
	assert.Equal(t, "out/model.sql", cfg.Outputs.SQL)
	assert.Equal(t, []core.Layer{core.LayerBronze, core.LayerGold}, cfg.MaterializeLayers())
	assert.Equal(t, map[core.Layer]string{core.LayerSilver: "clean"}, cfg.Schemas())

	overrides, err := cfg.RelateOverrides()
	require.NoError(t, err)
	assert.Equal(t, []relate.Override{{
		Child:  core.ColumnRef{Table: "orders", Column: "buyer"},
		Parent: core.ColumnRef{Table: "customers", Column: "customer_id"},
	}}, overrides)
	ignore, err := cfg.IgnoreRefs()
	require.NoError(t, err)
	assert.Equal(t, []core.ColumnRef{{Table: "orders", Column: "quantity"}}, ignore)

	require.NotNil(t, cfg.Target)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, "model.duckdb", cfg.Target.Database)
	ac := cfg.Target.AdapterConfig()
	assert.Equal(t, "model.duckdb", ac.Path)
	assert.Contains(t, ac.Params, "settings")
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, "state_path: from-file.db\noutputs:\n  sql: file.sql\n  erd: file.dot\n")
	t.Setenv("LEAPMODEL_STATE_PATH", "from-env.db")
	t.Setenv("LEAPMODEL_OUTPUTS__ERD", "env.mmd")

	flags := modelFlags()
	require.NoError(t, flags.Parse([]string{
		"--out", "flag.sql", "--sample-size", "50", "--no-history",
		"--materialize-silver", "--layer-schema-map", "bronze=raw, gold=mart",
		"--watch",
	}))

	cfg, err := Load(path, "", flags)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.StatePath)
	assert.Equal(t, "flag.sql", cfg.Outputs.SQL)
	assert.Equal(t, "env.mmd", cfg.Outputs.ERD)
	assert.Equal(t, 50, cfg.Profile.SampleSize)
	assert.False(t, cfg.History)
	assert.Equal(t, []core.Layer{core.LayerSilver}, cfg.MaterializeLayers())
	assert.Equal(t, map[core.Layer]string{core.LayerBronze: "raw", core.LayerGold: "mart"}, cfg.Schemas())
}

func TestLoad_UnchangedFlagsKeepFileValues(t *testing.T) {
	path := writeConfig(t, "outputs:\n  sql: file.sql\n")
	flags := modelFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(path, "", flags)
	require.NoError(t, err)
	assert.Equal(t, "file.sql", cfg.Outputs.SQL)
	assert.True(t, cfg.History)
}

func TestLoad_Environment(t *testing.T) {
	path := writeConfig(t, `
target:
  type: duckdb
  database: dev.duckdb
  params:
    extensions: [json]
environments:
  prod:
    state_path: prod-state.db
    target:
      type: postgres
      host: db.internal
      database: warehouse
`)
	cfg, err := Load(path, "prod", nil)
	require.NoError(t, err)
	assert.Equal(t, "prod-state.db", cfg.StatePath)
	assert.Equal(t, "postgres", cfg.Target.Type)
	assert.Equal(t, "db.internal", cfg.Target.Host)
	assert.Equal(t, "warehouse", cfg.Target.Database)
	assert.Contains(t, cfg.Target.Params, "extensions")

	_, err = Load(path, "staging", nil)
	assert.EqualError(t, err, `unknown environment "staging"`)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad output", "output: yaml", "unknown output format"},
		{"bad weight", "relationships:\n  name_weight: 1.5", "relationships.name_weight must be between 0 and 1"},
		{"zero weights", "relationships:\n  name_weight: 0\n  overlap_weight: 0", "cannot both be 0"},
		{"bad override", "relationships:\n  overrides:\n    - child: orders\n      parent: customers.id", "relationships.overrides"},
		{"bad ignore", "relationships:\n  ignore: [quantity]", "relationships.ignore"},
		{"bad describe", "describe:\n  backend: gpt", "unknown describe backend"},
		{"bad erd format", "outputs:\n  erd_format: svg", "unknown erd format"},
		{"bad layer", "outputs:\n  materialize: [platinum]", `unknown layer "platinum"`},
		{"bad schema map", "outputs:\n  layer_schemas:\n    gold: \"\"", "empty schema"},
		{"bad delimiter", "ingest:\n  delimiter: ';;'", "single character"},
		{"unknown target", "target:\n  type: oracle", "unknown target type"},
		{"missing target type", "target:\n  host: x", "target type is required"},
		{"bad yaml", "output: [", "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), "", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLayerSchemaMap(t *testing.T) {
	m, err := ParseLayerSchemaMap("Bronze=raw,,silver = clean")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bronze": "raw", "silver": "clean"}, m)

	_, err = ParseLayerSchemaMap("bronze")
	assert.Error(t, err)
}

func TestMergeTargetConfig(t *testing.T) {
	base := &TargetConfig{Type: "duckdb", Database: "a.duckdb", Options: map[string]string{"x": "1"}}
	assert.Same(t, base, MergeTargetConfig(base, nil))
	assert.Same(t, base, MergeTargetConfig(nil, base))

	merged := MergeTargetConfig(base, &TargetConfig{Database: "b.duckdb", Options: map[string]string{"y": "2"}})
	assert.Equal(t, "duckdb", merged.Type)
	assert.Equal(t, "b.duckdb", merged.Database)
	assert.Equal(t, map[string]string{"x": "1", "y": "2"}, merged.Options)
	assert.Equal(t, "a.duckdb", base.Database, "base is not modified")
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, GetLogger(ctx))
	assert.Nil(t, FromContext(ctx))

	cfg := &Config{StatePath: "x"}
	assert.Same(t, cfg, FromContext(WithConfig(ctx, cfg)))
}

func TestDelimiter(t *testing.T) {
	assert.Equal(t, rune(0), (&Config{}).Delimiter())
	assert.Equal(t, ';', (&Config{Ingest: IngestConfig{Delimiter: ";"}}).Delimiter())
}

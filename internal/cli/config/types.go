// Package config loads leapmodel settings from defaults, leapmodel.yaml,
// LEAPMODEL_* environment variables and command-line flags.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	StatePath    string `koanf:"state_path"`
	History      bool   `koanf:"history"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`

	Ingest        IngestConfig         `koanf:"ingest"`
	Profile       ProfileConfig        `koanf:"profile"`
	Relationships RelationshipsConfig  `koanf:"relationships"`
	Model         ModelConfig          `koanf:"model"`
	Describe      DescribeConfig       `koanf:"describe"`
	Outputs       OutputsConfig        `koanf:"outputs"`
	Target        *TargetConfig        `koanf:"target"`
	Environments  map[string]EnvConfig `koanf:"environments"`

	// ConfigFile is the file that was loaded, if any.
	ConfigFile string `koanf:"-"`
}

// IngestConfig configures input reading.
type IngestConfig struct {
	// Delimiter overrides the CSV field separator (one character).
	Delimiter string `koanf:"delimiter"`
}

// ProfileConfig configures column profiling.
type ProfileConfig struct {
	SampleSize int      `koanf:"sample_size"`
	Workers    int      `koanf:"workers"`
	NullTokens []string `koanf:"null_tokens"`
}

// RelationshipsConfig configures foreign key detection.
type RelationshipsConfig struct {
	NameWeight    float64          `koanf:"name_weight"`
	OverlapWeight float64          `koanf:"overlap_weight"`
	MinOverlap    float64          `koanf:"min_overlap"`
	Overrides     []OverrideConfig `koanf:"overrides"`
	// Ignore lists "table.column" references that never get an edge.
	Ignore []string `koanf:"ignore"`
}

// OverrideConfig forces child -> parent, both "table.column".
type OverrideConfig struct {
	Child  string `koanf:"child"`
	Parent string `koanf:"parent"`
}

// ModelConfig configures dimensional modeling.
type ModelConfig struct {
	MaxDimensionColumns int  `koanf:"max_dimension_columns"`
	DisableSynthesis    bool `koanf:"disable_synthesis"`
}

// DescribeConfig selects the column describer.
type DescribeConfig struct {
	Backend  string        `koanf:"backend"`
	Endpoint string        `koanf:"endpoint"`
	Model    string        `koanf:"model"`
	Timeout  time.Duration `koanf:"timeout"`
}

// OutputsConfig selects the artifacts to write. Empty paths are skipped.
type OutputsConfig struct {
	SQL            string            `koanf:"sql"`
	ERD            string            `koanf:"erd"`
	ERDFormat      string            `koanf:"erd_format"`
	Catalog        string            `koanf:"catalog"`
	Star           string            `koanf:"star"`
	ModelJSON      string            `koanf:"model_json"`
	SchemaYAML     string            `koanf:"schema_yaml"`
	Materialize    []string          `koanf:"materialize"`
	MaterializeDir string            `koanf:"materialize_dir"`
	LayerSchemas   map[string]string `koanf:"layer_schemas"`
}

// TargetConfig is the database `leapmodel apply` writes DDL to.
type TargetConfig struct {
	Type     string            `koanf:"type"`
	Database string            `koanf:"database"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	StatePath string        `koanf:"state_path"`
	Target    *TargetConfig `koanf:"target"`
}

// Default configuration values.
const (
	DefaultStateFile      = ".leapmodel/state.db"
	DefaultOutput         = "auto"
	DefaultMaterializeDir = "."
	DefaultERDFormat      = "auto"
)

package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/leapmodel/internal/describe"
	"github.com/leapstack-labs/leapmodel/internal/dimension"
	"github.com/leapstack-labs/leapmodel/internal/profile"
	"github.com/leapstack-labs/leapmodel/internal/relate"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

type (
	loggerKey struct{}
	configKey struct{}
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nested keys: LEAPMODEL_OUTPUTS__SQL sets outputs.sql.
const EnvPrefix = "LEAPMODEL_"

// configNames are searched in the working directory when no file is given.
var configNames = []string{"leapmodel.yaml", "leapmodel.yml"}

// flagKeys maps command-line flags to config keys. Flags not listed here
// are command options and never reach the config.
var flagKeys = map[string]string{
	"state":           "state_path",
	"verbose":         "verbose",
	"output":          "output",
	"delimiter":       "ingest.delimiter",
	"sample-size":     "profile.sample_size",
	"workers":         "profile.workers",
	"no-synthesis":    "model.disable_synthesis",
	"describe":        "describe.backend",
	"out":             "outputs.sql",
	"erd":             "outputs.erd",
	"erd-format":      "outputs.erd_format",
	"catalog":         "outputs.catalog",
	"star":            "outputs.star",
	"model-json":      "outputs.model_json",
	"schema-yaml":     "outputs.schema_yaml",
	"materialize-dir": "outputs.materialize_dir",
}

func defaults() map[string]any {
	return map[string]any{
		"state_path":                   DefaultStateFile,
		"history":                      true,
		"verbose":                      false,
		"output":                       DefaultOutput,
		"profile.sample_size":          profile.DefaultSampleSize,
		"relationships.name_weight":    relate.DefaultNameWeight,
		"relationships.overlap_weight": relate.DefaultOverlapWeight,
		"relationships.min_overlap":    relate.DefaultMinOverlap,
		"model.max_dimension_columns":  dimension.DefaultMaxDimensionColumns,
		"describe.backend":             describe.BackendNone,
		"describe.timeout":             describe.DefaultOllamaTimeout.String(),
		"outputs.erd_format":           DefaultERDFormat,
		"outputs.materialize_dir":      DefaultMaterializeDir,
	}
}

// findConfigFile returns the explicit path or the first config name present.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load loads configuration. Precedence, highest first: changed flags, env
// vars, the config file, defaults. envName selects an entry of
// environments whose target and state path override the base values.
func Load(cfgFile, envName string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			if f.Name == "no-history" {
				v, _ := flags.GetBool(f.Name)
				return "history", !v
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ConfigFile = used

	if flags != nil {
		if err := applyLayerFlags(&cfg, flags); err != nil {
			return nil, err
		}
	}

	if envName != "" {
		envCfg, ok := cfg.Environments[envName]
		if !ok {
			return nil, fmt.Errorf("unknown environment %q", envName)
		}
		if envCfg.StatePath != "" {
			cfg.StatePath = envCfg.StatePath
		}
		cfg.Target = MergeTargetConfig(cfg.Target, envCfg.Target)
	}
	if cfg.Target != nil {
		cfg.Target.Type = strings.ToLower(cfg.Target.Type)
		expandTargetEnvVars(cfg.Target)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyLayerFlags merges --materialize-<layer> and --layer-schema-map.
func applyLayerFlags(cfg *Config, flags *pflag.FlagSet) error {
	for _, l := range core.Layers {
		name := "materialize-" + string(l)
		if f := flags.Lookup(name); f == nil || !f.Changed {
			continue
		}
		on, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		has := slices.Contains(cfg.Outputs.Materialize, string(l))
		switch {
		case on && !has:
			cfg.Outputs.Materialize = append(cfg.Outputs.Materialize, string(l))
		case !on && has:
			cfg.Outputs.Materialize = slices.DeleteFunc(cfg.Outputs.Materialize, func(s string) bool { return s == string(l) })
		}
	}

	if f := flags.Lookup("layer-schema-map"); f != nil && f.Changed {
		m, err := ParseLayerSchemaMap(f.Value.String())
		if err != nil {
			return err
		}
		if cfg.Outputs.LayerSchemas == nil {
			cfg.Outputs.LayerSchemas = make(map[string]string, len(m))
		}
		for k, v := range m {
			cfg.Outputs.LayerSchemas[k] = v
		}
	}
	return nil
}

// ParseLayerSchemaMap parses "bronze=raw,silver=clean".
func ParseLayerSchemaMap(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		layer, schema, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid layer schema mapping %q (want layer=schema)", pair)
		}
		out[strings.ToLower(strings.TrimSpace(layer))] = strings.TrimSpace(schema)
	}
	return out, nil
}

// WithLogger stores the logger in ctx.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// WithConfig stores the loaded config in ctx.
func WithConfig(ctx context.Context, c *Config) context.Context {
	return context.WithValue(ctx, configKey{}, c)
}

// FromContext returns the config stored in ctx, or nil.
func FromContext(ctx context.Context) *Config {
	c, _ := ctx.Value(configKey{}).(*Config)
	return c
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns. Unset variables are left as is.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

func expandTargetEnvVars(t *TargetConfig) {
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	merged.Options = make(map[string]string, len(base.Options)+len(override.Options))
	merged.Params = make(map[string]any, len(base.Params)+len(override.Params))
	for k, v := range base.Options {
		merged.Options[k] = v
	}
	for k, v := range base.Params {
		merged.Params[k] = v
	}

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	for k, v := range override.Options {
		merged.Options[k] = v
	}
	for k, v := range override.Params {
		merged.Params[k] = v
	}
	return &merged
}

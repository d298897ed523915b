package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/leapmodel/internal/adapter"
	"github.com/leapstack-labs/leapmodel/internal/cli/output"
	"github.com/leapstack-labs/leapmodel/internal/describe"
	"github.com/leapstack-labs/leapmodel/internal/emit/erd"
	"github.com/leapstack-labs/leapmodel/internal/relate"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		errs = append(errs, err)
	}
	if utf8.RuneCountInString(c.Ingest.Delimiter) > 1 {
		add("ingest.delimiter must be a single character, got %q", c.Ingest.Delimiter)
	}
	if c.Profile.SampleSize < 0 {
		add("profile.sample_size must not be negative")
	}
	if c.Profile.Workers < 0 {
		add("profile.workers must not be negative")
	}

	r := c.Relationships
	for name, v := range map[string]float64{
		"relationships.name_weight":    r.NameWeight,
		"relationships.overlap_weight": r.OverlapWeight,
		"relationships.min_overlap":    r.MinOverlap,
	} {
		if v < 0 || v > 1 {
			add("%s must be between 0 and 1, got %g", name, v)
		}
	}
	if r.NameWeight+r.OverlapWeight == 0 {
		add("relationships.name_weight and relationships.overlap_weight cannot both be 0")
	}
	if _, err := c.RelateOverrides(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.IgnoreRefs(); err != nil {
		errs = append(errs, err)
	}

	if c.Model.MaxDimensionColumns < 0 {
		add("model.max_dimension_columns must not be negative")
	}

	switch strings.ToLower(c.Describe.Backend) {
	case "", describe.BackendNone, describe.BackendHeuristic, describe.BackendOllama:
	default:
		add("unknown describe backend %q (want none, heuristic or ollama)", c.Describe.Backend)
	}
	if c.Describe.Timeout < 0 {
		add("describe.timeout must not be negative")
	}

	if _, err := erd.ParseFormat(c.Outputs.ERDFormat); err != nil {
		errs = append(errs, err)
	}
	for _, l := range c.Outputs.Materialize {
		if !isLayer(l) {
			add("unknown layer %q in outputs.materialize", l)
		}
	}
	for l, schema := range c.Outputs.LayerSchemas {
		if !isLayer(l) {
			add("unknown layer %q in outputs.layer_schemas", l)
		}
		if schema == "" {
			add("empty schema for layer %q", l)
		}
	}

	if c.Target != nil {
		if err := ValidateTarget(c.Target); err != nil {
			errs = append(errs, fmt.Errorf("invalid target configuration: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ValidateTarget checks that the target type is registered.
func ValidateTarget(t *TargetConfig) error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()}
	}
	return nil
}

func isLayer(s string) bool {
	return slices.Contains(core.Layers, core.Layer(strings.ToLower(s)))
}

// RelateOverrides parses the configured relationship overrides.
func (c *Config) RelateOverrides() ([]relate.Override, error) {
	out := make([]relate.Override, 0, len(c.Relationships.Overrides))
	for _, o := range c.Relationships.Overrides {
		ov, err := relate.ParseOverride(o.Child, o.Parent)
		if err != nil {
			return nil, fmt.Errorf("relationships.overrides: %w", err)
		}
		out = append(out, ov)
	}
	return out, nil
}

// IgnoreRefs parses the configured ignore list.
func (c *Config) IgnoreRefs() ([]core.ColumnRef, error) {
	refs, err := relate.ParseRefs(c.Relationships.Ignore)
	if err != nil {
		return nil, fmt.Errorf("relationships.ignore: %w", err)
	}
	return refs, nil
}

// MaterializeLayers returns the layers to materialize in layer order.
func (c *Config) MaterializeLayers() []core.Layer {
	var out []core.Layer
	for _, l := range core.Layers {
		if slices.ContainsFunc(c.Outputs.Materialize, func(s string) bool { return strings.EqualFold(s, string(l)) }) {
			out = append(out, l)
		}
	}
	return out
}

// Schemas returns the layer to schema mapping.
func (c *Config) Schemas() map[core.Layer]string {
	if len(c.Outputs.LayerSchemas) == 0 {
		return nil
	}
	out := make(map[core.Layer]string, len(c.Outputs.LayerSchemas))
	for l, s := range c.Outputs.LayerSchemas {
		out[core.Layer(strings.ToLower(l))] = s
	}
	return out
}

// Delimiter returns the CSV delimiter override, or 0.
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.Ingest.Delimiter)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

// AdapterConfig converts the target for the adapter registry.
func (t *TargetConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     t.Type,
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Options:  t.Options,
		Params:   t.Params,
	}
}

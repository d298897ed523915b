package profile

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/leapmodel/internal/naming"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// ProfileColumn infers the profile of one column from its raw values.
// known lists every table name in the dataset and drives role tagging.
func ProfileColumn(table, column string, values []string, known []string, opts Options) core.ColumnProfile {
	opts = opts.withDefaults()
	if len(values) > opts.SampleSize {
		values = values[:opts.SampleSize]
	}

	nulls := make(map[string]struct{}, len(opts.NullTokens))
	for _, tok := range opts.NullTokens {
		nulls[tok] = struct{}{}
	}

	nonNull := make([]string, 0, len(values))
	distinct := make(map[string]struct{})
	var samples []string
	longText := false
	for _, raw := range values {
		v := strings.TrimSpace(raw)
		if _, isNull := nulls[v]; isNull || v == "" {
			continue
		}
		nonNull = append(nonNull, v)
		distinct[v] = struct{}{}
		if len(samples) < sampleValueCount {
			samples = append(samples, v)
		}
		if len(v) > longTextLength {
			longText = true
		}
	}

	typ, layout := inferType(nonNull)

	vals := make([]string, 0, len(distinct))
	for v := range distinct {
		vals = append(vals, v)
	}
	slices.Sort(vals)

	p := core.ColumnProfile{
		Name:     column,
		Type:     typ,
		Layout:   layout,
		Nullable: len(nonNull) < len(values),
		Count:    len(values),
		Nulls:    len(values) - len(nonNull),
		Distinct: len(distinct),
		Role:     inferRole(table, column, known),
		Samples:  samples,
		Values:   vals,
	}
	if p.Count > 0 {
		p.NullRatio = float64(p.Nulls) / float64(p.Count)
	}
	p.Layer = columnLayer(&p, longText)
	return p
}

// inferRole tags identifiers of the table itself and references to others.
func inferRole(table, column string, known []string) core.ColumnRole {
	if column == "id" {
		return core.RoleIdentifier
	}
	for _, entity := range naming.EntityNames(table) {
		if column == entity+"_id" {
			return core.RoleIdentifier
		}
	}

	prefix, ok := naming.KeyPrefix(column)
	if !ok {
		return core.RoleAttribute
	}
	for _, other := range known {
		if other == table {
			continue
		}
		for _, entity := range naming.EntityNames(other) {
			if prefix == entity || strings.HasSuffix(prefix, "_"+entity) {
				return core.RoleFKCandidate
			}
		}
	}
	return core.RoleAttribute
}

// columnLayer decides where a column is first materialized.
func columnLayer(p *core.ColumnProfile, longText bool) core.Layer {
	switch {
	case p.Type == core.TypeText && longText && p.DistinctRatio() < 0.02:
		return core.LayerBronze
	case p.Role == core.RoleIdentifier, p.Role == core.RoleFKCandidate:
		return core.LayerSilver
	case p.NullRatio < 0.5 && p.Type.IsNumeric() && p.DistinctRatio() < 0.2:
		return core.LayerGold
	case p.NullRatio < 0.5:
		return core.LayerSilver
	default:
		return core.LayerBronze
	}
}

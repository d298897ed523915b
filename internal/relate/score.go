package relate

import (
	"slices"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapmodel/internal/naming"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// Confidence combines a name score and an overlap fraction into one score.
// It is non-decreasing in overlap for a fixed name score.
func Confidence(name, overlap float64, opts Options) float64 {
	opts = opts.withDefaults()
	return clamp(opts.NameWeight*name + opts.OverlapWeight*overlap)
}

// NameScore scores how well a key prefix names a parent table.
// It returns 1.0 for an exact entity match, a length-weighted partial score
// when the entity appears inside the prefix, and 0 otherwise.
func NameScore(prefix, parent string) float64 {
	best := 0.0
	for _, entity := range naming.EntityNames(parent) {
		switch {
		case prefix == entity:
			return 1.0
		case strings.Contains(prefix, entity):
			score := 0.5 + 0.4*float64(len(entity))/float64(len(prefix))
			if score > best {
				best = score
			}
		}
	}
	return best
}

// Overlap is the fraction of child values found among parent values.
// Both slices must be sorted and deduplicated. ok is false when either
// side has no sampled values.
func Overlap(child, parent []string) (float64, bool) {
	if len(child) == 0 || len(parent) == 0 {
		return 0, false
	}
	hits := 0
	i, j := 0, 0
	for i < len(child) && j < len(parent) {
		switch strings.Compare(child[i], parent[j]) {
		case 0:
			hits++
			i++
			j++
		case -1:
			i++
		default:
			j++
		}
	}
	return float64(hits) / float64(len(child)), true
}

// valueOverlap is Overlap over the sampled values of two columns. Numeric
// columns compare by value, so "1.0" matches "1".
func valueOverlap(child, parent *core.ColumnProfile) (float64, bool) {
	if child.Type.IsNumeric() && parent.Type.IsNumeric() {
		return Overlap(canonicalNumbers(child.Values), canonicalNumbers(parent.Values))
	}
	return Overlap(child.Values, parent.Values)
}

// canonicalNumbers rewrites numeric values in shortest form and returns them
// sorted and deduplicated. Values that do not parse are kept as they are.
func canonicalNumbers(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out = append(out, strconv.FormatInt(n, 10))
		} else if f, err := strconv.ParseFloat(v, 64); err == nil {
			out = append(out, strconv.FormatFloat(f, 'f', -1, 64))
		} else {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// compatible reports whether a child column can reference a parent key.
func compatible(child, parent core.ColumnType) bool {
	return child == parent || (child.IsNumeric() && parent.IsNumeric())
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

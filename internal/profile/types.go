package profile

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapmodel/pkg/core"
)

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"02.01.2006 15:04:05",
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isFloat(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// matchDateLayout returns the first layout that parses s.
func matchDateLayout(s string) (string, bool) {
	for _, lay := range dateLayouts {
		if _, err := time.Parse(lay, s); err == nil {
			return lay, true
		}
	}
	for _, lay := range timestampLayouts {
		if _, err := time.Parse(lay, s); err == nil {
			return lay, true
		}
	}
	return "", false
}

// HasTime reports whether a date layout carries a time of day.
func HasTime(layout string) bool {
	return strings.Contains(layout, "15")
}

// inferType applies the priority rules to the non-null values of a column.
// It returns the type and, for dates, the majority layout.
func inferType(values []string) (core.ColumnType, string) {
	if len(values) == 0 {
		return core.TypeText, ""
	}

	var ints, floats, dates int
	layouts := make(map[string]int)
	for _, v := range values {
		if isInteger(v) {
			ints++
		}
		if isFloat(v) {
			floats++
		}
		if lay, ok := matchDateLayout(v); ok {
			dates++
			layouts[lay]++
		}
	}

	n := float64(len(values))
	switch {
	case float64(ints)/n >= DefaultIntThreshold:
		return core.TypeInteger, ""
	case float64(floats)/n >= DefaultFloatThreshold:
		return core.TypeFloat, ""
	case float64(dates)/n >= DefaultDateThreshold:
		return core.TypeDate, majorityLayout(layouts)
	default:
		return core.TypeText, ""
	}
}

// majorityLayout picks the most frequent layout; ties follow declaration order.
func majorityLayout(counts map[string]int) string {
	best, bestN := "", 0
	for _, lay := range append(append([]string{}, dateLayouts...), timestampLayouts...) {
		if counts[lay] > bestN {
			best, bestN = lay, counts[lay]
		}
	}
	return best
}

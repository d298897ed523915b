// Package profile infers column types, roles and table primary keys from
// sampled raw values.
//
// Inference is best-effort and never fails on odd values: anything that
// does not meet a numeric or date threshold falls back to text.
package profile

import (
	"log/slog"
	"runtime"
)

// Default profiling parameters.
const (
	DefaultSampleSize     = 10000
	DefaultIntThreshold   = 0.95
	DefaultFloatThreshold = 0.95
	DefaultDateThreshold  = 0.90
	sampleValueCount      = 5
	longTextLength        = 200
)

// DefaultNullTokens are treated as missing values.
var DefaultNullTokens = []string{"", "null", "NULL", "None", "NaN", "nan", "NA", "N/A"}

// Options configures the profiler.
type Options struct {
	// SampleSize caps the number of values inspected per column
	SampleSize int
	// Workers bounds concurrent table profiling (0 = GOMAXPROCS)
	Workers int
	// NullTokens overrides DefaultNullTokens when non-nil
	NullTokens []string
	// Logger is optional; a discard logger is used when nil
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.NullTokens == nil {
		o.NullTokens = DefaultNullTokens
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Package dimension promotes an inferred relational schema into a star
// model.
//
// Tables are classified as facts, dimensions or raw staging tables. When the
// input carries no fact, one is synthesized around each measure-bearing table
// together with dimensions projected from the tables it references. Raw tables
// are never changed; synthesized tables are appended to the state.
package dimension

import (
	"log/slog"

	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// DefaultMaxDimensionColumns bounds how wide a dimension may be.
const DefaultMaxDimensionColumns = 12

// Options configures the modeler.
type Options struct {
	MaxDimensionColumns int
	// DisableSynthesis keeps a fact-less schema as-is
	DisableSynthesis bool
	Logger           *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxDimensionColumns <= 0 {
		o.MaxDimensionColumns = DefaultMaxDimensionColumns
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Model classifies every table, synthesizes a star when no fact exists and
// records the derived star view on the state.
func Model(s *core.ModelState, opts Options) error {
	opts = opts.withDefaults()

	if err := classify(s, opts); err != nil {
		return err
	}

	if len(s.TablesWith(core.ClassFact)) == 0 && !opts.DisableSynthesis {
		if err := synthesize(s, opts); err != nil {
			return err
		}
	}

	star := BuildStar(s)
	opts.Logger.Debug("modeled star schema",
		"facts", len(s.TablesWith(core.ClassFact)),
		"dimensions", len(s.TablesWith(core.ClassDimension)),
	)
	return s.SetStar(star)
}

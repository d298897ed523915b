package profile

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapmodel/internal/naming"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// ProfileTable profiles every column of one raw table and infers its key.
func ProfileTable(raw *core.RawTable, known []string, opts Options) (*core.TableProfile, error) {
	opts = opts.withDefaults()

	if len(raw.Columns) == 0 {
		return nil, &core.ProfilingError{Table: raw.Name, Msg: "table has no columns"}
	}
	if len(raw.Records) == 0 {
		return nil, &core.ProfilingError{Table: raw.Name, Msg: "table has no records"}
	}

	tp := &core.TableProfile{
		Name:     raw.Name,
		Columns:  make([]core.ColumnProfile, len(raw.Columns)),
		Layer:    core.LayerBronze,
		RowCount: len(raw.Records),
	}
	for i, col := range raw.Columns {
		tp.Columns[i] = ProfileColumn(raw.Name, col, raw.Values(col), known, opts)
		if tp.Columns[i].Layer.Rank() > tp.Layer.Rank() {
			tp.Layer = tp.Columns[i].Layer
		}
	}
	tp.PrimaryKey = InferPrimaryKey(tp)

	opts.Logger.Debug("profiled table",
		"table", tp.Name,
		"columns", len(tp.Columns),
		"rows", tp.RowCount,
		"primary_key", tp.PrimaryKey,
		"layer", tp.Layer,
	)
	return tp, nil
}

// ProfileTables profiles all tables concurrently. Results keep input order.
func ProfileTables(ctx context.Context, raws []*core.RawTable, opts Options) ([]*core.TableProfile, error) {
	opts = opts.withDefaults()

	known := make([]string, len(raws))
	for i, r := range raws {
		known[i] = r.Name
	}

	out := make([]*core.TableProfile, len(raws))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, raw := range raws {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tp, err := ProfileTable(raw, known, opts)
			if err != nil {
				return err
			}
			out[i] = tp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// InferPrimaryKey picks the key column of a profiled table, or "".
//
// An identifier column that is unique and non-null in the sample wins.
// Otherwise the first unique, non-null, key-like integer or text column
// that does not reference another table is used.
func InferPrimaryKey(tp *core.TableProfile) string {
	for _, c := range tp.Columns {
		if c.Role == core.RoleIdentifier && c.Unique() {
			return c.Name
		}
	}
	for _, c := range tp.Columns {
		if c.Role == core.RoleFKCandidate || !c.Unique() {
			continue
		}
		if c.Type != core.TypeInteger && c.Type != core.TypeText {
			continue
		}
		if naming.IsKeyLike(c.Name) {
			return c.Name
		}
	}
	return ""
}

package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapmodel/internal/emit/sqlddl"
)

// ApplyResult reports what Apply did.
type ApplyResult struct {
	Executed int
	// SkippedForeignKeys counts FK statements the target cannot run.
	SkippedForeignKeys int
}

// Apply executes the script's statements in order on a connected adapter.
// It stops at the first failing statement; statements already executed are
// not rolled back.
func Apply(ctx context.Context, a Adapter, script sqlddl.Script, logger *slog.Logger) (ApplyResult, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var res ApplyResult
	if !a.IsConnected() {
		return res, errNotConnected
	}
	if !a.AddsForeignKeys() {
		res.SkippedForeignKeys = len(script.ForeignKeys)
		script = script.WithoutForeignKeys()
	}

	stmts := script.Statements()
	for i, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		logger.Debug("applying statement", slog.Int("index", i+1), slog.Int("total", len(stmts)))
		if err := a.Exec(ctx, stmt); err != nil {
			return res, fmt.Errorf("statement %d of %d: %w", i+1, len(stmts), err)
		}
		res.Executed++
	}
	logger.Info("applied script",
		slog.String("target", a.Name()),
		slog.Int("statements", res.Executed),
		slog.Int("skipped_foreign_keys", res.SkippedForeignKeys))
	return res, nil
}

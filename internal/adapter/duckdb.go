package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func(l *slog.Logger) Adapter { return NewDuckDBAdapter(l) })
}

// DuckDBParams are the duckdb target params.
type DuckDBParams struct {
	// Extensions to install and load before applying.
	Extensions []string `mapstructure:"extensions"`
	// Settings applied with SET (e.g. memory_limit, threads).
	Settings map[string]string `mapstructure:"settings"`
}

// DuckDBAdapter applies DDL to a DuckDB database file.
type DuckDBAdapter struct {
	BaseSQLAdapter
	params DuckDBParams
}

// NewDuckDBAdapter creates a DuckDB adapter. A nil logger discards output.
func NewDuckDBAdapter(logger *slog.Logger) *DuckDBAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDBAdapter{BaseSQLAdapter: BaseSQLAdapter{Logger: logger}}
}

// Name returns "duckdb".
func (a *DuckDBAdapter) Name() string { return "duckdb" }

// AddsForeignKeys is false: DuckDB only accepts foreign keys in CREATE TABLE.
func (a *DuckDBAdapter) AddsForeignKeys() bool { return false }

// Connect opens the database at cfg.Path (":memory:" when empty) and applies
// the configured extensions and settings.
func (a *DuckDBAdapter) Connect(ctx context.Context, cfg Config) error {
	var params DuckDBParams
	if err := DecodeParams(cfg.Params, &params); err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	a.Logger.Debug("connecting to duckdb", slog.String("path", path))
	if err := a.open(ctx, "duckdb", path, cfg); err != nil {
		return err
	}
	a.params = params

	for _, stmt := range params.statements() {
		if err := a.Exec(ctx, stmt); err != nil {
			_ = a.Close()
			return fmt.Errorf("failed to configure duckdb: %w", err)
		}
	}
	return nil
}

// statements returns the session setup statements in a stable order.
func (p DuckDBParams) statements() []string {
	var out []string
	for _, ext := range p.Extensions {
		out = append(out, "INSTALL "+ext, "LOAD "+ext)
	}
	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, fmt.Sprintf("SET %s = '%s'", k, strings.ReplaceAll(p.Settings[k], "'", "''")))
	}
	return out
}

var _ Adapter = (*DuckDBAdapter)(nil)

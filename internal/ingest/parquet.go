package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// readParquet reads a Parquet file through an in-memory DuckDB database.
func readParquet(ctx context.Context, path string, _ Options) ([]*core.RawTable, error) {
	name := TableName(path)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &core.IngestionError{Source: path, Msg: "cannot resolve path", Err: err}
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, &core.IngestionError{Source: path, Msg: "failed to open duckdb", Err: err}
	}
	defer func() { _ = db.Close() }()

	query := fmt.Sprintf("SELECT * FROM read_parquet('%s')", strings.ReplaceAll(abs, "'", "''")) //nolint:gosec // path is quoted
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, &core.IngestionError{Source: path, Table: name, Msg: "cannot read parquet", Err: err}
	}
	defer func() { _ = rows.Close() }()

	headers, err := rows.Columns()
	if err != nil {
		return nil, &core.IngestionError{Source: path, Table: name, Msg: "cannot read parquet schema", Err: err}
	}
	cols, err := normalizeColumns(path, name, headers)
	if err != nil {
		return nil, err
	}

	t := &core.RawTable{Name: name, Columns: cols}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &core.IngestionError{Source: path, Table: name, Msg: "cannot scan row", Err: err}
		}
		rec := make(core.Record, len(cols))
		for i, c := range cols {
			s, ok := formatValue(vals[i])
			if !ok {
				return nil, &core.IngestionError{Source: path, Table: name, Column: c, Msg: "nested values are not supported"}
			}
			rec[c] = s
		}
		t.Records = append(t.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.IngestionError{Source: path, Table: name, Msg: "cannot read parquet", Err: err}
	}
	return []*core.RawTable{t}, nil
}

// formatValue renders a scanned DuckDB value as a raw string.
func formatValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case []byte:
		return string(x), true
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02"), true
		}
		return x.Format("2006-01-02 15:04:05"), true
	case interface{ Float64() float64 }:
		// decimals
		return strconv.FormatFloat(x.Float64(), 'f', -1, 64), true
	default:
		switch reflect.ValueOf(x).Kind() {
		case reflect.Map, reflect.Slice:
			return "", false
		}
		return fmt.Sprint(x), true
	}
}

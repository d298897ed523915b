// Package ingest reads flat tabular files into raw tables.
//
// A path may name a single file or a directory; directories are read one
// level deep in name order. Each file yields one table named after its stem,
// except JSON objects of arrays, which yield one table per key.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapmodel/internal/naming"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// Source supplies raw tables.
type Source interface {
	Tables(ctx context.Context) ([]*core.RawTable, error)
}

// Options configures ingestion.
type Options struct {
	// Delimiter overrides the field separator of .csv files
	Delimiter rune
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// readers maps a lower-case file extension to its reader.
var readers = map[string]func(ctx context.Context, path string, opts Options) ([]*core.RawTable, error){
	".csv":     readCSV,
	".tsv":     readTSV,
	".json":    readJSON,
	".ndjson":  readNDJSON,
	".jsonl":   readNDJSON,
	".parquet": readParquet,
}

// Supported reports whether a file extension can be ingested.
func Supported(path string) bool {
	_, ok := readers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Open returns the source for a file or directory path.
func Open(path string, opts Options) (Source, error) {
	opts = opts.withDefaults()

	info, err := os.Stat(path)
	if err != nil {
		return nil, &core.IngestionError{Source: path, Msg: "cannot open input", Err: err}
	}
	if info.IsDir() {
		return &dirSource{dir: path, opts: opts}, nil
	}
	if !Supported(path) {
		return nil, &core.IngestionError{Source: path, Msg: fmt.Sprintf("unsupported file type %q", filepath.Ext(path))}
	}
	return &fileSource{path: path, opts: opts}, nil
}

type fileSource struct {
	path string
	opts Options
}

func (s *fileSource) Tables(ctx context.Context) ([]*core.RawTable, error) {
	tables, err := readFile(ctx, s.path, s.opts)
	if err != nil {
		return nil, err
	}
	return tables, checkUnique(tables)
}

type dirSource struct {
	dir  string
	opts Options
}

func (s *dirSource) Tables(ctx context.Context) ([]*core.RawTable, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &core.IngestionError{Source: s.dir, Msg: "cannot list directory", Err: err}
	}

	var tables []*core.RawTable
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if !Supported(path) {
			s.opts.Logger.Debug("skipping unsupported file", "path", path)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := readFile(ctx, path, s.opts)
		if err != nil {
			return nil, err
		}
		tables = append(tables, got...)
	}
	if len(tables) == 0 {
		return nil, &core.IngestionError{Source: s.dir, Msg: "no supported files found"}
	}
	return tables, checkUnique(tables)
}

func readFile(ctx context.Context, path string, opts Options) ([]*core.RawTable, error) {
	read := readers[strings.ToLower(filepath.Ext(path))]
	tables, err := read(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		t.Source = path
		opts.Logger.Debug("ingested table", "table", t.Name, "path", path, "columns", len(t.Columns), "rows", len(t.Records))
	}
	return tables, nil
}

// TableName derives a table name from a file path.
func TableName(path string) string {
	base := filepath.Base(path)
	return naming.Normalize(strings.TrimSuffix(base, filepath.Ext(base)))
}

func checkUnique(tables []*core.RawTable) error {
	seen := make(map[string]string, len(tables))
	for _, t := range tables {
		if prev, dup := seen[t.Name]; dup {
			return &core.IngestionError{
				Source: t.Source,
				Table:  t.Name,
				Msg:    fmt.Sprintf("duplicate table name (also read from %s)", prev),
			}
		}
		seen[t.Name] = t.Source
	}
	return nil
}

// normalizeColumns normalizes headers and rejects duplicates.
func normalizeColumns(source, table string, headers []string) ([]string, error) {
	cols := make([]string, len(headers))
	seen := make(map[string]bool, len(headers))
	for i, h := range headers {
		c := naming.Normalize(h)
		if c == "" {
			c = fmt.Sprintf("column_%d", i+1)
		}
		if seen[c] {
			return nil, &core.IngestionError{Source: source, Table: table, Column: c, Msg: "duplicate column"}
		}
		seen[c] = true
		cols[i] = c
	}
	return cols, nil
}

// Validate checks that every record carries exactly the table's columns.
func Validate(t *core.RawTable) error {
	if t.Name == "" {
		return &core.IngestionError{Source: t.Source, Msg: "table has no name"}
	}
	for i, rec := range t.Records {
		if len(rec) != len(t.Columns) {
			return &core.IngestionError{
				Source: t.Source,
				Table:  t.Name,
				Msg:    fmt.Sprintf("record %d has %d fields, want %d", i+1, len(rec), len(t.Columns)),
			}
		}
		for _, c := range t.Columns {
			if _, ok := rec[c]; !ok {
				return &core.IngestionError{
					Source: t.Source,
					Table:  t.Name,
					Column: c,
					Msg:    fmt.Sprintf("record %d is missing the column", i+1),
				}
			}
		}
	}
	return nil
}

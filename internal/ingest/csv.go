package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/leapstack-labs/leapmodel/pkg/core"
)

func readCSV(ctx context.Context, path string, opts Options) ([]*core.RawTable, error) {
	return readDelimited(ctx, path, opts.Delimiter)
}

func readTSV(ctx context.Context, path string, _ Options) ([]*core.RawTable, error) {
	return readDelimited(ctx, path, '\t')
}

func readDelimited(ctx context.Context, path string, comma rune) ([]*core.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.IngestionError{Source: path, Msg: "cannot open file", Err: err}
	}
	defer func() { _ = f.Close() }()

	name := TableName(path)
	r := csv.NewReader(f)
	r.Comma = comma
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &core.IngestionError{Source: path, Table: name, Msg: "file is empty"}
	}
	if err != nil {
		return nil, &core.IngestionError{Source: path, Table: name, Msg: "cannot read header", Err: err}
	}
	// strip a UTF-8 byte order mark
	if len(header) > 0 && len(header[0]) >= 3 && header[0][:3] == "\xef\xbb\xbf" {
		header[0] = header[0][3:]
	}
	cols, err := normalizeColumns(path, name, header)
	if err != nil {
		return nil, err
	}

	t := &core.RawTable{Name: name, Columns: cols}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &core.IngestionError{Source: path, Table: name, Msg: "malformed row", Err: err}
		}
		if len(t.Records)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec := make(core.Record, len(cols))
		for i, c := range cols {
			rec[c] = row[i]
		}
		t.Records = append(t.Records, rec)
	}
	return []*core.RawTable{t}, nil
}

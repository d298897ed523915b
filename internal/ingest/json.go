package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/leapmodel/internal/naming"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// field is one key/value pair of a flat JSON record, in document order.
type field struct {
	key   string
	value string
}

// builder accumulates records whose column set is the union of their keys
// in first-seen order.
type builder struct {
	source  string
	name    string
	cols    []string
	index   map[string]bool
	records []core.Record
}

func newBuilder(source, name string) *builder {
	return &builder{source: source, name: name, index: make(map[string]bool)}
}

func (b *builder) add(fields []field) error {
	rec := make(core.Record, len(fields))
	for _, f := range fields {
		col := naming.Normalize(f.key)
		if col == "" {
			return &core.IngestionError{Source: b.source, Table: b.name, Msg: fmt.Sprintf("invalid key %q", f.key)}
		}
		if _, dup := rec[col]; dup {
			return &core.IngestionError{Source: b.source, Table: b.name, Column: col, Msg: "duplicate key in record"}
		}
		rec[col] = f.value
		if !b.index[col] {
			b.index[col] = true
			b.cols = append(b.cols, col)
		}
	}
	b.records = append(b.records, rec)
	return nil
}

func (b *builder) table() *core.RawTable {
	for _, rec := range b.records {
		for _, c := range b.cols {
			if _, ok := rec[c]; !ok {
				rec[c] = ""
			}
		}
	}
	return &core.RawTable{Name: b.name, Columns: b.cols, Records: b.records}
}

// scalar renders a JSON scalar token as a raw string value.
func scalar(tok json.Token) (string, bool) {
	switch v := tok.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		if v {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}

// readRecord reads a flat object whose opening brace was already consumed.
func readRecord(dec *json.Decoder, source, table string) ([]field, error) {
	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &core.IngestionError{Source: source, Table: table, Msg: "malformed JSON", Err: err}
		}
		key, _ := tok.(string)

		tok, err = dec.Token()
		if err != nil {
			return nil, &core.IngestionError{Source: source, Table: table, Msg: "malformed JSON", Err: err}
		}
		v, ok := scalar(tok)
		if !ok {
			return nil, &core.IngestionError{Source: source, Table: table, Column: naming.Normalize(key), Msg: "nested values are not supported"}
		}
		fields = append(fields, field{key: key, value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, &core.IngestionError{Source: source, Table: table, Msg: "malformed JSON", Err: err}
	}
	return fields, nil
}

// readArray reads an array of flat objects whose opening bracket was
// already consumed.
func readArray(ctx context.Context, dec *json.Decoder, b *builder) error {
	for dec.More() {
		if len(b.records)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		tok, err := dec.Token()
		if err != nil {
			return &core.IngestionError{Source: b.source, Table: b.name, Msg: "malformed JSON", Err: err}
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return &core.IngestionError{Source: b.source, Table: b.name, Msg: "array elements must be objects"}
		}
		fields, err := readRecord(dec, b.source, b.name)
		if err != nil {
			return err
		}
		if err := b.add(fields); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return &core.IngestionError{Source: b.source, Table: b.name, Msg: "malformed JSON", Err: err}
	}
	return nil
}

// readJSON accepts an array of records (one table), an object of arrays
// (one table per key) or a single flat object (a one-row table).
func readJSON(ctx context.Context, path string, _ Options) ([]*core.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.IngestionError{Source: path, Msg: "cannot open file", Err: err}
	}
	defer func() { _ = f.Close() }()

	name := TableName(path)
	dec := json.NewDecoder(bufio.NewReader(f))
	dec.UseNumber()

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, &core.IngestionError{Source: path, Table: name, Msg: "file is empty"}
	}
	if err != nil {
		return nil, &core.IngestionError{Source: path, Table: name, Msg: "malformed JSON", Err: err}
	}

	switch tok {
	case json.Delim('['):
		b := newBuilder(path, name)
		if err := readArray(ctx, dec, b); err != nil {
			return nil, err
		}
		return []*core.RawTable{b.table()}, nil
	case json.Delim('{'):
		return readObject(ctx, dec, path, name)
	default:
		return nil, &core.IngestionError{Source: path, Table: name, Msg: "top-level value must be an array or an object"}
	}
}

func readObject(ctx context.Context, dec *json.Decoder, path, name string) ([]*core.RawTable, error) {
	var (
		tables []*core.RawTable
		single []field
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &core.IngestionError{Source: path, Table: name, Msg: "malformed JSON", Err: err}
		}
		key, _ := tok.(string)

		tok, err = dec.Token()
		if err != nil {
			return nil, &core.IngestionError{Source: path, Table: name, Msg: "malformed JSON", Err: err}
		}
		switch tok {
		case json.Delim('['):
			b := newBuilder(path, naming.Normalize(key))
			if err := readArray(ctx, dec, b); err != nil {
				return nil, err
			}
			tables = append(tables, b.table())
		case json.Delim('{'):
			return nil, &core.IngestionError{Source: path, Table: name, Column: naming.Normalize(key), Msg: "nested values are not supported"}
		default:
			v, _ := scalar(tok)
			single = append(single, field{key: key, value: v})
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, &core.IngestionError{Source: path, Table: name, Msg: "malformed JSON", Err: err}
	}

	switch {
	case len(tables) > 0 && len(single) > 0:
		return nil, &core.IngestionError{Source: path, Table: name, Msg: "object mixes table arrays and scalar fields"}
	case len(tables) > 0:
		return tables, nil
	default:
		b := newBuilder(path, name)
		if err := b.add(single); err != nil {
			return nil, err
		}
		return []*core.RawTable{b.table()}, nil
	}
}

// readNDJSON reads one flat object per non-blank line.
func readNDJSON(ctx context.Context, path string, _ Options) ([]*core.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.IngestionError{Source: path, Msg: "cannot open file", Err: err}
	}
	defer func() { _ = f.Close() }()

	name := TableName(path)
	b := newBuilder(path, name)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		tok, err := dec.Token()
		if err != nil {
			return nil, &core.IngestionError{Source: path, Table: name, Msg: fmt.Sprintf("line %d: malformed JSON", line), Err: err}
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, &core.IngestionError{Source: path, Table: name, Msg: fmt.Sprintf("line %d: expected an object", line)}
		}
		fields, err := readRecord(dec, path, name)
		if err != nil {
			return nil, err
		}
		if err := b.add(fields); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &core.IngestionError{Source: path, Table: name, Msg: "cannot read file", Err: err}
	}
	if len(b.records) == 0 {
		return nil, &core.IngestionError{Source: path, Table: name, Msg: "file is empty"}
	}
	return []*core.RawTable{b.table()}, nil
}

package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapmodel/internal/testutil"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func tables(t *testing.T, path string, opts Options) []*core.RawTable {
	t.Helper()
	src, err := Open(path, opts)
	require.NoError(t, err)
	got, err := src.Tables(context.Background())
	require.NoError(t, err)
	return got
}

func ingestErr(t *testing.T, path string) *core.IngestionError {
	t.Helper()
	src, err := Open(path, Options{})
	if err == nil {
		_, err = src.Tables(context.Background())
	}
	var ierr *core.IngestionError
	require.ErrorAs(t, err, &ierr)
	return ierr
}

func TestCSV(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "Order Items.csv", "\xef\xbb\xbfOrderItemID,order_id, Quantity\n1,10,2\n2,10,\n")

	got := tables(t, path, Options{})
	require.Len(t, got, 1)
	tbl := got[0]
	assert.Equal(t, "order_items", tbl.Name)
	assert.Equal(t, path, tbl.Source)
	assert.Equal(t, []string{"order_item_id", "order_id", "quantity"}, tbl.Columns)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, "2", tbl.Records[0]["quantity"])
	assert.Equal(t, "", tbl.Records[1]["quantity"])
	assert.NoError(t, Validate(tbl))
}

func TestCSV_CustomDelimiter(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "things.csv", "a;b\n1;2\n")
	got := tables(t, path, Options{Delimiter: ';'})
	assert.Equal(t, []string{"a", "b"}, got[0].Columns)
}

func TestTSV(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "things.tsv", "a\tb\n1\tx y\n")
	got := tables(t, path, Options{})
	assert.Equal(t, "x y", got[0].Records[0]["b"])
}

func TestCSV_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		wantMsg string
	}{
		{"empty", "empty.csv", "", "file is empty"},
		{"duplicate header", "dupe.csv", "id,ID\n1,2\n", "duplicate column"},
		{"ragged row", "ragged.csv", "a,b\n1,2\n3\n", "malformed row"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ierr := ingestErr(t, write(t, dir, tt.file, tt.content))
			assert.Contains(t, ierr.Msg, tt.wantMsg)
		})
	}
}

func TestJSON_ArrayWithMissingKeys(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "customers.json", `[
		{"customer_id": 1, "name": "Ada", "vip": true},
		{"customer_id": 2, "email": "g@example.com", "name": null}
	]`)

	got := tables(t, path, Options{})
	require.Len(t, got, 1)
	tbl := got[0]
	assert.Equal(t, []string{"customer_id", "name", "vip", "email"}, tbl.Columns)
	assert.Equal(t, core.Record{"customer_id": "1", "name": "Ada", "vip": "true", "email": ""}, tbl.Records[0])
	assert.Equal(t, core.Record{"customer_id": "2", "name": "", "vip": "", "email": "g@example.com"}, tbl.Records[1])
	assert.NoError(t, Validate(tbl))
}

func TestJSON_ObjectOfTables(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "shop.json", `{
		"Customers": [{"customer_id": 1}],
		"orders": [{"order_id": 10, "customer_id": 1, "total_amount": 12.5}]
	}`)

	got := tables(t, path, Options{})
	require.Len(t, got, 2)
	assert.Equal(t, "customers", got[0].Name)
	assert.Equal(t, "orders", got[1].Name)
	assert.Equal(t, "12.5", got[1].Records[0]["total_amount"])
}

func TestJSON_SingleObject(t *testing.T) {
	dir := t.TempDir()
	got := tables(t, write(t, dir, "settings.json", `{"a": 1, "b": "x"}`), Options{})
	require.Len(t, got, 1)
	assert.Equal(t, "settings", got[0].Name)
	assert.Len(t, got[0].Records, 1)
}

func TestJSON_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"nested object", `[{"id": 1, "address": {"city": "x"}}]`, "nested values"},
		{"nested array", `[{"id": 1, "tags": ["a"]}]`, "nested values"},
		{"scalar element", `[1, 2]`, "must be objects"},
		{"mixed object", `{"orders": [{"id": 1}], "version": 2}`, "mixes"},
		{"scalar top level", `42`, "top-level"},
		{"malformed", `[{"id": 1,}]`, "malformed"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ierr := ingestErr(t, write(t, dir, fmt.Sprintf("t%d.json", i), tt.content))
			assert.Contains(t, ierr.Msg, tt.wantMsg)
		})
	}
}

func TestJSON_NestedErrorNamesColumn(t *testing.T) {
	dir := t.TempDir()
	ierr := ingestErr(t, write(t, dir, "people.json", `[{"id": 1, "Home Address": {"city": "x"}}]`))
	assert.Equal(t, "people", ierr.Table)
	assert.Equal(t, "home_address", ierr.Column)
}

func TestNDJSON(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "events.jsonl", "{\"id\": 1, \"kind\": \"view\"}\n\n{\"id\": 2, \"extra\": 3}\n")

	got := tables(t, path, Options{})
	require.Len(t, got, 1)
	assert.Equal(t, "events", got[0].Name)
	assert.Equal(t, []string{"id", "kind", "extra"}, got[0].Columns)
	assert.Len(t, got[0].Records, 2)

	ierr := ingestErr(t, write(t, dir, "bad.ndjson", "{\"id\": 1}\n[1]\n"))
	assert.Contains(t, ierr.Msg, "line 2")
}

func TestDirectory(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "b_orders.csv", "order_id\n1\n")
	write(t, dir, "a_customers.json", `[{"customer_id": 1}]`)
	write(t, dir, "README.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))

	got := tables(t, dir, Options{Logger: testutil.NewTestLogger(t)})
	require.Len(t, got, 2)
	assert.Equal(t, "a_customers", got[0].Name)
	assert.Equal(t, "b_orders", got[1].Name)
}

func TestDirectory_DuplicateTableNames(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "orders.csv", "order_id\n1\n")
	write(t, dir, "orders.json", `[{"order_id": 2}]`)

	ierr := ingestErr(t, dir)
	assert.Equal(t, "orders", ierr.Table)
	assert.Contains(t, ierr.Msg, "duplicate table name")
}

func TestDirectory_Empty(t *testing.T) {
	ierr := ingestErr(t, t.TempDir())
	assert.Contains(t, ierr.Msg, "no supported files")
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.csv"), Options{})
	var ierr *core.IngestionError
	require.ErrorAs(t, err, &ierr)

	dir := t.TempDir()
	_, err = Open(write(t, dir, "data.xlsx", "x"), Options{})
	require.ErrorAs(t, err, &ierr)
	assert.Contains(t, ierr.Msg, "unsupported")
}

func TestValidate(t *testing.T) {
	tbl := &core.RawTable{
		Name:    "t",
		Columns: []string{"a", "b"},
		Records: []core.Record{{"a": "1", "b": "2"}, {"a": "1", "c": "3"}},
	}
	err := Validate(tbl)
	var ierr *core.IngestionError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "b", ierr.Column)

	tbl.Records[1] = core.Record{"a": "1"}
	assert.Error(t, Validate(tbl))
}

func TestParquet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Sales.parquet")

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	_, err = db.Exec(fmt.Sprintf(`COPY (
		SELECT 1 AS sale_id, 'pen' AS item, 2.5 AS amount, DATE '2024-01-02' AS sold_on
		UNION ALL
		SELECT 2, NULL, 3.0, DATE '2024-01-03'
	) TO '%s' (FORMAT PARQUET)`, path))
	require.NoError(t, err)

	got := tables(t, path, Options{})
	require.Len(t, got, 1)
	tbl := got[0]
	assert.Equal(t, "sales", tbl.Name)
	assert.Equal(t, []string{"sale_id", "item", "amount", "sold_on"}, tbl.Columns)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, "1", tbl.Records[0]["sale_id"])
	assert.Equal(t, "pen", tbl.Records[0]["item"])
	assert.Equal(t, "", tbl.Records[1]["item"])
	assert.Equal(t, "2024-01-02", tbl.Records[0]["sold_on"])
}

func TestFormatValue(t *testing.T) {
	s, ok := formatValue(int64(42))
	assert.True(t, ok)
	assert.Equal(t, "42", s)

	_, ok = formatValue(map[string]any{"a": 1})
	assert.False(t, ok)
	_, ok = formatValue([]any{1})
	assert.False(t, ok)
}

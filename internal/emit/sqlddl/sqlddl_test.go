package sqlddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapmodel/internal/emit/emittest"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

func tableNames(s Script) []string {
	var out []string
	for _, t := range s.Tables {
		out = append(out, t.Name)
	}
	return out
}

func fkFor(s Script, table, column string) (ForeignKey, bool) {
	for _, fk := range s.ForeignKeys {
		if fk.Table == table && fk.Column == column {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

func TestBuild_Model(t *testing.T) {
	state := emittest.Retail(t)
	script, err := Build(state, ScopeModel, Options{})
	require.NoError(t, err)

	assert.True(t, script.IfNotExists)
	assert.ElementsMatch(t, state.TableNames(), tableNames(script))
	for _, tbl := range script.Tables {
		tp, ok := state.Table(tbl.Name)
		require.True(t, ok)
		assert.Equal(t, string(tp.Layer), tbl.Schema, tbl.Name)
		assert.Equal(t, tp.PrimaryKey, tbl.PrimaryKey(), tbl.Name)
		assert.False(t, tbl.Drop)
	}
	assert.Contains(t, script.Schemas, "gold")

	orders, ok := script.Table("silver", "orders")
	require.True(t, ok)
	assert.Equal(t, []Column{
		{Name: "order_id", Type: "INTEGER", PrimaryKey: true},
		{Name: "customer_id", Type: "INTEGER"},
		{Name: "order_date", Type: "DATE"},
		{Name: "total_amount", Type: "DOUBLE PRECISION"},
	}, orders.Columns)

	assert.Len(t, script.ForeignKeys, len(state.Edges()))
	fk, ok := fkFor(script, "fact_sales", "customer_id")
	require.True(t, ok)
	assert.Equal(t, ForeignKey{
		Schema: "gold", Table: "fact_sales", Column: "customer_id",
		RefSchema: "gold", RefTable: "dim_customer", RefColumn: "customer_id",
	}, fk)
}

func TestBuild_SchemaMap(t *testing.T) {
	state := emittest.Retail(t)
	script, err := Build(state, ScopeModel, Options{Schemas: map[core.Layer]string{
		core.LayerSilver: "clean",
		core.LayerGold:   "mart",
	}})
	require.NoError(t, err)

	_, ok := script.Table("clean", "orders")
	assert.True(t, ok)
	_, ok = script.Table("mart", "fact_sales")
	assert.True(t, ok)
	assert.NotContains(t, script.Schemas, "silver")
}

func TestBuild_Bronze(t *testing.T) {
	state := emittest.Retail(t)
	script, err := Build(state, ScopeBronze, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"bronze"}, script.Schemas)
	assert.Equal(t, []string{"customers", "orders", "order_items", "products"}, tableNames(script))
	for _, tbl := range script.Tables {
		assert.True(t, tbl.Drop)
		raw, ok := state.RawTable(tbl.Name)
		require.True(t, ok)
		assert.Len(t, tbl.Columns, len(raw.Columns))
	}
	for _, fk := range script.ForeignKeys {
		assert.Equal(t, "bronze", fk.RefSchema)
	}
	_, ok := fkFor(script, "orders", "customer_id")
	assert.True(t, ok)
}

func TestBuild_Silver(t *testing.T) {
	state := emittest.Retail(t)
	script, err := Build(state, ScopeSilver, Options{})
	require.NoError(t, err)

	for _, tbl := range script.Tables {
		tp, ok := state.Table(tbl.Name)
		require.True(t, ok)
		assert.False(t, tp.Synthesized)
		for _, c := range tbl.Columns {
			col, ok := tp.Column(c.Name)
			require.True(t, ok)
			assert.Equal(t, core.LayerSilver, col.Layer, "%s.%s", tbl.Name, c.Name)
		}
	}
	for _, fk := range script.ForeignKeys {
		assert.Contains(t, []string{"silver", "bronze"}, fk.RefSchema)
	}
}

func TestBuild_Gold(t *testing.T) {
	state := emittest.Retail(t)
	script, err := Build(state, ScopeGold, Options{Schemas: map[core.Layer]string{core.LayerGold: "mart"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"mart"}, script.Schemas)
	assert.Equal(t, []string{"fact_sales", "dim_customer", "dim_product"}, tableNames(script))
	assert.Len(t, script.ForeignKeys, 2)
	for _, fk := range script.ForeignKeys {
		assert.Equal(t, "mart", fk.RefSchema)
	}
}

func TestBuild_UnknownScope(t *testing.T) {
	_, err := Build(core.NewModelState(), Scope("platinum"), Options{})
	assert.ErrorContains(t, err, "unknown script scope")
}

func TestScript_String(t *testing.T) {
	script := Script{
		Schemas: []string{"gold"},
		Tables: []Table{{
			Schema: "gold", Name: "dim_customer", Drop: true,
			Columns: []Column{{Name: "customer_id", Type: "INTEGER", PrimaryKey: true}, {Name: "name", Type: "TEXT"}},
		}},
		ForeignKeys: []ForeignKey{{
			Schema: "gold", Table: "fact_sales", Column: "customer_id",
			RefSchema: "gold", RefTable: "dim_customer", RefColumn: "customer_id",
		}},
	}
	want := `CREATE SCHEMA IF NOT EXISTS "gold";

DROP TABLE IF EXISTS "gold"."dim_customer" CASCADE;

CREATE TABLE "gold"."dim_customer" (
    "customer_id" INTEGER PRIMARY KEY,
    "name" TEXT
);

ALTER TABLE "gold"."fact_sales" ADD FOREIGN KEY ("customer_id") REFERENCES "gold"."dim_customer" ("customer_id");
`
	assert.Equal(t, want, script.String())
	assert.Empty(t, Script{}.String())
	assert.Len(t, script.WithoutForeignKeys().Statements(), 3)
}

func TestParse_RoundTrip(t *testing.T) {
	state := emittest.Retail(t)
	for _, scope := range []Scope{ScopeModel, ScopeBronze, ScopeSilver, ScopeGold} {
		t.Run(string(scope), func(t *testing.T) {
			script, err := Build(state, scope, Options{})
			require.NoError(t, err)
			parsed, err := Parse(script.String())
			require.NoError(t, err)
			assert.Equal(t, script, parsed)
		})
	}
}

func TestParse_Lenient(t *testing.T) {
	src := `-- generated
create table "weird ""name""" (id integer primary key, note text);
ALTER TABLE "weird ""name""" ADD FOREIGN KEY ("id") REFERENCES other ("id");`

	script, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, script.Tables, 1)
	assert.Equal(t, `weird "name"`, script.Tables[0].Name)
	assert.Equal(t, "id", script.Tables[0].PrimaryKey())
	assert.Equal(t, "TEXT", script.Tables[0].Columns[1].Type)
	require.Len(t, script.ForeignKeys, 1)
	assert.Equal(t, "other", script.ForeignKeys[0].RefTable)
	assert.Equal(t, "", script.ForeignKeys[0].RefSchema)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unsupported", "SELECT 1;", "unsupported statement"},
		{"unterminated", `CREATE TABLE "x (a int);`, "unterminated"},
		{"missing type", `CREATE TABLE x (a);`, "has no type"},
		{"missing semicolon", `CREATE SCHEMA s`, `expected ";"`},
		{"bad fk", `ALTER TABLE x ADD CONSTRAINT c;`, "expected ADD FOREIGN KEY"},
		{"bad char", `CREATE TABLE x (a int) @`, "unexpected character"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSQLType(t *testing.T) {
	assert.Equal(t, "TIMESTAMP", SQLType(core.ColumnProfile{Type: core.TypeDate, Layout: "2006-01-02 15:04:05"}))
	assert.Equal(t, "DATE", SQLType(core.ColumnProfile{Type: core.TypeDate, Layout: "2006-01-02"}))
	assert.Equal(t, "TEXT", SQLType(core.ColumnProfile{Type: core.TypeText}))
}

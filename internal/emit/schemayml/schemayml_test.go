package schemayml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapmodel/internal/emit/emittest"
	"github.com/leapstack-labs/leapmodel/internal/emit/sqlddl"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

func model(f File, name string) (Model, bool) {
	for _, m := range f.Models {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

func TestBuild(t *testing.T) {
	f := Build(emittest.Retail(t), sqlddl.SQLType)
	assert.Equal(t, 2, f.Version)

	orders, ok := model(f, "orders")
	require.True(t, ok)
	assert.Equal(t, core.ClassRaw, orders.Meta.Classification)
	require.Len(t, orders.Columns, 4)
	assert.Equal(t, []any{"unique", "not_null"}, orders.Columns[0].Tests)
	assert.Equal(t, "INTEGER", orders.Columns[0].DataType)
	assert.Equal(t, []any{
		"not_null",
		map[string]Relationship{"relationships": {To: "ref('customers')", Field: "customer_id"}},
	}, orders.Columns[1].Tests)

	fact, ok := model(f, "fact_sales")
	require.True(t, ok)
	assert.Equal(t, "One row per order_items row.", fact.Description)
	assert.Equal(t, "order_items", fact.Meta.Grain)
}

func TestMarshal(t *testing.T) {
	s := core.NewModelState()
	require.NoError(t, s.AddTable(&core.TableProfile{
		Name:       "things",
		PrimaryKey: "thing_id",
		Layer:      core.LayerSilver,
		Columns: []core.ColumnProfile{
			{Name: "thing_id", Type: core.TypeInteger, Count: 2, Distinct: 2},
			{Name: "label", Type: core.TypeText, Count: 2, Nulls: 1, Nullable: true},
		},
	}))
	require.NoError(t, s.SetDescription("things", "label", "Textual descriptive field."))

	data, err := Marshal(Build(s, sqlddl.SQLType))
	require.NoError(t, err)
	want := `version: 2
models:
  - name: things
    meta:
      layer: silver
      classification: raw
    columns:
      - name: thing_id
        data_type: INTEGER
        tests:
          - unique
          - not_null
      - name: label
        description: Textual descriptive field.
        data_type: TEXT
`
	assert.Equal(t, want, string(data))

	var back File
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, "things", back.Models[0].Name)
}

package erd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapmodel/internal/emit/emittest"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		format Format
		path   string
		want   Format
	}{
		{FormatAuto, "erd.dot", FormatDOT},
		{FormatAuto, "erd", FormatDOT},
		{FormatAuto, "docs/erd.mmd", FormatMermaid},
		{FormatAuto, "ERD.MD", FormatMermaid},
		{FormatDOT, "erd.mmd", FormatDOT},
		{FormatMermaid, "erd.dot", FormatMermaid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Resolve(tt.format, tt.path), "%s %s", tt.format, tt.path)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatAuto, f)

	f, err = ParseFormat("Mermaid")
	require.NoError(t, err)
	assert.Equal(t, FormatMermaid, f)

	_, err = ParseFormat("svg")
	assert.ErrorContains(t, err, "unknown erd format")
}

func TestDOT(t *testing.T) {
	out := string(DOT(emittest.Retail(t)))

	assert.True(t, strings.HasPrefix(out, "digraph erd {\n"))
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Contains(t, out, `"orders" [label="{orders|PK order_id : integer\lFK customer_id : integer\lorder_date : date\ltotal_amount : float\l}"];`)
	assert.Contains(t, out, `"customers" -> "orders" [label="customer_id -> customer_id"];`)
	assert.Contains(t, out, `"dim_product" -> "fact_sales" [label="product_id -> product_id"];`)
}

func TestMermaid(t *testing.T) {
	out := string(Mermaid(emittest.Retail(t)))

	assert.True(t, strings.HasPrefix(out, "erDiagram\n"))
	assert.Contains(t, out, "    orders {\n        integer order_id PK\n        integer customer_id FK\n")
	assert.Contains(t, out, `    customers ||--o{ orders : "customer_id"`)
}

func TestRender_Deterministic(t *testing.T) {
	a := Render(emittest.Retail(t), FormatDOT)
	b := Render(emittest.Retail(t), FormatDOT)
	assert.Equal(t, a, b)
}

func TestEscaping(t *testing.T) {
	assert.Equal(t, `a\|b\{c\}`, escapeRecord("a|b{c}"))
	assert.Equal(t, `"say \"hi\""`, dotID(`say "hi"`))
	assert.Equal(t, "order_items_2024", mermaidID("order items.2024"))
}

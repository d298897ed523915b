package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"TEXT", ModeText, false},
		{"md", ModeMarkdown, false},
		{"markdown", ModeMarkdown, false},
		{"json", ModeJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	var buf bytes.Buffer
	// a buffer is never a terminal
	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, "").EffectiveMode())
	assert.Equal(t, ModeText, NewRenderer(&buf, &buf, ModeText).EffectiveMode())
	assert.False(t, NewRenderer(&buf, &buf, ModeText).IsTTY())
}

func TestMarkdown(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeMarkdown)
	r.Header(2, "Tables")
	r.KeyValue("Rows", 10)
	r.StatusLine("emit-sql", "written", "model.sql")
	r.Success("done")
	r.Error("boom")

	assert.Equal(t, "## Tables\n\n- **Rows**: 10\n- **emit-sql**: written (model.sql)\n- done\n", out.String())
	assert.Contains(t, errOut.String(), "boom")
}

func TestTable(t *testing.T) {
	tests := []struct {
		mode Mode
		want []string
	}{
		{ModeMarkdown, []string{"| name | rows |", "| orders | 10 |"}},
		{ModeText, []string{"name", "orders", "┌"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			var out bytes.Buffer
			r := NewRenderer(&out, &out, tt.mode)
			r.Table([]string{"name", "rows"}, [][]any{{"orders", 10}})
			for _, want := range tt.want {
				assert.Contains(t, strings.ToLower(out.String()), strings.ToLower(want))
			}
		})
	}
}

func TestJSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &out, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"tables": 4}))
	assert.Equal(t, "{\n  \"tables\": 4\n}\n", out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Title", FormatHeader(3, "Title"))
	assert.Equal(t, "- **Key**: v", FormatKeyValue("Key", "v"))
}

func TestText_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var out bytes.Buffer
	r := NewRenderer(&out, &out, ModeText)
	r.Success("done")
	r.StatusLine("emit-sql", "failed", "disk full")

	assert.NotContains(t, out.String(), "\x1b[")
	assert.Equal(t, "✓ done\n", strings.SplitAfter(out.String(), "\n")[0])
}

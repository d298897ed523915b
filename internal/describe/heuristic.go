package describe

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapmodel/internal/naming"
	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// Heuristic describes columns from their names and inferred profile.
type Heuristic struct {
	title cases.Caser
}

// NewHeuristic returns a rule-based describer.
func NewHeuristic() *Heuristic {
	return &Heuristic{title: cases.Title(language.English)}
}

var (
	labelTokens   = []string{"name", "title", "desc", "description", "label"}
	measureTokens = []string{"qty", "quantity", "count", "number", "amount", "price", "total", "cost"}
)

// Describe never fails.
func (h *Heuristic) Describe(_ context.Context, table string, col core.ColumnProfile) (string, error) {
	name := strings.ToLower(col.Name)
	entity := h.words(naming.Singular(table))

	switch {
	case col.Role == core.RoleIdentifier:
		return "Unique identifier of the " + entity + ".", nil
	case col.Role == core.RoleFKCandidate:
		prefix, _ := naming.KeyPrefix(name)
		return "Identifier linking to the " + h.words(prefix) + ".", nil
	case naming.IsKeyLike(name):
		return "Identifier linking to another entity.", nil
	case col.Type == core.TypeDate || naming.ContainsAny(name, []string{"date", "time", "timestamp"}):
		return "Date or timestamp value.", nil
	case naming.ContainsAny(name, labelTokens):
		return "Textual descriptive field of the " + entity + ".", nil
	case col.Type.IsNumeric() && naming.ContainsAny(name, measureTokens):
		return h.words(name) + ", a numeric measure.", nil
	default:
		return summary(table, col), nil
	}
}

// words turns snake_case into title-cased words.
func (h *Heuristic) words(s string) string {
	return h.title.String(strings.ReplaceAll(s, "_", " "))
}

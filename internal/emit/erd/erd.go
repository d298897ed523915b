// Package erd renders entity-relationship diagrams as Graphviz DOT or
// Mermaid erDiagram source.
package erd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// Format is a diagram language.
type Format string

// Formats.
const (
	FormatAuto    Format = "auto"
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
)

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatDOT, FormatMermaid:
		return f, nil
	default:
		return "", fmt.Errorf("unknown erd format %q (want auto, dot or mermaid)", s)
	}
}

// Resolve picks the concrete format for an output path. Auto selects
// Mermaid for .mmd, .mermaid and .md files and DOT otherwise.
func Resolve(f Format, path string) Format {
	if f != FormatAuto && f != "" {
		return f
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mmd", ".mermaid", ".md":
		return FormatMermaid
	default:
		return FormatDOT
	}
}

// Render renders the state in the given format.
func Render(s *core.ModelState, f Format) []byte {
	if f == FormatMermaid {
		return Mermaid(s)
	}
	return DOT(s)
}

type marker int

const (
	plain marker = iota
	primary
	foreign
)

func columnMarker(s *core.ModelState, t *core.TableProfile, col string) marker {
	if col == t.PrimaryKey {
		return primary
	}
	if _, ok := s.EdgeFor(t.Name, col); ok {
		return foreign
	}
	return plain
}

// DOT renders a Graphviz digraph with one record node per table. Edges
// point from the referenced table to the referencing one.
func DOT(s *core.ModelState) []byte {
	var b strings.Builder
	b.WriteString("digraph erd {\n")
	b.WriteString("    graph [rankdir=LR];\n")
	b.WriteString("    node [shape=record, fontname=\"Helvetica\", fontsize=10];\n")
	b.WriteString("    edge [fontname=\"Helvetica\", fontsize=9];\n")

	for _, t := range s.Tables() {
		var fields []string
		for _, c := range t.Columns {
			prefix := ""
			switch columnMarker(s, t, c.Name) {
			case primary:
				prefix = "PK "
			case foreign:
				prefix = "FK "
			}
			fields = append(fields, escapeRecord(prefix+c.Name+" : "+string(c.Type))+"\\l")
		}
		fmt.Fprintf(&b, "    %s [label=\"{%s|%s}\"];\n",
			dotID(t.Name), escapeRecord(t.Name), strings.Join(fields, ""))
	}

	for _, e := range s.Edges() {
		fmt.Fprintf(&b, "    %s -> %s [label=%s];\n",
			dotID(e.ParentTable), dotID(e.ChildTable), dotID(e.ParentColumn+" -> "+e.ChildColumn))
	}
	b.WriteString("}\n")
	return []byte(b.String())
}

// Mermaid renders an erDiagram block.
func Mermaid(s *core.ModelState) []byte {
	var b strings.Builder
	b.WriteString("erDiagram\n")
	for _, t := range s.Tables() {
		fmt.Fprintf(&b, "    %s {\n", mermaidID(t.Name))
		for _, c := range t.Columns {
			key := ""
			switch columnMarker(s, t, c.Name) {
			case primary:
				key = " PK"
			case foreign:
				key = " FK"
			}
			fmt.Fprintf(&b, "        %s %s%s\n", c.Type, mermaidID(c.Name), key)
		}
		b.WriteString("    }\n")
	}
	for _, e := range s.Edges() {
		fmt.Fprintf(&b, "    %s ||--o{ %s : %q\n",
			mermaidID(e.ParentTable), mermaidID(e.ChildTable), e.ChildColumn)
	}
	return []byte(b.String())
}

func dotID(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

var recordEscaper = strings.NewReplacer(
	`\`, `\\`, `"`, `\"`, `{`, `\{`, `}`, `\}`, `|`, `\|`, `<`, `\<`, `>`, `\>`,
)

func escapeRecord(s string) string {
	return recordEscaper.Replace(s)
}

// mermaidID replaces characters Mermaid does not accept in entity and
// attribute names.
func mermaidID(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return r
		}
		return '_'
	}, s)
}

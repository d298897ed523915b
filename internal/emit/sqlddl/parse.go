package sqlddl

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokIdent
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits DDL text into words, quoted identifiers and punctuation.
// Line comments are skipped.
func tokenize(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '-' && i+1 < len(rs) && rs[i+1] == '-':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}
		case r == '"':
			var b strings.Builder
			i++
			for {
				if i >= len(rs) {
					return nil, fmt.Errorf("unterminated quoted identifier")
				}
				if rs[i] == '"' {
					if i+1 < len(rs) && rs[i+1] == '"' {
						b.WriteRune('"')
						i += 2
						continue
					}
					i++
					break
				}
				b.WriteRune(rs[i])
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: b.String()})
		case strings.ContainsRune("(),.;", r):
			toks = append(toks, token{kind: tokPunct, text: string(r)})
			i++
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_') {
				i++
			}
			toks = append(toks, token{kind: tokWord, text: string(rs[start:i])})
		default:
			return nil, fmt.Errorf("unexpected character %q", r)
		}
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

// keyword consumes the given keywords in order, case-insensitively.
func (p *parser) keyword(words ...string) bool {
	for i, w := range words {
		if p.pos+i >= len(p.toks) {
			return false
		}
		t := p.toks[p.pos+i]
		if t.kind != tokWord || !strings.EqualFold(t.text, w) {
			return false
		}
	}
	p.pos += len(words)
	return true
}

func (p *parser) expect(words ...string) error {
	if !p.keyword(words...) {
		return p.errorf("expected %s", strings.Join(words, " "))
	}
	return nil
}

func (p *parser) punct(s string) bool {
	if t, ok := p.peek(); ok && t.kind == tokPunct && t.text == s {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectPunct(s string) error {
	if !p.punct(s) {
		return p.errorf("expected %q", s)
	}
	return nil
}

func (p *parser) ident() (string, error) {
	t, ok := p.peek()
	if !ok || (t.kind != tokIdent && t.kind != tokWord) {
		return "", p.errorf("expected identifier")
	}
	p.pos++
	return t.text, nil
}

// qualified reads [schema.]name.
func (p *parser) qualified() (string, string, error) {
	first, err := p.ident()
	if err != nil {
		return "", "", err
	}
	if !p.punct(".") {
		return "", first, nil
	}
	second, err := p.ident()
	if err != nil {
		return "", "", err
	}
	return first, second, nil
}

func (p *parser) errorf(format string, args ...any) error {
	near := "end of input"
	if t, ok := p.peek(); ok {
		near = fmt.Sprintf("%q", t.text)
	}
	return fmt.Errorf("sql parse error near %s: %s", near, fmt.Sprintf(format, args...))
}

// Parse reads a script produced by Script.String back into its structure.
// It accepts CREATE SCHEMA, DROP TABLE, CREATE TABLE and
// ALTER TABLE ... ADD FOREIGN KEY statements.
func Parse(src string) (Script, error) {
	toks, err := tokenize(src)
	if err != nil {
		return Script{}, err
	}
	p := &parser{toks: toks}
	var script Script
	drops := make(map[string]bool)

	for {
		if _, ok := p.peek(); !ok {
			return script, nil
		}
		if p.punct(";") {
			continue
		}
		switch {
		case p.keyword("CREATE", "SCHEMA"):
			p.keyword("IF", "NOT", "EXISTS")
			name, err := p.ident()
			if err != nil {
				return Script{}, err
			}
			script.Schemas = append(script.Schemas, name)
		case p.keyword("DROP", "TABLE"):
			p.keyword("IF", "EXISTS")
			schema, name, err := p.qualified()
			if err != nil {
				return Script{}, err
			}
			p.keyword("CASCADE")
			drops[qualified(schema, name)] = true
		case p.keyword("CREATE", "TABLE"):
			if p.keyword("IF", "NOT", "EXISTS") {
				script.IfNotExists = true
			}
			t, err := p.createTable()
			if err != nil {
				return Script{}, err
			}
			t.Drop = drops[qualified(t.Schema, t.Name)]
			script.Tables = append(script.Tables, t)
		case p.keyword("ALTER", "TABLE"):
			fk, err := p.foreignKey()
			if err != nil {
				return Script{}, err
			}
			script.ForeignKeys = append(script.ForeignKeys, fk)
		default:
			return Script{}, p.errorf("unsupported statement")
		}
		if err := p.expectPunct(";"); err != nil {
			return Script{}, err
		}
	}
}

func (p *parser) createTable() (Table, error) {
	schema, name, err := p.qualified()
	if err != nil {
		return Table{}, err
	}
	t := Table{Schema: schema, Name: name}
	if err := p.expectPunct("("); err != nil {
		return Table{}, err
	}
	for {
		col, err := p.column()
		if err != nil {
			return Table{}, err
		}
		t.Columns = append(t.Columns, col)
		if p.punct(",") {
			continue
		}
		if err := p.expectPunct(")"); err != nil {
			return Table{}, err
		}
		return t, nil
	}
}

func (p *parser) column() (Column, error) {
	name, err := p.ident()
	if err != nil {
		return Column{}, err
	}
	c := Column{Name: name}
	var words []string
	for {
		if p.keyword("PRIMARY", "KEY") {
			c.PrimaryKey = true
			continue
		}
		t, ok := p.peek()
		if !ok || t.kind != tokWord {
			break
		}
		words = append(words, strings.ToUpper(t.text))
		p.pos++
	}
	if len(words) == 0 {
		return Column{}, p.errorf("column %q has no type", name)
	}
	c.Type = strings.Join(words, " ")
	return c, nil
}

func (p *parser) foreignKey() (ForeignKey, error) {
	var fk ForeignKey
	var err error
	if fk.Schema, fk.Table, err = p.qualified(); err != nil {
		return fk, err
	}
	if err := p.expect("ADD", "FOREIGN", "KEY"); err != nil {
		return fk, err
	}
	if fk.Column, err = p.parenIdent(); err != nil {
		return fk, err
	}
	if err := p.expect("REFERENCES"); err != nil {
		return fk, err
	}
	if fk.RefSchema, fk.RefTable, err = p.qualified(); err != nil {
		return fk, err
	}
	if fk.RefColumn, err = p.parenIdent(); err != nil {
		return fk, err
	}
	return fk, nil
}

func (p *parser) parenIdent() (string, error) {
	if err := p.expectPunct("("); err != nil {
		return "", err
	}
	name, err := p.ident()
	if err != nil {
		return "", err
	}
	return name, p.expectPunct(")")
}

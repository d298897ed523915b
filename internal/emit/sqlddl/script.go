// Package sqlddl renders a model state as SQL DDL and reads such scripts
// back.
package sqlddl

import (
	"strings"
)

// Column is one column definition.
type Column struct {
	Name       string
	Type       string
	PrimaryKey bool
}

// Table is one CREATE TABLE statement, optionally preceded by a DROP.
type Table struct {
	Schema  string
	Name    string
	Columns []Column
	// Drop emits DROP TABLE IF EXISTS ... CASCADE before the CREATE
	Drop bool
}

// PrimaryKey returns the primary key column name, or "".
func (t Table) PrimaryKey() string {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return ""
}

// ForeignKey is one ALTER TABLE ... ADD FOREIGN KEY statement.
type ForeignKey struct {
	Schema    string
	Table     string
	Column    string
	RefSchema string
	RefTable  string
	RefColumn string
}

// Script is an ordered DDL script: schemas, tables, then foreign keys.
type Script struct {
	Schemas     []string
	Tables      []Table
	ForeignKeys []ForeignKey
	// IfNotExists adds IF NOT EXISTS to CREATE TABLE
	IfNotExists bool
}

// Table returns the named table of the script.
func (s Script) Table(schema, name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Schema == schema && t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// WithoutForeignKeys returns a copy of the script without FK statements.
func (s Script) WithoutForeignKeys() Script {
	s.ForeignKeys = nil
	return s
}

// Statements returns the script as individual statements, each ending
// with a semicolon.
func (s Script) Statements() []string {
	var out []string
	for _, schema := range s.Schemas {
		out = append(out, "CREATE SCHEMA IF NOT EXISTS "+quote(schema)+";")
	}
	for _, t := range s.Tables {
		ident := qualified(t.Schema, t.Name)
		if t.Drop {
			out = append(out, "DROP TABLE IF EXISTS "+ident+" CASCADE;")
		}
		var b strings.Builder
		b.WriteString("CREATE TABLE ")
		if s.IfNotExists {
			b.WriteString("IF NOT EXISTS ")
		}
		b.WriteString(ident)
		b.WriteString(" (\n")
		for i, c := range t.Columns {
			b.WriteString("    ")
			b.WriteString(quote(c.Name))
			b.WriteByte(' ')
			b.WriteString(c.Type)
			if c.PrimaryKey {
				b.WriteString(" PRIMARY KEY")
			}
			if i < len(t.Columns)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(");")
		out = append(out, b.String())
	}
	for _, fk := range s.ForeignKeys {
		out = append(out, "ALTER TABLE "+qualified(fk.Schema, fk.Table)+
			" ADD FOREIGN KEY ("+quote(fk.Column)+") REFERENCES "+
			qualified(fk.RefSchema, fk.RefTable)+" ("+quote(fk.RefColumn)+");")
	}
	return out
}

// String renders the script with blank lines between statements.
func (s Script) String() string {
	stmts := s.Statements()
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, "\n\n") + "\n"
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func qualified(schema, name string) string {
	if schema == "" {
		return quote(name)
	}
	return quote(schema) + "." + quote(name)
}

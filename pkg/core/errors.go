package core

import (
	"fmt"
	"strings"
)

// location formats "table.column" for error messages, skipping empty parts.
func location(table, column string) string {
	switch {
	case table != "" && column != "":
		return table + "." + column
	case table != "":
		return table
	default:
		return column
	}
}

// IngestionError reports unreadable or malformed input.
type IngestionError struct {
	Source string
	Table  string
	Column string
	Msg    string
	Err    error
}

func (e *IngestionError) Error() string {
	var b strings.Builder
	b.WriteString("ingestion")
	if e.Source != "" {
		fmt.Fprintf(&b, " %s", e.Source)
	}
	if loc := location(e.Table, e.Column); loc != "" {
		fmt.Fprintf(&b, " [%s]", loc)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// ProfilingError reports a table or column that cannot be profiled.
type ProfilingError struct {
	Table  string
	Column string
	Msg    string
	Err    error
}

func (e *ProfilingError) Error() string {
	msg := fmt.Sprintf("profiling [%s]: %s", location(e.Table, e.Column), e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProfilingError) Unwrap() error {
	return e.Err
}

// ModelingError reports a cyclic or contradictory relationship set.
type ModelingError struct {
	Table  string
	Column string
	Msg    string
	Err    error
}

func (e *ModelingError) Error() string {
	msg := fmt.Sprintf("modeling [%s]: %s", location(e.Table, e.Column), e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ModelingError) Unwrap() error {
	return e.Err
}

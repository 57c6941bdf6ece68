package database

import (
	"fmt"
	"strings"
	"time"
)

// WhereBuilder assembles a parameterized PostgreSQL WHERE clause.
// Empty values are skipped so optional filters need no branching at the
// call site.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder creates an empty builder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "column = $n" unless value is empty.
func (w *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	w.conditions = append(w.conditions, fmt.Sprintf("%s = $%d", column, w.argIndex))
	w.args = append(w.args, value)
	w.argIndex++
}

// AddTimestampRange bounds column by from and to. A zero bound is skipped.
func (w *WhereBuilder) AddTimestampRange(column string, from, to time.Time) {
	if !from.IsZero() {
		w.conditions = append(w.conditions, fmt.Sprintf("%s >= $%d", column, w.argIndex))
		w.args = append(w.args, from)
		w.argIndex++
	}
	if !to.IsZero() {
		w.conditions = append(w.conditions, fmt.Sprintf("%s <= $%d", column, w.argIndex))
		w.args = append(w.args, to)
		w.argIndex++
	}
}

// NextArgIndex returns the placeholder number the next argument will take.
func (w *WhereBuilder) NextArgIndex() int {
	return w.argIndex
}

// Build returns " WHERE ..." (with the leading space) and its arguments,
// or "" and nil when nothing was added.
func (w *WhereBuilder) Build() (string, []any) {
	if len(w.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(w.conditions, " AND "), w.args
}

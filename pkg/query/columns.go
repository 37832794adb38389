// Package query implements Trustify's filter/full-text/sort DSL
// (spec.md §4.3): a small query language carried on HTTP `q=` and
// `sort=` parameters that compiles to a parameterized Postgres WHERE
// clause against a declared set of typed columns.
package query

import "strings"

// ColumnType declares how a column's textual filter values are coerced
// before being embedded in a SQL predicate.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInteger
	TypeEnum
	TypeTimestamp
	TypeUUID
)

// Column is one queryable field: its underlying SQL column expression,
// its type, and (for TypeEnum) the set of legal values.
type Column struct {
	SQL      string
	Type     ColumnType
	Variants []string
}

// TranslateFunc lets a Columns context rewrite a constraint before
// compilation — e.g. expanding a virtual field like "severity=medium"
// into "score>=3&score<6" (spec.md §4.3's Translator). Returning
// ok=false leaves the constraint to compile normally.
type TranslateFunc func(field, op, value string) (rewritten string, ok bool)

// Columns is the compilation context a query is compiled against: the
// queryable fields, which ones participate in full-text search, and an
// optional Translator hook.
type Columns struct {
	fields     map[string]Column
	order      []string // insertion order, for deterministic full-text OR clauses
	Translator TranslateFunc
}

// NewColumns builds a Columns context. Field name lookups are
// case-insensitive (spec.md §4.3: "look up the field (case-insensitive)").
func NewColumns() *Columns {
	return &Columns{fields: make(map[string]Column)}
}

// Add registers a queryable field.
func (c *Columns) Add(name string, col Column) *Columns {
	key := strings.ToLower(name)
	if _, exists := c.fields[key]; !exists {
		c.order = append(c.order, key)
	}
	c.fields[key] = col
	return c
}

// Lookup resolves a field name case-insensitively.
func (c *Columns) Lookup(name string) (Column, bool) {
	col, ok := c.fields[strings.ToLower(name)]
	return col, ok
}

// StringColumns returns every TypeString column's SQL expression, in
// registration order, for full-text OR expansion.
func (c *Columns) StringColumns() []Column {
	var out []Column
	for _, key := range c.order {
		col := c.fields[key]
		if col.Type == TypeString {
			out = append(out, col)
		}
	}
	return out
}

// HasField reports whether name is a registered field, for sort-field
// validation.
func (c *Columns) HasField(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

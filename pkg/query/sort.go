package query

import (
	"strings"

	"github.com/trustify/trustify/pkg/apperr"
)

// SortDirection is the direction of one sort field.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// SortField is one comma-separated element of a sort= parameter.
type SortField struct {
	Field     string
	Direction SortDirection
}

// ParseSort parses a comma list of "field[:asc|desc]" (spec.md §4.3),
// defaulting to Ascending, and rejects any field not present in
// columns with a SearchSyntax error.
func ParseSort(raw string, columns *Columns) ([]SortField, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var fields []SortField
	for _, term := range strings.Split(raw, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}

		field, dirRaw, hasDir := strings.Cut(term, ":")
		direction := Ascending
		if hasDir {
			switch strings.ToLower(dirRaw) {
			case "asc":
				direction = Ascending
			case "desc":
				direction = Descending
			default:
				return nil, apperr.New(apperr.KindSearchSyntax, "unknown sort direction %q", dirRaw)
			}
		}

		if !columns.HasField(field) {
			return nil, apperr.New(apperr.KindSearchSyntax, "unknown sort field %q", field)
		}
		fields = append(fields, SortField{Field: field, Direction: direction})
	}
	return fields, nil
}

// SQL renders sort fields as a Postgres ORDER BY clause body (without
// the "ORDER BY" keyword), resolving each field through columns to its
// underlying SQL expression.
func SQL(fields []SortField, columns *Columns) string {
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := columns.Lookup(f.Field)
		if !ok {
			continue
		}
		dir := "ASC"
		if f.Direction == Descending {
			dir = "DESC"
		}
		parts = append(parts, col.SQL+" "+dir)
	}
	return strings.Join(parts, ", ")
}

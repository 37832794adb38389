package query

import (
	"fmt"
	"strings"

	"github.com/trustify/trustify/pkg/apperr"
)

// Compile translates a Query into a parameterized Postgres WHERE clause
// (without the leading "WHERE") plus its positional arguments, starting
// parameter numbering at argOffset+1 (so callers can prepend their own
// $1..$N arguments, e.g. a tenant/document scope). Constraints are
// AND'd; multiple values within one constraint are OR'd (spec.md §4.3).
func Compile(q *Query, columns *Columns, argOffset int) (sql string, args []any, err error) {
	var clauses []string
	n := argOffset

	for _, c := range q.Constraints {
		clause, clauseArgs, rewritten, err := compileConstraint(c, columns, &n)
		if err != nil {
			return "", nil, err
		}
		_ = rewritten
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}

	if len(clauses) == 0 {
		return "TRUE", nil, nil
	}
	return strings.Join(clauses, " AND "), args, nil
}

func compileConstraint(c Constraint, columns *Columns, n *int) (string, []any, bool, error) {
	if !c.IsFullText {
		if columns.Translator != nil {
			if rewritten, ok := columns.Translator(c.Field, string(c.Op), strings.Join(c.Values, "|")); ok {
				rq, err := Parse(rewritten)
				if err != nil {
					return "", nil, false, err
				}
				sql, args, err := Compile(rq, columns, *n)
				if err != nil {
					return "", nil, false, err
				}
				*n += len(args)
				return sql, args, true, nil
			}
		}
		return filterSQL(c, columns, n)
	}
	return fullTextSQL(c, columns, n)
}

func filterSQL(c Constraint, columns *Columns, n *int) (string, []any, bool, error) {
	col, ok := columns.Lookup(c.Field)
	if !ok {
		return "", nil, false, apperr.New(apperr.KindSearchSyntax, "unknown filter field %q", c.Field)
	}

	var ors []string
	var args []any
	for _, raw := range c.Values {
		value, err := coerce(col, raw)
		if err != nil {
			return "", nil, false, err
		}
		*n++
		placeholder := fmt.Sprintf("$%d%s", *n, sqlCast(col.Type))

		var expr string
		switch c.Op {
		case OpEq:
			expr = fmt.Sprintf("%s = %s", col.SQL, placeholder)
		case OpNe:
			expr = fmt.Sprintf("%s != %s", col.SQL, placeholder)
		case OpLike:
			expr = fmt.Sprintf("%s ILIKE %s", col.SQL, placeholder)
			value = "%" + fmt.Sprint(value) + "%"
		case OpNotLike:
			expr = fmt.Sprintf("%s NOT ILIKE %s", col.SQL, placeholder)
			value = "%" + fmt.Sprint(value) + "%"
		case OpGe:
			expr = fmt.Sprintf("%s >= %s", col.SQL, placeholder)
		case OpGt:
			expr = fmt.Sprintf("%s > %s", col.SQL, placeholder)
		case OpLe:
			expr = fmt.Sprintf("%s <= %s", col.SQL, placeholder)
		case OpLt:
			expr = fmt.Sprintf("%s < %s", col.SQL, placeholder)
		default:
			return "", nil, false, apperr.New(apperr.KindSearchSyntax, "unknown operator %q", c.Op)
		}
		ors = append(ors, expr)
		args = append(args, value)
	}

	if len(ors) == 1 {
		return ors[0], args, false, nil
	}
	return "(" + strings.Join(ors, " OR ") + ")", args, false, nil
}

func fullTextSQL(c Constraint, columns *Columns, n *int) (string, []any, bool, error) {
	stringCols := columns.StringColumns()
	if len(stringCols) == 0 {
		return "", nil, false, apperr.New(apperr.KindSearchSyntax, "no string columns available for full-text search")
	}

	var ors []string
	var args []any
	for _, raw := range c.Values {
		for _, col := range stringCols {
			*n++
			ors = append(ors, fmt.Sprintf("%s ILIKE $%d", col.SQL, *n))
			args = append(args, "%"+raw+"%")
		}
	}
	return "(" + strings.Join(ors, " OR ") + ")", args, false, nil
}

// sqlCast returns the explicit Postgres cast to append to a bound
// parameter placeholder so comparisons against non-string columns don't
// rely on implicit driver coercion (pgx sends filter values as text).
func sqlCast(t ColumnType) string {
	switch t {
	case TypeInteger:
		return "::integer"
	case TypeTimestamp:
		return "::timestamptz"
	case TypeUUID:
		return "::uuid"
	default:
		return ""
	}
}

// coerce checks and normalizes a raw filter value against col's declared
// type. Enum values are checked against col.Variants, so an unknown
// variant surfaces as SearchSyntax, and normalized to the declared
// spelling. String, integer, timestamp and UUID values pass through
// unchanged (ILIKE wrapping is done by the caller); a malformed
// non-string value is not rejected here and fails at the placeholder's
// Postgres cast instead.
func coerce(col Column, raw string) (any, error) {
	switch col.Type {
	case TypeEnum:
		for _, v := range col.Variants {
			if strings.EqualFold(v, raw) {
				return v, nil
			}
		}
		return nil, apperr.New(apperr.KindSearchSyntax, "value %q is not one of %v", raw, col.Variants)
	case TypeInteger, TypeTimestamp, TypeUUID, TypeString:
		return raw, nil
	default:
		return raw, nil
	}
}

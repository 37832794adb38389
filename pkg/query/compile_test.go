package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testColumns() *Columns {
	return NewColumns().
		Add("title", Column{SQL: "advisory.title", Type: TypeString}).
		Add("identifier", Column{SQL: "advisory.identifier", Type: TypeString}).
		Add("severity", Column{SQL: "advisory.severity", Type: TypeEnum, Variants: []string{"low", "medium", "high", "critical"}}).
		Add("score", Column{SQL: "advisory.score", Type: TypeInteger}).
		Add("modified", Column{SQL: "advisory.modified", Type: TypeTimestamp})
}

func TestCompileEqFilter(t *testing.T) {
	q, err := Parse("severity=critical")
	require.NoError(t, err)

	sql, args, err := Compile(q, testColumns(), 0)
	require.NoError(t, err)
	assert.Equal(t, "advisory.severity = $1", sql)
	assert.Equal(t, []any{"critical"}, args)
}

func TestCompileRejectsUnknownField(t *testing.T) {
	q, err := Parse("bogus=1")
	require.NoError(t, err)

	_, _, err = Compile(q, testColumns(), 0)
	require.Error(t, err)
}

func TestCompileRejectsInvalidEnumValue(t *testing.T) {
	q, err := Parse("severity=nonsense")
	require.NoError(t, err)

	_, _, err = Compile(q, testColumns(), 0)
	require.Error(t, err)
}

func TestCompileOrValuesFoldIntoOr(t *testing.T) {
	q, err := Parse("severity=high|critical")
	require.NoError(t, err)

	sql, args, err := Compile(q, testColumns(), 0)
	require.NoError(t, err)
	assert.Equal(t, "(advisory.severity = $1 OR advisory.severity = $2)", sql)
	assert.Equal(t, []any{"high", "critical"}, args)
}

func TestCompileMultipleConstraintsFoldIntoAnd(t *testing.T) {
	q, err := Parse("severity=critical&score>=7")
	require.NoError(t, err)

	sql, args, err := Compile(q, testColumns(), 0)
	require.NoError(t, err)
	assert.Equal(t, "advisory.severity = $1 AND advisory.score >= $2::integer", sql)
	assert.Equal(t, []any{"critical", "7"}, args)
}

func TestCompileLikeWrapsValueInWildcards(t *testing.T) {
	q, err := Parse("title~log4j")
	require.NoError(t, err)

	sql, args, err := Compile(q, testColumns(), 0)
	require.NoError(t, err)
	assert.Equal(t, "advisory.title ILIKE $1", sql)
	assert.Equal(t, []any{"%log4j%"}, args)
}

func TestCompileFullTextSearchesAllStringColumns(t *testing.T) {
	q, err := Parse("log4j")
	require.NoError(t, err)

	sql, args, err := Compile(q, testColumns(), 0)
	require.NoError(t, err)
	assert.Equal(t, "(advisory.title ILIKE $1 OR advisory.identifier ILIKE $2)", sql)
	assert.Equal(t, []any{"%log4j%", "%log4j%"}, args)
}

func TestCompileEmptyQueryIsTrue(t *testing.T) {
	q, err := Parse("")
	require.NoError(t, err)

	sql, args, err := Compile(q, testColumns(), 0)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", sql)
	assert.Empty(t, args)
}

func TestCompileTranslatorRewritesVirtualField(t *testing.T) {
	columns := testColumns()
	columns.Translator = func(field, op, value string) (string, bool) {
		if field == "severity" && op == "=" && value == "medium" {
			return "score>=3&score<6", true
		}
		return "", false
	}

	q, err := Parse("severity=medium")
	require.NoError(t, err)

	sql, args, err := Compile(q, columns, 0)
	require.NoError(t, err)
	assert.Equal(t, "advisory.score >= $1::integer AND advisory.score < $2::integer", sql)
	assert.Equal(t, []any{"3", "6"}, args)
}

func TestCompileArgOffsetContinuesNumbering(t *testing.T) {
	q, err := Parse("severity=critical")
	require.NoError(t, err)

	sql, _, err := Compile(q, testColumns(), 2)
	require.NoError(t, err)
	assert.Equal(t, "advisory.severity = $3", sql)
}

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	q, err := Parse("severity=critical")
	require.NoError(t, err)
	require.Len(t, q.Constraints, 1)

	c := q.Constraints[0]
	assert.False(t, c.IsFullText)
	assert.Equal(t, "severity", c.Field)
	assert.Equal(t, OpEq, c.Op)
	assert.Equal(t, []string{"critical"}, c.Values)
}

func TestParseFilterWithOrValues(t *testing.T) {
	q, err := Parse("severity=critical|high")
	require.NoError(t, err)
	require.Len(t, q.Constraints, 1)
	assert.Equal(t, []string{"critical", "high"}, q.Constraints[0].Values)
}

func TestParseMultipleConstraintsAnded(t *testing.T) {
	q, err := Parse("severity=critical&modified>=2024-01-01")
	require.NoError(t, err)
	require.Len(t, q.Constraints, 2)
	assert.Equal(t, "severity", q.Constraints[0].Field)
	assert.Equal(t, OpGe, q.Constraints[1].Op)
}

func TestParseFullTextTerm(t *testing.T) {
	q, err := Parse("log4j")
	require.NoError(t, err)
	require.Len(t, q.Constraints, 1)
	assert.True(t, q.Constraints[0].IsFullText)
	assert.Equal(t, []string{"log4j"}, q.Constraints[0].Values)
}

func TestParseDistinguishesOperators(t *testing.T) {
	cases := map[string]Op{
		"f=v":  OpEq,
		"f!=v": OpNe,
		"f~v":  OpLike,
		"f!~v": OpNotLike,
		"f>=v": OpGe,
		"f>v":  OpGt,
		"f<=v": OpLe,
		"f<v":  OpLt,
	}
	for raw, want := range cases {
		q, err := Parse(raw)
		require.NoError(t, err, raw)
		require.Len(t, q.Constraints, 1, raw)
		assert.Equal(t, want, q.Constraints[0].Op, raw)
	}
}

func TestParseEscapedPipeAndAmpersand(t *testing.T) {
	q, err := Parse(`name=foo\|bar`)
	require.NoError(t, err)
	require.Len(t, q.Constraints, 1)
	assert.Equal(t, []string{"foo|bar"}, q.Constraints[0].Values)

	q, err = Parse(`name=foo\&bar`)
	require.NoError(t, err)
	require.Len(t, q.Constraints, 1)
	assert.Equal(t, []string{"foo&bar"}, q.Constraints[0].Values)
}

func TestParseEmptyQuery(t *testing.T) {
	q, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, q.Constraints)
}

func TestParseRenderRoundTrip(t *testing.T) {
	raw := "severity=critical|high&name~log4j"
	q, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, q.render())
}

func TestParseRejectsFilterWithNoValue(t *testing.T) {
	_, err := Parse("severity=")
	require.Error(t, err)
}

package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCpeBasic(t *testing.T) {
	c, err := ParseCpe("cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*")
	require.NoError(t, err)

	assert.Equal(t, "a", c.Part)
	assert.Equal(t, "apache", c.Vendor)
	assert.Equal(t, "log4j", c.Product)
	assert.Equal(t, "2.14.1", c.Version)
	assert.Equal(t, "*", c.Update)
}

func TestParseCpeRejectsNonCpe23(t *testing.T) {
	_, err := ParseCpe("not-a-cpe")
	require.Error(t, err)
}

func TestParseCpeRejectsWrongVersion(t *testing.T) {
	_, err := ParseCpe("cpe:2.2:a:apache:log4j")
	require.Error(t, err)
}

func TestCpeMatchesWildcardVersion(t *testing.T) {
	concrete, err := ParseCpe("cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*")
	require.NoError(t, err)
	pattern, err := ParseCpe("cpe:2.3:a:apache:log4j:*:*:*:*:*:*:*:*")
	require.NoError(t, err)

	assert.True(t, concrete.Matches(pattern))
}

func TestCpeMatchesExactVersionMismatch(t *testing.T) {
	concrete, err := ParseCpe("cpe:2.3:a:apache:log4j:2.17.0:*:*:*:*:*:*:*")
	require.NoError(t, err)
	pattern, err := ParseCpe("cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*")
	require.NoError(t, err)

	assert.False(t, concrete.Matches(pattern))
}

func TestCpeMatchesGlobPattern(t *testing.T) {
	concrete, err := ParseCpe("cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*")
	require.NoError(t, err)
	pattern, err := ParseCpe("cpe:2.3:a:apache:log4j:2.14.*:*:*:*:*:*:*")
	require.NoError(t, err)

	assert.True(t, concrete.Matches(pattern))
}

func TestCpeMatchesWildcardStoredOnValueSide(t *testing.T) {
	concrete, err := ParseCpe("cpe:2.3:a:apache:log4j:*:*:*:*:*:*:*:*")
	require.NoError(t, err)
	pattern, err := ParseCpe("cpe:2.3:a:apache:log4j:2.17.0:*:*:*:*:*:*:*")
	require.NoError(t, err)

	assert.True(t, concrete.Matches(pattern), "a wildcard on either side must match any value on the other")
}

func TestCpeMatchesNAOnlyMatchesLiteralDash(t *testing.T) {
	concrete, err := ParseCpe("cpe:2.3:a:vendor:product:1.0:-:*:*:*:*:*:*")
	require.NoError(t, err)
	pattern, err := ParseCpe("cpe:2.3:a:vendor:product:1.0:-:*:*:*:*:*:*")
	require.NoError(t, err)
	assert.True(t, concrete.Matches(pattern))

	other, err := ParseCpe("cpe:2.3:a:vendor:product:1.0:sp1:*:*:*:*:*:*")
	require.NoError(t, err)
	assert.False(t, other.Matches(pattern))
}

func TestCpeStringRoundTrips(t *testing.T) {
	raw := "cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*"
	c, err := ParseCpe(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, c.String())
}

func TestCpeUUIDDeterministic(t *testing.T) {
	a, err := ParseCpe("cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*")
	require.NoError(t, err)
	b, err := ParseCpe("cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*")
	require.NoError(t, err)
	assert.Equal(t, a.UUID, b.UUID)
}

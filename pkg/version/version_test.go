package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsExact(t *testing.T) {
	vi := VersionInfo{Scheme: Semver, Spec: ExactSpec("1.2.3")}
	assert.True(t, vi.Contains("1.2.3"))
	assert.False(t, vi.Contains("1.2.4"))
}

func TestContainsUnboundedRangeMatchesEverything(t *testing.T) {
	vi := VersionInfo{Scheme: Generic, Spec: UnboundedSpec()}
	assert.True(t, vi.Contains("0.0.1"))
	assert.True(t, vi.Contains("99.99.99"))
}

func TestContainsSemverRange(t *testing.T) {
	vi := VersionInfo{
		Scheme: Semver,
		Spec: RangeSpec(
			Endpoint{Kind: Inclusive, Value: "2.0.0"},
			Endpoint{Kind: Exclusive, Value: "2.17.0"},
		),
	}
	assert.True(t, vi.Contains("2.0.0"))
	assert.True(t, vi.Contains("2.14.1"))
	assert.False(t, vi.Contains("2.17.0"))
	assert.False(t, vi.Contains("1.9.9"))
}

func TestContainsOneSidedRange(t *testing.T) {
	vi := VersionInfo{
		Scheme: Semver,
		Spec:   RangeSpec(Endpoint{Kind: Unbounded}, Endpoint{Kind: Exclusive, Value: "3.0.0"}),
	}
	assert.True(t, vi.Contains("0.0.1"))
	assert.False(t, vi.Contains("3.0.0"))
}

func TestMavenEqualityOfTrailingZero(t *testing.T) {
	assert.Equal(t, 0, compareMaven("1.0", "1.0.0"))
	assert.Equal(t, 0, compareMaven("1.0", "1.0-ga"))
}

func TestMavenQualifierOrdering(t *testing.T) {
	assert.True(t, compareMaven("1.0-alpha", "1.0-beta") < 0)
	assert.True(t, compareMaven("1.0-beta", "1.0") < 0)
	assert.True(t, compareMaven("1.0", "1.0-sp") < 0)
}

func TestRpmVerCmpNumeric(t *testing.T) {
	assert.True(t, compareRpm("1.0.1", "1.0.2") < 0)
	assert.Equal(t, 0, compareRpm("1.01", "1.1"))
	assert.True(t, compareRpm("2.0", "11.0") < 0)
}

func TestRpmVerCmpTilde(t *testing.T) {
	assert.True(t, compareRpm("1.0~rc1", "1.0") < 0)
	assert.True(t, compareRpm("1.0~rc1", "1.0~rc2") < 0)
}

func TestGenericFallbackForInvalidSemver(t *testing.T) {
	// "not-a-version" can't parse as semver; comparator must not panic
	// and must fall back to the generic order (spec.md §4.2).
	assert.NotPanics(t, func() {
		compareSemver("not-a-version", "1.0.0")
	})
	assert.Equal(t, compareGeneric("not-a-version", "1.0.0"), compareSemver("not-a-version", "1.0.0"))
}

func TestPythonPreReleaseOrdering(t *testing.T) {
	assert.True(t, comparePython("1.0.dev1", "1.0a1") < 0)
	assert.True(t, comparePython("1.0a1", "1.0b1") < 0)
	assert.True(t, comparePython("1.0rc1", "1.0") < 0)
	assert.True(t, comparePython("1.0", "1.0.post1") < 0)
}

func TestGenericComparesNumericAndAlphaSegments(t *testing.T) {
	assert.True(t, compareGeneric("1.2", "1.10") < 0)
	assert.True(t, compareGeneric("1.2", "1.2.1") < 0)
	assert.Equal(t, 0, compareGeneric("1.2.0", "1.2.0"))
}

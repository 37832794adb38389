package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustify/trustify/pkg/version"
)

func TestPrimaryVulnerabilityIDPrefersCVEAlias(t *testing.T) {
	doc := osvDocument{ID: "GHSA-xxxx-yyyy-zzzz", Aliases: []string{"GHSA-other", "CVE-2023-12345"}}
	assert.Equal(t, "CVE-2023-12345", primaryVulnerabilityID(doc))
}

func TestPrimaryVulnerabilityIDFallsBackToID(t *testing.T) {
	doc := osvDocument{ID: "RUSTSEC-2023-0001", Aliases: []string{"GHSA-other"}}
	assert.Equal(t, "RUSTSEC-2023-0001", primaryVulnerabilityID(doc))
}

func TestOsvRangeSpecsUnboundedLowerToFixed(t *testing.T) {
	events := []osvEvent{
		{Introduced: "0"},
		{Fixed: "2.0.0"},
	}
	specs := osvRangeSpecs(events)
	require.Len(t, specs, 1)
	assert.Equal(t, version.Unbounded, specs[0].Lo.Kind)
	assert.Equal(t, version.Exclusive, specs[0].Hi.Kind)
	assert.Equal(t, "2.0.0", specs[0].Hi.Value)
}

func TestOsvRangeSpecsMultipleIntervals(t *testing.T) {
	events := []osvEvent{
		{Introduced: "1.0.0"},
		{Fixed: "1.5.0"},
		{Introduced: "2.0.0"},
		{Fixed: "2.5.0"},
	}
	specs := osvRangeSpecs(events)
	require.Len(t, specs, 2)
	assert.Equal(t, "1.0.0", specs[0].Lo.Value)
	assert.Equal(t, "1.5.0", specs[0].Hi.Value)
	assert.Equal(t, "2.0.0", specs[1].Lo.Value)
	assert.Equal(t, "2.5.0", specs[1].Hi.Value)
}

func TestOsvRangeSpecsTrailingIntroducedIsUnboundedAbove(t *testing.T) {
	events := []osvEvent{{Introduced: "3.0.0"}}
	specs := osvRangeSpecs(events)
	require.Len(t, specs, 1)
	assert.Equal(t, version.Unbounded, specs[0].Hi.Kind)
}

func TestResolveOsvPurlPrefersExplicitPurl(t *testing.T) {
	p, err := resolveOsvPurl(osvPackage{Ecosystem: "npm", Name: "left-pad", Purl: "pkg:npm/left-pad"})
	require.NoError(t, err)
	assert.Equal(t, "npm", p.Type)
	assert.Equal(t, "left-pad", p.Name)
}

func TestResolveOsvPurlSynthesizesMavenNamespace(t *testing.T) {
	p, err := resolveOsvPurl(osvPackage{Ecosystem: "Maven", Name: "org.apache.logging.log4j:log4j-core"})
	require.NoError(t, err)
	assert.Equal(t, "maven", p.Type)
	assert.Equal(t, "org.apache.logging.log4j", p.Namespace)
	assert.Equal(t, "log4j-core", p.Name)
}

func TestResolveOsvPurlUnknownEcosystemErrors(t *testing.T) {
	_, err := resolveOsvPurl(osvPackage{Ecosystem: "SomeMadeUpEcosystem", Name: "thing"})
	assert.Error(t, err)
}

func TestOsvRangeSchemeSemverIgnoresEcosystem(t *testing.T) {
	scheme, ok := osvRangeScheme("SEMVER", "Debian")
	require.True(t, ok)
	assert.Equal(t, version.Semver, scheme)
}

func TestOsvRangeSchemeGitIsRejected(t *testing.T) {
	_, ok := osvRangeScheme("GIT", "Go")
	assert.False(t, ok)
}

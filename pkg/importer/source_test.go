package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelopeRequiresKind(t *testing.T) {
	_, err := parseEnvelope([]byte(`{}`))
	require.Error(t, err)
}

func TestParseEnvelopeReadsKindAndLabels(t *testing.T) {
	env, err := parseEnvelope([]byte(`{"kind":"git","labels":{"team":"platform"}}`))
	require.NoError(t, err)
	assert.Equal(t, SourceGit, env.Kind)
	assert.Equal(t, "platform", env.Labels["team"])
}

func TestParseGitConfigDefaultsBranchToMain(t *testing.T) {
	cfg, err := parseGitConfig([]byte(`{"url":"https://example.com/repo.git"}`))
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Branch)
}

func TestParseGitConfigRequiresURL(t *testing.T) {
	_, err := parseGitConfig([]byte(`{}`))
	require.Error(t, err)
}

func TestParseHTTPConfigRequiresURL(t *testing.T) {
	_, err := parseHTTPConfig([]byte(`{}`))
	require.Error(t, err)
}

func TestParseQuayConfigRequiresNamespace(t *testing.T) {
	_, err := parseQuayConfig([]byte(`{}`))
	require.Error(t, err)
}

func TestWorkDirForNamespacesByImporterName(t *testing.T) {
	a := workDirFor("/var/trustify", "osv")
	b := workDirFor("/var/trustify", "ghsa")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "osv")
}

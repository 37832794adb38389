package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustify/trustify/pkg/version"
)

func TestResolveCvePurlPrefersCollectionURL(t *testing.T) {
	p, err := resolveCvePurl(cveAffected{
		Product:       "left-pad",
		CollectionURL: "https://www.npmjs.com/package/left-pad",
	})
	require.NoError(t, err)
	assert.Equal(t, "npm", p.Type)
	assert.Equal(t, "left-pad", p.Name)
}

func TestResolveCvePurlFallsBackToGenericWithVendorNamespace(t *testing.T) {
	p, err := resolveCvePurl(cveAffected{Vendor: "example-corp", Product: "widget"})
	require.NoError(t, err)
	assert.Equal(t, "generic", p.Type)
	assert.Equal(t, "example-corp", p.Namespace)
	assert.Equal(t, "widget", p.Name)
}

func TestResolveCvePurlErrorsOnNoProduct(t *testing.T) {
	_, err := resolveCvePurl(cveAffected{})
	assert.Error(t, err)
}

func TestConvertCveAffectedLessThanBuildsExclusiveRange(t *testing.T) {
	aff := cveAffected{
		Product: "widget",
		Versions: []cveVersionRange{
			{Version: "1.0.0", Status: "affected", LessThan: "2.0.0", VersionType: "semver"},
		},
	}
	claims, warnings := convertCveAffected(aff)
	assert.Empty(t, warnings)
	require.Len(t, claims, 1)
	assert.Equal(t, "affected", claims[0].Status)
	assert.Equal(t, version.Semver, claims[0].VersionInfo.Scheme)
	assert.Equal(t, version.Inclusive, claims[0].VersionInfo.Spec.Lo.Kind)
	assert.Equal(t, "1.0.0", claims[0].VersionInfo.Spec.Lo.Value)
	assert.Equal(t, version.Exclusive, claims[0].VersionInfo.Spec.Hi.Kind)
	assert.Equal(t, "2.0.0", claims[0].VersionInfo.Spec.Hi.Value)
}

func TestConvertCveAffectedUnaffectedStatusMaps(t *testing.T) {
	aff := cveAffected{
		Product: "widget",
		Versions: []cveVersionRange{
			{Version: "3.0.0", Status: "unaffected"},
		},
	}
	claims, _ := convertCveAffected(aff)
	require.Len(t, claims, 1)
	assert.Equal(t, "not_affected", claims[0].Status)
	assert.True(t, claims[0].VersionInfo.Spec.IsExact)
}

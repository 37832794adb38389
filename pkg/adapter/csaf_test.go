package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustify/trustify/pkg/version"
)

func TestWalkCsafBranchesResolvesPurlByProductID(t *testing.T) {
	branches := []csafBranch{
		{
			Category: "vendor",
			Name:     "Example Vendor",
			Branches: []csafBranch{
				{
					Category: "product_name",
					Name:     "Example Product",
					Branches: []csafBranch{
						{
							Category: "product_version",
							Name:     "1.2.3",
							Product: &csafFullProductName{
								ProductID: "CSAFPID-1",
								ProductIdentificationHelper: &csafIDHelper{
									Purl: "pkg:generic/example-product@1.2.3",
								},
							},
						},
					},
				},
			},
		},
	}

	out := make(map[string]productStatus)
	walkCsafBranches(branches, productStatus{}, out)

	ps, ok := out["CSAFPID-1"]
	require.True(t, ok)
	assert.Equal(t, "Example Vendor", ps.vendor)
	assert.Equal(t, "Example Product", ps.product)
	require.Len(t, ps.purls, 1)
	assert.Equal(t, "pkg:generic/example-product@1.2.3", ps.purls[0])
}

func TestApplyCsafVersionWildcardCpeIsUnbounded(t *testing.T) {
	ps := &productStatus{}
	applyCsafVersion(ps, &csafFullProductName{
		ProductIdentificationHelper: &csafIDHelper{CPE: "cpe:2.3:a:example:product:*:*:*:*:*:*:*:*"},
	})
	require.NotNil(t, ps.version)
	assert.Equal(t, version.Semver, ps.version.Scheme)
	assert.Equal(t, version.Unbounded, ps.version.Spec.Lo.Kind)
	assert.Equal(t, version.Unbounded, ps.version.Spec.Hi.Kind)
}

func TestApplyCsafVersionExpandsNextMajor(t *testing.T) {
	ps := &productStatus{}
	applyCsafVersion(ps, &csafFullProductName{
		ProductIdentificationHelper: &csafIDHelper{CPE: "cpe:2.3:a:example:product:2:*:*:*:*:*:*:*"},
	})
	require.NotNil(t, ps.version)
	assert.Equal(t, version.Semver, ps.version.Scheme)
	assert.Equal(t, version.Inclusive, ps.version.Spec.Lo.Kind)
	assert.Equal(t, version.Exclusive, ps.version.Spec.Hi.Kind)
	assert.Equal(t, "3.0.0", ps.version.Spec.Hi.Value)
}

func TestApplyCsafVersionFallsBackToExactOnUnparsableSemver(t *testing.T) {
	ps := &productStatus{}
	applyCsafVersion(ps, &csafFullProductName{
		ProductIdentificationHelper: &csafIDHelper{CPE: "cpe:2.3:a:example:product:not_a_version:*:*:*:*:*:*:*"},
	})
	require.NotNil(t, ps.version)
	assert.Equal(t, version.Generic, ps.version.Scheme)
	assert.True(t, ps.version.Spec.IsExact)
	assert.Equal(t, "not_a_version", ps.version.Spec.Exact)
}

func TestCsafProductClaimsSkipsProductsWithNoPurl(t *testing.T) {
	ps := productStatus{product: "cpe-only-product"}
	claims, warnings := csafProductClaims(ps, "affected")
	assert.Empty(t, claims)
	assert.Len(t, warnings, 1)
}

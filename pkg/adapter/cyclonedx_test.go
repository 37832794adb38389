package adapter

import (
	"testing"

	cyclonedx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustify/trustify/pkg/creator"
)

func TestBomRefOfUsesExplicitRef(t *testing.T) {
	c := cyclonedx.Component{BOMRef: "comp-1", Name: "log4j-core"}
	assert.Equal(t, "comp-1", bomRefOf(&c))
}

func TestBomRefOfGeneratesStableFallback(t *testing.T) {
	c := cyclonedx.Component{Name: "root", Version: "1.0"}
	first := bomRefOf(&c)
	second := bomRefOf(&c)
	assert.Equal(t, first, second, "fallback ref must be deterministic for the same component")
	assert.Contains(t, first, "CycloneDX-root-")
}

func TestLicenseChoiceExpressionPrefersExpression(t *testing.T) {
	lc := cyclonedx.LicenseChoice{Expression: "Apache-2.0 OR MIT"}
	assert.Equal(t, "Apache-2.0 OR MIT", licenseChoiceExpression(lc))
}

func TestLicenseChoiceExpressionFallsBackToLicenseID(t *testing.T) {
	lc := cyclonedx.LicenseChoice{License: &cyclonedx.License{ID: "Apache-2.0"}}
	assert.Equal(t, "Apache-2.0", licenseChoiceExpression(lc))
}

func TestAddCdxComponentTreeLinksContainedBy(t *testing.T) {
	sbomID := uuid.New()
	out := &SbomDocument{Creator: creator.NewCreator(cycloneDXDocRef)}

	child := cyclonedx.Component{BOMRef: "child-1", Name: "child"}
	parent := cyclonedx.Component{BOMRef: "parent-1", Name: "parent", Components: &[]cyclonedx.Component{child}}

	addCdxComponentTree(out, sbomID, parent, func(string) uuid.UUID { return uuid.Nil })

	require.Equal(t, 1, out.Creator.Relationship.Len())
}

func TestAddCdxDependencyEdgesMapsDependsOnAndProvides(t *testing.T) {
	sbomID := uuid.New()
	deps := []cyclonedx.Dependency{
		{Ref: "root", Dependencies: &[]string{"leaf"}, Provides: &[]string{"capability"}},
	}
	bom := cyclonedx.BOM{Dependencies: &deps}

	out := &SbomDocument{Creator: creator.NewCreator(cycloneDXDocRef)}
	addCdxDependencyEdges(out, sbomID, &bom)

	require.Equal(t, 2, out.Creator.Relationship.Len())
}

package creator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/identifier"
)

func TestCreatorFlushesInDependencyOrder(t *testing.T) {
	sbomID := uuid.New()
	cr := NewCreator("SPDXRef-DOCUMENT")

	cr.Purl.Add(identifier.NewPurl("maven", "org.apache.logging.log4j", "log4j-core", "2.14.1", nil))
	cr.Cpe.Add(newTestCpe(t, "cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*"))
	cr.Package.AddNode(graph.SbomNode{SbomID: sbomID, NodeID: "SPDXRef-log4j", Name: "log4j-core"})
	cr.Package.AddPackage(graph.SbomPackage{SbomID: sbomID, NodeID: "SPDXRef-log4j", Group: "org.apache.logging.log4j", Version: "2.14.1"})
	cr.Relationship.Add(graph.PackageRelatesToPackage{
		SbomID: sbomID, LeftNodeID: "SPDXRef-log4j", Relationship: graph.RelDescribes, RightNodeID: "SPDXRef-DOCUMENT",
	})

	conn := &fakeConn{}
	require.NoError(t, cr.Create(context.Background(), conn, sbomID.String()))

	var order []string
	for _, e := range conn.execs {
		order = append(order, e.sql[:18])
	}
	// base_purl, versioned_purl, qualified_purl, cpe, sbom_node, sbom_package, package_relates_to_package
	require.Len(t, order, 7)
	assert.Equal(t, "INSERT INTO base_p", order[0])
	assert.Equal(t, "INSERT INTO versio", order[1])
	assert.Equal(t, "INSERT INTO qualif", order[2])
	assert.Equal(t, "INSERT INTO cpe (i", order[3])
	assert.Equal(t, "INSERT INTO sbom_n", order[4])
	assert.Equal(t, "INSERT INTO sbom_p", order[5])
	assert.Equal(t, "INSERT INTO packag", order[6])
}

func TestCreatorAbortsOnInvalidReferenceBeforeWritingAnything(t *testing.T) {
	sbomID := uuid.New()
	cr := NewCreator("SPDXRef-DOCUMENT")

	cr.Purl.Add(identifier.NewPurl("npm", "", "left-pad", "1.3.0", nil))
	cr.Relationship.Add(graph.PackageRelatesToPackage{
		SbomID: sbomID, LeftNodeID: "SPDXRef-ghost", Relationship: graph.RelDependencyOf, RightNodeID: "SPDXRef-DOCUMENT",
	})

	conn := &fakeConn{}
	err := cr.Create(context.Background(), conn, sbomID.String())

	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidReference, apperr.KindOf(err))
	assert.Empty(t, conn.execs, "no rows should be written when reference validation fails")
}

package creator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/graph"
)

func TestRelationshipCreatorValidateKnownNode(t *testing.T) {
	sbomID := uuid.New()
	c := NewRelationshipCreator()
	c.Add(graph.PackageRelatesToPackage{SbomID: sbomID, LeftNodeID: "a", Relationship: graph.RelDependencyOf, RightNodeID: "b"})

	known := map[string]struct{}{"a": {}, "b": {}}
	assert.NoError(t, c.Validate("SPDXRef-DOCUMENT", known))
}

func TestRelationshipCreatorValidateDocumentNode(t *testing.T) {
	sbomID := uuid.New()
	c := NewRelationshipCreator()
	c.Add(graph.PackageRelatesToPackage{SbomID: sbomID, LeftNodeID: "a", Relationship: graph.RelDescribes, RightNodeID: "SPDXRef-DOCUMENT"})

	known := map[string]struct{}{"a": {}}
	assert.NoError(t, c.Validate("SPDXRef-DOCUMENT", known))
}

func TestRelationshipCreatorValidateExternalRef(t *testing.T) {
	sbomID := uuid.New()
	c := NewRelationshipCreator()
	c.Add(graph.PackageRelatesToPackage{SbomID: sbomID, LeftNodeID: "a", Relationship: graph.RelDependencyOf, RightNodeID: "DocumentRef-external:SPDXRef-thing"})

	known := map[string]struct{}{"a": {}}
	assert.NoError(t, c.Validate("SPDXRef-DOCUMENT", known))
}

func TestRelationshipCreatorValidateUnresolvedReference(t *testing.T) {
	sbomID := uuid.New()
	c := NewRelationshipCreator()
	c.Add(graph.PackageRelatesToPackage{SbomID: sbomID, LeftNodeID: "a", Relationship: graph.RelDependencyOf, RightNodeID: "ghost"})

	known := map[string]struct{}{"a": {}}
	err := c.Validate("SPDXRef-DOCUMENT", known)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidReference, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "ghost")
}

func TestRelationshipCreatorCreate(t *testing.T) {
	sbomID := uuid.New()
	c := NewRelationshipCreator()
	c.Add(graph.PackageRelatesToPackage{SbomID: sbomID, LeftNodeID: "a", Relationship: graph.RelDependencyOf, RightNodeID: "b"})
	c.Add(graph.PackageRelatesToPackage{SbomID: sbomID, LeftNodeID: "c", Relationship: graph.RelContainedBy, RightNodeID: "a"})

	conn := &fakeConn{}
	require.NoError(t, c.Create(context.Background(), conn))

	require.Len(t, conn.execs, 1)
	assert.Contains(t, conn.execs[0].sql, "INSERT INTO package_relates_to_package")
	assert.Len(t, conn.execs[0].args, 8) // 2 rows * 4 cols
}

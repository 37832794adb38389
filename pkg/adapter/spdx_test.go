package adapter

import (
	"testing"

	"github.com/google/uuid"
	"github.com/spdx/tools-golang/spdx/v2/common"
	"github.com/spdx/tools-golang/spdx/v2/v2_3"
	"github.com/stretchr/testify/assert"
)

func TestDocElementIDStringLocal(t *testing.T) {
	id := common.DocElementID{ElementRefID: "SPDXRef-log4j"}
	assert.Equal(t, "SPDXRef-log4j", docElementIDString(id))
}

func TestDocElementIDStringExternal(t *testing.T) {
	id := common.DocElementID{DocumentRefID: "external", ElementRefID: "SPDXRef-thing"}
	assert.Equal(t, "DocumentRef-external:SPDXRef-thing", docElementIDString(id))
}

func TestDocElementIDStringSpecial(t *testing.T) {
	id := common.DocElementID{SpecialID: "NOASSERTION"}
	assert.Equal(t, "NOASSERTION", docElementIDString(id))
}

func TestConvertSpdxRelationshipDescribesSwaps(t *testing.T) {
	sbomID := uuid.New()
	rel := &v2_3.Relationship{
		RefA:         common.DocElementID{ElementRefID: "SPDXRef-DOCUMENT"},
		RefB:         common.DocElementID{ElementRefID: "SPDXRef-log4j"},
		Relationship: "DESCRIBES",
	}
	edge, ok := convertSpdxRelationship(sbomID, rel)
	assert.True(t, ok)
	assert.Equal(t, "SPDXRef-log4j", edge.LeftNodeID)
	assert.Equal(t, "SPDXRef-DOCUMENT", edge.RightNodeID)
	assert.Equal(t, "DescribedBy", string(edge.Relationship))
}

func TestConvertSpdxRelationshipDependencyOfDirect(t *testing.T) {
	sbomID := uuid.New()
	rel := &v2_3.Relationship{
		RefA:         common.DocElementID{ElementRefID: "SPDXRef-a"},
		RefB:         common.DocElementID{ElementRefID: "SPDXRef-b"},
		Relationship: "DEPENDENCY_OF",
	}
	edge, ok := convertSpdxRelationship(sbomID, rel)
	assert.True(t, ok)
	assert.Equal(t, "SPDXRef-a", edge.LeftNodeID)
	assert.Equal(t, "SPDXRef-b", edge.RightNodeID)
}

func TestConvertSpdxRelationshipDependsOnSwaps(t *testing.T) {
	sbomID := uuid.New()
	rel := &v2_3.Relationship{
		RefA:         common.DocElementID{ElementRefID: "SPDXRef-a"},
		RefB:         common.DocElementID{ElementRefID: "SPDXRef-b"},
		Relationship: "DEPENDS_ON",
	}
	edge, ok := convertSpdxRelationship(sbomID, rel)
	assert.True(t, ok)
	// "a DEPENDS_ON b" means b is a's dependency, i.e. "b DependencyOf a".
	assert.Equal(t, "SPDXRef-b", edge.LeftNodeID)
	assert.Equal(t, "SPDXRef-a", edge.RightNodeID)
}

func TestConvertSpdxRelationshipUnknownTypeIsRejected(t *testing.T) {
	rel := &v2_3.Relationship{Relationship: "SOMETHING_MADE_UP"}
	_, ok := convertSpdxRelationship(uuid.New(), rel)
	assert.False(t, ok)
}

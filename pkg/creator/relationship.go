package creator

import (
	"context"
	"strings"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/graph"
)

// externalRefPrefix marks an SPDX external document reference, which is
// never a node_id local to the SBOM being ingested and so is exempt
// from the local-node validation RelationshipCreator otherwise enforces.
const externalRefPrefix = "DocumentRef-"

// RelationshipCreator buffers package_relates_to_package edges and
// validates, before flushing, that every node_id an edge names is
// resolvable (spec.md §4.5): either a node the same batch already
// defines, the SBOM's own document node, or an SPDX external reference.
type RelationshipCreator struct {
	edges []graph.PackageRelatesToPackage
}

// NewRelationshipCreator returns an empty RelationshipCreator.
func NewRelationshipCreator() *RelationshipCreator {
	return &RelationshipCreator{}
}

// Add buffers one edge for the next Create call.
func (c *RelationshipCreator) Add(e graph.PackageRelatesToPackage) {
	c.edges = append(c.edges, e)
}

// Len reports how many edges are buffered.
func (c *RelationshipCreator) Len() int { return len(c.edges) }

// Validate checks every buffered edge's endpoints against knownNodes
// (the batch's own node_ids) and documentNodeID (the SBOM's describes
// root), allowing SPDX DocumentRef- externals through unchecked. It
// returns the first unresolved reference as a KindInvalidReference
// error, matching spec.md §4.5's "Invalid reference" abort semantics.
func (c *RelationshipCreator) Validate(documentNodeID string, knownNodes map[string]struct{}) error {
	resolvable := func(nodeID string) bool {
		if nodeID == documentNodeID {
			return true
		}
		if strings.HasPrefix(nodeID, externalRefPrefix) {
			return true
		}
		_, ok := knownNodes[nodeID]
		return ok
	}

	for _, e := range c.edges {
		if !resolvable(e.LeftNodeID) {
			return apperr.New(apperr.KindInvalidReference, "invalid reference: node %q in sbom %s is not defined", e.LeftNodeID, e.SbomID)
		}
		if !resolvable(e.RightNodeID) {
			return apperr.New(apperr.KindInvalidReference, "invalid reference: node %q in sbom %s is not defined", e.RightNodeID, e.SbomID)
		}
	}
	return nil
}

// Create flushes the buffered edges. Callers must invoke Validate first;
// Create itself performs no reference checking, only persistence.
func (c *RelationshipCreator) Create(ctx context.Context, db graph.Connectable) error {
	const cols = 4
	for _, rng := range chunkIndices(len(c.edges), chunkSize(cols)) {
		var sb strings.Builder
		sb.WriteString("INSERT INTO package_relates_to_package (sbom_id, left_node_id, relationship, right_node_id) VALUES ")
		var args []any
		for i := rng[0]; i < rng[1]; i++ {
			e := c.edges[i]
			writePlaceholderGroup(&sb, len(args), cols, i > rng[0])
			args = append(args, e.SbomID, e.LeftNodeID, e.Relationship, e.RightNodeID)
		}
		sb.WriteString(" ON CONFLICT DO NOTHING")
		if _, err := db.Exec(ctx, sb.String(), args...); err != nil {
			return apperr.Wrap(apperr.KindDatabase, err, "batch insert package_relates_to_package")
		}
	}
	return nil
}

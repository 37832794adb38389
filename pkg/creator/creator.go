package creator

import (
	"context"

	"github.com/trustify/trustify/pkg/graph"
)

// Creator bundles the four sub-creators an adapter pass fills while
// walking one source document, and flushes them in the dependency
// order spec.md §4.5 guarantees: Purl, then Cpe, then Package (nodes
// and their specializations), then Relationship (edges between nodes).
// Running Relationship last means every foreign key it names — package
// nodes, purl refs, cpe refs — already exists by the time its rows land.
type Creator struct {
	Purl         *PurlCreator
	Cpe          *CpeCreator
	Package      *PackageCreator
	Relationship *RelationshipCreator

	documentNodeID string
}

// NewCreator returns a Creator with all four sub-creators initialized,
// ready for an adapter to fill while walking one document. documentNodeID
// is the SBOM's own describes-root node, exempted from reference
// validation the same way SPDX DocumentRef- externals are.
func NewCreator(documentNodeID string) *Creator {
	return &Creator{
		Purl:           NewPurlCreator(),
		Cpe:            NewCpeCreator(),
		Package:        NewPackageCreator(),
		Relationship:   NewRelationshipCreator(),
		documentNodeID: documentNodeID,
	}
}

// Create validates relationship references against the package batch's
// own node set, then flushes all four sub-creators in FK order inside
// whatever transaction-or-pool db represents. A validation failure
// aborts before any row is written.
func (c *Creator) Create(ctx context.Context, db graph.Connectable, sbomID string) error {
	if err := c.Relationship.Validate(c.documentNodeID, c.Package.NodeIDs(sbomID)); err != nil {
		return err
	}

	if err := c.Purl.Create(ctx, db); err != nil {
		return err
	}
	if err := c.Cpe.Create(ctx, db); err != nil {
		return err
	}
	if err := c.Package.Create(ctx, db); err != nil {
		return err
	}
	return c.Relationship.Create(ctx, db)
}

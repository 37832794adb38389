package graph

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
)

// IngestSbom upserts the sbom row and its own document node (spec.md §3:
// "node_id identifies the node inside the SBOM that represents the
// document itself"). Bulk node/package/relationship rows go through
// pkg/creator's PackageCreator within the same transaction.
func IngestSbom(ctx context.Context, db Connectable, s *Sbom) error {
	labels, err := json.Marshal(s.Labels)
	if err != nil {
		return apperr.Wrap(apperr.KindGeneric, err, "marshal sbom labels")
	}

	const sql = `
INSERT INTO sbom (sbom_id, document_id, node_id, name, published, authors, data_licenses, labels, source_document_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (sbom_id) DO UPDATE SET
	name = EXCLUDED.name,
	published = EXCLUDED.published,
	authors = EXCLUDED.authors,
	data_licenses = EXCLUDED.data_licenses,
	labels = EXCLUDED.labels`

	_, err = db.Exec(ctx, sql, s.SbomID, s.DocumentID, s.NodeID, s.Name, s.Published,
		s.Authors, s.DataLicenses, labels, s.SourceDocumentID)
	if err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "ingest sbom %s", s.SbomID)
	}

	node := SbomNode{SbomID: s.SbomID, NodeID: s.NodeID, Name: s.Name, Kind: NodeFile}
	return ingestNode(ctx, db, node)
}

func ingestNode(ctx context.Context, db Connectable, n SbomNode) error {
	const sql = `
INSERT INTO sbom_node (sbom_id, node_id, name) VALUES ($1, $2, $3)
ON CONFLICT (sbom_id, node_id) DO UPDATE SET name = EXCLUDED.name`
	if _, err := db.Exec(ctx, sql, n.SbomID, n.NodeID, n.Name); err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "ingest sbom_node %s/%s", n.SbomID, n.NodeID)
	}
	return nil
}

// IngestDescribesPackage records that sbomID's document node Describes
// the package node (spec.md §4.4's ingest_describes_package helper) —
// SPDX's DESCRIBES relationship and CycloneDX's metadata.component root
// both normalize to this.
func IngestDescribesPackage(ctx context.Context, db Connectable, sbomID uuid.UUID, documentNodeID, packageNodeID string) error {
	return ingestRelationship(ctx, db, PackageRelatesToPackage{
		SbomID:       sbomID,
		LeftNodeID:   packageNodeID,
		Relationship: RelDescribedBy,
		RightNodeID:  documentNodeID,
	})
}

// IngestDescribesCpe is the CPE-identity analog of IngestDescribesPackage
// for documents whose root component is identified only by CPE.
func IngestDescribesCpe(ctx context.Context, db Connectable, sbomID uuid.UUID, nodeID string, cpeID uuid.UUID) error {
	return IngestPackageCpeRef(ctx, db, PackageCpeRef{SbomID: sbomID, NodeID: nodeID, CpeID: cpeID})
}

func ingestRelationship(ctx context.Context, db Connectable, r PackageRelatesToPackage) error {
	const sql = `
INSERT INTO package_relates_to_package (sbom_id, left_node_id, relationship, right_node_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING`
	if _, err := db.Exec(ctx, sql, r.SbomID, r.LeftNodeID, r.Relationship, r.RightNodeID); err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "ingest relationship %s %s %s", r.LeftNodeID, r.Relationship, r.RightNodeID)
	}
	return nil
}

// IngestPackageCpeRef links an sbom_node to a CPE identity.
func IngestPackageCpeRef(ctx context.Context, db Connectable, ref PackageCpeRef) error {
	const sql = `
INSERT INTO sbom_package_cpe_ref (sbom_id, node_id, cpe_id) VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`
	if _, err := db.Exec(ctx, sql, ref.SbomID, ref.NodeID, ref.CpeID); err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "ingest sbom_package_cpe_ref %s/%s", ref.SbomID, ref.NodeID)
	}
	return nil
}

// IngestPackagePurlRef links an sbom_node to a qualified_purl identity.
// The referenced qualified_purl must already exist (spec.md §3's
// cross-entity invariant); callers that batch purls through
// pkg/creator's PurlCreator must create() it first.
func IngestPackagePurlRef(ctx context.Context, db Connectable, ref PackagePurlRef) error {
	const sql = `
INSERT INTO sbom_package_purl_ref (sbom_id, node_id, qualified_purl_id) VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`
	if _, err := db.Exec(ctx, sql, ref.SbomID, ref.NodeID, ref.QualifiedPurlID); err != nil {
		return apperr.Wrap(apperr.KindInvalidReference, err, "ingest sbom_package_purl_ref %s/%s", ref.SbomID, ref.NodeID)
	}
	return nil
}

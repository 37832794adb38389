package graph

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
)

// IngestAdvisory always inserts a new advisory row, then restores the
// single-non-deprecated-per-identifier invariant in the same
// transaction (spec.md §4.4's deprecation trigger, spec.md §8 Scenario
// 3). It never updates an existing row in place — distinct ingests of
// the same identifier are distinct documents with their own history.
// The exact-duplicate-document case is already rejected one layer up,
// by IngestSourceDocument's digest check in pkg/ingest, before this
// function is ever reached, so every row here starts deprecated =
// false and restoreDeprecation immediately recomputes which row (if
// any) should stay that way, mirroring the original ingestor's
// ingest_advisory/UpdateDeprecatedAdvisory split.
func IngestAdvisory(ctx context.Context, db Connectable, adv *Advisory) (uuid.UUID, error) {
	if adv.ID == uuid.Nil {
		adv.ID = uuid.New()
	}

	labels, err := json.Marshal(adv.Labels)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindGeneric, err, "marshal advisory labels")
	}

	const sql = `
INSERT INTO advisory (id, identifier, deprecated, version, issuer_id, title, published, modified, withdrawn, labels, source_document_id)
VALUES ($1, $2, false, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`

	var id uuid.UUID
	row := db.QueryRow(ctx, sql, adv.ID, adv.Identifier, adv.Version, adv.IssuerID,
		adv.Title, adv.Published, adv.Modified, adv.Withdrawn, labels, adv.SourceDocumentID)
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindDatabase, err, "ingest advisory %q", adv.Identifier)
	}

	if err := restoreDeprecation(ctx, db, adv.Identifier); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// restoreDeprecation runs spec.md §4.4's deprecation trigger: exactly
// one row per identifier (the most recently modified) is left
// non-deprecated.
func restoreDeprecation(ctx context.Context, db Connectable, identifier string) error {
	const sql = `
UPDATE advisory SET deprecated = sub.rank > 1
FROM (
	SELECT id, row_number() OVER (PARTITION BY identifier ORDER BY modified DESC NULLS LAST) AS rank
	FROM advisory
	WHERE identifier = $1
) sub
WHERE advisory.id = sub.id`

	if _, err := db.Exec(ctx, sql, identifier); err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "restore deprecation for %q", identifier)
	}
	return nil
}

// IngestOrganization upserts an advisory issuer or SBOM supplier,
// keyed by Name (spec.md §4.4).
func IngestOrganization(ctx context.Context, db Connectable, org *Organization) (uuid.UUID, error) {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}

	const sql = `
INSERT INTO organization (id, name, cpe_key, website)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE SET cpe_key = EXCLUDED.cpe_key, website = EXCLUDED.website
RETURNING id`

	var id uuid.UUID
	row := db.QueryRow(ctx, sql, org.ID, org.Name, org.CPEKey, org.Website)
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindDatabase, err, "ingest organization %q", org.Name)
	}
	return id, nil
}

// IngestProduct upserts a CSAF-style product grouping, keyed by
// (name, vendor_id).
func IngestProduct(ctx context.Context, db Connectable, p *Product) (uuid.UUID, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	const sql = `
INSERT INTO product (id, name, vendor_id)
VALUES ($1, $2, $3)
ON CONFLICT (name, vendor_id) DO UPDATE SET name = EXCLUDED.name
RETURNING id`

	var id uuid.UUID
	row := db.QueryRow(ctx, sql, p.ID, p.Name, p.VendorID)
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindDatabase, err, "ingest product %q", p.Name)
	}
	return id, nil
}


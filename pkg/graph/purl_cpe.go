package graph

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/identifier"
)

// IngestPurl upserts all three levels of p's pURL hierarchy
// (base/versioned/qualified), returning the qualified_purl ID. This is
// the single-pURL path used outside of a document batch (e.g. the
// purl query service's "create on lookup miss" case); bulk ingest goes
// through pkg/creator's PurlCreator instead.
func IngestPurl(ctx context.Context, db Connectable, p *identifier.Purl) (uuid.UUID, error) {
	const baseSQL = `
INSERT INTO base_purl (id, type, namespace, name) VALUES ($1, $2, $3, $4)
ON CONFLICT (type, namespace, name) DO NOTHING`
	if _, err := db.Exec(ctx, baseSQL, p.BaseUUID, p.Type, p.Namespace, p.Name); err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindDatabase, err, "ingest base_purl %s", p.BaseUUID)
	}

	const versionedSQL = `
INSERT INTO versioned_purl (id, base_purl_id, version) VALUES ($1, $2, $3)
ON CONFLICT (base_purl_id, version) DO NOTHING`
	if _, err := db.Exec(ctx, versionedSQL, p.VersionUUID, p.BaseUUID, p.Version); err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindDatabase, err, "ingest versioned_purl %s", p.VersionUUID)
	}

	qualifiers, err := json.Marshal(p.Qualifiers)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindGeneric, err, "marshal purl qualifiers")
	}
	const qualifiedSQL = `
INSERT INTO qualified_purl (id, versioned_purl_id, qualifiers) VALUES ($1, $2, $3)
ON CONFLICT (versioned_purl_id, qualifiers) DO NOTHING`
	if _, err := db.Exec(ctx, qualifiedSQL, p.QualifiedUUID, p.VersionUUID, qualifiers); err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindDatabase, err, "ingest qualified_purl %s", p.QualifiedUUID)
	}

	return p.QualifiedUUID, nil
}

// IngestCpe upserts a parsed CPE, keyed by its deterministic UUID.
func IngestCpe(ctx context.Context, db Connectable, c *identifier.Cpe) (uuid.UUID, error) {
	const sql = `
INSERT INTO cpe (id, part, vendor, product, version, update, edition, language)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`
	if _, err := db.Exec(ctx, sql, c.UUID, c.Part, c.Vendor, c.Product, c.Version, c.Update, c.Edition, c.Language); err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindDatabase, err, "ingest cpe %s", c.UUID)
	}
	return c.UUID, nil
}

// DeriveLicenseID computes the deterministic v5 UUID a license
// expression is keyed by, without touching the database. Format
// adapters use this to pre-compute the FK a sbom_package_license row
// will reference before the license row itself is ingested.
func DeriveLicenseID(expression string) uuid.UUID {
	return uuid.NewSHA1(identifier.NamespaceTrustify, []byte(expression))
}

// IngestLicense upserts a deduplicated license expression, keyed by its
// v5 UUID over the expression string.
func IngestLicense(ctx context.Context, db Connectable, expression string) (uuid.UUID, error) {
	id := DeriveLicenseID(expression)

	const sql = `INSERT INTO license (id, expression) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	if _, err := db.Exec(ctx, sql, id, expression); err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindDatabase, err, "ingest license %q", expression)
	}
	return id, nil
}

// IngestLicensingInfo upserts one SPDX LicenseRef-* custom license's
// extracted text, scoped to the SBOM that declared it (the same
// LicenseRef- name can carry different extracted text in two different
// documents).
func IngestLicensingInfo(ctx context.Context, db Connectable, li *LicensingInfo) error {
	const sql = `
INSERT INTO licensing_info (sbom_id, license_id, name, extracted_text, comment)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (sbom_id, license_id) DO UPDATE SET
	extracted_text = EXCLUDED.extracted_text,
	comment = EXCLUDED.comment`
	if _, err := db.Exec(ctx, sql, li.SbomID, li.LicenseID, li.Name, li.ExtractedText, li.Comment); err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "ingest licensing_info %s/%s", li.SbomID, li.Name)
	}
	return nil
}

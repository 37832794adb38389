package graph

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/identifier"
)

// DeriveSourceDocumentID computes the deterministic v5 UUID a raw
// document's source_document row is keyed by, over its SHA-256 digest —
// the same content-addressing scheme as pkg/identifier.Digests.ID,
// generalized to purl/cpe/license's DeriveID pattern so the ingestion
// service (C7) can test "have we seen this exact byte stream before"
// without a round trip.
func DeriveSourceDocumentID(sha256 string) uuid.UUID {
	return uuid.NewSHA1(identifier.NamespaceTrustify, []byte(sha256))
}

// IngestSourceDocument upserts the immutable content-addressed document
// row (spec.md §3). It returns existed == true when a row with this ID
// was already present, so the ingestion service can skip re-parsing an
// unchanged document (spec.md §4.7's cache-skip policy) while still
// letting a caller re-link it to a new advisory/sbom header.
func IngestSourceDocument(ctx context.Context, db Connectable, doc *SourceDocument) (existed bool, err error) {
	if doc.ID == uuid.Nil {
		doc.ID = DeriveSourceDocumentID(doc.SHA256)
	}

	const selectSQL = `SELECT 1 FROM source_document WHERE id = $1`
	var one int
	switch err := db.QueryRow(ctx, selectSQL, doc.ID).Scan(&one); {
	case err == nil:
		return true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return false, apperr.Wrap(apperr.KindDatabase, err, "check source_document %s", doc.ID)
	}

	const insertSQL = `
INSERT INTO source_document (id, sha256, sha384, sha512, size)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`
	if _, err := db.Exec(ctx, insertSQL, doc.ID, doc.SHA256, doc.SHA384, doc.SHA512, doc.Size); err != nil {
		return false, apperr.Wrap(apperr.KindDatabase, err, "ingest source_document %s", doc.ID)
	}
	return false, nil
}

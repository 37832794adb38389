package queryservice

import (
	"context"
	"regexp"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/graph"
)

// IDKind distinguishes the four forms fetch_by_id accepts (spec.md
// §4.9: "Id is Uuid | Sha256 | Sha384 | Sha512").
type IDKind int

const (
	IDUuid IDKind = iota
	IDSha256
	IDSha384
	IDSha512
)

// ID is a parsed fetch_by_id argument.
type ID struct {
	Kind  IDKind
	Value string
}

var hexDigest = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// ParseID classifies raw as a UUID or, by its hex length, a sha256/384/512
// digest. It does not validate that the entity addressed actually has a
// matching row — that's FetchByID's job.
func ParseID(raw string) (ID, error) {
	if u, err := uuid.Parse(raw); err == nil {
		return ID{Kind: IDUuid, Value: u.String()}, nil
	}
	if hexDigest.MatchString(raw) {
		switch len(raw) {
		case 64:
			return ID{Kind: IDSha256, Value: raw}, nil
		case 96:
			return ID{Kind: IDSha384, Value: raw}, nil
		case 128:
			return ID{Kind: IDSha512, Value: raw}, nil
		}
	}
	return ID{}, apperr.New(apperr.KindGeneric, "%q is neither a uuid nor a recognized digest", raw)
}

// resolveDocumentBackedID resolves id to the primary-key UUID of a row
// in table (aliased "e") that carries a source_document_id FK, joining
// through source_document when id names a digest rather than the
// entity's own id.
func resolveDocumentBackedID(ctx context.Context, db graph.Connectable, table, idColumn string, id ID) (uuid.UUID, error) {
	if id.Kind == IDUuid {
		return uuid.MustParse(id.Value), nil
	}

	digestColumn := map[IDKind]string{
		IDSha256: "sha256",
		IDSha384: "sha384",
		IDSha512: "sha512",
	}[id.Kind]

	sql := `
SELECT e.` + idColumn + `
FROM ` + table + ` e
JOIN source_document d ON d.id = e.source_document_id
WHERE d.` + digestColumn + ` = $1`

	var resolved uuid.UUID
	if err := db.QueryRow(ctx, sql, id.Value).Scan(&resolved); err != nil {
		return uuid.Nil, apperr.NotFound(table, id.Value)
	}
	return resolved, nil
}

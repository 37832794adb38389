package queryservice

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/identifier"
	"github.com/trustify/trustify/pkg/query"
)

var purlColumns = query.NewColumns().
	Add("type", query.Column{SQL: "bp.type", Type: query.TypeString}).
	Add("namespace", query.Column{SQL: "bp.namespace", Type: query.TypeString}).
	Add("name", query.Column{SQL: "bp.name", Type: query.TypeString}).
	Add("version", query.Column{SQL: "vp.version", Type: query.TypeString})

// PurlSummary is one qualified pURL's list row. Purl is rendered from
// type, namespace, name and version only; qualifiers are not included.
type PurlSummary struct {
	ID      uuid.UUID
	Purl    string
	Type    string
	Name    string
	Version string
}

// PurlDetails is a qualified pURL's fetch_by_id row.
type PurlDetails struct {
	PurlSummary
	Namespace  string
	Qualifiers map[string]string
}

// PurlService is the purl query service, operating at the
// qualified_purl level (the fully-resolved pkg:type/namespace/name@
// version?qualifiers form). fetch_by_id takes the qualified_purl's own
// UUID; pURLs are not document-backed.
type PurlService struct {
	db *database.DB
}

func NewPurlService(db *database.DB) *PurlService {
	return &PurlService{db: db}
}

// SortColumns exposes the field set List's sort parameter is validated
// against.
func (s *PurlService) SortColumns() *query.Columns {
	return purlColumns
}

func (s *PurlService) List(ctx context.Context, q *query.Query, sort []query.SortField, page Paginated) (PaginatedResults[PurlSummary], error) {
	where, args, err := query.Compile(q, purlColumns, 0)
	if err != nil {
		return PaginatedResults[PurlSummary]{}, err
	}

	const from = `
FROM qualified_purl qp
JOIN versioned_purl vp ON vp.id = qp.versioned_purl_id
JOIN base_purl bp ON bp.id = vp.base_purl_id
WHERE `

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) `+from+where, args...).Scan(&total); err != nil {
		return PaginatedResults[PurlSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "count qualified_purl")
	}

	limit, offset := page.clamp()
	orderBy := query.SQL(sort, purlColumns)
	if orderBy == "" {
		orderBy = "bp.name ASC"
	}
	listSQL := `
SELECT qp.id, bp.type, bp.namespace, bp.name, vp.version
` + from + where + ` ORDER BY ` + orderBy + limitOffsetClause(len(args))

	rows, err := s.db.Query(ctx, listSQL, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return PaginatedResults[PurlSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "list qualified_purl")
	}
	defer rows.Close()

	var items []PurlSummary
	for rows.Next() {
		var id uuid.UUID
		var typ, namespace, name, version string
		if err := rows.Scan(&id, &typ, &namespace, &name, &version); err != nil {
			return PaginatedResults[PurlSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "scan qualified_purl")
		}
		items = append(items, PurlSummary{
			ID: id, Type: typ, Name: name, Version: version,
			Purl: renderPurl(typ, namespace, name, version),
		})
	}
	if err := rows.Err(); err != nil {
		return PaginatedResults[PurlSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "iterate qualified_purl")
	}

	return PaginatedResults[PurlSummary]{Items: items, Total: total, Page: page.Page, PerPage: limit}, nil
}

func (s *PurlService) FetchByID(ctx context.Context, id uuid.UUID) (*PurlDetails, error) {
	const sql = `
SELECT qp.id, bp.type, bp.namespace, bp.name, vp.version, qp.qualifiers
FROM qualified_purl qp
JOIN versioned_purl vp ON vp.id = qp.versioned_purl_id
JOIN base_purl bp ON bp.id = vp.base_purl_id
WHERE qp.id = $1`

	var d PurlDetails
	var typ, namespace, name, version string
	var qualifiersJSON []byte
	row := s.db.QueryRow(ctx, sql, id)
	if err := row.Scan(&d.ID, &typ, &namespace, &name, &version, &qualifiersJSON); err != nil {
		return nil, nil
	}
	d.Type, d.Namespace, d.Name, d.Version = typ, namespace, name, version
	d.Purl = renderPurl(typ, namespace, name, version)
	if len(qualifiersJSON) > 0 {
		if err := json.Unmarshal(qualifiersJSON, &d.Qualifiers); err != nil {
			return nil, apperr.Wrap(apperr.KindGeneric, err, "unmarshal purl qualifiers for %s", id)
		}
	}
	return &d, nil
}

// FetchByPurl resolves a "pkg:" string to its qualified_purl row. The
// three-level UUID (base/versioned/qualified) is derived from the
// string alone (pkg/identifier.ParsePurl), so this never needs a
// lookup query of its own: it's FetchByID with a computed id, letting
// the GET /v2/purl/{uuid|purl} path parameter take either form
// (spec.md §6).
func (s *PurlService) FetchByPurl(ctx context.Context, raw string) (*PurlDetails, error) {
	p, err := identifier.ParsePurl(raw)
	if err != nil {
		return nil, err
	}
	return s.FetchByID(ctx, p.QualifiedUUID)
}

// Batch resolves each raw pURL string the same way FetchByPurl does,
// for the POST /v2/purl {"items": [...]} bulk-lookup endpoint
// (spec.md §6). Unresolvable or unknown entries are simply omitted
// rather than failing the whole batch, matching List/FetchByID's
// "no error on miss" convention.
func (s *PurlService) Batch(ctx context.Context, raws []string) ([]PurlDetails, error) {
	out := make([]PurlDetails, 0, len(raws))
	for _, raw := range raws {
		d, err := s.FetchByPurl(ctx, raw)
		if err != nil {
			continue
		}
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *PurlService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM qualified_purl WHERE id = $1`, id)
	if err != nil {
		return false, apperr.Wrap(apperr.KindDatabase, err, "delete qualified_purl %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

func renderPurl(typ, namespace, name, version string) string {
	purl := "pkg:" + typ
	if namespace != "" {
		purl += "/" + namespace
	}
	purl += "/" + name
	if version != "" {
		purl += "@" + version
	}
	return purl
}

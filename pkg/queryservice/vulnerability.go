package queryservice

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/query"
)

var vulnerabilityColumns = query.NewColumns().
	Add("id", query.Column{SQL: "id", Type: query.TypeString})

// VulnerabilitySummary is vulnerability's list row: just its identifier
// (spec.md §3's Vulnerability carries no descriptive fields of its own —
// those live on AdvisoryVulnerability).
type VulnerabilitySummary struct {
	ID string
}

// VulnerabilityAdvisoryRef is one advisory that describes a
// vulnerability, with that advisory's per-link descriptive fields.
type VulnerabilityAdvisoryRef struct {
	AdvisoryID uuid.UUID
	Identifier string
	Title      string
	Summary    string
	Published  *time.Time
}

// VulnerabilityDetails is vulnerability's fetch_by_id row: every
// advisory that makes a claim about it.
type VulnerabilityDetails struct {
	VulnerabilitySummary
	Advisories []VulnerabilityAdvisoryRef
}

// VulnerabilityService is the vulnerability query service. fetch_by_id
// takes the CVE-style natural key directly; vulnerability has no
// source_document of its own to resolve a digest through.
type VulnerabilityService struct {
	db *database.DB
}

func NewVulnerabilityService(db *database.DB) *VulnerabilityService {
	return &VulnerabilityService{db: db}
}

func (s *VulnerabilityService) List(ctx context.Context, q *query.Query, sort []query.SortField, page Paginated) (PaginatedResults[VulnerabilitySummary], error) {
	where, args, err := query.Compile(q, vulnerabilityColumns, 0)
	if err != nil {
		return PaginatedResults[VulnerabilitySummary]{}, err
	}

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM vulnerability WHERE `+where, args...).Scan(&total); err != nil {
		return PaginatedResults[VulnerabilitySummary]{}, apperr.Wrap(apperr.KindDatabase, err, "count vulnerability")
	}

	limit, offset := page.clamp()
	orderBy := query.SQL(sort, vulnerabilityColumns)
	if orderBy == "" {
		orderBy = "id ASC"
	}
	listSQL := `SELECT id FROM vulnerability WHERE ` + where + ` ORDER BY ` + orderBy + limitOffsetClause(len(args))

	rows, err := s.db.Query(ctx, listSQL, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return PaginatedResults[VulnerabilitySummary]{}, apperr.Wrap(apperr.KindDatabase, err, "list vulnerability")
	}
	defer rows.Close()

	var items []VulnerabilitySummary
	for rows.Next() {
		var row VulnerabilitySummary
		if err := rows.Scan(&row.ID); err != nil {
			return PaginatedResults[VulnerabilitySummary]{}, apperr.Wrap(apperr.KindDatabase, err, "scan vulnerability")
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return PaginatedResults[VulnerabilitySummary]{}, apperr.Wrap(apperr.KindDatabase, err, "iterate vulnerability")
	}

	return PaginatedResults[VulnerabilitySummary]{Items: items, Total: total, Page: page.Page, PerPage: limit}, nil
}

func (s *VulnerabilityService) FetchByID(ctx context.Context, cve string) (*VulnerabilityDetails, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vulnerability WHERE id = $1)`, cve).Scan(&exists); err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "lookup vulnerability %s", cve)
	}
	if !exists {
		return nil, nil
	}

	const sql = `
SELECT av.advisory_id, a.identifier, av.title, av.summary, av.published
FROM advisory_vulnerability av
JOIN advisory a ON a.id = av.advisory_id
WHERE av.vulnerability_id = $1`

	rows, err := s.db.Query(ctx, sql, cve)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "load advisory_vulnerability for %s", cve)
	}
	defer rows.Close()

	var refs []VulnerabilityAdvisoryRef
	for rows.Next() {
		var r VulnerabilityAdvisoryRef
		if err := rows.Scan(&r.AdvisoryID, &r.Identifier, &r.Title, &r.Summary, &r.Published); err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, err, "scan advisory_vulnerability for %s", cve)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &VulnerabilityDetails{
		VulnerabilitySummary: VulnerabilitySummary{ID: cve},
		Advisories:           refs,
	}, nil
}

func (s *VulnerabilityService) Delete(ctx context.Context, cve string) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM vulnerability WHERE id = $1`, cve)
	if err != nil {
		return false, apperr.Wrap(apperr.KindDatabase, err, "delete vulnerability %s", cve)
	}
	return tag.RowsAffected() > 0, nil
}

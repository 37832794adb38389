package queryservice

import (
	"context"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/query"
)

var licenseColumns = query.NewColumns().
	Add("expression", query.Column{SQL: "expression", Type: query.TypeString})

// LicenseSummary is license's list/fetch_by_id row; license is a
// deduplicated SPDX expression carrying no fields beyond its own
// (spec.md §3).
type LicenseSummary struct {
	ID         uuid.UUID
	Expression string
}

// LicenseService is the license query service. fetch_by_id takes the
// license's own UUID; licenses are not document-backed (they're shared
// across every SBOM that asserts the same expression).
type LicenseService struct {
	db *database.DB
}

func NewLicenseService(db *database.DB) *LicenseService {
	return &LicenseService{db: db}
}

func (s *LicenseService) List(ctx context.Context, q *query.Query, sort []query.SortField, page Paginated) (PaginatedResults[LicenseSummary], error) {
	where, args, err := query.Compile(q, licenseColumns, 0)
	if err != nil {
		return PaginatedResults[LicenseSummary]{}, err
	}

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM license WHERE `+where, args...).Scan(&total); err != nil {
		return PaginatedResults[LicenseSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "count license")
	}

	limit, offset := page.clamp()
	orderBy := query.SQL(sort, licenseColumns)
	if orderBy == "" {
		orderBy = "expression ASC"
	}
	listSQL := `SELECT id, expression FROM license WHERE ` + where + ` ORDER BY ` + orderBy + limitOffsetClause(len(args))

	rows, err := s.db.Query(ctx, listSQL, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return PaginatedResults[LicenseSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "list license")
	}
	defer rows.Close()

	var items []LicenseSummary
	for rows.Next() {
		var row LicenseSummary
		if err := rows.Scan(&row.ID, &row.Expression); err != nil {
			return PaginatedResults[LicenseSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "scan license")
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return PaginatedResults[LicenseSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "iterate license")
	}

	return PaginatedResults[LicenseSummary]{Items: items, Total: total, Page: page.Page, PerPage: limit}, nil
}

func (s *LicenseService) FetchByID(ctx context.Context, id uuid.UUID) (*LicenseSummary, error) {
	const sql = `SELECT id, expression FROM license WHERE id = $1`
	var row LicenseSummary
	if err := s.db.QueryRow(ctx, sql, id).Scan(&row.ID, &row.Expression); err != nil {
		return nil, nil
	}
	return &row, nil
}

func (s *LicenseService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM license WHERE id = $1`, id)
	if err != nil {
		return false, apperr.Wrap(apperr.KindDatabase, err, "delete license %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

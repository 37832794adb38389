package queryservice

import (
	"context"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/query"
)

var organizationColumns = query.NewColumns().
	Add("name", query.Column{SQL: "name", Type: query.TypeString}).
	Add("website", query.Column{SQL: "website", Type: query.TypeString})

// OrganizationSummary is organization's list/fetch_by_id row; an
// Organization carries no separate detail set beyond its own fields
// (spec.md §3).
type OrganizationSummary struct {
	ID      uuid.UUID
	Name    string
	CPEKey  string
	Website string
}

// OrganizationService is the organization query service. fetch_by_id
// takes the organization's own UUID; organizations are not
// document-backed.
type OrganizationService struct {
	db *database.DB
}

func NewOrganizationService(db *database.DB) *OrganizationService {
	return &OrganizationService{db: db}
}

func (s *OrganizationService) List(ctx context.Context, q *query.Query, sort []query.SortField, page Paginated) (PaginatedResults[OrganizationSummary], error) {
	where, args, err := query.Compile(q, organizationColumns, 0)
	if err != nil {
		return PaginatedResults[OrganizationSummary]{}, err
	}

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM organization WHERE `+where, args...).Scan(&total); err != nil {
		return PaginatedResults[OrganizationSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "count organization")
	}

	limit, offset := page.clamp()
	orderBy := query.SQL(sort, organizationColumns)
	if orderBy == "" {
		orderBy = "name ASC"
	}
	listSQL := `SELECT id, name, cpe_key, website FROM organization WHERE ` + where + ` ORDER BY ` + orderBy + limitOffsetClause(len(args))

	rows, err := s.db.Query(ctx, listSQL, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return PaginatedResults[OrganizationSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "list organization")
	}
	defer rows.Close()

	var items []OrganizationSummary
	for rows.Next() {
		var row OrganizationSummary
		if err := rows.Scan(&row.ID, &row.Name, &row.CPEKey, &row.Website); err != nil {
			return PaginatedResults[OrganizationSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "scan organization")
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return PaginatedResults[OrganizationSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "iterate organization")
	}

	return PaginatedResults[OrganizationSummary]{Items: items, Total: total, Page: page.Page, PerPage: limit}, nil
}

func (s *OrganizationService) FetchByID(ctx context.Context, id uuid.UUID) (*OrganizationSummary, error) {
	const sql = `SELECT id, name, cpe_key, website FROM organization WHERE id = $1`
	var row OrganizationSummary
	if err := s.db.QueryRow(ctx, sql, id).Scan(&row.ID, &row.Name, &row.CPEKey, &row.Website); err != nil {
		return nil, nil
	}
	return &row, nil
}

func (s *OrganizationService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM organization WHERE id = $1`, id)
	if err != nil {
		return false, apperr.Wrap(apperr.KindDatabase, err, "delete organization %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

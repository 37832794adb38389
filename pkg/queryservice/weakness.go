package queryservice

import (
	"context"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/query"
)

var weaknessColumns = query.NewColumns().
	Add("id", query.Column{SQL: "id", Type: query.TypeString}).
	Add("name", query.Column{SQL: "name", Type: query.TypeString})

// WeaknessSummary is a CWE catalog entry's list row. Weakness appears
// only as a bare name in spec.md's entity list, with no further
// definition anywhere in spec.md or the source material it was
// distilled from; modeled here minimally as the CWE identifier that
// advisory_vulnerability.cwes references, with its name and description.
type WeaknessSummary struct {
	ID          string
	Name        string
	Description string
}

// WeaknessService is the weakness (CWE) query service. fetch_by_id
// takes the CWE identifier directly (e.g. "CWE-79"); weaknesses are a
// static catalog, not document-backed.
type WeaknessService struct {
	db *database.DB
}

func NewWeaknessService(db *database.DB) *WeaknessService {
	return &WeaknessService{db: db}
}

func (s *WeaknessService) List(ctx context.Context, q *query.Query, sort []query.SortField, page Paginated) (PaginatedResults[WeaknessSummary], error) {
	where, args, err := query.Compile(q, weaknessColumns, 0)
	if err != nil {
		return PaginatedResults[WeaknessSummary]{}, err
	}

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM weakness WHERE `+where, args...).Scan(&total); err != nil {
		return PaginatedResults[WeaknessSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "count weakness")
	}

	limit, offset := page.clamp()
	orderBy := query.SQL(sort, weaknessColumns)
	if orderBy == "" {
		orderBy = "id ASC"
	}
	listSQL := `SELECT id, name, description FROM weakness WHERE ` + where + ` ORDER BY ` + orderBy + limitOffsetClause(len(args))

	rows, err := s.db.Query(ctx, listSQL, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return PaginatedResults[WeaknessSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "list weakness")
	}
	defer rows.Close()

	var items []WeaknessSummary
	for rows.Next() {
		var row WeaknessSummary
		if err := rows.Scan(&row.ID, &row.Name, &row.Description); err != nil {
			return PaginatedResults[WeaknessSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "scan weakness")
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return PaginatedResults[WeaknessSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "iterate weakness")
	}

	return PaginatedResults[WeaknessSummary]{Items: items, Total: total, Page: page.Page, PerPage: limit}, nil
}

func (s *WeaknessService) FetchByID(ctx context.Context, cweID string) (*WeaknessSummary, error) {
	const sql = `SELECT id, name, description FROM weakness WHERE id = $1`
	var row WeaknessSummary
	if err := s.db.QueryRow(ctx, sql, cweID).Scan(&row.ID, &row.Name, &row.Description); err != nil {
		return nil, nil
	}
	return &row, nil
}

func (s *WeaknessService) Delete(ctx context.Context, cweID string) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM weakness WHERE id = $1`, cweID)
	if err != nil {
		return false, apperr.Wrap(apperr.KindDatabase, err, "delete weakness %s", cweID)
	}
	return tag.RowsAffected() > 0, nil
}

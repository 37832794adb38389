package queryservice

import (
	"context"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/query"
)

var productColumns = query.NewColumns().
	Add("name", query.Column{SQL: "name", Type: query.TypeString})

// ProductSummary is product's list row.
type ProductSummary struct {
	ID       uuid.UUID
	Name     string
	VendorID uuid.UUID
}

// ProductDetails is product's fetch_by_id row, with its vendor resolved
// and every known version (CSAF's product tree, spec.md §4.6).
type ProductDetails struct {
	ProductSummary
	VendorName string
	Versions   []string
}

// ProductService is the product query service. fetch_by_id takes the
// product's own UUID; products are not document-backed.
type ProductService struct {
	db *database.DB
}

func NewProductService(db *database.DB) *ProductService {
	return &ProductService{db: db}
}

func (s *ProductService) List(ctx context.Context, q *query.Query, sort []query.SortField, page Paginated) (PaginatedResults[ProductSummary], error) {
	where, args, err := query.Compile(q, productColumns, 0)
	if err != nil {
		return PaginatedResults[ProductSummary]{}, err
	}

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM product WHERE `+where, args...).Scan(&total); err != nil {
		return PaginatedResults[ProductSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "count product")
	}

	limit, offset := page.clamp()
	orderBy := query.SQL(sort, productColumns)
	if orderBy == "" {
		orderBy = "name ASC"
	}
	listSQL := `SELECT id, name, vendor_id FROM product WHERE ` + where + ` ORDER BY ` + orderBy + limitOffsetClause(len(args))

	rows, err := s.db.Query(ctx, listSQL, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return PaginatedResults[ProductSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "list product")
	}
	defer rows.Close()

	var items []ProductSummary
	for rows.Next() {
		var row ProductSummary
		if err := rows.Scan(&row.ID, &row.Name, &row.VendorID); err != nil {
			return PaginatedResults[ProductSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "scan product")
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return PaginatedResults[ProductSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "iterate product")
	}

	return PaginatedResults[ProductSummary]{Items: items, Total: total, Page: page.Page, PerPage: limit}, nil
}

func (s *ProductService) FetchByID(ctx context.Context, id uuid.UUID) (*ProductDetails, error) {
	const sql = `
SELECT p.id, p.name, p.vendor_id, o.name
FROM product p
JOIN organization o ON o.id = p.vendor_id
WHERE p.id = $1`

	var d ProductDetails
	row := s.db.QueryRow(ctx, sql, id)
	if err := row.Scan(&d.ID, &d.Name, &d.VendorID, &d.VendorName); err != nil {
		return nil, nil
	}

	versions, err := s.loadVersions(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Versions = versions
	return &d, nil
}

func (s *ProductService) loadVersions(ctx context.Context, productID uuid.UUID) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT version FROM product_version WHERE product_id = $1 ORDER BY version`, productID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "load product_version for %s", productID)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, err, "scan product_version for %s", productID)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM product WHERE id = $1`, id)
	if err != nil {
		return false, apperr.Wrap(apperr.KindDatabase, err, "delete product %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

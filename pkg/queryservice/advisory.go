package queryservice

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/query"
)

// advisoryColumns is the queryable/sortable field set for the advisory
// list endpoint (spec.md §4.3's Columns context, spec.md §4.9's list).
var advisoryColumns = query.NewColumns().
	Add("identifier", query.Column{SQL: "identifier", Type: query.TypeString}).
	Add("title", query.Column{SQL: "title", Type: query.TypeString}).
	Add("published", query.Column{SQL: "published", Type: query.TypeTimestamp}).
	Add("modified", query.Column{SQL: "modified", Type: query.TypeTimestamp}).
	Add("deprecated", query.Column{SQL: "deprecated", Type: query.TypeString})

// AdvisorySummary is advisory's list row: identifiers and principal
// fields only (spec.md §4.9).
type AdvisorySummary struct {
	ID         uuid.UUID
	Identifier string
	Title      string
	Deprecated bool
	Published  *time.Time
}

// AdvisoryVulnerabilityDetail is one vulnerability an advisory describes,
// joined with its CVSS scores (spec.md §4.9: "advisory vulnerabilities
// with their CVSS scores and statuses").
type AdvisoryVulnerabilityDetail struct {
	VulnerabilityID string
	Title           string
	Summary         string
	CWEs            []string
	Published       *time.Time
	Modified        *time.Time
	CVSS            []CVSSDetail
}

// CVSSDetail is one CVSS score attached to an AdvisoryVulnerabilityDetail.
type CVSSDetail struct {
	MinorVersion int
	Vector       string
	Score        float64
	Severity     string
}

// AdvisoryDetails is advisory's fetch_by_id row.
type AdvisoryDetails struct {
	AdvisorySummary
	Version         string
	IssuerID        *uuid.UUID
	Withdrawn       *time.Time
	Labels          Labels
	Vulnerabilities []AdvisoryVulnerabilityDetail
}

// AdvisoryService is the advisory query service.
type AdvisoryService struct {
	db *database.DB
}

func NewAdvisoryService(db *database.DB) *AdvisoryService {
	return &AdvisoryService{db: db}
}

// SortColumns exposes the field set List's sort parameter is validated
// against, so the HTTP layer can parse a sort= string without
// duplicating the column definitions.
func (s *AdvisoryService) SortColumns() *query.Columns {
	return advisoryColumns
}

// List returns a page of advisories matching q, ordered by sort.
func (s *AdvisoryService) List(ctx context.Context, q *query.Query, sort []query.SortField, page Paginated) (PaginatedResults[AdvisorySummary], error) {
	where, args, err := query.Compile(q, advisoryColumns, 0)
	if err != nil {
		return PaginatedResults[AdvisorySummary]{}, err
	}

	var total int64
	countSQL := `SELECT count(*) FROM advisory WHERE ` + where
	if err := s.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return PaginatedResults[AdvisorySummary]{}, apperr.Wrap(apperr.KindDatabase, err, "count advisory")
	}

	limit, offset := page.clamp()
	orderBy := query.SQL(sort, advisoryColumns)
	if orderBy == "" {
		orderBy = "identifier ASC"
	}
	listSQL := `
SELECT id, identifier, title, deprecated, published
FROM advisory WHERE ` + where + ` ORDER BY ` + orderBy + limitOffsetClause(len(args))

	rows, err := s.db.Query(ctx, listSQL, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return PaginatedResults[AdvisorySummary]{}, apperr.Wrap(apperr.KindDatabase, err, "list advisory")
	}
	defer rows.Close()

	var items []AdvisorySummary
	for rows.Next() {
		var row AdvisorySummary
		if err := rows.Scan(&row.ID, &row.Identifier, &row.Title, &row.Deprecated, &row.Published); err != nil {
			return PaginatedResults[AdvisorySummary]{}, apperr.Wrap(apperr.KindDatabase, err, "scan advisory")
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return PaginatedResults[AdvisorySummary]{}, apperr.Wrap(apperr.KindDatabase, err, "iterate advisory")
	}

	return PaginatedResults[AdvisorySummary]{Items: items, Total: total, Page: page.Page, PerPage: limit}, nil
}

// FetchByID resolves id (the advisory's own UUID, or one of its source
// document's digests) and returns its full details, or nil if no
// advisory row has the resolved id. A digest that resolves to no
// advisory fails with NotFound instead.
func (s *AdvisoryService) FetchByID(ctx context.Context, id ID) (*AdvisoryDetails, error) {
	advisoryID, err := resolveDocumentBackedID(ctx, s.db.Pool, "advisory", "id", id)
	if err != nil {
		return nil, err
	}

	const sql = `
SELECT id, identifier, title, deprecated, published, version, issuer_id, withdrawn, labels
FROM advisory WHERE id = $1`

	var d AdvisoryDetails
	var labelsJSON []byte
	row := s.db.QueryRow(ctx, sql, advisoryID)
	err = row.Scan(&d.ID, &d.Identifier, &d.Title, &d.Deprecated, &d.Published,
		&d.Version, &d.IssuerID, &d.Withdrawn, &labelsJSON)
	if err != nil {
		return nil, nil
	}
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &d.Labels); err != nil {
			return nil, apperr.Wrap(apperr.KindGeneric, err, "unmarshal advisory labels for %s", advisoryID)
		}
	}

	vulns, err := s.loadVulnerabilities(ctx, advisoryID)
	if err != nil {
		return nil, err
	}
	d.Vulnerabilities = vulns
	return &d, nil
}

func (s *AdvisoryService) loadVulnerabilities(ctx context.Context, advisoryID uuid.UUID) ([]AdvisoryVulnerabilityDetail, error) {
	const linkSQL = `
SELECT vulnerability_id, title, summary, cwes, published, modified
FROM advisory_vulnerability WHERE advisory_id = $1`

	rows, err := s.db.Query(ctx, linkSQL, advisoryID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "load advisory_vulnerability for %s", advisoryID)
	}
	defer rows.Close()

	var out []AdvisoryVulnerabilityDetail
	for rows.Next() {
		var v AdvisoryVulnerabilityDetail
		if err := rows.Scan(&v.VulnerabilityID, &v.Title, &v.Summary, &v.CWEs, &v.Published, &v.Modified); err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, err, "scan advisory_vulnerability for %s", advisoryID)
		}
		scores, err := s.loadCVSS(ctx, advisoryID, v.VulnerabilityID)
		if err != nil {
			return nil, err
		}
		v.CVSS = scores
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *AdvisoryService) loadCVSS(ctx context.Context, advisoryID uuid.UUID, vulnerabilityID string) ([]CVSSDetail, error) {
	const sql = `
SELECT minor_version, av, ac, pr, ui, s, c, i, a, score, severity
FROM cvss_score WHERE advisory_id = $1 AND vulnerability_id = $2`

	rows, err := s.db.Query(ctx, sql, advisoryID, vulnerabilityID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "load cvss_score for %s/%s", advisoryID, vulnerabilityID)
	}
	defer rows.Close()

	var out []CVSSDetail
	for rows.Next() {
		var d CVSSDetail
		var av, ac, pr, ui, c, i, a, sv string
		if err := rows.Scan(&d.MinorVersion, &av, &ac, &pr, &ui, &sv, &c, &i, &a, &d.Score, &d.Severity); err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, err, "scan cvss_score for %s/%s", advisoryID, vulnerabilityID)
		}
		d.Vector = "AV:" + av + "/AC:" + ac + "/PR:" + pr + "/UI:" + ui + "/S:" + sv + "/C:" + c + "/I:" + i + "/A:" + a
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetLabels replaces id's labels wholesale.
func (s *AdvisoryService) SetLabels(ctx context.Context, advisoryID uuid.UUID, labels Labels) error {
	normalized, err := ValidateLabels(labels)
	if err != nil {
		return err
	}
	return s.writeLabels(ctx, advisoryID, normalized)
}

// UpdateLabels applies update to advisoryID's current labels.
func (s *AdvisoryService) UpdateLabels(ctx context.Context, advisoryID uuid.UUID, update LabelUpdate) (Labels, error) {
	current, err := s.currentLabels(ctx, advisoryID)
	if err != nil {
		return nil, err
	}
	next, err := ApplyLabelUpdate(current, update)
	if err != nil {
		return nil, err
	}
	if err := s.writeLabels(ctx, advisoryID, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *AdvisoryService) currentLabels(ctx context.Context, advisoryID uuid.UUID) (Labels, error) {
	var labelsJSON []byte
	row := s.db.QueryRow(ctx, `SELECT labels FROM advisory WHERE id = $1`, advisoryID)
	if err := row.Scan(&labelsJSON); err != nil {
		return nil, apperr.NotFound("advisory", advisoryID)
	}
	var labels Labels
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &labels); err != nil {
			return nil, apperr.Wrap(apperr.KindGeneric, err, "unmarshal advisory labels for %s", advisoryID)
		}
	}
	return labels, nil
}

func (s *AdvisoryService) writeLabels(ctx context.Context, advisoryID uuid.UUID, labels Labels) error {
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return apperr.Wrap(apperr.KindGeneric, err, "marshal advisory labels")
	}
	if err := s.db.Exec(ctx, `UPDATE advisory SET labels = $2 WHERE id = $1`, advisoryID, labelsJSON); err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "update advisory labels for %s", advisoryID)
	}
	return nil
}

// Delete removes an advisory by its own UUID, returning whether a row
// was actually deleted.
func (s *AdvisoryService) Delete(ctx context.Context, advisoryID uuid.UUID) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM advisory WHERE id = $1`, advisoryID)
	if err != nil {
		return false, apperr.Wrap(apperr.KindDatabase, err, "delete advisory %s", advisoryID)
	}
	return tag.RowsAffected() > 0, nil
}

func limitOffsetClause(argOffset int) string {
	return " LIMIT $" + strconv.Itoa(argOffset+1) + " OFFSET $" + strconv.Itoa(argOffset+2)
}

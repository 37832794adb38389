package queryservice

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/query"
)

var sbomColumns = query.NewColumns().
	Add("name", query.Column{SQL: "name", Type: query.TypeString}).
	Add("published", query.Column{SQL: "published", Type: query.TypeTimestamp})

// SbomSummary is sbom's list row.
type SbomSummary struct {
	SbomID    uuid.UUID
	Name      string
	Published *time.Time
}

// SbomPackageSummary is one node an SBOM describes, with its identities.
type SbomPackageSummary struct {
	NodeID  string
	Name    string
	Version string
	Purls   []string
	Cpes    []string
}

// SbomDetails is sbom's fetch_by_id row.
type SbomDetails struct {
	SbomSummary
	Authors      []string
	DataLicenses []string
	Labels       Labels
	Packages     []SbomPackageSummary
}

// SbomService is the sbom query service.
type SbomService struct {
	db *database.DB
}

func NewSbomService(db *database.DB) *SbomService {
	return &SbomService{db: db}
}

// SortColumns exposes the field set List's sort parameter is validated
// against.
func (s *SbomService) SortColumns() *query.Columns {
	return sbomColumns
}

func (s *SbomService) List(ctx context.Context, q *query.Query, sort []query.SortField, page Paginated) (PaginatedResults[SbomSummary], error) {
	where, args, err := query.Compile(q, sbomColumns, 0)
	if err != nil {
		return PaginatedResults[SbomSummary]{}, err
	}

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM sbom WHERE `+where, args...).Scan(&total); err != nil {
		return PaginatedResults[SbomSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "count sbom")
	}

	limit, offset := page.clamp()
	orderBy := query.SQL(sort, sbomColumns)
	if orderBy == "" {
		orderBy = "published DESC NULLS LAST"
	}
	listSQL := `
SELECT sbom_id, name, published FROM sbom WHERE ` + where + ` ORDER BY ` + orderBy + limitOffsetClause(len(args))

	rows, err := s.db.Query(ctx, listSQL, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return PaginatedResults[SbomSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "list sbom")
	}
	defer rows.Close()

	var items []SbomSummary
	for rows.Next() {
		var row SbomSummary
		if err := rows.Scan(&row.SbomID, &row.Name, &row.Published); err != nil {
			return PaginatedResults[SbomSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "scan sbom")
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return PaginatedResults[SbomSummary]{}, apperr.Wrap(apperr.KindDatabase, err, "iterate sbom")
	}

	return PaginatedResults[SbomSummary]{Items: items, Total: total, Page: page.Page, PerPage: limit}, nil
}

func (s *SbomService) FetchByID(ctx context.Context, id ID) (*SbomDetails, error) {
	sbomID, err := resolveDocumentBackedID(ctx, s.db.Pool, "sbom", "sbom_id", id)
	if err != nil {
		return nil, err
	}

	const sql = `
SELECT sbom_id, name, published, authors, data_licenses, labels
FROM sbom WHERE sbom_id = $1`

	var d SbomDetails
	var labelsJSON []byte
	row := s.db.QueryRow(ctx, sql, sbomID)
	if err := row.Scan(&d.SbomID, &d.Name, &d.Published, &d.Authors, &d.DataLicenses, &labelsJSON); err != nil {
		return nil, nil
	}
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &d.Labels); err != nil {
			return nil, apperr.Wrap(apperr.KindGeneric, err, "unmarshal sbom labels for %s", sbomID)
		}
	}

	packages, err := s.loadPackages(ctx, sbomID)
	if err != nil {
		return nil, err
	}
	d.Packages = packages
	return &d, nil
}

func (s *SbomService) loadPackages(ctx context.Context, sbomID uuid.UUID) ([]SbomPackageSummary, error) {
	const nodeSQL = `
SELECT n.node_id, n.name, COALESCE(p.version, '')
FROM sbom_node n
LEFT JOIN sbom_package p ON p.sbom_id = n.sbom_id AND p.node_id = n.node_id
WHERE n.sbom_id = $1
ORDER BY n.node_id`

	rows, err := s.db.Query(ctx, nodeSQL, sbomID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "load sbom_node for %s", sbomID)
	}
	defer rows.Close()

	var out []SbomPackageSummary
	for rows.Next() {
		var p SbomPackageSummary
		if err := rows.Scan(&p.NodeID, &p.Name, &p.Version); err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, err, "scan sbom_node for %s", sbomID)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	purlsByNode, err := s.loadPurls(ctx, sbomID)
	if err != nil {
		return nil, err
	}
	cpesByNode, err := s.loadCpes(ctx, sbomID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Purls = purlsByNode[out[i].NodeID]
		out[i].Cpes = cpesByNode[out[i].NodeID]
	}
	return out, nil
}

func (s *SbomService) loadPurls(ctx context.Context, sbomID uuid.UUID) (map[string][]string, error) {
	const sql = `
SELECT spr.node_id, bp.type, bp.namespace, bp.name, vp.version
FROM sbom_package_purl_ref spr
JOIN qualified_purl qp ON qp.id = spr.qualified_purl_id
JOIN versioned_purl vp ON vp.id = qp.versioned_purl_id
JOIN base_purl bp ON bp.id = vp.base_purl_id
WHERE spr.sbom_id = $1`

	rows, err := s.db.Query(ctx, sql, sbomID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "load sbom_package_purl_ref for %s", sbomID)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var nodeID, typ, namespace, name, version string
		if err := rows.Scan(&nodeID, &typ, &namespace, &name, &version); err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, err, "scan sbom_package_purl_ref for %s", sbomID)
		}
		purl := "pkg:" + typ
		if namespace != "" {
			purl += "/" + namespace
		}
		purl += "/" + name
		if version != "" {
			purl += "@" + version
		}
		out[nodeID] = append(out[nodeID], purl)
	}
	return out, rows.Err()
}

func (s *SbomService) loadCpes(ctx context.Context, sbomID uuid.UUID) (map[string][]string, error) {
	const sql = `
SELECT scr.node_id, c.part, c.vendor, c.product, c.version
FROM sbom_package_cpe_ref scr
JOIN cpe c ON c.id = scr.cpe_id
WHERE scr.sbom_id = $1`

	rows, err := s.db.Query(ctx, sql, sbomID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "load sbom_package_cpe_ref for %s", sbomID)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var nodeID, part, vendor, product, version string
		if err := rows.Scan(&nodeID, &part, &vendor, &product, &version); err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, err, "scan sbom_package_cpe_ref for %s", sbomID)
		}
		cpe := strings.Join([]string{"cpe:2.3", part, vendor, product, version}, ":")
		out[nodeID] = append(out[nodeID], cpe)
	}
	return out, rows.Err()
}

// Packages resolves id and returns just its package list, for the
// dedicated /packages sub-endpoint (spec.md §6) without fetch_by_id's
// full payload.
func (s *SbomService) Packages(ctx context.Context, id ID) ([]SbomPackageSummary, error) {
	sbomID, err := resolveDocumentBackedID(ctx, s.db.Pool, "sbom", "sbom_id", id)
	if err != nil {
		return nil, err
	}
	return s.loadPackages(ctx, sbomID)
}

// RelatedPackage is one node directly connected to a Related query's
// starting node.
type RelatedPackage struct {
	NodeID       string
	Name         string
	Version      string
	Relationship string
}

// Related resolves id and returns the nodes connected to node via
// package_relates_to_package: which="left" returns node's
// left_node_id neighbors (node is the right side of the edge),
// which="right" returns its right_node_id neighbors (node is the left
// side), optionally filtered to one relationship kind (spec.md §6's
// GET /v2/sbom/{id}/related).
func (s *SbomService) Related(ctx context.Context, id ID, node, which, relationship string) ([]RelatedPackage, error) {
	sbomID, err := resolveDocumentBackedID(ctx, s.db.Pool, "sbom", "sbom_id", id)
	if err != nil {
		return nil, err
	}

	var matchCol, resultCol string
	switch which {
	case "left":
		matchCol, resultCol = "right_node_id", "left_node_id"
	case "right":
		matchCol, resultCol = "left_node_id", "right_node_id"
	default:
		return nil, apperr.New(apperr.KindParse, "which must be %q or %q, got %q", "left", "right", which)
	}

	sql := `
SELECT prtp.` + resultCol + `, n.name, COALESCE(p.version, ''), prtp.relationship
FROM package_relates_to_package prtp
JOIN sbom_node n ON n.sbom_id = prtp.sbom_id AND n.node_id = prtp.` + resultCol + `
LEFT JOIN sbom_package p ON p.sbom_id = n.sbom_id AND p.node_id = n.node_id
WHERE prtp.sbom_id = $1 AND prtp.` + matchCol + ` = $2`
	args := []any{sbomID, node}
	if relationship != "" {
		sql += ` AND prtp.relationship = $3`
		args = append(args, relationship)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "load package_relates_to_package for %s", sbomID)
	}
	defer rows.Close()

	var out []RelatedPackage
	for rows.Next() {
		var r RelatedPackage
		if err := rows.Scan(&r.NodeID, &r.Name, &r.Version, &r.Relationship); err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, err, "scan package_relates_to_package for %s", sbomID)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SbomService) SetLabels(ctx context.Context, sbomID uuid.UUID, labels Labels) error {
	normalized, err := ValidateLabels(labels)
	if err != nil {
		return err
	}
	return s.writeLabels(ctx, sbomID, normalized)
}

func (s *SbomService) UpdateLabels(ctx context.Context, sbomID uuid.UUID, update LabelUpdate) (Labels, error) {
	current, err := s.currentLabels(ctx, sbomID)
	if err != nil {
		return nil, err
	}
	next, err := ApplyLabelUpdate(current, update)
	if err != nil {
		return nil, err
	}
	if err := s.writeLabels(ctx, sbomID, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *SbomService) currentLabels(ctx context.Context, sbomID uuid.UUID) (Labels, error) {
	var labelsJSON []byte
	row := s.db.QueryRow(ctx, `SELECT labels FROM sbom WHERE sbom_id = $1`, sbomID)
	if err := row.Scan(&labelsJSON); err != nil {
		return nil, apperr.NotFound("sbom", sbomID)
	}
	var labels Labels
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &labels); err != nil {
			return nil, apperr.Wrap(apperr.KindGeneric, err, "unmarshal sbom labels for %s", sbomID)
		}
	}
	return labels, nil
}

func (s *SbomService) writeLabels(ctx context.Context, sbomID uuid.UUID, labels Labels) error {
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return apperr.Wrap(apperr.KindGeneric, err, "marshal sbom labels")
	}
	if err := s.db.Exec(ctx, `UPDATE sbom SET labels = $2 WHERE sbom_id = $1`, sbomID, labelsJSON); err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "update sbom labels for %s", sbomID)
	}
	return nil
}

// Delete removes an sbom by its own UUID, returning whether a row was
// actually deleted. Dependent sbom_node/sbom_package/ref rows cascade
// per the schema's foreign keys.
func (s *SbomService) Delete(ctx context.Context, sbomID uuid.UUID) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM sbom WHERE sbom_id = $1`, sbomID)
	if err != nil {
		return false, apperr.Wrap(apperr.KindDatabase, err, "delete sbom %s", sbomID)
	}
	return tag.RowsAffected() > 0, nil
}

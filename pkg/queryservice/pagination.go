// Package queryservice implements spec.md §4.9's per-entity query
// services (advisory, purl, sbom, vulnerability, organization, product,
// license, weakness): each exposes list/fetch_by_id/delete, and the two
// label-carrying entities (advisory, sbom) also expose set_labels/
// update_labels. List queries compile through pkg/query's DSL the same
// way spec.md §4.3 describes; fetch_by_id accepts either the entity's
// own UUID or, for document-backed entities, one of its source
// document's digests.
package queryservice

// Paginated is one page request.
type Paginated struct {
	Page    int
	PerPage int
}

// clamp enforces a sane page/per_page, mirroring how a web handler would
// default an absent or malformed pagination parameter.
func (p Paginated) clamp() (limit, offset int) {
	perPage := p.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	if perPage > 200 {
		perPage = 200
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}

// PaginatedResults is list's return shape: Items is always Summary, never
// Details (spec.md §4.9: "Summary contains only the head").
type PaginatedResults[T any] struct {
	Items   []T
	Total   int64
	Page    int
	PerPage int
}

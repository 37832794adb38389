package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/analysis"
	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/logger"
	"github.com/trustify/trustify/pkg/query"
)

// AnalysisHandler serves the component-lookup and status endpoints.
//
// pkg/analysis.Service holds one graph per sbom_id (its LRU key), so
// every component query here is scoped to a single SBOM rather than
// searched across all of them — unlike the DSL's general field set,
// which could in principle span documents. sbom_id is therefore a
// required query parameter on both component endpoints; this is a
// deliberate interface-scoping decision documented in DESIGN.md, not
// an omission.
type AnalysisHandler struct {
	svc *analysis.Service
	log *logger.Logger
}

func NewAnalysisHandler(svc *analysis.Service, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{svc: svc, log: log.WithComponent("analysis-handler")}
}

// componentResult is one matched node plus its optionally-collected
// ancestor/descendant subtrees.
type componentResult struct {
	Node        *analysis.PackageNode `json:"node"`
	Ancestors   *analysis.Tree        `json:"ancestors,omitempty"`
	Descendants *analysis.Tree        `json:"descendants,omitempty"`
}

// Component handles GET /v2/analysis/component?sbom_id=&q=&ancestors=N&descendants=M&relationships=.
func (h *AnalysisHandler) Component(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	sbomID, err := requireSbomID(values)
	if err != nil {
		writeError(w, err)
		return
	}

	dsl, err := query.Parse(values.Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}

	nodes, err := h.svc.Find(r.Context(), sbomID, analysis.GraphQuery{DSL: dsl})
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := h.collectResults(r.Context(), sbomID, nodes, values)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// ComponentByKey handles GET /v2/analysis/component/{key}: key is a
// name, pURL, CPE, or node UUID (spec.md §6), dispatched by shape.
func (h *AnalysisHandler) ComponentByKey(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	sbomID, err := requireSbomID(values)
	if err != nil {
		writeError(w, err)
		return
	}

	key := chi.URLParam(r, "key")
	nodes, err := h.svc.Find(r.Context(), sbomID, analysis.GraphQuery{Component: componentQueryFor(key)})
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := h.collectResults(r.Context(), sbomID, nodes, values)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *AnalysisHandler) collectResults(ctx context.Context, sbomID uuid.UUID, nodes []*analysis.PackageNode, values url.Values) ([]componentResult, error) {
	ancestors, err := intParam(values, "ancestors")
	if err != nil {
		return nil, err
	}
	descendants, err := intParam(values, "descendants")
	if err != nil {
		return nil, err
	}
	relationships := relationshipsParam(values.Get("relationships"))

	results := make([]componentResult, 0, len(nodes))
	for _, n := range nodes {
		res := componentResult{Node: n}
		if ancestors > 0 {
			tree, err := h.svc.Collect(ctx, sbomID, n.NodeID, analysis.Incoming, ancestors, relationships)
			if err != nil {
				return nil, err
			}
			res.Ancestors = tree
		}
		if descendants > 0 {
			tree, err := h.svc.Collect(ctx, sbomID, n.NodeID, analysis.Outgoing, descendants, relationships)
			if err != nil {
				return nil, err
			}
			res.Descendants = tree
		}
		results = append(results, res)
	}
	return results, nil
}

// Status handles GET /v2/analysis/status.
func (h *AnalysisHandler) Status(w http.ResponseWriter, r *http.Request) {
	sbomCount, graphCount, err := h.svc.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"sbom_count":  sbomCount,
		"graph_count": graphCount,
	})
}

func requireSbomID(values url.Values) (uuid.UUID, error) {
	raw := values.Get("sbom_id")
	if raw == "" {
		return uuid.Nil, apperr.New(apperr.KindParse, "sbom_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindParse, err, "invalid sbom_id %q", raw)
	}
	return id, nil
}

func componentQueryFor(key string) *analysis.ComponentQuery {
	switch {
	case strings.HasPrefix(key, "pkg:"):
		return &analysis.ComponentQuery{Kind: analysis.ComponentPurl, Value: key}
	case strings.HasPrefix(key, "cpe:"):
		return &analysis.ComponentQuery{Kind: analysis.ComponentCpe, Value: key}
	}
	if _, err := uuid.Parse(key); err == nil {
		return &analysis.ComponentQuery{Kind: analysis.ComponentID, Value: key}
	}
	return &analysis.ComponentQuery{Kind: analysis.ComponentName, Value: key}
}

func intParam(values url.Values, name string) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.New(apperr.KindParse, "invalid %s %q", name, raw)
	}
	return v, nil
}

func relationshipsParam(raw string) []graph.Relationship {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]graph.Relationship, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, graph.Relationship(p))
		}
	}
	return out
}

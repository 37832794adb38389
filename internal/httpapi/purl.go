package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/logger"
	"github.com/trustify/trustify/pkg/queryservice"
)

// PurlHandler serves the qualified-pURL list/fetch/batch endpoints.
type PurlHandler struct {
	svc *queryservice.PurlService
	log *logger.Logger
}

func NewPurlHandler(svc *queryservice.PurlService, log *logger.Logger) *PurlHandler {
	return &PurlHandler{svc: svc, log: log.WithComponent("purl-handler")}
}

// List handles GET /v2/purl.
func (h *PurlHandler) List(w http.ResponseWriter, r *http.Request) {
	q, sort, page, err := parseListParams(r, h.svc.SortColumns())
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.svc.List(r.Context(), q, sort, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Get handles GET /v2/purl/{uuid|purl}: the path segment is either the
// qualified_purl's own UUID or a "pkg:" string, distinguished by
// trying uuid.Parse first (spec.md §6).
func (h *PurlHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")

	var details *queryservice.PurlDetails
	var err error
	if id, parseErr := uuid.Parse(raw); parseErr == nil {
		details, err = h.svc.FetchByID(r.Context(), id)
	} else {
		details, err = h.svc.FetchByPurl(r.Context(), raw)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if details == nil {
		writeNotFound(w, "purl", raw)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type batchRequest struct {
	Items []string `json:"items"`
}

// Batch handles POST /v2/purl: {"items": [purl, ...]} resolves each
// entry the same way Get resolves a "pkg:" path segment.
func (h *PurlHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindParse, err, "decode batch request body"))
		return
	}
	results, err := h.svc.Batch(r.Context(), req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trustify/trustify/pkg/adapter"
	"github.com/trustify/trustify/pkg/ingest"
	"github.com/trustify/trustify/pkg/logger"
	"github.com/trustify/trustify/pkg/queryservice"
)

// AdvisoryHandler serves the advisory list/fetch endpoints and the
// generic document-ingest endpoint (spec.md §6: ingest accepts any of
// the five formats, sniffed, so it isn't advisory-specific in
// practice — it's just the one POST route the spec names).
type AdvisoryHandler struct {
	svc    *queryservice.AdvisoryService
	ingest *ingest.Service
	log    *logger.Logger
}

func NewAdvisoryHandler(svc *queryservice.AdvisoryService, ingestSvc *ingest.Service, log *logger.Logger) *AdvisoryHandler {
	return &AdvisoryHandler{svc: svc, ingest: ingestSvc, log: log.WithComponent("advisory-handler")}
}

// List handles GET /v2/advisory.
func (h *AdvisoryHandler) List(w http.ResponseWriter, r *http.Request) {
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

// Get handles GET /v2/advisory/{id}.
func (h *AdvisoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	details, err := h.svc.FetchByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if details == nil {
		writeNotFound(w, "advisory", chi.URLParam(r, "id"))
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// Ingest handles POST /v1/advisory: the request body is the raw
// document, in whichever of the five formats the sniffer recognizes
// (spec.md §6's "Content types").
func (h *AdvisoryHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	result, err := h.ingest.Ingest(r.Context(), r.Body, adapter.FormatUnknown)
	if err != nil {
		h.log.ErrorContext(r.Context(), "ingest failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

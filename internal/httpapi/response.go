// Package httpapi wires the query, ingest, analysis, and importer
// services onto the HTTP surface spec.md §6 names (list/fetch/ingest
// endpoints under /v1 and /v2), in chi the way the teacher's
// services/api/internal/handlers package does it: thin handlers that
// parse the request, call one service method, and translate its
// result or error into a response.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/trustify/trustify/pkg/apperr"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// writeError translates err into spec.md §7's status mapping via
// apperr.KindOf/HTTPStatus. A nil err never reaches here.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	writeJSON(w, apperr.HTTPStatus(kind), errorBody{Kind: string(kind), Message: err.Error()})
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeNotFound is the "fetch_by_id found no matching row" case, which
// every query service signals by returning (nil, nil) rather than an
// error (pkg/queryservice's convention).
func writeNotFound(w http.ResponseWriter, entity, key string) {
	writeError(w, apperr.NotFound(entity, key))
}

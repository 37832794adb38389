package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/importer"
	"github.com/trustify/trustify/pkg/logger"
)

// ImporterHandler serves the importer configuration endpoints
// (spec.md §6); run scheduling itself lives in pkg/importer.Scheduler,
// which this handler's Force route reaches into directly.
type ImporterHandler struct {
	db        *database.DB
	scheduler *importer.Scheduler
	log       *logger.Logger
}

func NewImporterHandler(db *database.DB, scheduler *importer.Scheduler, log *logger.Logger) *ImporterHandler {
	return &ImporterHandler{db: db, scheduler: scheduler, log: log.WithComponent("importer-handler")}
}

// List handles GET /v1/importer.
func (h *ImporterHandler) List(w http.ResponseWriter, r *http.Request) {
	importers, err := importer.List(r.Context(), h.db.Pool)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, importers)
}

// Put handles PUT /v1/importer/{name}: the body is the importer's
// configuration, and an If-Match header (the importer's current
// revision) is honored as an optimistic-concurrency precondition
// (spec.md §6).
func (h *ImporterHandler) Put(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var configuration json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&configuration); err != nil {
		writeError(w, apperr.Wrap(apperr.KindParse, err, "decode importer configuration"))
		return
	}

	var ifMatch *uuid.UUID
	if raw := r.Header.Get("If-Match"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, apperr.Wrap(apperr.KindParse, err, "invalid If-Match %q", raw))
			return
		}
		ifMatch = &id
	}

	revision, err := importer.Put(r.Context(), h.db.Pool, name, configuration, ifMatch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "revision": revision.String()})
}

// Delete handles DELETE /v1/importer/{name}.
func (h *ImporterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	deleted, err := importer.Delete(r.Context(), h.db.Pool, name)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeNotFound(w, "importer", name)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Force handles POST /v1/importer/{name}/force: it triggers a run
// outside the scheduler's poll interval, deduplicated against any
// already in-flight run the same way the poll loop is (spec.md §4.10).
func (h *ImporterHandler) Force(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	started := h.scheduler.ForceRun(name)
	if !started {
		writeJSON(w, http.StatusConflict, map[string]string{"name": name, "status": "already running"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"name": name, "status": "started"})
}

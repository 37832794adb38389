// Package importer implements the importer runner (spec.md §4.10): a
// Waiting/Running state machine per configured source, scheduled by a
// poll loop, with optimistic-concurrency CAS on every mutation and a
// pluggable Walker per source kind (Git, HTTP index, Quay registry).
package importer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/graph"
)

// Create inserts a new importer in the Waiting state. AlreadyExists if
// name is taken (spec.md §7's importer-creation conflict).
func Create(ctx context.Context, db graph.Connectable, name string, configuration json.RawMessage) (uuid.UUID, error) {
	revision := uuid.New()
	const sql = `
INSERT INTO importer (name, revision, state, last_change, configuration)
VALUES ($1, $2, $3, now(), $4)`

	_, err := db.Exec(ctx, sql, name, revision, graph.ImporterWaiting, []byte(configuration))
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindAlreadyExists, err, "importer %q already exists", name)
	}
	return revision, nil
}

// Get fetches one importer by name, or nil if it doesn't exist.
func Get(ctx context.Context, db graph.Connectable, name string) (*graph.Importer, error) {
	const sql = `
SELECT name, revision, state, last_change, last_success, last_run, last_error, continuation, configuration
FROM importer WHERE name = $1`

	var imp graph.Importer
	row := db.QueryRow(ctx, sql, name)
	err := row.Scan(&imp.Name, &imp.Revision, &imp.State, &imp.LastChange,
		&imp.LastSuccess, &imp.LastRun, &imp.LastError, &imp.Continuation, &imp.Configuration)
	if err != nil {
		return nil, nil
	}
	return &imp, nil
}

// List returns every configured importer, regardless of state
// (spec.md §6's GET /v1/importer).
func List(ctx context.Context, db graph.Connectable) ([]graph.Importer, error) {
	const sql = `
SELECT name, revision, state, last_change, last_success, last_run, last_error, continuation, configuration
FROM importer ORDER BY name ASC`

	rows, err := db.Query(ctx, sql)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "list importers")
	}
	defer rows.Close()

	var out []graph.Importer
	for rows.Next() {
		var imp graph.Importer
		if err := rows.Scan(&imp.Name, &imp.Revision, &imp.State, &imp.LastChange,
			&imp.LastSuccess, &imp.LastRun, &imp.LastError, &imp.Continuation, &imp.Configuration); err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, err, "scan importer")
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

// Put creates name if it doesn't exist, or replaces its configuration
// if it does. ifMatch, when non-nil, must equal the existing row's
// current revision or the call fails with KindMidAirCollision, and a
// non-nil ifMatch for an importer that doesn't exist fails with
// NotFound — the HTTP layer's If-Match handling for PUT
// /v1/importer/{name} (spec.md §6). A nil ifMatch creates or overwrites
// unconditionally.
func Put(ctx context.Context, db graph.Connectable, name string, configuration json.RawMessage, ifMatch *uuid.UUID) (uuid.UUID, error) {
	existing, err := Get(ctx, db, name)
	if err != nil {
		return uuid.Nil, err
	}

	newRevision := uuid.New()
	if existing == nil {
		if ifMatch != nil {
			return uuid.Nil, apperr.NotFound("importer", name)
		}
		const sql = `
INSERT INTO importer (name, revision, state, last_change, configuration)
VALUES ($1, $2, $3, now(), $4)`
		if _, err := db.Exec(ctx, sql, name, newRevision, graph.ImporterWaiting, []byte(configuration)); err != nil {
			return uuid.Nil, apperr.Wrap(apperr.KindDatabase, err, "create importer %q", name)
		}
		return newRevision, nil
	}

	if ifMatch != nil && *ifMatch != existing.Revision {
		return uuid.Nil, apperr.New(apperr.KindMidAirCollision, "importer %q revision mismatch", name)
	}

	const sql = `
UPDATE importer SET revision = $3, configuration = $4, last_change = now()
WHERE name = $1 AND revision = $2`
	tag, err := db.Exec(ctx, sql, name, existing.Revision, newRevision, []byte(configuration))
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindDatabase, err, "update importer %q", name)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, casFailure(ctx, db, name)
	}
	return newRevision, nil
}

// ListDue returns every Waiting importer whose last_change is at least
// period stale, using each importer's own configuration.period
// (spec.md §4.10's scheduler tick: "for each importer with
// state=Waiting and last_change+period<=now").
func ListDue(ctx context.Context, db graph.Connectable, now time.Time, defaultPeriod time.Duration) ([]graph.Importer, error) {
	const sql = `
SELECT name, revision, state, last_change, last_success, last_run, last_error, continuation, configuration
FROM importer WHERE state = $1
ORDER BY last_change ASC`

	rows, err := db.Query(ctx, sql, graph.ImporterWaiting)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "list importers")
	}
	defer rows.Close()

	var due []graph.Importer
	for rows.Next() {
		var imp graph.Importer
		if err := rows.Scan(&imp.Name, &imp.Revision, &imp.State, &imp.LastChange,
			&imp.LastSuccess, &imp.LastRun, &imp.LastError, &imp.Continuation, &imp.Configuration); err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, err, "scan importer")
		}
		period := periodOf(imp.Configuration, defaultPeriod)
		if now.Sub(imp.LastChange) >= period {
			due = append(due, imp)
		}
	}
	return due, rows.Err()
}

// periodOf extracts a "period" duration string from configuration,
// falling back to def when absent or malformed.
func periodOf(configuration []byte, def time.Duration) time.Duration {
	var cfg struct {
		Period string `json:"period"`
	}
	if len(configuration) == 0 {
		return def
	}
	if err := json.Unmarshal(configuration, &cfg); err != nil || cfg.Period == "" {
		return def
	}
	d, err := time.ParseDuration(cfg.Period)
	if err != nil {
		return def
	}
	return d
}

// UpdateStart CASes name from expectedRevision into Running, returning
// the new revision. Zero rows affected means NotFound (name missing)
// or MidAirCollision (someone else's CAS won first) — distinguished by
// a follow-up existence check, matching spec.md §4.10's optimistic
// concurrency contract.
func UpdateStart(ctx context.Context, db graph.Connectable, name string, expectedRevision uuid.UUID) (uuid.UUID, error) {
	newRevision := uuid.New()
	const sql = `
UPDATE importer SET revision = $3, state = $4, last_change = now()
WHERE name = $1 AND revision = $2`

	tag, err := db.Exec(ctx, sql, name, expectedRevision, newRevision, graph.ImporterRunning)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindDatabase, err, "update_start %q", name)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, casFailure(ctx, db, name)
	}
	return newRevision, nil
}

// UpdateFinish CASes name back into Waiting, recording the run outcome
// and storing continuation whether or not the run succeeded. runErr nil
// means success; non-nil is recorded as LastError and LastSuccess is left
// unchanged (spec.md §4.10's state diagram).
func UpdateFinish(ctx context.Context, db graph.Connectable, name string, expectedRevision uuid.UUID, start time.Time, continuation []byte, runErr error) (uuid.UUID, error) {
	newRevision := uuid.New()

	var lastErrorText *string
	if runErr != nil {
		msg := runErr.Error()
		lastErrorText = &msg
	}

	sql := `
UPDATE importer SET revision = $3, state = $4, last_change = now(),
  last_run = $5, last_error = $6, continuation = $7`
	args := []any{name, expectedRevision, newRevision, graph.ImporterWaiting, start, lastErrorText, continuation}
	if runErr == nil {
		sql += `, last_success = $5`
	}
	sql += ` WHERE name = $1 AND revision = $2`

	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.KindDatabase, err, "update_finish %q", name)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, casFailure(ctx, db, name)
	}
	return newRevision, nil
}

// Delete removes an importer by name.
func Delete(ctx context.Context, db graph.Connectable, name string) (bool, error) {
	tag, err := db.Exec(ctx, `DELETE FROM importer WHERE name = $1`, name)
	if err != nil {
		return false, apperr.Wrap(apperr.KindDatabase, err, "delete importer %q", name)
	}
	return tag.RowsAffected() > 0, nil
}

// SaveReport persists one run's outcome as an importer_report row
// (spec.md §4.10's ReportBuilder).
func SaveReport(ctx context.Context, db graph.Connectable, name string, runErr error, reportJSON []byte) error {
	var errText *string
	if runErr != nil {
		msg := runErr.Error()
		errText = &msg
	}
	const sql = `
INSERT INTO importer_report (id, importer, creation, error, report)
VALUES ($1, $2, now(), $3, $4)`
	_, err := db.Exec(ctx, sql, uuid.New(), name, errText, reportJSON)
	if err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "save importer_report for %q", name)
	}
	return nil
}

func casFailure(ctx context.Context, db graph.Connectable, name string) error {
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM importer WHERE name = $1)`, name).Scan(&exists); err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "check importer %q existence", name)
	}
	if !exists {
		return apperr.NotFound("importer", name)
	}
	return apperr.New(apperr.KindMidAirCollision, "importer %q revision mismatch", name)
}

// Package apperr defines Trustify's tagged-union error kinds (spec.md §7)
// and their HTTP status mapping. The shape is grounded on the teacher's
// tool-error pattern (services/orchestrator/internal/tools/errors.go's
// ErrorCode/ToolError), generalized from AI-tool errors to ingest/query
// errors.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a standardized error classification.
type Kind string

const (
	// KindParse marks a malformed input document.
	KindParse Kind = "PARSE_ERROR"
	// KindInvalidReference marks a relationship pointing at an unknown node.
	KindInvalidReference Kind = "INVALID_REFERENCE"
	// KindPurl marks a pURL that could not be parsed.
	KindPurl Kind = "PURL_ERROR"
	// KindCpe marks a CPE that could not be parsed.
	KindCpe Kind = "CPE_ERROR"
	// KindNotFound marks a lookup miss.
	KindNotFound Kind = "NOT_FOUND"
	// KindMidAirCollision marks an optimistic-concurrency failure.
	KindMidAirCollision Kind = "MID_AIR_COLLISION"
	// KindAlreadyExists marks a unique-constraint violation on creation.
	KindAlreadyExists Kind = "ALREADY_EXISTS"
	// KindDatabase wraps a driver-level database error.
	KindDatabase Kind = "DATABASE_ERROR"
	// KindStorage marks a blob-storage backend failure.
	KindStorage Kind = "STORAGE_ERROR"
	// KindCanceled marks cooperative cancellation, not a failure.
	KindCanceled Kind = "CANCELED"
	// KindSearchSyntax marks an unparsable query-DSL expression.
	KindSearchSyntax Kind = "SEARCH_SYNTAX_ERROR"
	// KindInvalidLabel marks a malformed label key/value.
	KindInvalidLabel Kind = "INVALID_LABEL"
	// KindGeneric is a catch-all for structural ingest failures that
	// don't fit a narrower kind (e.g. Creator referential-integrity
	// validation failures, per spec.md §4.5).
	KindGeneric Kind = "GENERIC_ERROR"
)

// Error is Trustify's error type: a Kind plus a human-readable message and
// an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind that wraps cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target has the same Kind, so callers can write
// errors.Is(err, apperr.New(apperr.KindNotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindDatabase for
// unrecognized errors (the teacher's pattern of "unknown driver error ⇒
// 500", per spec.md §7).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDatabase
}

// HTTPStatus maps a Kind to the HTTP status spec.md §7 assigns it.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindParse, KindInvalidReference, KindSearchSyntax, KindInvalidLabel, KindGeneric, KindPurl, KindCpe:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMidAirCollision:
		return http.StatusPreconditionFailed
	case KindAlreadyExists:
		return http.StatusConflict
	case KindCanceled:
		return 499 // client closed request; not a registered http.Status constant
	case KindDatabase, KindStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NotFound is a convenience constructor for the common "no such X" case.
func NotFound(entity string, key any) *Error {
	return New(KindNotFound, "%s not found: %v", entity, key)
}

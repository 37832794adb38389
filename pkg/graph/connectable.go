// Package graph is Trustify's graph store: typed upserts over the
// advisory/vulnerability/purl/cpe/sbom schema (spec.md §3-4.4), built on
// pgx/pgxpool the same way the teacher's pkg/database wraps them.
package graph

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Connectable is anything that can run a query: a pool or a
// transaction. Every public ingest function takes a Connectable so a
// caller can wrap a whole document ingest in one transaction while
// internal helpers never commit (spec.md §4.4's transactional
// contract) — mirroring how *pgxpool.Pool and pgx.Tx both already
// satisfy this shape in the teacher's pkg/database.
type Connectable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

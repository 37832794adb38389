package creator

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// recordedExec captures one call to fakeConn.Exec for assertions.
type recordedExec struct {
	sql  string
	args []any
}

// fakeConn is a minimal graph.Connectable that records every Exec call
// instead of talking to Postgres, so sub-creator batching logic can be
// tested without a live database.
type fakeConn struct {
	execs   []recordedExec
	failOn  int // 1-based call index to fail on, 0 means never
	failErr error
}

func (f *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgx.CommandTag, error) {
	f.execs = append(f.execs, recordedExec{sql: sql, args: args})
	if f.failOn != 0 && len(f.execs) == f.failOn {
		return pgx.CommandTag{}, f.failErr
	}
	return pgx.CommandTag{}, nil
}

func (f *fakeConn) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	panic("fakeConn.Query not implemented")
}

func (f *fakeConn) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	panic("fakeConn.QueryRow not implemented")
}

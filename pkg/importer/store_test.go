package importer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustify/trustify/pkg/apperr"
)

type recordedExec struct {
	sql  string
	args []any
}

// fakeConn is a minimal graph.Connectable stub: Exec reports a fixed
// RowsAffected count, QueryRow.Scan feeds back a fixed exists bool
// (casFailure's existence recheck), and Query is unused by these tests.
type fakeConn struct {
	execs        []recordedExec
	rowsAffected int64
	execErr      error
	exists       bool
}

func (f *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error) {
	f.execs = append(f.execs, recordedExec{sql: sql, args: args})
	if f.execErr != nil {
		return pgx.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("UPDATE " + itoaRows(f.rowsAffected)), nil
}

func itoaRows(n int64) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func (f *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not used by these tests")
}

func (f *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return fakeExistsRow{exists: f.exists}
}

type fakeExistsRow struct {
	exists bool
}

func (r fakeExistsRow) Scan(dest ...any) error {
	*dest[0].(*bool) = r.exists
	return nil
}

func TestUpdateStartSucceedsOnMatchingRevision(t *testing.T) {
	conn := &fakeConn{rowsAffected: 1}
	newRev, err := UpdateStart(context.Background(), conn, "osv", uuid.New())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, newRev)
}

func TestUpdateStartReturnsNotFoundWhenImporterMissing(t *testing.T) {
	conn := &fakeConn{rowsAffected: 0, exists: false}
	_, err := UpdateStart(context.Background(), conn, "ghost", uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUpdateStartReturnsMidAirCollisionWhenRevisionStale(t *testing.T) {
	conn := &fakeConn{rowsAffected: 0, exists: true}
	_, err := UpdateStart(context.Background(), conn, "osv", uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperr.KindMidAirCollision, apperr.KindOf(err))
}

func TestUpdateFinishSuccessSetsLastSuccess(t *testing.T) {
	conn := &fakeConn{rowsAffected: 1}
	_, err := UpdateFinish(context.Background(), conn, "osv", uuid.New(), time.Now(), []byte(`{"commit":"abc"}`), nil)
	require.NoError(t, err)
	require.Len(t, conn.execs, 1)
	assert.Contains(t, conn.execs[0].sql, "last_success")
}

func TestUpdateFinishFailureOmitsLastSuccess(t *testing.T) {
	conn := &fakeConn{rowsAffected: 1}
	_, err := UpdateFinish(context.Background(), conn, "osv", uuid.New(), time.Now(), nil, assert.AnError)
	require.NoError(t, err)
	assert.NotContains(t, conn.execs[0].sql, "last_success")
}

func TestDeleteReportsWhetherARowWasRemoved(t *testing.T) {
	conn := &fakeConn{rowsAffected: 0}
	deleted, err := Delete(context.Background(), conn, "osv")
	require.NoError(t, err)
	assert.False(t, deleted)

	conn = &fakeConn{rowsAffected: 1}
	deleted, err = Delete(context.Background(), conn, "osv")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestPeriodOfFallsBackToDefaultWhenAbsent(t *testing.T) {
	assert.Equal(t, time.Hour, periodOf(nil, time.Hour))
	assert.Equal(t, time.Hour, periodOf([]byte(`{}`), time.Hour))
	assert.Equal(t, time.Hour, periodOf([]byte(`not json`), time.Hour))
}

func TestPeriodOfParsesConfiguredDuration(t *testing.T) {
	assert.Equal(t, 30*time.Minute, periodOf([]byte(`{"period":"30m"}`), time.Hour))
}

package graph

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow implements pgx.Row, returning err from Scan.
type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...any) error { return r.err }

// fakeDocConn is a Connectable whose QueryRow result is configured per
// test, recording every Exec call like fakeConn does.
type fakeDocConn struct {
	queryRowErr error
	execs       []recordedExec
}

func (f *fakeDocConn) Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error) {
	f.execs = append(f.execs, recordedExec{sql: sql, args: args})
	return pgx.CommandTag{}, nil
}

func (f *fakeDocConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not used by these tests")
}

func (f *fakeDocConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return fakeRow{err: f.queryRowErr}
}

func TestDeriveSourceDocumentIDIsDeterministic(t *testing.T) {
	id1 := DeriveSourceDocumentID("abc123")
	id2 := DeriveSourceDocumentID("abc123")
	assert.Equal(t, id1, id2)

	id3 := DeriveSourceDocumentID("def456")
	assert.NotEqual(t, id1, id3)
}

func TestIngestSourceDocumentReportsExistedOnConflict(t *testing.T) {
	conn := &fakeDocConn{queryRowErr: nil}
	doc := &SourceDocument{SHA256: "abc123", Size: 42}

	existed, err := IngestSourceDocument(context.Background(), conn, doc)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Empty(t, conn.execs, "an existing row must not be re-inserted")
}

func TestIngestSourceDocumentInsertsWhenAbsent(t *testing.T) {
	conn := &fakeDocConn{queryRowErr: pgx.ErrNoRows}
	doc := &SourceDocument{SHA256: "abc123", SHA384: "x", SHA512: "y", Size: 7}

	existed, err := IngestSourceDocument(context.Background(), conn, doc)
	require.NoError(t, err)
	assert.False(t, existed)
	require.Len(t, conn.execs, 1)
	assert.Contains(t, conn.execs[0].sql, "INSERT INTO source_document")
	assert.Equal(t, DeriveSourceDocumentID("abc123"), doc.ID)
}

package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustify/trustify/pkg/apperr"
)

func TestBlobPathShardsByDigestPrefix(t *testing.T) {
	p, err := blobPath("sha256:abcdef0123")
	require.NoError(t, err)
	assert.Equal(t, "sha256/ab/cd/abcdef0123", p)
}

func TestBlobPathRejectsMalformedKey(t *testing.T) {
	_, err := blobPath("not-a-digest")
	assert.Error(t, err)
}

func TestNewBackendDispatchesOnScheme(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBackend(context.Background(), "fs://"+dir)
	require.NoError(t, err)
	assert.IsType(t, &FSBackend{}, b)
}

func TestNewBackendRejectsUnknownScheme(t *testing.T) {
	_, err := NewBackend(context.Background(), "ftp://example.com/blobs")
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
}

func TestFSBackendPutGetRoundTrips(t *testing.T) {
	b, err := NewFSBackend(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key := "sha256:" + "00112233445566778899aabbccddeeff0011223344556677889900112233"
	n, err := b.Put(ctx, key, bytes.NewBufferString("hello world"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("hello world")), n)

	rc, err := b.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(body))
}

func TestFSBackendGetMissingKeyIsNotFound(t *testing.T) {
	b, err := NewFSBackend(t.TempDir())
	require.NoError(t, err)

	_, err = b.Get(context.Background(), "sha256:"+"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestFSBackendDeleteMissingKeyIsNotAnError(t *testing.T) {
	b, err := NewFSBackend(t.TempDir())
	require.NoError(t, err)
	err = b.Delete(context.Background(), "sha256:"+"1111111111111111111111111111111111111111111111111111111111111111")
	assert.NoError(t, err)
}

func TestFSBackendPutIsOverwriteSafe(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFSBackend(dir)
	require.NoError(t, err)

	ctx := context.Background()
	key := "sha256:" + "aaaa111122223333444455556666777788889999aaaabbbbccccddddeeeeff"

	_, err = b.Put(ctx, key, bytes.NewBufferString("first"))
	require.NoError(t, err)
	_, err = b.Put(ctx, key, bytes.NewBufferString("second"))
	require.NoError(t, err)

	rc, err := b.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "second", string(body))
}

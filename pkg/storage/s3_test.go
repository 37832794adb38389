package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustify/trustify/pkg/apperr"
)

type fakeS3API struct {
	objects map[string][]byte
	getErr  error
}

func (f *fakeS3API) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3API) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3API) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestS3Backend() (*S3Backend, *fakeS3API) {
	fake := &fakeS3API{objects: make(map[string][]byte)}
	return &S3Backend{client: fake, bucket: "trustify-docs", prefix: "docs"}, fake
}

func TestS3BackendPutGetRoundTrips(t *testing.T) {
	b, _ := newTestS3Backend()
	ctx := context.Background()
	key := "sha256:" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd"

	n, err := b.Put(ctx, key, bytes.NewBufferString("document body"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("document body")), n)

	rc, err := b.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "document body", string(body))
}

func TestS3BackendObjectKeyIncludesPrefix(t *testing.T) {
	b, _ := newTestS3Backend()
	objKey, err := b.objectKey("sha256:abcdef01")
	require.NoError(t, err)
	assert.Equal(t, "docs/sha256/ab/cd/abcdef01", objKey)
}

func TestS3BackendGetMissingKeyIsNotFound(t *testing.T) {
	b, _ := newTestS3Backend()
	_, err := b.Get(context.Background(), "sha256:"+"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestS3BackendDeleteRemovesObject(t *testing.T) {
	b, fake := newTestS3Backend()
	ctx := context.Background()
	key := "sha256:" + "1111111111111111111111111111111111111111111111111111111111111111"

	_, err := b.Put(ctx, key, bytes.NewBufferString("x"))
	require.NoError(t, err)
	require.NoError(t, b.Delete(ctx, key))
	assert.Empty(t, fake.objects)
}

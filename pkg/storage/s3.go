package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/trustify/trustify/pkg/apperr"
)

// s3API is the subset of *s3.Client this backend calls, narrowed to an
// interface so tests can substitute a fake (the teacher-pack's
// ECRServiceAPI pattern in hemzaz-freightliner's pkg/client/ecr).
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Backend stores blobs as objects in one bucket under an optional
// key prefix, sharded by blobPath.
type S3Backend struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Backend builds an S3-backed Backend using the default AWS
// credential chain (env vars, shared config, instance role), same
// pattern as the pack's ECR client construction.
func NewS3Backend(ctx context.Context, bucket, prefix string) (*S3Backend, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "load aws config for s3 backend")
	}
	return &S3Backend{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (b *S3Backend) objectKey(key string) (string, error) {
	rel, err := blobPath(key)
	if err != nil {
		return "", err
	}
	if b.prefix == "" {
		return rel, nil
	}
	return b.prefix + "/" + rel, nil
}

func (b *S3Backend) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	objKey, err := b.objectKey(key)
	if err != nil {
		return 0, err
	}

	// PutObject requires a seekable/known-length body for retries, so
	// buffer the document in memory rather than streaming it directly;
	// ingested SBOM/advisory documents are small enough (spec.md's size
	// budget) that this is not a concern.
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStorage, err, "buffer blob %q for s3 put", key)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objKey),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStorage, err, "put blob %q", key)
	}
	return n, nil
}

func (b *S3Backend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	objKey, err := b.objectKey(key)
	if err != nil {
		return nil, err
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objKey),
	})
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return nil, apperr.NotFound("blob", key)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "get blob %q", key)
	}
	return out.Body, nil
}

func (b *S3Backend) Delete(ctx context.Context, key string) error {
	objKey, err := b.objectKey(key)
	if err != nil {
		return err
	}
	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objKey),
	}); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "delete blob %q", key)
	}
	return nil
}

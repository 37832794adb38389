// Package storage stores and retrieves the raw SBOM/advisory documents
// Trustify ingests, content-addressed by their "sha256:hex" digest
// (pkg/identifier.Digests.ID), behind one Backend interface with a
// filesystem implementation and an S3 implementation selected by the
// scheme of spec.md §6's STORAGE_BACKEND URL.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/trustify/trustify/pkg/apperr"
)

// Backend persists and serves document blobs keyed by digest ID
// (e.g. "sha256:abcd..."). Implementations must treat Put as
// idempotent: re-putting the same key with identical content is a
// legal no-op, since re-ingesting an unchanged document is expected
// (spec.md §4.6's cache-skip behavior).
type Backend interface {
	// Put stores the content read from r under key, returning the
	// number of bytes written.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	// Get opens the blob stored under key. The caller must Close the
	// returned ReadCloser. Returns an apperr.KindNotFound error if key
	// is absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob stored under key, if present. Deleting an
	// absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// NewBackend builds a Backend from a STORAGE_BACKEND URL: "fs:///var/..."
// or "fs://./relative/dir" selects the filesystem backend rooted at the
// URL's path; "s3://bucket/prefix" selects the S3 backend.
func NewBackend(ctx context.Context, backendURL string) (Backend, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "parse storage backend url %q", backendURL)
	}

	switch u.Scheme {
	case "fs":
		root := u.Host + u.Path
		if root == "" {
			root = u.Opaque
		}
		if root == "" {
			return nil, apperr.New(apperr.KindStorage, "fs backend url %q names no path", backendURL)
		}
		return NewFSBackend(root)
	case "s3":
		bucket := u.Host
		if bucket == "" {
			return nil, apperr.New(apperr.KindStorage, "s3 backend url %q names no bucket", backendURL)
		}
		prefix := strings.Trim(u.Path, "/")
		return NewS3Backend(ctx, bucket, prefix)
	default:
		return nil, apperr.New(apperr.KindStorage, "unsupported storage backend scheme %q", u.Scheme)
	}
}

// blobPath shards a digest key into a two-level directory prefix
// (ab/cd/abcd...) so a filesystem or S3 "directory" never accumulates
// an unbounded flat listing of every document ever ingested.
func blobPath(key string) (string, error) {
	algorithm, hexDigest, err := splitKey(key)
	if err != nil {
		return "", err
	}
	if len(hexDigest) < 4 {
		return fmt.Sprintf("%s/%s", algorithm, hexDigest), nil
	}
	return fmt.Sprintf("%s/%s/%s/%s", algorithm, hexDigest[:2], hexDigest[2:4], hexDigest), nil
}

func splitKey(key string) (algorithm, hexDigest string, err error) {
	algorithm, hexDigest, found := strings.Cut(key, ":")
	if !found || algorithm == "" || hexDigest == "" {
		return "", "", apperr.New(apperr.KindStorage, "malformed blob key %q", key)
	}
	return algorithm, hexDigest, nil
}

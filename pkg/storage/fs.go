package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/trustify/trustify/pkg/apperr"
)

// FSBackend stores blobs as plain files under a root directory, sharded
// by blobPath so a single directory never lists millions of entries.
type FSBackend struct {
	root string
}

// NewFSBackend returns a Backend rooted at dir, creating it if absent.
func NewFSBackend(dir string) (*FSBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "create storage root %q", dir)
	}
	return &FSBackend{root: dir}, nil
}

func (b *FSBackend) path(key string) (string, error) {
	rel, err := blobPath(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.root, rel), nil
}

func (b *FSBackend) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	path, err := b.path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, apperr.Wrap(apperr.KindStorage, err, "create storage directory for %q", key)
	}

	// Write to a temp file in the same directory and rename into place,
	// so a concurrent Get never observes a partially written blob.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStorage, err, "create temp file for %q", key)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, apperr.Wrap(apperr.KindStorage, err, "write blob %q", key)
	}
	if err := tmp.Close(); err != nil {
		return 0, apperr.Wrap(apperr.KindStorage, err, "close temp file for %q", key)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, apperr.Wrap(apperr.KindStorage, err, "commit blob %q", key)
	}
	return n, nil
}

func (b *FSBackend) Get(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := b.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.NotFound("blob", key)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "open blob %q", key)
	}
	return f, nil
}

func (b *FSBackend) Delete(_ context.Context, key string) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperr.Wrap(apperr.KindStorage, err, "delete blob %q", key)
	}
	return nil
}

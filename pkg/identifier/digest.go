package identifier

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/trustify/trustify/pkg/apperr"
)

// Digests holds the multi-algorithm content hash computed over a
// document as it is streamed into storage (spec.md §4.6's "streaming
// multi-hash" requirement). Every ingest is keyed first by SHA-256.
type Digests struct {
	SHA256 string
	SHA384 string
	SHA512 string
}

// ID returns the "sha256:hex" document identifier spec.md §6 uses as
// the primary lookup key for GET /v2/document/{id}.
func (d Digests) ID() string {
	return "sha256:" + d.SHA256
}

// HashingWriter computes SHA-256, SHA-384 and SHA-512 digests of
// whatever is written to it in a single pass, so a document body can be
// hashed while it is simultaneously streamed to blob storage
// (io.MultiWriter(storageWriter, digestWriter)).
type HashingWriter struct {
	h256 hash.Hash
	h384 hash.Hash
	h512 hash.Hash
}

// NewHashingWriter returns a HashingWriter ready to accept Write calls.
func NewHashingWriter() *HashingWriter {
	return &HashingWriter{
		h256: sha256.New(),
		h384: sha512.New384(),
		h512: sha512.New(),
	}
}

// Write implements io.Writer, feeding p to all three hash states.
func (w *HashingWriter) Write(p []byte) (int, error) {
	w.h256.Write(p)
	w.h384.Write(p)
	w.h512.Write(p)
	return len(p), nil
}

// Digests returns the accumulated digests. Safe to call only after all
// writes are complete.
func (w *HashingWriter) Digests() Digests {
	return Digests{
		SHA256: hex.EncodeToString(w.h256.Sum(nil)),
		SHA384: hex.EncodeToString(w.h384.Sum(nil)),
		SHA512: hex.EncodeToString(w.h512.Sum(nil)),
	}
}

// HashReader consumes all of r and returns its Digests, discarding the
// bytes (used when a caller has already persisted the body elsewhere
// and only needs to verify/derive the digest).
func HashReader(r io.Reader) (Digests, error) {
	w := NewHashingWriter()
	if _, err := io.Copy(w, r); err != nil {
		return Digests{}, fmt.Errorf("hash reader: %w", err)
	}
	return w.Digests(), nil
}

// ParseDigestID parses a "sha{256|384|512}:hex" identifier as accepted
// by GET /v2/advisory/{id} and friends (spec.md §6).
func ParseDigestID(id string) (algorithm, hexDigest string, err error) {
	algorithm, hexDigest, found := strings.Cut(id, ":")
	if !found {
		return "", "", apperr.New(apperr.KindParse, "not a digest id: %q", id)
	}
	switch algorithm {
	case "sha256", "sha384", "sha512":
	default:
		return "", "", apperr.New(apperr.KindParse, "unsupported digest algorithm %q", algorithm)
	}
	if _, err := hex.DecodeString(hexDigest); err != nil {
		return "", "", apperr.Wrap(apperr.KindParse, err, "invalid hex digest in %q", id)
	}
	return algorithm, hexDigest, nil
}

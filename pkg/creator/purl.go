package creator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/identifier"
)

// PurlCreator accumulates pURLs across one document ingest and flushes
// them as three chunked, conflict-tolerant batches in dependency order
// (base, then versioned, then qualified) — spec.md §4.5.
type PurlCreator struct {
	purls []*identifier.Purl
	seen  map[string]struct{}
}

// NewPurlCreator returns an empty PurlCreator.
func NewPurlCreator() *PurlCreator {
	return &PurlCreator{seen: make(map[string]struct{})}
}

// Add buffers p for the next Create call, deduplicating on qualified UUID
// so repeated references within one document don't bloat the batch.
func (c *PurlCreator) Add(p *identifier.Purl) {
	key := p.QualifiedUUID.String()
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.purls = append(c.purls, p)
}

// Len reports how many distinct pURLs are buffered.
func (c *PurlCreator) Len() int { return len(c.purls) }

// Create flushes the buffered pURLs as three batches, in order, each
// chunked under Postgres's parameter limit.
func (c *PurlCreator) Create(ctx context.Context, db graph.Connectable) error {
	if len(c.purls) == 0 {
		return nil
	}

	if err := c.insertBase(ctx, db); err != nil {
		return err
	}
	if err := c.insertVersioned(ctx, db); err != nil {
		return err
	}
	return c.insertQualified(ctx, db)
}

func (c *PurlCreator) insertBase(ctx context.Context, db graph.Connectable) error {
	const cols = 4
	for _, rng := range chunkIndices(len(c.purls), chunkSize(cols)) {
		var sb strings.Builder
		sb.WriteString("INSERT INTO base_purl (id, type, namespace, name) VALUES ")
		var args []any
		for i := rng[0]; i < rng[1]; i++ {
			p := c.purls[i]
			writePlaceholderGroup(&sb, len(args), cols, i > rng[0])
			args = append(args, p.BaseUUID, p.Type, p.Namespace, p.Name)
		}
		sb.WriteString(" ON CONFLICT (type, namespace, name) DO NOTHING")
		if _, err := db.Exec(ctx, sb.String(), args...); err != nil {
			return apperr.Wrap(apperr.KindDatabase, err, "batch insert base_purl")
		}
	}
	return nil
}

func (c *PurlCreator) insertVersioned(ctx context.Context, db graph.Connectable) error {
	const cols = 3
	for _, rng := range chunkIndices(len(c.purls), chunkSize(cols)) {
		var sb strings.Builder
		sb.WriteString("INSERT INTO versioned_purl (id, base_purl_id, version) VALUES ")
		var args []any
		for i := rng[0]; i < rng[1]; i++ {
			p := c.purls[i]
			writePlaceholderGroup(&sb, len(args), cols, i > rng[0])
			args = append(args, p.VersionUUID, p.BaseUUID, p.Version)
		}
		sb.WriteString(" ON CONFLICT (base_purl_id, version) DO NOTHING")
		if _, err := db.Exec(ctx, sb.String(), args...); err != nil {
			return apperr.Wrap(apperr.KindDatabase, err, "batch insert versioned_purl")
		}
	}
	return nil
}

func (c *PurlCreator) insertQualified(ctx context.Context, db graph.Connectable) error {
	const cols = 3
	for _, rng := range chunkIndices(len(c.purls), chunkSize(cols)) {
		var sb strings.Builder
		sb.WriteString("INSERT INTO qualified_purl (id, versioned_purl_id, qualifiers) VALUES ")
		var args []any
		for i := rng[0]; i < rng[1]; i++ {
			p := c.purls[i]
			qualifiers, err := json.Marshal(p.Qualifiers)
			if err != nil {
				return apperr.Wrap(apperr.KindGeneric, err, "marshal qualifiers for %s", p.QualifiedUUID)
			}
			writePlaceholderGroup(&sb, len(args), cols, i > rng[0])
			args = append(args, p.QualifiedUUID, p.VersionUUID, qualifiers)
		}
		sb.WriteString(" ON CONFLICT (versioned_purl_id, qualifiers) DO NOTHING")
		if _, err := db.Exec(ctx, sb.String(), args...); err != nil {
			return apperr.Wrap(apperr.KindDatabase, err, "batch insert qualified_purl")
		}
	}
	return nil
}

// writePlaceholderGroup writes "($n+1, $n+2, ..., $n+cols)" to sb,
// preceded by a comma if notFirst.
func writePlaceholderGroup(sb *strings.Builder, argsSoFar, cols int, notFirst bool) {
	if notFirst {
		sb.WriteString(", ")
	}
	sb.WriteByte('(')
	for j := 1; j <= cols; j++ {
		if j > 1 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(sb, "$%d", argsSoFar+j)
	}
	sb.WriteByte(')')
}

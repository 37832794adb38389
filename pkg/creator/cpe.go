package creator

import (
	"context"
	"strings"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/identifier"
)

// CpeCreator accumulates CPEs across one document ingest and flushes
// them as a single chunked, conflict-tolerant batch (spec.md §4.5).
type CpeCreator struct {
	cpes []*identifier.Cpe
	seen map[string]struct{}
}

// NewCpeCreator returns an empty CpeCreator.
func NewCpeCreator() *CpeCreator {
	return &CpeCreator{seen: make(map[string]struct{})}
}

// Add buffers c, deduplicating on its UUID.
func (c *CpeCreator) Add(cpe *identifier.Cpe) {
	key := cpe.UUID.String()
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.cpes = append(c.cpes, cpe)
}

// Len reports how many distinct CPEs are buffered.
func (c *CpeCreator) Len() int { return len(c.cpes) }

// Create flushes the buffered CPEs.
func (c *CpeCreator) Create(ctx context.Context, db graph.Connectable) error {
	const cols = 8
	for _, rng := range chunkIndices(len(c.cpes), chunkSize(cols)) {
		var sb strings.Builder
		sb.WriteString("INSERT INTO cpe (id, part, vendor, product, version, update, edition, language) VALUES ")
		var args []any
		for i := rng[0]; i < rng[1]; i++ {
			cpe := c.cpes[i]
			writePlaceholderGroup(&sb, len(args), cols, i > rng[0])
			args = append(args, cpe.UUID, cpe.Part, cpe.Vendor, cpe.Product, cpe.Version, cpe.Update, cpe.Edition, cpe.Language)
		}
		sb.WriteString(" ON CONFLICT (id) DO NOTHING")
		if _, err := db.Exec(ctx, sb.String(), args...); err != nil {
			return apperr.Wrap(apperr.KindDatabase, err, "batch insert cpe")
		}
	}
	return nil
}

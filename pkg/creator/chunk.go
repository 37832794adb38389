// Package creator implements Trustify's batch Creator (spec.md §4.5):
// per-document-ingest buffers that accumulate rows across an adapter
// pass and flush them as chunked, conflict-tolerant bulk inserts.
package creator

// maxParams is Postgres's bind-parameter ceiling per statement.
const maxParams = 65535

// chunkSize returns how many rows of a cols-wide insert fit under
// maxParams, leaving headroom (spec.md §4.5: "chunks of ~8000 rows for
// a 7-column insert" — 7*8000 = 56000, comfortably under 65535).
func chunkSize(cols int) int {
	if cols <= 0 {
		cols = 1
	}
	n := maxParams / cols
	if n > 8000 {
		n = 8000
	}
	if n < 1 {
		n = 1
	}
	return n
}

// chunkIndices yields [start,end) index pairs of size at most n over a
// slice of length total.
func chunkIndices(total, n int) [][2]int {
	if total == 0 {
		return nil
	}
	var out [][2]int
	for start := 0; start < total; start += n {
		end := start + n
		if end > total {
			end = total
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

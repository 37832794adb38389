package version

import (
	"strconv"
	"strings"
)

// compareGeneric implements spec.md §4.2's fallback ordering: split each
// version on non-alphanumeric boundaries, compare corresponding
// segments numerically if both are all-digit, lexicographically
// otherwise, and treat a missing trailing segment as smaller (so "1.2"
// < "1.2.1").
func compareGeneric(a, b string) int {
	segsA := splitSegments(a)
	segsB := splitSegments(b)

	for i := 0; i < len(segsA) || i < len(segsB); i++ {
		var sa, sb string
		if i < len(segsA) {
			sa = segsA[i]
		}
		if i < len(segsB) {
			sb = segsB[i]
		}
		if c := compareSegment(sa, sb); c != 0 {
			return c
		}
	}
	return 0
}

func splitSegments(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
}

func compareSegment(a, b string) int {
	if a == b {
		return 0
	}
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

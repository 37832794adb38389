package version

import (
	"strconv"
	"strings"
)

// pythonQualifierRank orders PEP 440 pre/post-release segments:
// dev < a(lpha) < b(eta) < rc < (final release) < post.
var pythonQualifierRank = map[string]int{
	"dev":   0,
	"a":     1,
	"alpha": 1,
	"b":     2,
	"beta":  2,
	"rc":    3,
	"c":     3,
	"":      4,
	"post":  5,
	"r":     5,
	"rev":   5,
}

// comparePython implements a pragmatic subset of PEP 440 ordering:
// normalize to lowercase, split the release segment on '.', then split
// any trailing pre/post/dev qualifier (letters followed by an optional
// number) and order it by pythonQualifierRank. Local version segments
// (the "+..." suffix) are stripped — Trustify's advisory data does not
// carry local versions.
func comparePython(a, b string) int {
	releaseA, qualA, numA := splitPythonVersion(a)
	releaseB, qualB, numB := splitPythonVersion(b)

	relA := strings.Split(releaseA, ".")
	relB := strings.Split(releaseB, ".")
	for i := 0; i < len(relA) || i < len(relB); i++ {
		var sa, sb string
		if i < len(relA) {
			sa = relA[i]
		}
		if i < len(relB) {
			sb = relB[i]
		}
		if c := compareSegment(sa, sb); c != 0 {
			return c
		}
	}

	ra, oka := pythonQualifierRank[qualA]
	rb, okb := pythonQualifierRank[qualB]
	if !oka {
		ra = 4
	}
	if !okb {
		rb = 4
	}
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if numA != numB {
		if numA < numB {
			return -1
		}
		return 1
	}
	return 0
}

func splitPythonVersion(v string) (release, qualifier string, num int) {
	v = strings.ToLower(v)
	if i := strings.IndexByte(v, '+'); i >= 0 {
		v = v[:i]
	}

	idx := -1
	for i, r := range v {
		if r == 'a' || r == 'b' || r == 'c' {
			idx = i
			break
		}
		if strings.HasPrefix(v[i:], "rc") || strings.HasPrefix(v[i:], "dev") ||
			strings.HasPrefix(v[i:], "post") || strings.HasPrefix(v[i:], "rev") {
			idx = i
			break
		}
	}
	if idx < 0 {
		return v, "", 0
	}

	release = strings.TrimRight(v[:idx], ".-_")
	rest := strings.TrimLeft(v[idx:], ".-_")

	qualEnd := 0
	for qualEnd < len(rest) && !isDigit(rest[qualEnd]) {
		qualEnd++
	}
	qualifier = rest[:qualEnd]
	if n, err := strconv.Atoi(rest[qualEnd:]); err == nil {
		num = n
	}
	return release, qualifier, num
}

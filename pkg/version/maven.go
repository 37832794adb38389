package version

import (
	"strconv"
	"strings"
)

// mavenQualifierRank orders the well-known Maven qualifiers, mirroring
// Maven's ComparableVersion: alpha < beta < milestone < rc/cr <
// snapshot < (release) < sp. Unknown qualifiers sort after all of these,
// ordered lexicographically among themselves.
var mavenQualifierRank = map[string]int{
	"alpha":     0,
	"beta":      1,
	"milestone": 2,
	"m":         2,
	"rc":        3,
	"cr":        3,
	"snapshot":  4,
	"":          5, // release/GA, the implicit qualifier
	"ga":        5,
	"final":     5,
	"sp":        6,
}

// compareMaven implements Maven version ordering closely enough for
// range containment: tokens are split on '.', '-' and '_' (a token
// mixing digits and letters, such as the "0rc1" of "1.0rc1", is not
// split further and compares as one qualifier), numeric tokens compare
// by magnitude, qualifier tokens
// compare by mavenQualifierRank, and a version with fewer trailing
// tokens is padded with zero/release tokens so "1.0" == "1.0.0" and
// "1.0" == "1.0-ga" (spec.md §4.2's "Maven treats 1.0 == 1.0.0").
func compareMaven(a, b string) int {
	ta := mavenTokens(a)
	tb := mavenTokens(b)

	for i := 0; i < len(ta) || i < len(tb); i++ {
		var x, y mavenToken
		haveX, haveY := i < len(ta), i < len(tb)
		if haveX {
			x = ta[i]
		}
		if haveY {
			y = tb[i]
		}
		if !haveX {
			x = padToken(y)
		}
		if !haveY {
			y = padToken(x)
		}
		if c := x.compare(y); c != 0 {
			return c
		}
	}
	return 0
}

// padToken fills a missing trailing position so that it compares equal
// to "nothing" against like's own kind: a missing numeric position pads
// as 0 (so "1.0" == "1.0.0"), a missing qualifier position pads as the
// release qualifier (so "1.0" == "1.0-ga", and "1.0" < "1.0-sp" since
// "sp" outranks the implicit release qualifier).
func padToken(like mavenToken) mavenToken {
	if like.numeric {
		return mavenZeroToken
	}
	return mavenToken{qual: ""}
}

type mavenToken struct {
	numeric bool
	num     int64
	qual    string
}

var mavenZeroToken = mavenToken{numeric: true, num: 0}

func (t mavenToken) compare(other mavenToken) int {
	if t.numeric && other.numeric {
		switch {
		case t.num < other.num:
			return -1
		case t.num > other.num:
			return 1
		default:
			return 0
		}
	}
	if t.numeric != other.numeric {
		// A numeric token outranks any qualifier token (Maven treats
		// numeric parts as newer than qualifier parts at the same
		// position), except both are normalized to "" == release
		// before comparison by the caller padding with mavenZeroToken.
		if t.numeric {
			return 1
		}
		return -1
	}

	ra, oka := mavenQualifierRank[t.qual]
	rb, okb := mavenQualifierRank[other.qual]
	if oka && okb {
		switch {
		case ra < rb:
			return -1
		case ra > rb:
			return 1
		default:
			return 0
		}
	}
	if oka != okb {
		if okb {
			return 1
		}
		return -1
	}
	return strings.Compare(t.qual, other.qual)
}

func mavenTokens(v string) []mavenToken {
	raw := strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})

	tokens := make([]mavenToken, 0, len(raw))
	for _, r := range raw {
		if r == "" {
			continue
		}
		if n, err := strconv.ParseInt(r, 10, 64); err == nil {
			tokens = append(tokens, mavenToken{numeric: true, num: n})
			continue
		}
		tokens = append(tokens, mavenToken{qual: strings.ToLower(r)})
	}
	return tokens
}

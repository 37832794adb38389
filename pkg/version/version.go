// Package version implements the version algebra Trustify uses to test
// whether a concrete package version falls inside an advisory's
// affected-version range, across the handful of versioning schemes the
// ecosystems it ingests actually use.
package version

import "fmt"

// Scheme names a versioning convention with its own total order.
type Scheme string

const (
	Semver  Scheme = "semver"
	Maven   Scheme = "maven"
	Rpm     Scheme = "rpm"
	Python  Scheme = "python"
	Generic Scheme = "generic"
)

// EndpointKind classifies a Range boundary.
type EndpointKind int

const (
	Unbounded EndpointKind = iota
	Inclusive
	Exclusive
)

// Endpoint is one bound of a Range.
type Endpoint struct {
	Kind  EndpointKind
	Value string
}

// Spec is either an exact version or a bounded/unbounded range. Exactly
// one of the two fields is meaningful, selected by IsExact.
type Spec struct {
	IsExact bool
	Exact   string
	Lo      Endpoint
	Hi      Endpoint
}

// ExactSpec builds a Spec matching a single version.
func ExactSpec(v string) Spec {
	return Spec{IsExact: true, Exact: v}
}

// RangeSpec builds a Spec matching an interval between lo and hi.
func RangeSpec(lo, hi Endpoint) Spec {
	return Spec{Lo: lo, Hi: hi}
}

// UnboundedSpec returns the Range(Unbounded, Unbounded) spec spec.md §4.2
// pairs with advisories that carry no version information at all — it
// contains every version and relies on an accompanying CPE constraint
// to narrow matches.
func UnboundedSpec() Spec {
	return RangeSpec(Endpoint{Kind: Unbounded}, Endpoint{Kind: Unbounded})
}

// VersionInfo is a scheme-tagged version or version range, as persisted
// on an advisory's affected-product relationship.
type VersionInfo struct {
	Scheme Scheme
	Spec   Spec
}

// Contains reports whether v (a concrete version string) satisfies vi's
// spec, per spec.md §4.2's containment test: compare v against the
// spec's bounds using the scheme's ordering.
func (vi VersionInfo) Contains(v string) bool {
	cmp := comparatorFor(vi.Scheme)

	if vi.Spec.IsExact {
		return cmp(v, vi.Spec.Exact) == 0
	}

	if !satisfiesLower(cmp, v, vi.Spec.Lo) {
		return false
	}
	return satisfiesUpper(cmp, v, vi.Spec.Hi)
}

func satisfiesLower(cmp comparator, v string, lo Endpoint) bool {
	switch lo.Kind {
	case Unbounded:
		return true
	case Inclusive:
		return cmp(v, lo.Value) >= 0
	case Exclusive:
		return cmp(v, lo.Value) > 0
	default:
		return false
	}
}

func satisfiesUpper(cmp comparator, v string, hi Endpoint) bool {
	switch hi.Kind {
	case Unbounded:
		return true
	case Inclusive:
		return cmp(v, hi.Value) <= 0
	case Exclusive:
		return cmp(v, hi.Value) < 0
	default:
		return false
	}
}

// comparator returns <0, 0, >0 as a < b, a == b, a > b.
type comparator func(a, b string) int

// comparatorFor dispatches to the scheme-specific ordering. An
// unrecognized scheme silently falls back to Generic, matching spec.md
// §4.2's "parsing a scheme-invalid version yields the fallback Generic
// order" edge case.
func comparatorFor(s Scheme) comparator {
	switch s {
	case Semver:
		return compareSemver
	case Maven:
		return compareMaven
	case Rpm:
		return compareRpm
	case Python:
		return comparePython
	default:
		return compareGeneric
	}
}

// String renders a human-readable form, mainly for error messages and
// logging.
func (vi VersionInfo) String() string {
	if vi.Spec.IsExact {
		return fmt.Sprintf("%s:%s", vi.Scheme, vi.Spec.Exact)
	}
	return fmt.Sprintf("%s:%s..%s", vi.Scheme, endpointString(vi.Spec.Lo, false), endpointString(vi.Spec.Hi, true))
}

func endpointString(e Endpoint, upper bool) string {
	switch e.Kind {
	case Unbounded:
		if upper {
			return "+inf"
		}
		return "-inf"
	case Inclusive:
		return "[" + e.Value
	case Exclusive:
		return "(" + e.Value
	default:
		return "?"
	}
}

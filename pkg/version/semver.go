package version

import "github.com/Masterminds/semver/v3"

// compareSemver orders using Masterminds/semver/v3, the same library
// hemzaz-freightliner uses for its release-tag comparisons
// (pkg/sync/semver.go). Unparsable input falls back to the generic
// comparator, per spec.md §4.2's "parsing a scheme-invalid version
// yields the fallback Generic order."
func compareSemver(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return compareGeneric(a, b)
	}
	return va.Compare(vb)
}

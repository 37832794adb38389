package adapter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/identifier"
	"github.com/trustify/trustify/pkg/version"
)

// osvDocument is the subset of the OSV schema
// (https://ossf.github.io/osv-schema/) Trustify cares about, grounded on
// original_source's osv::loader::OsvAdvisory and its nested Affected/
// Range/Event/Severity types.
type osvDocument struct {
	ID         string         `json:"id"`
	Aliases    []string       `json:"aliases"`
	Summary    string         `json:"summary"`
	Details    string         `json:"details"`
	Published  string         `json:"published"`
	Modified   string         `json:"modified"`
	Severity   []osvSeverity  `json:"severity"`
	Affected   []osvAffected  `json:"affected"`
	References []osvReference `json:"references"`
}

type osvSeverity struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

type osvReference struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type osvAffected struct {
	Package  osvPackage `json:"package"`
	Ranges   []osvRange `json:"ranges"`
	Versions []string   `json:"versions"`
}

type osvPackage struct {
	Ecosystem string `json:"ecosystem"`
	Name      string `json:"name"`
	Purl      string `json:"purl"`
}

type osvRange struct {
	Type   string     `json:"type"`
	Events []osvEvent `json:"events"`
}

type osvEvent struct {
	Introduced   string `json:"introduced,omitempty"`
	Fixed        string `json:"fixed,omitempty"`
	LastAffected string `json:"last_affected,omitempty"`
	Limit        string `json:"limit,omitempty"`
}

// osvEcosystemPurlType maps an OSV ecosystem name to its pURL type,
// used only when a package entry carries no explicit purl field
// (grounded on original_source's osv::translate::ecosystem_to_purl_type,
// supplemented here with the ecosystems osv.dev actually aggregates).
var osvEcosystemPurlType = map[string]string{
	"crates.io": "cargo",
	"Go":        "golang",
	"Maven":     "maven",
	"npm":       "npm",
	"NuGet":     "nuget",
	"PyPI":      "pypi",
	"RubyGems":  "gem",
	"Packagist": "composer",
	"Hex":       "hex",
	"Pub":       "pub",
	"Debian":    "deb",
	"Alpine":    "apk",
	"Linux":     "generic",
}

// osvEcosystemScheme maps an OSV ecosystem to the versioning scheme its
// "ECOSYSTEM"-typed ranges should be compared under.
var osvEcosystemScheme = map[string]version.Scheme{
	"PyPI":  version.Python,
	"Maven": version.Maven,
}

// ParseOSV reads one OSV record and returns its advisory-intermediate
// form. The document's own id becomes Advisory.Identifier; its
// vulnerability identity is the first CVE- prefixed alias if one
// exists, falling back to the document id itself, mirroring
// original_source's alias-to-CVE preference (an OSV record commonly
// restates a GHSA under its upstream CVE number).
func ParseOSV(r io.Reader) (*AdvisoryDocument, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errParse(err, "read osv document")
	}
	var doc osvDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errParse(err, "parse osv document")
	}
	if doc.ID == "" {
		return nil, errParse(nil, "osv document missing id")
	}

	out := &AdvisoryDocument{
		Advisory: graph.Advisory{
			Identifier: doc.ID,
		},
	}

	if issuer := detectIssuer(doc.References); issuer != "" {
		out.Issuer = &graph.Organization{Name: issuer}
	}

	if t, ok := parseRFC3339(doc.Published); ok {
		out.Advisory.Published = &t
	}
	if t, ok := parseRFC3339(doc.Modified); ok {
		out.Advisory.Modified = &t
	}

	vulnID := primaryVulnerabilityID(doc)

	claim := VulnerabilityClaim{
		ID:        vulnID,
		Summary:   doc.Summary,
		Title:     doc.Details,
		Published: out.Advisory.Published,
		Modified:  out.Advisory.Modified,
	}
	if claim.Title == "" {
		claim.Title = doc.Summary
	}

	for _, sev := range doc.Severity {
		if sev.Type != "CVSS_V3" {
			continue
		}
		score, err := parseCVSSVector(sev.Score)
		if err != nil {
			out.Warnings = append(out.Warnings, "skipping severity: "+err.Error())
			continue
		}
		claim.CVSS = append(claim.CVSS, score)
	}

	for _, aff := range doc.Affected {
		statuses, warnings := convertOsvAffected(aff)
		claim.Statuses = append(claim.Statuses, statuses...)
		out.Warnings = append(out.Warnings, warnings...)
	}

	out.Vulnerabilities = []VulnerabilityClaim{claim}
	return out, nil
}

// primaryVulnerabilityID returns the first CVE- prefixed alias, or
// doc.ID if the record names none.
func primaryVulnerabilityID(doc osvDocument) string {
	for _, alias := range doc.Aliases {
		if strings.HasPrefix(alias, "CVE-") {
			return alias
		}
	}
	return doc.ID
}

func parseRFC3339(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// convertOsvAffected turns one affected-package entry into its package
// status claims: one per interval of each supported range (status
// "affected", scoped to the interval's bounds) plus one per explicitly
// enumerated exact version.
func convertOsvAffected(aff osvAffected) ([]PackageStatusClaim, []string) {
	var warnings []string
	base, err := resolveOsvPurl(aff.Package)
	if err != nil {
		return nil, []string{"skipping affected package: " + err.Error()}
	}

	var claims []PackageStatusClaim
	for _, rg := range aff.Ranges {
		scheme, ok := osvRangeScheme(rg.Type, aff.Package.Ecosystem)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("skipping unsupported osv range type %q for %s", rg.Type, aff.Package.Name))
			continue
		}
		for _, spec := range osvRangeSpecs(rg.Events) {
			claims = append(claims, PackageStatusClaim{
				Purl:        base,
				Status:      "affected",
				VersionInfo: version.VersionInfo{Scheme: scheme, Spec: spec},
			})
		}
	}

	scheme := osvEcosystemScheme[aff.Package.Ecosystem]
	if scheme == "" {
		scheme = version.Generic
	}
	for _, v := range aff.Versions {
		claims = append(claims, PackageStatusClaim{
			Purl:        base,
			Status:      "affected",
			VersionInfo: version.VersionInfo{Scheme: scheme, Spec: version.ExactSpec(v)},
		})
	}

	return claims, warnings
}

// osvRangeScheme resolves the comparison scheme for one range entry.
// A "SEMVER" range always compares as semver regardless of ecosystem;
// an "ECOSYSTEM" range falls back to the package's own ecosystem
// convention; "GIT" ranges name commits, which carry no total order
// Trustify can apply, so they are rejected here rather than silently
// mismatched against a numeric scheme.
func osvRangeScheme(rangeType, ecosystem string) (version.Scheme, bool) {
	switch rangeType {
	case "SEMVER":
		return version.Semver, true
	case "ECOSYSTEM":
		if scheme, ok := osvEcosystemScheme[ecosystem]; ok {
			return scheme, true
		}
		return version.Generic, true
	default:
		return "", false
	}
}

// osvRangeSpecs walks one range's ordered events, pairing each
// "introduced" with the next closing event ("fixed", "last_affected",
// or "limit") to build intervals whose upper bound is exclusive for
// "fixed" and "limit" and inclusive for "last_affected", per the OSV schema's event
// ordering rule (events are listed in ascending version order with
// introduced/fixed/last_affected alternating). An "introduced" of "0"
// denotes an unbounded lower bound.
func osvRangeSpecs(events []osvEvent) []version.Spec {
	var specs []version.Spec
	var lo *version.Endpoint

	for _, ev := range events {
		switch {
		case ev.Introduced != "":
			e := version.Endpoint{Kind: version.Inclusive, Value: ev.Introduced}
			if ev.Introduced == "0" {
				e = version.Endpoint{Kind: version.Unbounded}
			}
			lo = &e
		case ev.Fixed != "":
			specs = append(specs, closeRange(lo, version.Endpoint{Kind: version.Exclusive, Value: ev.Fixed}))
			lo = nil
		case ev.LastAffected != "":
			specs = append(specs, closeRange(lo, version.Endpoint{Kind: version.Inclusive, Value: ev.LastAffected}))
			lo = nil
		case ev.Limit != "":
			specs = append(specs, closeRange(lo, version.Endpoint{Kind: version.Exclusive, Value: ev.Limit}))
			lo = nil
		}
	}
	if lo != nil {
		specs = append(specs, version.RangeSpec(*lo, version.Endpoint{Kind: version.Unbounded}))
	}
	return specs
}

func closeRange(lo *version.Endpoint, hi version.Endpoint) version.Spec {
	if lo == nil {
		return version.RangeSpec(version.Endpoint{Kind: version.Unbounded}, hi)
	}
	return version.RangeSpec(*lo, hi)
}

// resolveOsvPurl derives the unversioned base pURL a package entry's
// claims are keyed to, preferring the document's own purl field and
// falling back to a synthesized one built from the ecosystem/name pair
// when absent (older OSV records predate the purl field).
func resolveOsvPurl(pkg osvPackage) (*identifier.Purl, error) {
	if pkg.Purl != "" {
		return identifier.ParsePurl(pkg.Purl)
	}

	purlType, ok := osvEcosystemPurlType[pkg.Ecosystem]
	if !ok {
		return nil, errParse(nil, "unrecognized osv ecosystem %q", pkg.Ecosystem)
	}

	name := pkg.Name
	namespace := ""
	if purlType == "maven" {
		if ns, n, found := strings.Cut(pkg.Name, ":"); found {
			namespace, name = ns, n
		}
	}

	synthetic := "pkg:" + purlType + "/"
	if namespace != "" {
		synthetic += namespace + "/"
	}
	synthetic += name
	return identifier.ParsePurl(synthetic)
}

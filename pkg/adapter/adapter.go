// Package adapter parses the five document formats Trustify ingests
// (SPDX, CycloneDX, CSAF, OSV, CVE) into the graph-store's own types,
// per spec.md §4.6. SBOM adapters fill a pkg/creator.Creator batch;
// advisory adapters emit a flat claim list the ingestion service (C7)
// walks inside one transaction, since an advisory's row ID and which of
// its identifier's rows stays non-deprecated are only settled once
// IngestAdvisory runs.
package adapter

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/creator"
	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/identifier"
	"github.com/trustify/trustify/pkg/version"
)

// Format names one of the five document formats this package parses.
type Format string

const (
	FormatSPDX      Format = "spdx"
	FormatCycloneDX Format = "cyclonedx"
	FormatCSAF      Format = "csaf"
	FormatOSV       Format = "osv"
	FormatCVE       Format = "cve"
	FormatUnknown   Format = "unknown"
)

// sniffProbe is the minimal shape every format's root object is probed
// against; only the fields that distinguish formats are declared.
type sniffProbe struct {
	SPDXVersion     string `json:"spdxVersion"`
	BOMFormat       string `json:"bomFormat"`
	Document        any    `json:"document"` // CSAF: {csaf_version, tracking, ...}
	SchemaVersion   string `json:"schema_version"`
	ID              any    `json:"id"` // OSV: a GHSA-/RUSTSEC-/CVE- style string
	Aliases         any    `json:"aliases"`
	CVEMetadata     any    `json:"cveMetadata"`
	DataType        string `json:"data_type"` // CSAF top-level: "CSAF_VSA" etc, rarely set
}

// Sniff inspects raw's JSON root keys to decide which format parser to
// dispatch to (spec.md §4.7 step 1, "if format_hint is Auto, sniff").
// A document whose first non-space byte is '<' is classified as
// CycloneDX XML without further probing.
func Sniff(raw []byte) Format {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return FormatCycloneDX
	}

	var probe sniffProbe
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return FormatUnknown
	}

	switch {
	case probe.SPDXVersion != "":
		return FormatSPDX
	case probe.BOMFormat == "CycloneDX":
		return FormatCycloneDX
	case probe.CVEMetadata != nil:
		return FormatCVE
	case probe.Document != nil:
		return FormatCSAF
	case probe.ID != nil && probe.Aliases != nil:
		return FormatOSV
	default:
		return FormatUnknown
	}
}

// SbomDocument is one parsed SBOM: its header row, the batch of graph
// operations it generates, and any custom SPDX LicenseRef- definitions.
type SbomDocument struct {
	Sbom          *graph.Sbom
	Creator       *creator.Creator
	Licenses      []graph.License
	LicensingInfo []graph.LicensingInfo
	Warnings      []string
}

// AdvisoryDocument is one parsed advisory: its header row (ID left
// uuid.Nil; IngestAdvisory assigns it) and the vulnerabilities it
// describes. Issuer is nil when the document names no issuing
// organization.
type AdvisoryDocument struct {
	Advisory        graph.Advisory
	Issuer          *graph.Organization
	Vulnerabilities []VulnerabilityClaim
	Warnings        []string
}

// VulnerabilityClaim is one advisory's statement about one
// vulnerability: its descriptive fields, CVSS vectors, and the set of
// package/version ranges it claims are affected, fixed, or unaffected.
type VulnerabilityClaim struct {
	ID        string
	Title     string
	Summary   string
	CWEs      []string
	Published *time.Time
	Modified  *time.Time
	CVSS      []graph.CVSSScore
	Statuses  []PackageStatusClaim
}

// PackageStatusClaim is one (package, status, range) tuple within a
// VulnerabilityClaim, prior to the base_purl row existing. Purl is
// always unversioned — see graph.IngestPackageStatus.
type PackageStatusClaim struct {
	Purl        *identifier.Purl
	ContextCpe  *identifier.Cpe
	Status      string
	VersionInfo version.VersionInfo
}

// errParse wraps err as a KindParse apperr with the given context.
func errParse(err error, format string, args ...any) error {
	return apperr.Wrap(apperr.KindParse, err, format, args...)
}

// parseCVSSVector parses a CVSS 3.x vector string ("CVSS:3.1/AV:N/AC:L/
// PR:N/UI:N/S:U/C:H/I:H/A:H") into a CVSSScore's metric fields. Score
// and Severity are left zero; graph.LinkToVulnerability derives them
// with ScoreCVSS31 (pkg/graph/cvss.go) when it stores the score, once
// AdvisoryID/VulnerabilityID are known. Shared by the OSV and CVE adapters since both embed a bare CVSS vector string
// rather than Trustify's own CVSSScore shape.
func parseCVSSVector(vector string) (graph.CVSSScore, error) {
	parts := strings.Split(vector, "/")
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "CVSS:3.") {
		return graph.CVSSScore{}, errParse(nil, "unsupported cvss vector %q", vector)
	}
	minorVersion, err := strconv.Atoi(strings.TrimPrefix(parts[0], "CVSS:3."))
	if err != nil {
		return graph.CVSSScore{}, errParse(err, "parse cvss minor version from %q", vector)
	}

	metrics := make(map[string]string, len(parts)-1)
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(p, ":")
		if !ok {
			continue
		}
		metrics[k] = v
	}

	score := graph.CVSSScore{
		MinorVersion: minorVersion,
		AV:           metrics["AV"],
		AC:           metrics["AC"],
		PR:           metrics["PR"],
		UI:           metrics["UI"],
		S:            metrics["S"],
		C:            metrics["C"],
		I:            metrics["I"],
		A:            metrics["A"],
	}
	if score.AV == "" || score.AC == "" || score.PR == "" || score.UI == "" || score.S == "" || score.C == "" || score.I == "" || score.A == "" {
		return graph.CVSSScore{}, errParse(nil, "incomplete cvss vector %q", vector)
	}
	return score, nil
}

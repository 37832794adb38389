package adapter

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/identifier"
	"github.com/trustify/trustify/pkg/version"
)

// cveDocument is the subset of the MITRE CVE Record Format (5.x) this
// adapter reads: cveMetadata.cveId, containers.cna.descriptions, CVSS
// v3.x metrics, and affected ranges when present (spec.md §4.6's own
// one-paragraph description of this adapter — no original_source file
// survived for CVE parsing, so this envelope is designed directly
// against the public CVE Record Format schema rather than recovered).
type cveDocument struct {
	CVEMetadata struct {
		CVEID         string `json:"cveId"`
		DatePublished string `json:"datePublished"`
		DateUpdated   string `json:"dateUpdated"`
	} `json:"cveMetadata"`
	Containers struct {
		CNA cveCNAContainer `json:"cna"`
	} `json:"containers"`
}

type cveCNAContainer struct {
	Title        string `json:"title"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	ProblemTypes []struct {
		Descriptions []struct {
			CWEID       string `json:"cweId"`
			Description string `json:"description"`
		} `json:"descriptions"`
	} `json:"problemTypes"`
	Metrics  []map[string]json.RawMessage `json:"metrics"`
	Affected []cveAffected                `json:"affected"`
}

type cveAffected struct {
	Vendor        string            `json:"vendor"`
	Product       string            `json:"product"`
	PackageName   string            `json:"packageName"`
	CollectionURL string            `json:"collectionURL"`
	CPEs          []string          `json:"cpes"`
	Versions      []cveVersionRange `json:"versions"`
}

type cveVersionRange struct {
	Version         string `json:"version"`
	Status          string `json:"status"`
	LessThan        string `json:"lessThan"`
	LessThanOrEqual string `json:"lessThanOrEqual"`
	VersionType     string `json:"versionType"`
}

// cveVersionTypeScheme maps a CVE record's versionType string to the
// pkg/version scheme it should compare under.
var cveVersionTypeScheme = map[string]version.Scheme{
	"semver": version.Semver,
	"maven":  version.Maven,
	"rpm":    version.Rpm,
	"python": version.Python,
}

// cveCollectionPurlType maps a known package-collection URL host to
// its pURL type, used to build the synthetic purl every affected entry
// is keyed against (whether or not it also lists CPEs) — supplemented
// here since the CVE Record Format carries no native purl field.
var cveCollectionPurlType = map[string]string{
	"npmjs.com":     "npm",
	"pypi.org":      "pypi",
	"rubygems.org":  "gem",
	"crates.io":     "cargo",
	"packagist.org": "composer",
	"nuget.org":     "nuget",
}

// ParseCVE reads one CVE Record Format 5.x document and returns its
// advisory-intermediate form. The advisory's own identifier and its
// one vulnerability's identifier are both the CVE ID, since a CVE
// record is definitionally a first-party statement about itself.
func ParseCVE(r io.Reader) (*AdvisoryDocument, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errParse(err, "read cve document")
	}
	var doc cveDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errParse(err, "parse cve document")
	}
	if doc.CVEMetadata.CVEID == "" {
		return nil, errParse(nil, "cve document missing cveMetadata.cveId")
	}

	out := &AdvisoryDocument{
		Advisory: graph.Advisory{
			Identifier: doc.CVEMetadata.CVEID,
			Title:      doc.Containers.CNA.Title,
		},
	}
	if t, ok := parseRFC3339(doc.CVEMetadata.DatePublished); ok {
		out.Advisory.Published = &t
	}
	if t, ok := parseRFC3339(doc.CVEMetadata.DateUpdated); ok {
		out.Advisory.Modified = &t
	}

	claim := VulnerabilityClaim{
		ID:        doc.CVEMetadata.CVEID,
		Title:     doc.Containers.CNA.Title,
		Published: out.Advisory.Published,
		Modified:  out.Advisory.Modified,
	}

	for _, d := range doc.Containers.CNA.Descriptions {
		if d.Lang == "en" || d.Lang == "" {
			claim.Summary = d.Value
			break
		}
	}
	if claim.Title == "" {
		claim.Title = claim.Summary
	}

	for _, pt := range doc.Containers.CNA.ProblemTypes {
		for _, d := range pt.Descriptions {
			if d.CWEID != "" {
				claim.CWEs = append(claim.CWEs, d.CWEID)
			}
		}
	}

	for _, metric := range doc.Containers.CNA.Metrics {
		for key, raw := range metric {
			if !strings.HasPrefix(key, "cvssV3") {
				continue
			}
			var v struct {
				VectorString string `json:"vectorString"`
			}
			if err := json.Unmarshal(raw, &v); err != nil || v.VectorString == "" {
				continue
			}
			cvss, err := parseCVSSVector(v.VectorString)
			if err != nil {
				out.Warnings = append(out.Warnings, "skipping cve metric: "+err.Error())
				continue
			}
			claim.CVSS = append(claim.CVSS, cvss)
		}
	}

	for _, aff := range doc.Containers.CNA.Affected {
		statuses, warnings := convertCveAffected(aff)
		claim.Statuses = append(claim.Statuses, statuses...)
		out.Warnings = append(out.Warnings, warnings...)
	}

	out.Vulnerabilities = []VulnerabilityClaim{claim}
	return out, nil
}

func convertCveAffected(aff cveAffected) ([]PackageStatusClaim, []string) {
	base, err := resolveCvePurl(aff)
	if err != nil {
		return nil, []string{"skipping cve affected entry: " + err.Error()}
	}

	var contextCpe *identifier.Cpe
	if len(aff.CPEs) > 0 {
		if c, err := identifier.ParseCpe(aff.CPEs[0]); err == nil {
			contextCpe = c
		}
	}

	var claims []PackageStatusClaim
	for _, v := range aff.Versions {
		status := "affected"
		if v.Status == "unaffected" {
			status = "not_affected"
		}
		scheme := cveVersionTypeScheme[v.VersionType]
		if scheme == "" {
			scheme = version.Generic
		}

		var spec version.Spec
		switch {
		case v.LessThan != "":
			spec = version.RangeSpec(
				version.Endpoint{Kind: version.Inclusive, Value: v.Version},
				version.Endpoint{Kind: version.Exclusive, Value: v.LessThan},
			)
		case v.LessThanOrEqual != "":
			spec = version.RangeSpec(
				version.Endpoint{Kind: version.Inclusive, Value: v.Version},
				version.Endpoint{Kind: version.Inclusive, Value: v.LessThanOrEqual},
			)
		default:
			spec = version.ExactSpec(v.Version)
		}

		claims = append(claims, PackageStatusClaim{
			Purl:        base,
			ContextCpe:  contextCpe,
			Status:      status,
			VersionInfo: version.VersionInfo{Scheme: scheme, Spec: spec},
		})
	}
	return claims, nil
}

// resolveCvePurl builds the unversioned base pURL an affected entry's
// claims key against. The CVE Record Format has no native purl field,
// so this prefers a known package-collection URL (npm, PyPI, etc) when
// present and otherwise falls back to a generic purl over vendor/product.
func resolveCvePurl(aff cveAffected) (*identifier.Purl, error) {
	name := aff.PackageName
	if name == "" {
		name = aff.Product
	}
	if name == "" {
		return nil, errParse(nil, "affected entry names no product")
	}

	purlType := "generic"
	for host, t := range cveCollectionPurlType {
		if strings.Contains(aff.CollectionURL, host) {
			purlType = t
			break
		}
	}

	namespace := ""
	if purlType == "generic" && aff.Vendor != "" && aff.Vendor != "n/a" {
		namespace = aff.Vendor
	}

	synthetic := "pkg:" + purlType + "/"
	if namespace != "" {
		synthetic += namespace + "/"
	}
	synthetic += name
	return identifier.ParsePurl(synthetic)
}

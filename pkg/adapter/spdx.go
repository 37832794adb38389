package adapter

import (
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	spdxjson "github.com/spdx/tools-golang/json"
	"github.com/spdx/tools-golang/spdx/v2/common"
	"github.com/spdx/tools-golang/spdx/v2/v2_3"

	"github.com/trustify/trustify/pkg/creator"
	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/identifier"
)

const noAssertion = "NOASSERTION"

// spdxRelationshipRule says how to fold one SPDX RelationshipType into
// Trustify's canonical left-relates-to-right direction: rel is the
// Trustify relationship to write, and swap reports whether the SPDX
// document's RefA/RefB need to trade places to reach it. Trustify's
// "*Of"/"*By"/"GeneratedFrom" constants already read left-to-right in
// the direction the rule's non-swapped SPDX verb names; the verb-first
// SPDX forms (CONTAINS, DESCRIBES, DEPENDS_ON, GENERATES, DESCENDANT_OF)
// name the same edge from the opposite end and so invert.
var spdxRelationshipRules = map[string]struct {
	rel  graph.Relationship
	swap bool
}{
	"DESCRIBES":              {graph.RelDescribedBy, true},
	"DESCRIBED_BY":           {graph.RelDescribedBy, false},
	"CONTAINS":               {graph.RelContainedBy, true},
	"CONTAINED_BY":           {graph.RelContainedBy, false},
	"DEPENDS_ON":             {graph.RelDependencyOf, true},
	"DEPENDENCY_OF":          {graph.RelDependencyOf, false},
	"DEV_DEPENDENCY_OF":      {graph.RelDevDependencyOf, false},
	"OPTIONAL_DEPENDENCY_OF": {graph.RelOptionalDependencyOf, false},
	"PROVIDED_DEPENDENCY_OF": {graph.RelProvidedDependencyOf, false},
	"TEST_DEPENDENCY_OF":     {graph.RelTestDependencyOf, false},
	"RUNTIME_DEPENDENCY_OF":  {graph.RelRuntimeDependencyOf, false},
	"EXAMPLE_OF":             {graph.RelExampleOf, false},
	"GENERATED_FROM":         {graph.RelGeneratedFrom, false},
	"GENERATES":              {graph.RelGeneratedFrom, true},
	"ANCESTOR_OF":            {graph.RelAncestorOf, false},
	"DESCENDANT_OF":          {graph.RelAncestorOf, true},
	"VARIANT_OF":             {graph.RelVariantOf, false},
	"BUILD_TOOL_OF":          {graph.RelBuildToolOf, false},
	"DEV_TOOL_OF":            {graph.RelDevToolOf, false},
	"PACKAGE_OF":             {graph.RelPackage, false},
}

const externalRefPrefix = "DocumentRef-"

// ParseSPDX reads an SPDX 2.3 JSON document and returns its graph-store
// form. sbomID is caller-assigned (the content digest of the source
// document, per spec.md §4.1); documentID is the SPDX document's own
// namespace, stored as Sbom.DocumentID.
func ParseSPDX(r io.Reader, sbomID uuid.UUID) (*SbomDocument, error) {
	doc, err := spdxjson.Read(r)
	if err != nil {
		return nil, errParse(err, "parse spdx document")
	}

	docNodeID := string(doc.SPDXIdentifier)
	if docNodeID == "" {
		docNodeID = "SPDXRef-DOCUMENT"
	}

	out := &SbomDocument{
		Creator: creator.NewCreator(docNodeID),
	}

	var published *time.Time
	if doc.CreationInfo != nil && doc.CreationInfo.Created != "" {
		if t, err := time.Parse(time.RFC3339, doc.CreationInfo.Created); err == nil {
			published = &t
		}
	}

	var authors []string
	if doc.CreationInfo != nil {
		for _, c := range doc.CreationInfo.Creators {
			authors = append(authors, c.Creator)
		}
	}

	dataLicenses := []string{doc.DataLicense}

	out.Sbom = &graph.Sbom{
		SbomID:       sbomID,
		DocumentID:   doc.DocumentNamespace,
		NodeID:       docNodeID,
		Name:         doc.DocumentName,
		Published:    published,
		Authors:      authors,
		DataLicenses: dataLicenses,
	}

	for _, ol := range doc.OtherLicenses {
		id := graph.DeriveLicenseID(ol.LicenseIdentifier)
		out.LicensingInfo = append(out.LicensingInfo, graph.LicensingInfo{
			SbomID:        sbomID,
			LicenseID:     id,
			Name:          ol.LicenseIdentifier,
			ExtractedText: ol.ExtractedText,
		})
	}

	licenseIDs := make(map[string]uuid.UUID)
	ensureLicense := func(expression string) uuid.UUID {
		expression = strings.TrimSpace(expression)
		if expression == "" || expression == noAssertion {
			return uuid.Nil
		}
		if id, ok := licenseIDs[expression]; ok {
			return id
		}
		id := graph.DeriveLicenseID(expression)
		licenseIDs[expression] = id
		out.Licenses = append(out.Licenses, graph.License{ID: id, Expression: expression})
		return id
	}

	for _, pkg := range doc.Packages {
		if err := addSpdxPackage(out, sbomID, pkg, ensureLicense); err != nil {
			return nil, err
		}
	}

	for _, f := range doc.Files {
		nodeID := string(f.FileSPDXIdentifier)
		out.Creator.Package.AddNode(graph.SbomNode{SbomID: sbomID, NodeID: nodeID, Name: f.FileName, Kind: graph.NodeFile})
		out.Creator.Package.AddFile(graph.SbomFile{SbomID: sbomID, NodeID: nodeID})
	}

	for _, rel := range doc.Relationships {
		edge, ok := convertSpdxRelationship(sbomID, rel)
		if !ok {
			out.Warnings = append(out.Warnings, "unsupported spdx relationship type: "+string(rel.Relationship))
			continue
		}
		out.Creator.Relationship.Add(edge)
	}

	return out, nil
}

func addSpdxPackage(out *SbomDocument, sbomID uuid.UUID, pkg *v2_3.Package, ensureLicense func(string) uuid.UUID) error {
	nodeID := string(pkg.PackageSPDXIdentifier)

	out.Creator.Package.AddNode(graph.SbomNode{SbomID: sbomID, NodeID: nodeID, Name: pkg.PackageName, Kind: graph.NodePackage})
	out.Creator.Package.AddPackage(graph.SbomPackage{SbomID: sbomID, NodeID: nodeID, Version: pkg.PackageVersion})

	if id := ensureLicense(pkg.PackageLicenseDeclared); id != uuid.Nil {
		out.Creator.Package.AddLicense(graph.SbomPackageLicense{SbomID: sbomID, NodeID: nodeID, LicenseID: id, LicenseType: graph.LicenseDeclared})
	}
	if id := ensureLicense(pkg.PackageLicenseConcluded); id != uuid.Nil {
		out.Creator.Package.AddLicense(graph.SbomPackageLicense{SbomID: sbomID, NodeID: nodeID, LicenseID: id, LicenseType: graph.LicenseConcluded})
	}

	for _, ref := range pkg.PackageExternalReferences {
		switch ref.RefType {
		case "purl", "http://spdx.org/rdf/references/purl":
			p, err := identifier.ParsePurl(ref.Locator)
			if err != nil {
				out.Warnings = append(out.Warnings, "skipping invalid purl "+ref.Locator+": "+err.Error())
				continue
			}
			out.Creator.Purl.Add(p)
			out.Creator.Package.AddPurlRef(graph.PackagePurlRef{SbomID: sbomID, NodeID: nodeID, QualifiedPurlID: p.QualifiedUUID})
		case "cpe23Type", "http://spdx.org/rdf/references/cpe23Type":
			c, err := identifier.ParseCpe(ref.Locator)
			if err != nil {
				out.Warnings = append(out.Warnings, "skipping invalid cpe "+ref.Locator+": "+err.Error())
				continue
			}
			out.Creator.Cpe.Add(c)
			out.Creator.Package.AddCpeRef(graph.PackageCpeRef{SbomID: sbomID, NodeID: nodeID, CpeID: c.UUID})
		}
	}
	return nil
}

// convertSpdxRelationship maps one SPDX relationship onto Trustify's
// canonical direction. Either endpoint may be an external document
// reference (common.DocElementID.DocumentRefID set); those survive as
// the "DocumentRef-...:SPDXRef-..." string form, which
// RelationshipCreator.Validate recognizes and exempts from node-set
// checking, matching the teacher-adjacent §4.5 contract.
func convertSpdxRelationship(sbomID uuid.UUID, rel *v2_3.Relationship) (graph.PackageRelatesToPackage, bool) {
	rule, ok := spdxRelationshipRules[string(rel.Relationship)]
	if !ok {
		return graph.PackageRelatesToPackage{}, false
	}

	a := docElementIDString(rel.RefA)
	b := docElementIDString(rel.RefB)
	left, right := a, b
	if rule.swap {
		left, right = b, a
	}

	return graph.PackageRelatesToPackage{
		SbomID:       sbomID,
		LeftNodeID:   left,
		Relationship: rule.rel,
		RightNodeID:  right,
	}, true
}

func docElementIDString(id common.DocElementID) string {
	if id.DocumentRefID != "" {
		return externalRefPrefix + id.DocumentRefID + ":" + string(id.ElementRefID)
	}
	if id.SpecialID != "" {
		return id.SpecialID
	}
	return string(id.ElementRefID)
}

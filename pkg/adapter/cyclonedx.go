package adapter

import (
	"fmt"
	"io"
	"strings"
	"time"

	cyclonedx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"

	"github.com/trustify/trustify/pkg/creator"
	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/identifier"
)

// cycloneDXDocRef is the synthetic node standing in for the document
// itself, mirroring SPDX's SPDXRef-DOCUMENT since CycloneDX has no
// built-in document-level identifier (grounded on original_source's
// CYCLONEDX_DOC_REF constant).
const cycloneDXDocRef = "CycloneDX-doc-ref"

// ParseCycloneDXJSON reads a CycloneDX 1.x JSON document and returns its
// graph-store form.
func ParseCycloneDXJSON(r io.Reader, sbomID uuid.UUID) (*SbomDocument, error) {
	return parseCycloneDX(r, sbomID, cyclonedx.BOMFileFormatJSON)
}

// ParseCycloneDXXML reads a CycloneDX 1.x XML document and returns its
// graph-store form.
func ParseCycloneDXXML(r io.Reader, sbomID uuid.UUID) (*SbomDocument, error) {
	return parseCycloneDX(r, sbomID, cyclonedx.BOMFileFormatXML)
}

func parseCycloneDX(r io.Reader, sbomID uuid.UUID, format cyclonedx.BOMFileFormat) (*SbomDocument, error) {
	var bom cyclonedx.BOM
	if err := cyclonedx.NewBOMDecoder(r, format).Decode(&bom); err != nil {
		return nil, errParse(err, "parse cyclonedx document")
	}

	out := &SbomDocument{Creator: creator.NewCreator(cycloneDXDocRef)}

	name, published, authors, dataLicenses := cdxInformation(&bom)
	out.Sbom = &graph.Sbom{
		SbomID:       sbomID,
		DocumentID:   string(bom.SerialNumber),
		NodeID:       cycloneDXDocRef,
		Name:         name,
		Published:    published,
		Authors:      authors,
		DataLicenses: dataLicenses,
	}
	out.Creator.Package.AddNode(graph.SbomNode{SbomID: sbomID, NodeID: cycloneDXDocRef, Name: name, Kind: graph.NodeFile})

	licenseIDs := make(map[string]uuid.UUID)
	ensureLicense := func(expression string) uuid.UUID {
		expression = strings.TrimSpace(expression)
		if expression == "" {
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

	root := bomRoot(&bom)
	if root != nil {
		addCdxComponent(out, sbomID, *root, ensureLicense)
		out.Creator.Relationship.Add(graph.PackageRelatesToPackage{
			SbomID: sbomID, LeftNodeID: bomRefOf(root), Relationship: graph.RelDescribedBy, RightNodeID: cycloneDXDocRef,
		})
	}

	if bom.Components != nil {
		for _, c := range *bom.Components {
			addCdxComponentTree(out, sbomID, c, ensureLicense)
		}
	}

	addCdxDependencyEdges(out, sbomID, &bom)

	return out, nil
}

// addCdxDependencyEdges maps sbom.dependencies into edges: depends_on
// becomes DependencyOf (the target is the dependency of the ref), and
// the CycloneDX 1.5 provides array becomes GeneratedFrom (grounded on
// original_source's `depends_on` -> Relationship::Dependency and
// `provides` -> Relationship::Generates mapping).
func addCdxDependencyEdges(out *SbomDocument, sbomID uuid.UUID, bom *cyclonedx.BOM) {
	if bom.Dependencies == nil {
		return
	}
	for _, dep := range *bom.Dependencies {
		if dep.Dependencies != nil {
			for _, target := range *dep.Dependencies {
				out.Creator.Relationship.Add(graph.PackageRelatesToPackage{
					SbomID: sbomID, LeftNodeID: target, Relationship: graph.RelDependencyOf, RightNodeID: dep.Ref,
				})
			}
		}
		if dep.Provides != nil {
			for _, target := range *dep.Provides {
				out.Creator.Relationship.Add(graph.PackageRelatesToPackage{
					SbomID: sbomID, LeftNodeID: target, Relationship: graph.RelGeneratedFrom, RightNodeID: dep.Ref,
				})
			}
		}
	}
}

func bomRoot(bom *cyclonedx.BOM) *cyclonedx.Component {
	if bom.Metadata == nil {
		return nil
	}
	return bom.Metadata.Component
}

func cdxInformation(bom *cyclonedx.BOM) (name string, published *time.Time, authors, dataLicenses []string) {
	if bom.Metadata != nil {
		if bom.Metadata.Timestamp != "" {
			if t, err := time.Parse(time.RFC3339, bom.Metadata.Timestamp); err == nil {
				published = &t
			}
		}
		if bom.Metadata.Authors != nil {
			for _, a := range *bom.Metadata.Authors {
				authors = append(authors, authorString(a))
			}
		}
		if bom.Metadata.Licenses != nil {
			for _, lc := range *bom.Metadata.Licenses {
				if expr := licenseChoiceExpression(lc); expr != "" {
					dataLicenses = append(dataLicenses, expr)
				}
			}
		}
		if bom.Metadata.Component != nil {
			name = bom.Metadata.Component.Name
		}
	}
	if name == "" {
		name = string(bom.SerialNumber)
	}
	if name == "" {
		name = "<unknown>"
	}
	return name, published, authors, dataLicenses
}

func authorString(c cyclonedx.OrganizationalContact) string {
	if c.Email != "" {
		return fmt.Sprintf("%s <%s>", c.Name, c.Email)
	}
	return c.Name
}

func licenseChoiceExpression(lc cyclonedx.LicenseChoice) string {
	if lc.Expression != "" {
		return lc.Expression
	}
	if lc.License != nil {
		if lc.License.ID != "" {
			return lc.License.ID
		}
		return lc.License.Name
	}
	return ""
}

// bomRefOf returns c's bom-ref, generating a stable one if the document
// left it blank (legal for the metadata.component root per the spec).
func bomRefOf(c *cyclonedx.Component) string {
	if c.BOMRef != "" {
		return c.BOMRef
	}
	return "CycloneDX-root-" + uuid.NewSHA1(identifier.NamespaceTrustify, []byte(c.Name+"@"+c.Version)).String()
}

// addCdxComponentTree walks c and its nested components (the
// `component.components` containment tree), adding each as a node and
// linking it ContainedBy its parent.
func addCdxComponentTree(out *SbomDocument, sbomID uuid.UUID, c cyclonedx.Component, ensureLicense func(string) uuid.UUID) {
	addCdxComponent(out, sbomID, c, ensureLicense)
	if c.Components == nil {
		return
	}
	parent := bomRefOf(&c)
	for _, child := range *c.Components {
		addCdxComponentTree(out, sbomID, child, ensureLicense)
		out.Creator.Relationship.Add(graph.PackageRelatesToPackage{
			SbomID: sbomID, LeftNodeID: bomRefOf(&child), Relationship: graph.RelContainedBy, RightNodeID: parent,
		})
	}
}

// addCdxComponent adds one component's node, identity refs, licenses,
// and pedigree edges, without recursing into c.Components (the caller
// walks the containment tree; this only handles one component's own
// data, grounded on original_source's ComponentCreator.create).
func addCdxComponent(out *SbomDocument, sbomID uuid.UUID, c cyclonedx.Component, ensureLicense func(string) uuid.UUID) {
	nodeID := bomRefOf(&c)

	out.Creator.Package.AddNode(graph.SbomNode{SbomID: sbomID, NodeID: nodeID, Name: c.Name, Kind: graph.NodePackage})
	out.Creator.Package.AddPackage(graph.SbomPackage{SbomID: sbomID, NodeID: nodeID, Version: c.Version})

	if c.PackageURL != "" {
		if p, err := identifier.ParsePurl(c.PackageURL); err == nil {
			out.Creator.Purl.Add(p)
			out.Creator.Package.AddPurlRef(graph.PackagePurlRef{SbomID: sbomID, NodeID: nodeID, QualifiedPurlID: p.QualifiedUUID})
		} else {
			out.Warnings = append(out.Warnings, "skipping invalid purl "+c.PackageURL+": "+err.Error())
		}
	}
	if c.CPE != "" {
		if cpe, err := identifier.ParseCpe(c.CPE); err == nil {
			out.Creator.Cpe.Add(cpe)
			out.Creator.Package.AddCpeRef(graph.PackageCpeRef{SbomID: sbomID, NodeID: nodeID, CpeID: cpe.UUID})
		} else {
			out.Warnings = append(out.Warnings, "skipping invalid cpe "+c.CPE+": "+err.Error())
		}
	}

	if c.Evidence != nil && c.Evidence.Identity != nil {
		for _, ident := range *c.Evidence.Identity {
			switch ident.Field {
			case cyclonedx.EvidenceIdentityFieldTypePURL:
				if p, err := identifier.ParsePurl(ident.Concluded); err == nil {
					out.Creator.Purl.Add(p)
					out.Creator.Package.AddPurlRef(graph.PackagePurlRef{SbomID: sbomID, NodeID: nodeID, QualifiedPurlID: p.QualifiedUUID})
				}
			case cyclonedx.EvidenceIdentityFieldTypeCPE:
				if cpe, err := identifier.ParseCpe(ident.Concluded); err == nil {
					out.Creator.Cpe.Add(cpe)
					out.Creator.Package.AddCpeRef(graph.PackageCpeRef{SbomID: sbomID, NodeID: nodeID, CpeID: cpe.UUID})
				}
			}
		}
	}

	if c.Licenses != nil {
		for _, lc := range *c.Licenses {
			if expr := licenseChoiceExpression(lc); expr != "" {
				if id := ensureLicense(expr); id != uuid.Nil {
					out.Creator.Package.AddLicense(graph.SbomPackageLicense{SbomID: sbomID, NodeID: nodeID, LicenseID: id, LicenseType: graph.LicenseDeclared})
				}
			}
		}
	}

	if c.Pedigree == nil {
		return
	}
	if c.Pedigree.Ancestors != nil {
		for _, ancestor := range *c.Pedigree.Ancestors {
			addCdxComponent(out, sbomID, ancestor, ensureLicense)
			out.Creator.Relationship.Add(graph.PackageRelatesToPackage{
				SbomID: sbomID, LeftNodeID: bomRefOf(&ancestor), Relationship: graph.RelAncestorOf, RightNodeID: nodeID,
			})
		}
	}
	if c.Pedigree.Variants != nil {
		for _, variant := range *c.Pedigree.Variants {
			addCdxComponent(out, sbomID, variant, ensureLicense)
			out.Creator.Relationship.Add(graph.PackageRelatesToPackage{
				SbomID: sbomID, LeftNodeID: nodeID, Relationship: graph.RelVariantOf, RightNodeID: bomRefOf(&variant),
			})
		}
	}
}

package graph

import (
	"time"

	"github.com/google/uuid"
)

// SourceDocument is the content-addressed, immutable document record
// (spec.md §3). Created on first ingest of a given byte stream; never
// mutated.
type SourceDocument struct {
	ID     uuid.UUID
	SHA256 string
	SHA384 string
	SHA512 string
	Size   int64
}

// Organization is an advisory issuer or an SBOM supplier/author.
type Organization struct {
	ID      uuid.UUID
	Name    string
	CPEKey  string
	Website string
}

// Product groups versioned releases under a vendor-facing name (CSAF's
// product tree, spec.md §4.6).
type Product struct {
	ID       uuid.UUID
	Name     string
	VendorID uuid.UUID
}

// Advisory is spec.md §3's advisory row. At most one row per Identifier
// has Deprecated == false; that invariant is restored transactionally
// by the deprecation trigger after every insert.
type Advisory struct {
	ID               uuid.UUID
	Identifier       string
	Deprecated       bool
	Version          string
	IssuerID         *uuid.UUID
	Title            string
	Published        *time.Time
	Modified         *time.Time
	Withdrawn        *time.Time
	Labels           map[string]string
	SourceDocumentID *uuid.UUID
}

// Vulnerability is created on first reference to a CVE-like identifier.
// Descriptive fields live on the AdvisoryVulnerability link because
// different advisories may describe the same CVE differently.
type Vulnerability struct {
	ID string
}

// AdvisoryVulnerability is the M:N link between Advisory and
// Vulnerability carrying per-advisory descriptive fields.
type AdvisoryVulnerability struct {
	AdvisoryID      uuid.UUID
	VulnerabilityID string
	Title           string
	Summary         string
	CWEs            []string
	Published       *time.Time
	Modified        *time.Time
}

// CVSSSeverity is the banded severity derived from a CVSS score.
type CVSSSeverity string

const (
	SeverityNone     CVSSSeverity = "None"
	SeverityLow      CVSSSeverity = "Low"
	SeverityMedium   CVSSSeverity = "Medium"
	SeverityHigh     CVSSSeverity = "High"
	SeverityCritical CVSSSeverity = "Critical"
)

// CVSSScore is a CVSS 3.1 vector attached to one advisory's statement
// about one vulnerability, with score/severity derived on insert
// (spec.md §3, cvss.go).
type CVSSScore struct {
	AdvisoryID      uuid.UUID
	VulnerabilityID string
	MinorVersion    int
	AV, AC, PR, UI  string
	S, C, I, A      string
	Score           float64
	Severity        CVSSSeverity
}

// BasePurl, VersionedPurl, QualifiedPurl mirror the pURL hierarchy
// (spec.md §3). IDs are the deterministic v5 UUIDs pkg/identifier derives.
type BasePurl struct {
	ID        uuid.UUID
	Type      string
	Namespace string
	Name      string
}

type VersionedPurl struct {
	ID         uuid.UUID
	BasePurlID uuid.UUID
	Version    string
}

type QualifiedPurl struct {
	ID              uuid.UUID
	VersionedPurlID uuid.UUID
	Qualifiers      map[string]string
}

// Cpe is a parsed, persisted CPE 2.3 identifier.
type Cpe struct {
	ID       uuid.UUID
	Part     string
	Vendor   string
	Product  string
	Version  string
	Update   string
	Edition  string
	Language string
}

// Sbom is one ingested bill of materials (spec.md §3).
type Sbom struct {
	SbomID           uuid.UUID
	DocumentID       string
	NodeID           string
	Name             string
	Published        *time.Time
	Authors          []string
	DataLicenses     []string
	Labels           map[string]string
	SourceDocumentID *uuid.UUID
}

// NodeKind distinguishes sbom_node's specializations.
type NodeKind string

const (
	NodePackage NodeKind = "package"
	NodeFile    NodeKind = "file"
)

// SbomNode is the universal addressable unit inside one SBOM.
type SbomNode struct {
	SbomID uuid.UUID
	NodeID string
	Name   string
	Kind   NodeKind
}

// SbomPackage extends SbomNode with package-specific fields.
type SbomPackage struct {
	SbomID  uuid.UUID
	NodeID  string
	Group   string
	Version string
}

// SbomFile extends SbomNode; it carries no additional fields beyond
// SbomNode today, but exists as its own row per spec.md §3's "a node
// belongs to exactly one specialization" invariant.
type SbomFile struct {
	SbomID uuid.UUID
	NodeID string
}

// PackagePurlRef and PackageCpeRef link an sbom_node to a purl/cpe
// identity. A node may have any number of each; zero of both is legal
// (named-only package).
type PackagePurlRef struct {
	SbomID          uuid.UUID
	NodeID          string
	QualifiedPurlID uuid.UUID
}

type PackageCpeRef struct {
	SbomID uuid.UUID
	NodeID string
	CpeID  uuid.UUID
}

// Relationship is the fixed enum of edge kinds package_relates_to_package
// carries. Direction is always "left relates-to right"; adapters
// normalize source-format directionality into this canonical direction.
type Relationship string

const (
	RelContainedBy          Relationship = "ContainedBy"
	RelDependencyOf         Relationship = "DependencyOf"
	RelDevDependencyOf      Relationship = "DevDependencyOf"
	RelOptionalDependencyOf Relationship = "OptionalDependencyOf"
	RelProvidedDependencyOf Relationship = "ProvidedDependencyOf"
	RelTestDependencyOf     Relationship = "TestDependencyOf"
	RelRuntimeDependencyOf  Relationship = "RuntimeDependencyOf"
	RelExampleOf            Relationship = "ExampleOf"
	RelGeneratedFrom        Relationship = "GeneratedFrom"
	RelAncestorOf           Relationship = "AncestorOf"
	RelVariantOf            Relationship = "VariantOf"
	RelBuildToolOf          Relationship = "BuildToolOf"
	RelDevToolOf            Relationship = "DevToolOf"
	RelDescribedBy          Relationship = "DescribedBy"
	RelDescribes            Relationship = "Describes"
	RelPackage              Relationship = "Package"
	RelContains             Relationship = "Contains"
)

// PackageRelatesToPackage is one edge in an SBOM's dependency graph.
type PackageRelatesToPackage struct {
	SbomID       uuid.UUID
	LeftNodeID   string
	Relationship Relationship
	RightNodeID  string
}

// LicenseType distinguishes how a license was asserted.
type LicenseType string

const (
	LicenseDeclared  LicenseType = "Declared"
	LicenseConcluded LicenseType = "Concluded"
)

// License is a deduplicated SPDX expression, keyed by its v5 UUID.
type License struct {
	ID         uuid.UUID
	Expression string
}

// SbomPackageLicense links a node to a license with an assertion kind.
type SbomPackageLicense struct {
	SbomID      uuid.UUID
	NodeID      string
	LicenseID   uuid.UUID
	LicenseType LicenseType
}

// PackageStatus records one advisory's claim that a vulnerability's
// status ("affected", "fixed", "not_affected") holds for versions of a
// package matching a version range, optionally scoped to a CPE product
// context (CSAF branches carry both a CPE and a version constraint;
// OSV/CVE usually carry only the purl side). Not named in spec.md §3's
// entity list but required by every format adapter in §4.6 — grounded
// on original_source's advisory_vulnerability::ingest_package_status and
// the package_status table referenced by its test suite.
type PackageStatus struct {
	AdvisoryID      uuid.UUID
	VulnerabilityID string
	Status          string
	ContextCpeID    *uuid.UUID
	BasePurlID      uuid.UUID
	VersionScheme   string
	VersionSpec     []byte // JSON-encoded version.Spec
}

// LicensingInfo records an SPDX LicenseRef-* custom license's extracted text.
type LicensingInfo struct {
	SbomID        uuid.UUID
	LicenseID     uuid.UUID
	Name          string
	ExtractedText string
	Comment       string
}

// ImporterState is the importer state machine's two states (spec.md §4.10).
type ImporterState string

const (
	ImporterWaiting ImporterState = "Waiting"
	ImporterRunning ImporterState = "Running"
)

// Importer is one configured ingestion source, with a revision rotated
// on every mutation for optimistic concurrency.
type Importer struct {
	Name          string
	Revision      uuid.UUID
	State         ImporterState
	LastChange    time.Time
	LastSuccess   *time.Time
	LastRun       *time.Time
	LastError     string
	Continuation  []byte // opaque JSON continuation token
	Configuration []byte // opaque JSON source configuration
}

// ImporterReport is one run's outcome record.
type ImporterReport struct {
	ID         uuid.UUID
	Importer   string
	Creation   time.Time
	Error      string
	ReportJSON []byte
}

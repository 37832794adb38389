// Package ingest is the ingestion service (spec.md §4.7): it sniffs or
// trusts a caller-given format hint, streams the document's bytes
// through a multi-algorithm hash while buffering them for parsing,
// dispatches to the matching pkg/adapter parser, and writes the result
// through pkg/graph and pkg/creator inside one transaction. A document
// whose digest is already on record is a no-op past the hash check
// (spec.md §4.7's cache-skip policy); a failed transaction rolls back
// the database side and deletes the blob this call alone wrote.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trustify/trustify/pkg/adapter"
	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/database"
	"github.com/trustify/trustify/pkg/events"
	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/identifier"
	"github.com/trustify/trustify/pkg/logger"
	"github.com/trustify/trustify/pkg/storage"
)

// Result describes the outcome of one Ingest call.
type Result struct {
	DocumentID string // "sha256:<hex>", the primary lookup key (spec.md §6)
	Format     adapter.Format
	SbomID     *uuid.UUID
	AdvisoryID *uuid.UUID
	Skipped    bool // true when this digest was already on record
	Warnings   []string
}

// Service wires the ingestion pipeline's ambient dependencies: the
// database (for the one ingest transaction), the blob backend, and the
// optional event publisher (a nil Publisher is a legal no-op).
type Service struct {
	db        *database.DB
	storage   storage.Backend
	publisher *events.Publisher
	logger    *logger.Logger
}

// NewService builds an ingestion Service.
func NewService(db *database.DB, backend storage.Backend, publisher *events.Publisher, log *logger.Logger) *Service {
	return &Service{db: db, storage: backend, publisher: publisher, logger: log}
}

// Ingest reads r fully, computes its content digest, stores the blob,
// and ingests it as hint's format (or the sniffed format, when hint is
// FormatUnknown/empty).
func (s *Service) Ingest(ctx context.Context, r io.Reader, hint adapter.Format) (*Result, error) {
	var buf bytes.Buffer
	hw := identifier.NewHashingWriter()
	if _, err := io.Copy(io.MultiWriter(&buf, hw), r); err != nil {
		return nil, apperr.Wrap(apperr.KindParse, err, "read document body")
	}
	raw := buf.Bytes()
	digests := hw.Digests()
	documentID := digests.ID()

	format := hint
	if format == "" || format == adapter.FormatUnknown {
		format = adapter.Sniff(raw)
	}
	if format == adapter.FormatUnknown {
		return nil, apperr.New(apperr.KindParse, "unrecognized document format for %s", documentID)
	}

	result := &Result{DocumentID: documentID, Format: format}

	// Put is idempotent (storage.Backend's contract), so writing the
	// blob ahead of the transaction is safe even when the digest turns
	// out to already be on record.
	if _, err := s.storage.Put(ctx, documentID, bytes.NewReader(raw)); err != nil {
		return nil, err
	}

	var existed bool
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		srcDoc := &graph.SourceDocument{
			SHA256: digests.SHA256,
			SHA384: digests.SHA384,
			SHA512: digests.SHA512,
			Size:   int64(len(raw)),
		}
		var ierr error
		existed, ierr = graph.IngestSourceDocument(ctx, tx, srcDoc)
		if ierr != nil {
			return ierr
		}
		if existed {
			result.Skipped = true
			return nil
		}

		switch format {
		case adapter.FormatSPDX, adapter.FormatCycloneDX:
			return ingestSbom(ctx, tx, raw, format, srcDoc.ID, result)
		default:
			return ingestAdvisory(ctx, tx, raw, format, srcDoc.ID, result)
		}
	})
	if err != nil {
		if !existed {
			// This call alone created the blob; don't leave an orphan
			// behind for a row that was never committed. Use a fresh
			// context since ctx may already be canceled/expired.
			_ = s.storage.Delete(context.Background(), documentID)
		}
		return nil, err
	}

	if !result.Skipped {
		s.publishResult(ctx, result)
	}
	return result, nil
}

func (s *Service) publishResult(ctx context.Context, result *Result) {
	if s.publisher == nil {
		return
	}
	evt := events.IngestResultEvent{
		ID:         uuid.NewString(),
		Type:       "ingest.completed",
		DocumentID: result.DocumentID,
		Format:     string(result.Format),
		Warnings:   len(result.Warnings),
		Timestamp:  time.Now(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to publish ingest result event",
			"document_id", result.DocumentID, "error", err)
	}
}

// isCycloneDXXML reports whether raw is an XML-rooted CycloneDX
// document, as opposed to CycloneDX JSON (adapter.Sniff routes both to
// FormatCycloneDX; only the body's own root byte tells them apart).
func isCycloneDXXML(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '<'
}

func ingestSbom(ctx context.Context, db graph.Connectable, raw []byte, format adapter.Format, srcDocID uuid.UUID, result *Result) error {
	sbomID := uuid.New()

	var doc *adapter.SbomDocument
	var err error
	switch {
	case format == adapter.FormatSPDX:
		doc, err = adapter.ParseSPDX(bytes.NewReader(raw), sbomID)
	case isCycloneDXXML(raw):
		doc, err = adapter.ParseCycloneDXXML(bytes.NewReader(raw), sbomID)
	default:
		doc, err = adapter.ParseCycloneDXJSON(bytes.NewReader(raw), sbomID)
	}
	if err != nil {
		return err
	}

	doc.Sbom.SourceDocumentID = &srcDocID

	for _, lic := range doc.Licenses {
		if _, err := graph.IngestLicense(ctx, db, lic.Expression); err != nil {
			return err
		}
	}
	for i := range doc.LicensingInfo {
		if err := graph.IngestLicensingInfo(ctx, db, &doc.LicensingInfo[i]); err != nil {
			return err
		}
	}

	if err := graph.IngestSbom(ctx, db, doc.Sbom); err != nil {
		return err
	}
	if err := doc.Creator.Create(ctx, db, sbomID.String()); err != nil {
		return err
	}

	result.SbomID = &sbomID
	result.Warnings = append(result.Warnings, doc.Warnings...)
	return nil
}

func ingestAdvisory(ctx context.Context, db graph.Connectable, raw []byte, format adapter.Format, srcDocID uuid.UUID, result *Result) error {
	var doc *adapter.AdvisoryDocument
	var err error
	switch format {
	case adapter.FormatCSAF:
		doc, err = adapter.ParseCSAF(bytes.NewReader(raw))
	case adapter.FormatOSV:
		doc, err = adapter.ParseOSV(bytes.NewReader(raw))
	case adapter.FormatCVE:
		doc, err = adapter.ParseCVE(bytes.NewReader(raw))
	default:
		return apperr.New(apperr.KindParse, "unsupported advisory format %q", format)
	}
	if err != nil {
		return err
	}

	doc.Advisory.SourceDocumentID = &srcDocID

	if doc.Issuer != nil {
		issuerID, err := graph.IngestOrganization(ctx, db, doc.Issuer)
		if err != nil {
			return err
		}
		doc.Advisory.IssuerID = &issuerID
	}

	advisoryID, err := graph.IngestAdvisory(ctx, db, &doc.Advisory)
	if err != nil {
		return err
	}
	result.AdvisoryID = &advisoryID

	for _, claim := range doc.Vulnerabilities {
		if err := ingestVulnerabilityClaim(ctx, db, advisoryID, claim); err != nil {
			return err
		}
	}

	result.Warnings = append(result.Warnings, doc.Warnings...)
	return nil
}

func ingestVulnerabilityClaim(ctx context.Context, db graph.Connectable, advisoryID uuid.UUID, claim adapter.VulnerabilityClaim) error {
	vulnID := graph.ParseVulnerabilityID(claim.ID)

	link := &graph.AdvisoryVulnerability{
		AdvisoryID:      advisoryID,
		VulnerabilityID: vulnID,
		Title:           claim.Title,
		Summary:         claim.Summary,
		CWEs:            claim.CWEs,
		Published:       claim.Published,
		Modified:        claim.Modified,
	}

	if len(claim.CVSS) == 0 {
		if err := graph.LinkToVulnerability(ctx, db, link, nil); err != nil {
			return err
		}
	}
	for i := range claim.CVSS {
		cvss := claim.CVSS[i]
		cvss.AdvisoryID = advisoryID
		cvss.VulnerabilityID = vulnID
		if err := graph.LinkToVulnerability(ctx, db, link, &cvss); err != nil {
			return err
		}
	}

	for _, statusClaim := range claim.Statuses {
		if err := ingestStatusClaim(ctx, db, advisoryID, vulnID, statusClaim); err != nil {
			return err
		}
	}
	return nil
}

func ingestStatusClaim(ctx context.Context, db graph.Connectable, advisoryID uuid.UUID, vulnID string, claim adapter.PackageStatusClaim) error {
	specJSON, err := json.Marshal(claim.VersionInfo.Spec)
	if err != nil {
		return apperr.Wrap(apperr.KindGeneric, err, "marshal version spec for %s", vulnID)
	}

	status := &graph.PackageStatus{
		AdvisoryID:      advisoryID,
		VulnerabilityID: vulnID,
		Status:          claim.Status,
		VersionScheme:   string(claim.VersionInfo.Scheme),
		VersionSpec:     specJSON,
	}

	if claim.ContextCpe != nil {
		cpeID, err := graph.IngestCpe(ctx, db, claim.ContextCpe)
		if err != nil {
			return err
		}
		status.ContextCpeID = &cpeID
	}

	return graph.IngestPackageStatus(ctx, db, claim.Purl, status)
}

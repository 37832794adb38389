package importer

import (
	"context"
	"io"

	"github.com/trustify/trustify/pkg/adapter"
	"github.com/trustify/trustify/pkg/ingest"
)

// Walker runs one source-specific import, consuming a continuation
// token from the previous run and producing the next one plus a
// report of what it did (spec.md §4.10: "async fn run(continuation) ->
// (new_continuation, report)"). Implementations poll ctx between file
// processings so a run can be cancelled cooperatively.
type Walker interface {
	Run(ctx context.Context, continuation []byte, report *ReportBuilder) (newContinuation []byte, err error)
}

// IngestFunc is how a walker hands a retrieved document to the
// ingestion service. Its shape mirrors (*ingest.Service).Ingest exactly
// so a Service's bound method value satisfies it directly; walkers
// hold it as a function value rather than a *ingest.Service so tests
// can substitute a stub without standing up storage or a database.
type IngestFunc func(ctx context.Context, r io.Reader, hint adapter.Format) (*ingest.Result, error)

// LabelWriter attaches labels to a freshly ingested document, given the
// full Ingest result so it can decide which entity (Sbom or Advisory)
// the labels belong to. A walker whose source has no natural labels to
// attach may leave it nil; LabelWriter implementations no-op when
// result carries neither a SbomID nor an AdvisoryID (e.g. a skipped,
// already-on-record document looked up by digest alone).
type LabelWriter func(ctx context.Context, result *ingest.Result, labels map[string]string) error

package graph

import (
	"context"

	"github.com/trustify/trustify/pkg/apperr"
	"github.com/trustify/trustify/pkg/identifier"
)

// IngestPackageStatus upserts one advisory's affected/fixed/not_affected
// claim against a package. p is the unversioned base pURL the claim is
// scoped to — callers pass e.g. "pkg:maven/org.apache/log4j", never a
// version-pinned pURL, since the claim's range lives in status.VersionSpec
// rather than in the identifier (grounded on original_source's
// ingest_package_status, whose purl argument is consistently unversioned).
// It ensures the base_purl row exists before linking to it; it does not
// touch versioned_purl or qualified_purl, since the range this claim
// describes generally spans many (or zero, for an unbounded range)
// concrete versions.
func IngestPackageStatus(ctx context.Context, db Connectable, p *identifier.Purl, status *PackageStatus) error {
	const basePurlSQL = `
INSERT INTO base_purl (id, type, namespace, name) VALUES ($1, $2, $3, $4)
ON CONFLICT (type, namespace, name) DO NOTHING`
	if _, err := db.Exec(ctx, basePurlSQL, p.BaseUUID, p.Type, p.Namespace, p.Name); err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "ingest base_purl %s", p.BaseUUID)
	}
	status.BasePurlID = p.BaseUUID

	const sql = `
INSERT INTO package_status (advisory_id, vulnerability_id, status, context_cpe_id, base_purl_id, version_scheme, version_spec)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (advisory_id, vulnerability_id, status, base_purl_id, context_cpe_id) DO UPDATE SET
	version_scheme = EXCLUDED.version_scheme,
	version_spec = EXCLUDED.version_spec`

	if _, err := db.Exec(ctx, sql, status.AdvisoryID, status.VulnerabilityID, status.Status,
		status.ContextCpeID, status.BasePurlID, status.VersionScheme, status.VersionSpec); err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "ingest package_status for %s/%s against %s",
			status.AdvisoryID, status.VulnerabilityID, p.BaseUUID)
	}
	return nil
}

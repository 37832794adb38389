package graph

import (
	"context"
	"strings"

	"github.com/trustify/trustify/pkg/apperr"
)

// IngestVulnerability creates the vulnerability row on first reference;
// it is otherwise a no-op, since a vulnerability's descriptive fields
// live on the per-advisory link, not here (spec.md §3).
func IngestVulnerability(ctx context.Context, db Connectable, id string) error {
	const sql = `INSERT INTO vulnerability (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`
	if _, err := db.Exec(ctx, sql, id); err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "ingest vulnerability %q", id)
	}
	return nil
}

// LinkToVulnerability upserts an advisory's statement about a
// vulnerability — the advisory_vulnerability M:N row plus, when cvss is
// non-nil, the derived CVSS score (spec.md §4.4's link_to_vulnerability
// helper). It ensures the vulnerability row exists first.
func LinkToVulnerability(ctx context.Context, db Connectable, link *AdvisoryVulnerability, cvss *CVSSScore) error {
	if err := IngestVulnerability(ctx, db, link.VulnerabilityID); err != nil {
		return err
	}

	const linkSQL = `
INSERT INTO advisory_vulnerability (advisory_id, vulnerability_id, title, summary, cwes, published, modified)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (advisory_id, vulnerability_id) DO UPDATE SET
	title = EXCLUDED.title,
	summary = EXCLUDED.summary,
	cwes = EXCLUDED.cwes,
	published = EXCLUDED.published,
	modified = EXCLUDED.modified`

	if _, err := db.Exec(ctx, linkSQL, link.AdvisoryID, link.VulnerabilityID, link.Title,
		link.Summary, link.CWEs, link.Published, link.Modified); err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "link advisory %s to vulnerability %s", link.AdvisoryID, link.VulnerabilityID)
	}

	if cvss == nil {
		return nil
	}
	return ingestCVSSScore(ctx, db, cvss)
}

// ingestCVSSScore derives score/severity from the vector (spec.md §3)
// and upserts the row.
func ingestCVSSScore(ctx context.Context, db Connectable, cvss *CVSSScore) error {
	score, severity := ScoreCVSS31(cvss.AV, cvss.AC, cvss.PR, cvss.UI, cvss.S, cvss.C, cvss.I, cvss.A)
	cvss.Score = score
	cvss.Severity = severity

	const sql = `
INSERT INTO cvss_score (advisory_id, vulnerability_id, minor_version, av, ac, pr, ui, s, c, i, a, score, severity)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (advisory_id, vulnerability_id, minor_version) DO UPDATE SET
	av = EXCLUDED.av, ac = EXCLUDED.ac, pr = EXCLUDED.pr, ui = EXCLUDED.ui,
	s = EXCLUDED.s, c = EXCLUDED.c, i = EXCLUDED.i, a = EXCLUDED.a,
	score = EXCLUDED.score, severity = EXCLUDED.severity`

	_, err := db.Exec(ctx, sql, cvss.AdvisoryID, cvss.VulnerabilityID, cvss.MinorVersion,
		cvss.AV, cvss.AC, cvss.PR, cvss.UI, cvss.S, cvss.C, cvss.I, cvss.A, cvss.Score, cvss.Severity)
	if err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "ingest cvss score for vulnerability %s", cvss.VulnerabilityID)
	}
	return nil
}

// ParseVulnerabilityID normalizes a CVE-style identifier to Trustify's
// canonical uppercase form ("cve-2021-44228" -> "CVE-2021-44228").
func ParseVulnerabilityID(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}


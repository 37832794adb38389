package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustify/trustify/pkg/adapter"
	"github.com/trustify/trustify/pkg/graph"
	"github.com/trustify/trustify/pkg/identifier"
	"github.com/trustify/trustify/pkg/version"
)

// recordedExec mirrors pkg/graph's test helper of the same shape.
type recordedExec struct {
	sql  string
	args []any
}

// fakeConn is a graph.Connectable that records every Exec and, on
// QueryRow, scans back whichever uuid.UUID appears first among args
// (every upsert-returning-id statement in pkg/graph passes the row's
// own id as its first bind parameter).
type fakeConn struct {
	execs []recordedExec
}

func (f *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error) {
	f.execs = append(f.execs, recordedExec{sql: sql, args: args})
	return pgx.CommandTag{}, nil
}

func (f *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not used by these tests")
}

func (f *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.execs = append(f.execs, recordedExec{sql: sql, args: args})
	var id uuid.UUID
	for _, a := range args {
		if u, ok := a.(uuid.UUID); ok {
			id = u
			break
		}
	}
	return fakeIDRow{id: id}
}

type fakeIDRow struct{ id uuid.UUID }

func (r fakeIDRow) Scan(dest ...any) error {
	if len(dest) == 1 {
		if p, ok := dest[0].(*uuid.UUID); ok {
			*p = r.id
			return nil
		}
	}
	return nil
}

func TestIsCycloneDXXML(t *testing.T) {
	assert.True(t, isCycloneDXXML([]byte("  <bom></bom>")))
	assert.False(t, isCycloneDXXML([]byte(`{"bomFormat":"CycloneDX"}`)))
	assert.False(t, isCycloneDXXML(nil))
}

func TestIngestStatusClaimWritesPackageStatusAndContextCpe(t *testing.T) {
	conn := &fakeConn{}
	purl := identifier.NewPurl("maven", "org.apache.logging.log4j", "log4j-core", "", nil)
	cpe, err := identifier.ParseCpe("cpe:2.3:a:apache:log4j:*:*:*:*:*:*:*:*")
	require.NoError(t, err)

	claim := adapter.PackageStatusClaim{
		Purl:        purl,
		ContextCpe:  cpe,
		Status:      "affected",
		VersionInfo: version.VersionInfo{Scheme: version.Generic, Spec: version.UnboundedSpec()},
	}

	err = ingestStatusClaim(context.Background(), conn, uuid.New(), "CVE-2021-44228", claim)
	require.NoError(t, err)

	var sawCpe, sawStatus bool
	for _, e := range conn.execs {
		switch {
		case strings.Contains(e.sql, "INSERT INTO cpe"):
			sawCpe = true
		case strings.Contains(e.sql, "INSERT INTO package_status"):
			sawStatus = true
		}
	}
	assert.True(t, sawCpe, "a non-nil ContextCpe must be ingested before the status row")
	assert.True(t, sawStatus)
}

func TestIngestStatusClaimSkipsCpeWhenAbsent(t *testing.T) {
	conn := &fakeConn{}
	purl := identifier.NewPurl("npm", "", "left-pad", "", nil)

	claim := adapter.PackageStatusClaim{
		Purl:        purl,
		Status:      "fixed",
		VersionInfo: version.VersionInfo{Scheme: version.Semver, Spec: version.ExactSpec("1.3.0")},
	}

	err := ingestStatusClaim(context.Background(), conn, uuid.New(), "CVE-2020-0001", claim)
	require.NoError(t, err)

	for _, e := range conn.execs {
		assert.False(t, strings.Contains(e.sql, "INSERT INTO cpe"))
	}
}

func TestIngestVulnerabilityClaimWithoutCVSSStillLinks(t *testing.T) {
	conn := &fakeConn{}
	claim := adapter.VulnerabilityClaim{ID: "cve-2023-0001", Title: "t"}

	err := ingestVulnerabilityClaim(context.Background(), conn, uuid.New(), claim)
	require.NoError(t, err)

	var sawLink, sawVuln bool
	for _, e := range conn.execs {
		switch {
		case strings.Contains(e.sql, "INSERT INTO advisory_vulnerability"):
			sawLink = true
		case strings.Contains(e.sql, "INSERT INTO vulnerability"):
			sawVuln = true
		}
	}
	assert.True(t, sawVuln)
	assert.True(t, sawLink)
}

func TestIngestVulnerabilityClaimWithCVSSIngestsScore(t *testing.T) {
	conn := &fakeConn{}
	claim := adapter.VulnerabilityClaim{
		ID: "CVE-2023-0002",
		CVSS: []graph.CVSSScore{{
			MinorVersion: 1, AV: "N", AC: "L", PR: "N", UI: "N", S: "U", C: "H", I: "H", A: "H",
		}},
	}

	err := ingestVulnerabilityClaim(context.Background(), conn, uuid.New(), claim)
	require.NoError(t, err)

	var sawScore bool
	for _, e := range conn.execs {
		if strings.Contains(e.sql, "INSERT INTO cvss_score") {
			sawScore = true
		}
	}
	assert.True(t, sawScore)
}

package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveLicenseIDIsDeterministic(t *testing.T) {
	assert.Equal(t, DeriveLicenseID("MIT"), DeriveLicenseID("MIT"))
	assert.NotEqual(t, DeriveLicenseID("MIT"), DeriveLicenseID("Apache-2.0"))
}

func TestIngestLicensingInfoWritesExpectedColumns(t *testing.T) {
	conn := &fakeConn{}
	li := &LicensingInfo{
		SbomID:        uuid.New(),
		LicenseID:     DeriveLicenseID("LicenseRef-custom"),
		Name:          "LicenseRef-custom",
		ExtractedText: "Custom license text.",
	}

	require.NoError(t, IngestLicensingInfo(context.Background(), conn, li))
	require.Len(t, conn.execs, 1)
	assert.Contains(t, conn.execs[0].sql, "INSERT INTO licensing_info")
	assert.Equal(t, li.SbomID, conn.execs[0].args[0])
	assert.Equal(t, li.Name, conn.execs[0].args[2])
}

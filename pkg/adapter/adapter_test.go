package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffDetectsEachFormat(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Format
	}{
		{"spdx", `{"spdxVersion": "SPDX-2.3"}`, FormatSPDX},
		{"cyclonedx-json", `{"bomFormat": "CycloneDX"}`, FormatCycloneDX},
		{"cyclonedx-xml", `<?xml version="1.0"?><bom/>`, FormatCycloneDX},
		{"cve", `{"cveMetadata": {"cveId": "CVE-2023-1"}}`, FormatCVE},
		{"csaf", `{"document": {"csaf_version": "2.0"}}`, FormatCSAF},
		{"osv", `{"id": "GHSA-xxxx", "aliases": ["CVE-2023-1"]}`, FormatOSV},
		{"unknown", `{"foo": "bar"}`, FormatUnknown},
		{"garbage", `not json`, FormatUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sniff([]byte(tc.raw)))
		})
	}
}

func TestParseCVSSVectorExtractsMetrics(t *testing.T) {
	score, err := parseCVSSVector("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H")
	require.NoError(t, err)
	assert.Equal(t, 1, score.MinorVersion)
	assert.Equal(t, "N", score.AV)
	assert.Equal(t, "L", score.AC)
	assert.Equal(t, "U", score.S)
	assert.Equal(t, "H", score.C)
}

func TestParseCVSSVectorRejectsNonV3(t *testing.T) {
	_, err := parseCVSSVector("CVSS:2.0/AV:N/AC:L/Au:N/C:P/I:P/A:P")
	assert.Error(t, err)
}

func TestParseCVSSVectorRejectsIncompleteVector(t *testing.T) {
	_, err := parseCVSSVector("CVSS:3.1/AV:N/AC:L")
	assert.Error(t, err)
}

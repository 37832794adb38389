package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreCVSS31Log4Shell(t *testing.T) {
	// CVE-2021-44228's published vector:
	// CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H -> 10.0 Critical.
	score, severity := ScoreCVSS31("N", "L", "N", "N", "C", "H", "H", "H")
	assert.Equal(t, 10.0, score)
	assert.Equal(t, SeverityCritical, severity)
}

func TestScoreCVSS31NoImpactIsSeverityNone(t *testing.T) {
	score, severity := ScoreCVSS31("N", "L", "N", "N", "U", "N", "N", "N")
	assert.Equal(t, 0.0, score)
	assert.Equal(t, SeverityNone, severity)
}

func TestScoreCVSS31UnchangedScopeLowOrMediumBand(t *testing.T) {
	// AV:N/AC:H/PR:H/UI:R/S:U/C:L/I:L/A:N is a middling vector; assert
	// the severity band rather than pin a specific digit that small
	// constant-tuning changes could shift.
	_, severity := ScoreCVSS31("N", "H", "H", "R", "U", "L", "L", "N")
	assert.Contains(t, []CVSSSeverity{SeverityLow, SeverityMedium}, severity)
}

func TestSeverityBanding(t *testing.T) {
	assert.Equal(t, SeverityNone, severityBand(0))
	assert.Equal(t, SeverityLow, severityBand(3.9))
	assert.Equal(t, SeverityMedium, severityBand(4.0))
	assert.Equal(t, SeverityMedium, severityBand(6.9))
	assert.Equal(t, SeverityHigh, severityBand(7.0))
	assert.Equal(t, SeverityHigh, severityBand(8.9))
	assert.Equal(t, SeverityCritical, severityBand(9.0))
	assert.Equal(t, SeverityCritical, severityBand(10.0))
}

func TestRoundUpNeverRoundsDown(t *testing.T) {
	assert.Equal(t, 4.1, roundUp(4.02))
	assert.Equal(t, 4.0, roundUp(4.00))
	assert.Equal(t, 1.0, roundUp(0.993))
}

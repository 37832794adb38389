package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectIssuerMatchesPrefix(t *testing.T) {
	refs := []osvReference{
		{Type: "WEB", URL: "https://example.com/unrelated"},
		{Type: "ADVISORY", URL: "https://rustsec.org/advisories/RUSTSEC-2023-0001.html"},
	}
	assert.Equal(t, "Rust Security Advisory Database", detectIssuer(refs))
}

func TestDetectIssuerIgnoresNonAdvisoryReferences(t *testing.T) {
	refs := []osvReference{
		{Type: "WEB", URL: "https://rustsec.org/advisories/RUSTSEC-2023-0001.html"},
	}
	assert.Equal(t, "", detectIssuer(refs))
}

func TestDetectIssuerNoMatch(t *testing.T) {
	refs := []osvReference{
		{Type: "ADVISORY", URL: "https://example.com/advisories/foo"},
	}
	assert.Equal(t, "", detectIssuer(refs))
}

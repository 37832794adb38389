package queryservice

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginatedClampDefaults(t *testing.T) {
	limit, offset := Paginated{}.clamp()
	assert.Equal(t, 25, limit)
	assert.Equal(t, 0, offset)
}

func TestPaginatedClampCapsPerPage(t *testing.T) {
	limit, offset := Paginated{Page: 2, PerPage: 10000}.clamp()
	assert.Equal(t, 200, limit)
	assert.Equal(t, 200, offset)
}

func TestPaginatedClampComputesOffset(t *testing.T) {
	limit, offset := Paginated{Page: 3, PerPage: 10}.clamp()
	assert.Equal(t, 10, limit)
	assert.Equal(t, 20, offset)
}

func TestValidateLabelsTrimsKeysAndValues(t *testing.T) {
	out, err := ValidateLabels(Labels{" team ": " platform "})
	require.NoError(t, err)
	assert.Equal(t, "platform", out["team"])
}

func TestValidateLabelsRejectsEqualsInKey(t *testing.T) {
	_, err := ValidateLabels(Labels{"a=b": "x"})
	require.Error(t, err)
}

func TestValidateLabelsRejectsBackslashInKey(t *testing.T) {
	_, err := ValidateLabels(Labels{`a\b`: "x"})
	require.Error(t, err)
}

func TestApplyLabelUpdateDeletesOnNil(t *testing.T) {
	current := Labels{"team": "platform", "env": "prod"}
	next, err := ApplyLabelUpdate(current, LabelUpdate{"team": nil})
	require.NoError(t, err)
	_, stillPresent := next["team"]
	assert.False(t, stillPresent)
	assert.Equal(t, "prod", next["env"])
}

func TestApplyLabelUpdateSetsValue(t *testing.T) {
	current := Labels{"env": "prod"}
	v := "staging"
	next, err := ApplyLabelUpdate(current, LabelUpdate{"env": &v})
	require.NoError(t, err)
	assert.Equal(t, "staging", next["env"])
}

func TestApplyLabelUpdateRejectsInvalidKey(t *testing.T) {
	v := "x"
	_, err := ApplyLabelUpdate(Labels{}, LabelUpdate{"bad=key": &v})
	require.Error(t, err)
}

func TestApplyLabelUpdateLeavesCurrentUntouched(t *testing.T) {
	current := Labels{"env": "prod"}
	v := "staging"
	_, err := ApplyLabelUpdate(current, LabelUpdate{"env": &v})
	require.NoError(t, err)
	assert.Equal(t, "prod", current["env"])
}

func TestParseIDRecognizesUUID(t *testing.T) {
	u := uuid.New()
	id, err := ParseID(u.String())
	require.NoError(t, err)
	assert.Equal(t, IDUuid, id.Kind)
	assert.Equal(t, u.String(), id.Value)
}

func TestParseIDRecognizesSHA256(t *testing.T) {
	digest := make([]byte, 64)
	for i := range digest {
		digest[i] = 'a'
	}
	id, err := ParseID(string(digest))
	require.NoError(t, err)
	assert.Equal(t, IDSha256, id.Kind)
}

func TestParseIDRecognizesSHA384And512(t *testing.T) {
	sha384 := make([]byte, 96)
	sha512 := make([]byte, 128)
	for i := range sha384 {
		sha384[i] = 'f'
	}
	for i := range sha512 {
		sha512[i] = '0'
	}

	id384, err := ParseID(string(sha384))
	require.NoError(t, err)
	assert.Equal(t, IDSha384, id384.Kind)

	id512, err := ParseID(string(sha512))
	require.NoError(t, err)
	assert.Equal(t, IDSha512, id512.Kind)
}

func TestParseIDRejectsGarbage(t *testing.T) {
	_, err := ParseID("not-a-uuid-or-digest")
	require.Error(t, err)
}

func TestRenderPurlOmitsAbsentNamespaceAndVersion(t *testing.T) {
	assert.Equal(t, "pkg:golang/example.com/foo", renderPurl("golang", "", "example.com/foo", ""))
	assert.Equal(t, "pkg:maven/org.apache.logging.log4j/log4j-core@2.17.1",
		renderPurl("maven", "org.apache.logging.log4j", "log4j-core", "2.17.1"))
}

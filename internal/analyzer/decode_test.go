package analyzer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayloadStrict(t *testing.T) {
	p, err := DecodePayload([]byte(`{"success": true, "data": {"analysis_id": "a1", "total": 12}}`))
	require.NoError(t, err)
	data := p["data"].(map[string]any)
	assert.Equal(t, "a1", data["analysis_id"])
	assert.Equal(t, 12.0, data["total"])
}

func TestDecodePayloadRepairsFencedJSON(t *testing.T) {
	body := "```json\n{\"resumen_ejecutivo\": \"ok\", \"confidence_score\": 80,}\n```"
	p, err := DecodePayload([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "ok", p["resumen_ejecutivo"])
	assert.Equal(t, 80.0, p["confidence_score"])
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	_, err := DecodePayload([]byte("   "))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))

	_, err = DecodePayload([]byte(`[1, 2, 3]`))
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCheckEnvelope(t *testing.T) {
	assert.NoError(t, checkEnvelope(map[string]any{"success": true}))
	assert.NoError(t, checkEnvelope(map[string]any{"resumen_ejecutivo": "x"}))

	err := checkEnvelope(map[string]any{"success": false, "error": map[string]any{"message": "cuota agotada"}})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "cuota agotada", upstream.Message)

	err = checkEnvelope(map[string]any{"success": false})
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "analysis failed", upstream.Message)
}

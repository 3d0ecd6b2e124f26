package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInfoWritesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })

	Info("analysis stored", map[string]any{"analysis_id": "abc", "kind": "pdf"})
	Error("upstream failed", map[string]any{"err": errors.New("boom")})
	Warn("cache miss", nil)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "analysis stored", entries[0].Message)
	assert.Equal(t, "abc", entries[0].ContextMap()["analysis_id"])
	assert.Equal(t, "boom", entries[1].ContextMap()["err"])
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
}

func TestSetLoggerNil(t *testing.T) {
	prev := SetLogger(nil)
	t.Cleanup(func() { SetLogger(prev) })

	assert.NotPanics(t, func() { Info("dropped", nil) })
}

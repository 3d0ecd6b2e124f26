package analyses

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget-analyzer/internal/budget"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cache, err := NewRedisCache(ctx, "redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	an := budget.Analysis{AnalysisID: "a-1", Kind: budget.KindPDF, TotalBudgetCLP: 42}
	require.NoError(t, cache.Set(ctx, "u1", an))

	got, ok, err := cache.Get(ctx, "u1", "a-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42.0, got.TotalBudgetCLP)
	assert.Equal(t, budget.KindPDF, got.Kind)

	_, ok, err = cache.Get(ctx, "u2", "a-1")
	require.NoError(t, err)
	assert.False(t, ok, "entries are scoped per owner")

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "u1", "a-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not a url", time.Minute)
	assert.Error(t, err)
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, "u1", budget.Analysis{AnalysisID: "a-1"}))
	_, ok, err := cache.Get(ctx, "u1", "a-1")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, err = cache.Get(ctx, "u1", "a-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderDeterministic(t *testing.T) {
	p := NewLocalProvider(64)
	ctx := context.Background()

	a, err := p.Embed(ctx, []string{"laptop stand", "desk lamp"})
	require.NoError(t, err)
	b, err := p.Embed(ctx, []string{"laptop stand", "desk lamp"})
	require.NoError(t, err)

	assert.Equal(t, a, b, "same text must produce the same vector")
	assert.NotEqual(t, a[0], a[1], "different text must produce different vectors")
}

func TestLocalProviderUnitNorm(t *testing.T) {
	p := NewLocalProvider(128)
	vecs, err := p.Embed(context.Background(), []string{"ergonomic keyboard"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	require.Len(t, vecs[0], 128)

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestLocalProviderDimensionFallback(t *testing.T) {
	assert.Equal(t, 384, NewLocalProvider(0).Dimension())
	assert.Equal(t, 384, NewLocalProvider(-5).Dimension())
	assert.Equal(t, 16, NewLocalProvider(16).Dimension())
}

func TestLocalProviderCancelledContext(t *testing.T) {
	p := NewLocalProvider(16)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Embed(ctx, []string{"laptop"})
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
}

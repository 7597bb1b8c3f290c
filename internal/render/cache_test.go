package render

import (
	"testing"

	"github.com/couchcryptid/methane-encoder-service/internal/dataset"
	"github.com/couchcryptid/methane-encoder-service/internal/domain"
	"github.com/couchcryptid/methane-encoder-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetricsForTesting()
	c, err := NewCache(4, m)
	require.NoError(t, err)
	return c, m
}

func TestCache_HitAndMiss(t *testing.T) {
	c, m := newTestCache(t)
	store := dataset.NewStore()
	store.Add(testRecords()...)
	cfg := domain.DefaultEncodingConfig()

	first, err := c.Render(store, cfg, Options{})
	require.NoError(t, err)
	second, err := c.Render(store, cfg, Options{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RenderCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RenderCache.WithLabelValues("hit")))
	assert.Equal(t, 1, c.Len())
}

func TestCache_LowerBoundChangeMisses(t *testing.T) {
	c, _ := newTestCache(t)
	store := dataset.NewStore()
	store.Add(testRecords()...)

	before, err := c.Render(store, domain.DefaultEncodingConfig(), Options{})
	require.NoError(t, err)
	after, err := c.Render(store, domain.DefaultEncodingConfig().WithLowerBound(500000), Options{})
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
	assert.Equal(t, 2, c.Len())
}

func TestCache_DatasetChangeMisses(t *testing.T) {
	c, _ := newTestCache(t)
	store := dataset.NewStore()
	store.Add(testRecords()[:1]...)
	cfg := domain.DefaultEncodingConfig()

	before, err := c.Render(store, cfg, Options{})
	require.NoError(t, err)

	store.Add(testRecords()[1])
	after, err := c.Render(store, cfg, Options{})
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
	assert.Contains(t, string(after), "Scherer Plant")
}

func TestFingerprint(t *testing.T) {
	cfg := domain.DefaultEncodingConfig()
	base := Fingerprint(1, cfg, Options{})

	assert.Equal(t, base, Fingerprint(1, cfg, Options{}))
	assert.NotEqual(t, base, Fingerprint(2, cfg, Options{}))
	assert.NotEqual(t, base, Fingerprint(1, cfg.WithLowerBound(2), Options{}))
	assert.NotEqual(t, base, Fingerprint(1, cfg, Options{IncludeFiltered: true}))

	recolored := cfg
	recolored.Palette = domain.NewPalette(map[domain.Industry]domain.RGB{domain.IndustryOther: {0, 0, 0}})
	assert.NotEqual(t, base, Fingerprint(1, recolored, Options{}))
}

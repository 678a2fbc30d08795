package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/config"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/observability"
)

func setupCache(t *testing.T, metrics *observability.Metrics) (*FilterCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFilterCache(client, time.Minute, metrics, zerolog.Nop()), mr
}

func sampleOptions() *domain.FilterOptions {
	minYear, maxYear := 2019, 2021
	return &domain.FilterOptions{
		Years:    []int{2021, 2020, 2019},
		Journals: []string{"Nature", "Lancet"},
		Keywords: []string{"covid"},
		MinYear:  &minYear,
		MaxYear:  &maxYear,
	}
}

func TestFilterCache_RoundTrip(t *testing.T) {
	m := observability.NewMetrics("test_cache_roundtrip")
	c, mr := setupCache(t, m)
	ctx := context.Background()

	_, ok := c.GetFilterOptions(ctx, domain.StoreDocument)
	assert.False(t, ok)

	c.SetFilterOptions(ctx, domain.StoreDocument, sampleOptions())
	got, ok := c.GetFilterOptions(ctx, domain.StoreDocument)
	require.True(t, ok)
	assert.Equal(t, sampleOptions(), got)

	_, ok = c.GetFilterOptions(ctx, domain.StoreRelational)
	assert.False(t, ok)

	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"document"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
}

func TestFilterCache_Expiry(t *testing.T) {
	c, mr := setupCache(t, nil)
	ctx := context.Background()

	c.SetFilterOptions(ctx, domain.StoreRelational, sampleOptions())
	mr.FastForward(2 * time.Minute)

	_, ok := c.GetFilterOptions(ctx, domain.StoreRelational)
	assert.False(t, ok)
}

func TestFilterCache_Invalidate(t *testing.T) {
	c, mr := setupCache(t, nil)
	ctx := context.Background()

	c.SetFilterOptions(ctx, domain.StoreRelational, sampleOptions())
	c.SetFilterOptions(ctx, domain.StoreDocument, sampleOptions())
	require.NoError(t, c.Invalidate(ctx))

	assert.False(t, mr.Exists(keyPrefix+"relational"))
	assert.False(t, mr.Exists(keyPrefix+"document"))
}

func TestFilterCache_CorruptEntry(t *testing.T) {
	m := observability.NewMetrics("test_cache_corrupt")
	c, mr := setupCache(t, m)

	require.NoError(t, mr.Set(keyPrefix+"document", "{not json"))
	_, ok := c.GetFilterOptions(context.Background(), domain.StoreDocument)
	assert.False(t, ok)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookups.WithLabelValues("error")))
}

func TestFilterCache_ServerDown(t *testing.T) {
	c, mr := setupCache(t, nil)
	mr.Close()

	ctx := context.Background()
	_, ok := c.GetFilterOptions(ctx, domain.StoreDocument)
	assert.False(t, ok)
	assert.NotPanics(t, func() { c.SetFilterOptions(ctx, domain.StoreDocument, sampleOptions()) })
	assert.Error(t, c.Invalidate(ctx))
	assert.Error(t, c.Ping(ctx))
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), &config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = NewClient(context.Background(), &config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestNewFilterCache_DefaultTTL(t *testing.T) {
	c := NewFilterCache(nil, 0, nil, zerolog.Nop())
	assert.Equal(t, DefaultTTL, c.ttl)
}

package cache

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andresuchdata/rop-engine/internal/config"
	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPendingKey(t *testing.T) {
	def := buildPendingKey(domain.SuggestionFilter{})
	assert.Equal(t, pendingSuggestionsKeyPrefix+":default", def)

	// normalization folds equivalent filters together
	assert.Equal(t, def, buildPendingKey(domain.SuggestionFilter{Limit: domain.DefaultSuggestionLimit}))
	assert.Equal(t,
		buildPendingKey(domain.SuggestionFilter{Limit: 500}),
		buildPendingKey(domain.SuggestionFilter{Limit: domain.MaxSuggestionLimit}))

	a := buildPendingKey(domain.SuggestionFilter{MinUrgency: 50})
	b := buildPendingKey(domain.SuggestionFilter{MinUrgency: 60})
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, pendingSuggestionsKeyPrefix+":"))
}

func TestNewSuggestionCache_DisabledIsNoop(t *testing.T) {
	c, err := NewSuggestionCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.SetPending(ctx, domain.SuggestionFilter{}, []domain.SuggestionView{{PartName: "x"}}))

	views, hit, err := c.GetPending(ctx, domain.SuggestionFilter{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, views)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(config.CacheConfig{RedisURL: "redis://:secret@redis.local:6379/1"})
	require.NoError(t, err)
	assert.Equal(t, "redis.local:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 1, opts.DB)

	_, err = redisOptions(config.CacheConfig{RedisURL: "://bad"})
	assert.Error(t, err)
}

func TestSuggestionsTTL(t *testing.T) {
	assert.Equal(t, defaultSuggestionsTTL, suggestionsTTL(config.CacheConfig{}))
	assert.Equal(t, 90*time.Second, suggestionsTTL(config.CacheConfig{SuggestionsTTLSeconds: 90}))
}

func newTestRedisCache(t *testing.T, ttl time.Duration) (*redisSuggestionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return newRedisSuggestionCache(client, ttl), mr
}

func TestRedisSuggestionCache_RoundTrip(t *testing.T) {
	c, mr := newTestRedisCache(t, 30*time.Second)
	ctx := context.Background()
	filter := domain.SuggestionFilter{MinUrgency: 40}

	_, hit, err := c.GetPending(ctx, filter)
	require.NoError(t, err)
	assert.False(t, hit)

	views := []domain.SuggestionView{{
		Suggestion: domain.Suggestion{ID: 3, PartID: 9, SuggestedOrderQty: decimal.RequireFromString("27.5"), UrgencyScore: 61.25},
		PartName:   "Resistor 10k",
	}}
	require.NoError(t, c.SetPending(ctx, filter, views))
	assert.Equal(t, 30*time.Second, mr.TTL(buildPendingKey(filter)))

	got, hit, err := c.GetPending(ctx, filter)
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 1)
	assert.Equal(t, "Resistor 10k", got[0].PartName)
	assert.Equal(t, "27.5", got[0].SuggestedOrderQty.String())
	assert.Equal(t, 61.25, got[0].UrgencyScore)

	// other filters are separate entries
	_, hit, err = c.GetPending(ctx, domain.SuggestionFilter{MinUrgency: 80})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisSuggestionCache_EmptyListingIsAHit(t *testing.T) {
	c, _ := newTestRedisCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.SetPending(ctx, domain.SuggestionFilter{}, nil))
	views, hit, err := c.GetPending(ctx, domain.SuggestionFilter{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Empty(t, views)
	assert.Equal(t, defaultSuggestionsTTL, c.ttl)
}

func TestRedisSuggestionCache_CorruptPayload(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Minute)
	require.NoError(t, mr.Set(buildPendingKey(domain.SuggestionFilter{}), "not json"))

	_, hit, err := c.GetPending(context.Background(), domain.SuggestionFilter{})
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestRedisSuggestionCache_InvalidateAll(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Minute)
	ctx := context.Background()

	// more keys than one scan batch
	for i := 0; i < suggestionScanBatchSize+25; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("%s:%d", pendingSuggestionsKeyPrefix, i), "[]"))
	}
	require.NoError(t, c.SetPending(ctx, domain.SuggestionFilter{}, nil))
	require.NoError(t, mr.Set("rop:policies:1", "keep"))

	require.NoError(t, c.InvalidateAll(ctx))

	for _, key := range mr.Keys() {
		assert.False(t, strings.HasPrefix(key, pendingSuggestionsKeyPrefix), key)
	}
	assert.True(t, mr.Exists("rop:policies:1"))

	require.NoError(t, c.InvalidateAll(ctx))
}

func TestNewSuggestionCache_Enabled(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	c, err := NewSuggestionCache(config.CacheConfig{Enabled: true, RedisHost: host, RedisPort: port, SuggestionsTTLSeconds: 10})
	require.NoError(t, err)
	require.IsType(t, &redisSuggestionCache{}, c)
	assert.Equal(t, 10*time.Second, c.(*redisSuggestionCache).ttl)

	require.NoError(t, c.SetPending(context.Background(), domain.SuggestionFilter{}, nil))
	assert.True(t, mr.Exists(buildPendingKey(domain.SuggestionFilter{})))
}

func TestNewSuggestionCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewSuggestionCache(config.CacheConfig{Enabled: true, RedisURL: "redis://" + addr})
	assert.Error(t, err)
}

package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/andresuchdata/rop-engine/internal/config"
	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	pendingSuggestionsKeyPrefix = "rop:suggestions:pending"
	suggestionScanBatchSize     = 100
	defaultSuggestionsTTL       = time.Minute
	redisPingTimeout            = 5 * time.Second
)

// SuggestionCache stores pending suggestion listings per filter. Any change
// to a suggestion or policy invalidates every entry.
type SuggestionCache interface {
	GetPending(ctx context.Context, filter domain.SuggestionFilter) ([]domain.SuggestionView, bool, error)
	SetPending(ctx context.Context, filter domain.SuggestionFilter, views []domain.SuggestionView) error
	InvalidateAll(ctx context.Context) error
}

type redisSuggestionCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

type noopSuggestionCache struct{}

// NewSuggestionCache connects to redis when caching is enabled and returns a
// noop cache otherwise.
func NewSuggestionCache(cfg config.CacheConfig) (SuggestionCache, error) {
	if !cfg.Enabled {
		return &noopSuggestionCache{}, nil
	}

	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisSuggestionCache(client, suggestionsTTL(cfg)), nil
}

func NewNoopSuggestionCache() SuggestionCache {
	return &noopSuggestionCache{}
}

func newRedisSuggestionCache(client redis.UniversalClient, ttl time.Duration) *redisSuggestionCache {
	if ttl <= 0 {
		ttl = defaultSuggestionsTTL
	}
	return &redisSuggestionCache{client: client, ttl: ttl}
}

// redisOptions prefers REDIS_URL and falls back to the discrete host settings.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opts, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func suggestionsTTL(cfg config.CacheConfig) time.Duration {
	if cfg.SuggestionsTTLSeconds <= 0 {
		return defaultSuggestionsTTL
	}
	return time.Duration(cfg.SuggestionsTTLSeconds) * time.Second
}

func (c *redisSuggestionCache) GetPending(ctx context.Context, filter domain.SuggestionFilter) ([]domain.SuggestionView, bool, error) {
	payload, err := c.client.Get(ctx, buildPendingKey(filter)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var views []domain.SuggestionView
	if err := json.Unmarshal(payload, &views); err != nil {
		return nil, false, fmt.Errorf("decode pending suggestions cache: %w", err)
	}

	return views, true, nil
}

func (c *redisSuggestionCache) SetPending(ctx context.Context, filter domain.SuggestionFilter, views []domain.SuggestionView) error {
	if views == nil {
		views = []domain.SuggestionView{}
	}
	payload, err := json.Marshal(views)
	if err != nil {
		return fmt.Errorf("encode pending suggestions cache: %w", err)
	}

	if err := c.client.Set(ctx, buildPendingKey(filter), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached listing, deleting keys in scan-sized batches.
func (c *redisSuggestionCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, pendingSuggestionsKeyPrefix+":*", suggestionScanBatchSize).Iterator()

	batch := make([]string, 0, suggestionScanBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis delete failed: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == suggestionScanBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return flush()
}

func (n *noopSuggestionCache) GetPending(ctx context.Context, filter domain.SuggestionFilter) ([]domain.SuggestionView, bool, error) {
	return nil, false, nil
}

func (n *noopSuggestionCache) SetPending(ctx context.Context, filter domain.SuggestionFilter, views []domain.SuggestionView) error {
	return nil
}

func (n *noopSuggestionCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildPendingKey(filter domain.SuggestionFilter) string {
	return fmt.Sprintf("%s:%s", pendingSuggestionsKeyPrefix, suggestionFilterHash(filter))
}

// suggestionFilterHash hashes the normalized filter so equivalent requests
// share an entry.
func suggestionFilterHash(filter domain.SuggestionFilter) string {
	filter = filter.Normalize()
	if filter == (domain.SuggestionFilter{Limit: domain.DefaultSuggestionLimit}) {
		return "default"
	}

	raw := fmt.Sprintf("limit=%d|min_urgency=%.2f", filter.Limit, filter.MinUrgency)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

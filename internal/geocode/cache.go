package geocode

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Geocoder is the interface CachingClient wraps; satisfied by *Client.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Result, error)
}

// CachingClient is a read-through cache in front of a Geocoder: an
// in-process LRU fast path backed by Redis, keyed on the normalized
// address string. This is ordinary infrastructure, not part of the C9
// contract itself — a cache miss always falls through to the wrapped
// client's single, non-retried attempt.
type CachingClient struct {
	inner  Geocoder
	redis  *redis.Client
	lru    *lru.Cache[string, Result]
	ttl    time.Duration
	logger zerolog.Logger
}

const defaultCacheTTL = 30 * 24 * time.Hour

// NewCachingClient wraps inner with an LRU+Redis cache. rdb may be nil,
// in which case only the in-process LRU is used.
func NewCachingClient(inner Geocoder, rdb *redis.Client, logger zerolog.Logger) (*CachingClient, error) {
	cache, err := lru.New[string, Result](2048)
	if err != nil {
		return nil, err
	}
	return &CachingClient{inner: inner, redis: rdb, lru: cache, ttl: defaultCacheTTL, logger: logger}, nil
}

func normalizeKey(address string) string {
	return "geocode:" + strings.ToLower(strings.TrimSpace(address))
}

func (c *CachingClient) Geocode(ctx context.Context, address string) (Result, error) {
	key := normalizeKey(address)

	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}

	if c.redis != nil {
		if raw, err := c.redis.Get(ctx, key).Result(); err == nil {
			var result Result
			if jsonErr := json.Unmarshal([]byte(raw), &result); jsonErr == nil {
				c.lru.Add(key, result)
				return result, nil
			}
		} else if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("geocode cache read failed")
		}
	}

	result, err := c.inner.Geocode(ctx, address)
	if err != nil {
		return Result{}, err
	}

	c.lru.Add(key, result)
	if c.redis != nil {
		if payload, err := json.Marshal(result); err == nil {
			if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
				c.logger.Warn().Err(err).Msg("geocode cache write failed")
			}
		}
	}
	return result, nil
}

package identity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Cache stores Found snapshots keyed by the user id as requested, which may
// be spelled differently from the id in the snapshot.
type Cache interface {
	Get(ctx context.Context, userID string) (User, bool, error)
	Set(ctx context.Context, userID string, user User, ttl time.Duration) error
}

// CachedResolver serves Found snapshots from a Cache. NotFound and
// Unavailable are never cached, and cache failures fall through to the
// inner resolver.
type CachedResolver struct {
	inner Resolver
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewCachedResolver decorates inner with cache.
func NewCachedResolver(inner Resolver, cache Cache, ttl time.Duration, log *slog.Logger) *CachedResolver {
	if log == nil {
		log = slog.Default()
	}
	return &CachedResolver{inner: inner, cache: cache, ttl: ttl, log: log}
}

func (c *CachedResolver) ResolveUser(ctx context.Context, userID string) Resolution {
	if c.cache == nil || c.ttl <= 0 {
		return c.inner.ResolveUser(ctx, userID)
	}
	if user, ok, err := c.cache.Get(ctx, userID); err != nil {
		c.log.Warn("identity cache read failed", "user_id", userID, "error", err)
	} else if ok {
		return found(user)
	}

	res := c.inner.ResolveUser(ctx, userID)
	if res.Outcome == Found {
		if err := c.cache.Set(ctx, userID, res.User, c.ttl); err != nil {
			c.log.Warn("identity cache write failed", "user_id", userID, "error", err)
		}
	}
	return res
}

// RedisCache keeps snapshots as JSON strings under prefix+userID.
type RedisCache struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{
		client:  client,
		prefix:  "teamup:identity:user:",
		timeout: 250 * time.Millisecond,
	}
}

func (c *RedisCache) Get(ctx context.Context, userID string) (User, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.Get(ctx, c.prefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return User{}, false, err
	}
	return user, true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID string, user User, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+userID, payload, ttl).Err()
}

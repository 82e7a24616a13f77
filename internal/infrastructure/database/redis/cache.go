package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeNotFound, "cache miss")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "serialization failed")
)

// keySpace separates canonical entries from anything else under the prefix.
const keySpace = "canon:"

// CanonicalEntry is the cached result of canonicalizing one HELM string.
type CanonicalEntry struct {
	Canonical  string `json:"canonical"`
	Candidates int    `json:"candidates"`
}

// CanonicalCache caches canonical forms keyed by the input HELM string.
type CanonicalCache interface {
	Get(ctx context.Context, helm string) (*CanonicalEntry, error)
	Set(ctx context.Context, helm string, entry *CanonicalEntry) error
	Delete(ctx context.Context, helm string) error
	Exists(ctx context.Context, helm string) (bool, error)
	// GetOrCompute returns the cached entry or runs compute once per key
	// across concurrent callers and stores its result.  hit reports whether
	// the entry came from Redis.  Errors from compute are never cached.
	GetOrCompute(ctx context.Context, helm string, compute func(ctx context.Context) (*CanonicalEntry, error)) (entry *CanonicalEntry, hit bool, err error)
	// Purge deletes every canonical entry under the prefix.
	Purge(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

type redisCache struct {
	client       *Client
	logger       logging.Logger
	prefix       string
	ttl          time.Duration
	singleflight singleflight.Group
}

type CacheOption func(*redisCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *redisCache) { c.prefix = prefix }
}

// WithTTL sets the entry lifetime.  Zero keeps entries until purged.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.ttl = ttl }
}

func NewCanonicalCache(client *Client, log logging.Logger, opts ...CacheOption) CanonicalCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &redisCache{
		client: client,
		logger: log,
		prefix: "helmkit:",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the Redis key for helm: prefix, key space, then the hex
// SHA-256 of the exact input bytes.
func Key(prefix, helm string) string {
	sum := sha256.Sum256([]byte(helm))
	return prefix + keySpace + hex.EncodeToString(sum[:])
}

func (c *redisCache) key(helm string) string { return Key(c.prefix, helm) }

func (c *redisCache) Get(ctx context.Context, helm string) (*CanonicalEntry, error) {
	data, err := c.client.Get(ctx, c.key(helm)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	}
	var entry CanonicalEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, ErrSerializationFailed.WithCause(err)
	}
	return &entry, nil
}

func (c *redisCache) Set(ctx context.Context, helm string, entry *CanonicalEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	if err := c.client.Set(ctx, c.key(helm), data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set cache")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, helm string) error {
	if err := c.client.Del(ctx, c.key(helm)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete from cache")
	}
	return nil
}

func (c *redisCache) Exists(ctx context.Context, helm string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(helm)).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to check cache")
	}
	return n > 0, nil
}

func (c *redisCache) GetOrCompute(ctx context.Context, helm string, compute func(ctx context.Context) (*CanonicalEntry, error)) (*CanonicalEntry, bool, error) {
	entry, err := c.Get(ctx, helm)
	if err == nil {
		return entry, true, nil
	}
	if err != ErrCacheMiss {
		// Read errors degrade to a miss.
		c.logger.Warn("Canonical cache read failed", logging.Err(err))
	}

	key := c.key(helm)
	v, err, _ := c.singleflight.Do(key, func() (interface{}, error) {
		computed, cerr := compute(ctx)
		if cerr != nil {
			return nil, cerr
		}
		if serr := c.Set(ctx, helm, computed); serr != nil {
			c.logger.Warn("Failed to populate canonical cache", logging.String("key", key), logging.Err(serr))
		}
		return computed, nil
	})
	if err != nil {
		return nil, false, err
	}
	// Shared results are copied so callers never alias one another.
	out := *v.(*CanonicalEntry)
	return &out, false, nil
}

func (c *redisCache) Purge(ctx context.Context) (int64, error) {
	var deleted int64
	var cursor uint64
	match := c.prefix + keySpace + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to scan cache")
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "failed to purge cache")
			}
			deleted += int64(len(keys))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

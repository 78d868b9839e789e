package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agendei/agendei-server/pkg/logging"
)

const defaultCacheTTL = 5 * time.Minute

// CachedRepository is a Redis read-through cache in front of another
// repository. Provider profiles change rarely and are read on every dialogue
// turn, so staleness up to the TTL is acceptable.
type CachedRepository struct {
	inner  Repository
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedRepository wraps inner with a Redis cache.
func NewCachedRepository(inner Repository, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedRepository {
	if inner == nil {
		panic("catalog: inner repository required")
	}
	if client == nil {
		panic("catalog: redis client required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedRepository{inner: inner, redis: client, ttl: ttl, logger: logger}
}

// GetBySlug returns the cached provider, falling back to the inner repository.
func (r *CachedRepository) GetBySlug(ctx context.Context, slug string) (*Provider, error) {
	return r.lookup(ctx, providerSlugKey(slug), func(ctx context.Context) (*Provider, error) {
		return r.inner.GetBySlug(ctx, slug)
	})
}

// GetByID returns the cached provider, falling back to the inner repository.
func (r *CachedRepository) GetByID(ctx context.Context, id string) (*Provider, error) {
	return r.lookup(ctx, providerIDKey(id), func(ctx context.Context) (*Provider, error) {
		return r.inner.GetByID(ctx, id)
	})
}

// List is not cached; it is only hit by the discovery page.
func (r *CachedRepository) List(ctx context.Context) ([]*Provider, error) {
	return r.inner.List(ctx)
}

func (r *CachedRepository) lookup(ctx context.Context, key string, load func(context.Context) (*Provider, error)) (*Provider, error) {
	data, err := r.redis.Get(ctx, key).Bytes()
	if err == nil {
		var p Provider
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		// Corrupt entry; drop it and fall through to the source.
		_ = r.redis.Del(ctx, key).Err()
	} else if err != redis.Nil {
		r.logger.Warn("catalog cache read failed", "key", key, "error", err)
	}

	p, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := r.redis.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("catalog cache write failed", "key", key, "error", err)
		}
	}
	return p, nil
}

func providerSlugKey(slug string) string {
	return fmt.Sprintf("provider:slug:%s", slug)
}

func providerIDKey(id string) string {
	return fmt.Sprintf("provider:id:%s", id)
}

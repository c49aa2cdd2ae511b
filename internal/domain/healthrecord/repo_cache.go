package healthrecord

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "health-record:"

type cachedRepo struct {
	next   Repository
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedRepo wraps next with a Redis read-through cache. Records never
// change after creation so entries only expire by TTL. Redis failures are
// logged and the call falls through to next.
func NewCachedRepo(next Repository, client *redis.Client, ttl time.Duration, logger zerolog.Logger) Repository {
	return &cachedRepo{next: next, redis: client, ttl: ttl, logger: logger}
}

func cacheKey(id string) string { return cacheKeyPrefix + id }

func (c *cachedRepo) Create(ctx context.Context, h *HealthRecord) error {
	if err := c.next.Create(ctx, h); err != nil {
		return err
	}
	c.store(ctx, h)
	return nil
}

func (c *cachedRepo) GetByID(ctx context.Context, id string) (*HealthRecord, error) {
	raw, err := c.redis.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var h HealthRecord
		if jerr := json.Unmarshal(raw, &h); jerr == nil {
			return &h, nil
		}
		c.logger.Warn().Str("record_id", id).Msg("discarding undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Str("record_id", id).Msg("record cache read failed")
	}

	h, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, h)
	return h, nil
}

func (c *cachedRepo) List(ctx context.Context, limit, offset int) ([]*HealthRecord, int, error) {
	return c.next.List(ctx, limit, offset)
}

func (c *cachedRepo) store(ctx context.Context, h *HealthRecord) {
	raw, err := json.Marshal(h)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKey(h.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("record_id", h.ID).Msg("record cache write failed")
	}
}

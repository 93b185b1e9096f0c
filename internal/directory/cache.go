package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/booking-service/internal/logger"
	"github.com/iliyamo/booking-service/internal/model"
)

const profileKeyPrefix = "directory:profile:"

// CachedClient keeps recently seen profiles in Redis.  Verify always asks
// the directory, because "does this user exist" must be answered by the
// owner of the data, and refreshes the cache on success.  GetProfile is
// served from the cache when possible.  Redis failures are logged and the
// call falls through to the directory.
type CachedClient struct {
	next Directory
	rdb  *redis.Client
	ttl  time.Duration
	log  logger.Logger
}

// NewCachedClient wraps next.  With a nil client or a non-positive ttl the
// wrapper is a pass-through.
func NewCachedClient(next Directory, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedClient {
	return &CachedClient{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedClient) enabled() bool { return c.rdb != nil && c.ttl > 0 }

// Verify delegates to the directory and caches the answer.
func (c *CachedClient) Verify(ctx context.Context, externalID string) (model.Profile, error) {
	p, err := c.next.Verify(ctx, externalID)
	if err == nil {
		c.store(ctx, p)
	}
	return p, err
}

// GetProfile returns the cached profile or fetches and caches it.
func (c *CachedClient) GetProfile(ctx context.Context, externalID string) (model.Profile, error) {
	if c.enabled() {
		raw, err := c.rdb.Get(ctx, profileKeyPrefix+externalID).Bytes()
		switch {
		case err == nil:
			var p model.Profile
			if jerr := json.Unmarshal(raw, &p); jerr == nil {
				return p, nil
			}
		case !errors.Is(err, redis.Nil):
			c.log.Warn("profile cache read failed", "externalID", externalID, "error", err)
		}
	}
	p, err := c.next.GetProfile(ctx, externalID)
	if err == nil {
		c.store(ctx, p)
	}
	return p, err
}

func (c *CachedClient) store(ctx context.Context, p model.Profile) {
	if !c.enabled() || p.ExternalID == "" {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, profileKeyPrefix+p.ExternalID, raw, c.ttl).Err(); err != nil {
		c.log.Warn("profile cache write failed", "externalID", p.ExternalID, "error", err)
	}
}

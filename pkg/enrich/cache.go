package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kspirits/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// CachedGenerator memoizes enrichment output per record in Redis. A crash
// between a successful call and the status write leaves the record RAW; the
// cache makes the re-run cheap instead of re-spending quota. Cache failures
// are logged and ignored.
type CachedGenerator struct {
	inner  Generator
	client *redis.Client
	ttl    time.Duration
}

func NewCachedGenerator(inner Generator, client *redis.Client, ttl time.Duration) *CachedGenerator {
	return &CachedGenerator{inner: inner, client: client, ttl: ttl}
}

func (c *CachedGenerator) Enrich(ctx context.Context, in Input) (*Output, error) {
	key := cacheKey(in)

	if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var out Output
		if err := json.Unmarshal(cached, &out); err == nil {
			logger.Log.WithField("spirit_id", in.ID).Debug("enrichment cache hit")
			return &out, nil
		}
	}

	out, err := c.inner.Enrich(ctx, in)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(out); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			logger.Log.WithError(err).Warn("failed to cache enrichment result")
		}
	}

	return out, nil
}

func cacheKey(in Input) string {
	return fmt.Sprintf("enrich:%s:%s", in.ID, in.Name)
}

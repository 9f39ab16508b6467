package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache fronts the Postgres-backed weekly_report table with Redis so a
// repeated regenerate=false request costs no database round trip
// (SPEC_FULL.md's Redis-backed report cache, §A8). A nil client disables the
// fast path; Postgres remains the durable source of truth either way.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client, ttl: 24 * time.Hour}
}

func cacheKey(userID uuid.UUID, weekKey string) string {
	return "synapse:weekly_report:" + userID.String() + ":" + weekKey
}

func (c *Cache) Get(ctx context.Context, userID uuid.UUID, weekKey string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, cacheKey(userID, weekKey)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("report cache read failed")
		}
		return nil, false
	}
	return data, true
}

func (c *Cache) Set(ctx context.Context, userID uuid.UUID, weekKey string, data []byte) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(userID, weekKey), data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("report cache write failed")
	}
}

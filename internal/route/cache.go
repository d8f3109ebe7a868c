package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps live provider answers in redis. A nil *Cache, or one built
// without a client, never hits.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCache(redisClient *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{redis: redisClient, ttl: ttl}
}

func cacheKey(req Request) string {
	return fmt.Sprintf("route:%s:%.5f,%.5f:%.5f,%.5f:%t",
		req.Mode,
		req.Origin.Lat, req.Origin.Lng,
		req.Destination.Lat, req.Destination.Lng,
		req.Alternatives,
	)
}

func (c *Cache) Get(ctx context.Context, req Request) ([]Info, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, cacheKey(req)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("route cache get error: %v", err)
		}
		return nil, false
	}
	var routes []Info
	if err := json.Unmarshal(raw, &routes); err != nil {
		log.Printf("route cache decode error: %v", err)
		return nil, false
	}
	return routes, len(routes) > 0
}

func (c *Cache) Set(ctx context.Context, req Request, routes []Info) {
	if c == nil || c.redis == nil || len(routes) == 0 {
		return
	}
	raw, err := json.Marshal(routes)
	if err != nil {
		log.Printf("route cache encode error: %v", err)
		return
	}
	if err := c.redis.Set(ctx, cacheKey(req), raw, c.ttl).Err(); err != nil {
		log.Printf("route cache set error: %v", err)
	}
}

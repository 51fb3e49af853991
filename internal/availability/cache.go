package availability

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// CacheTTL bounds how stale displayed inventory may be.
const CacheTTL = 30 * time.Second

// Cache is a best-effort read-through cache over Redis. Errors degrade
// to uncached reads; the store stays the source of truth.
type Cache struct {
	Client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{Client: client}
}

func (c *Cache) Get(key string, dest interface{}) bool {
	if c == nil || c.Client == nil {
		return false
	}
	val, err := c.Client.Get(context.Background(), "availability:"+key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dest) == nil
}

func (c *Cache) Set(key string, value interface{}) {
	if c == nil || c.Client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.Client.Set(context.Background(), "availability:"+key, data, CacheTTL)
}

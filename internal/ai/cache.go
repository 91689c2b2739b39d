package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache caches a Decision by a hash of the prompt that produced
// it, for a configurable TTL, so back-to-back identical contexts don't
// pay for a redundant AI call. It degrades to an in-memory map if
// Redis is unavailable or disabled rather than failing calls.
type ResponseCache struct {
	client  *redis.Client
	ttl     time.Duration
	mu      sync.RWMutex
	local   map[string]cachedDecision
	healthy bool
}

type cachedDecision struct {
	decision  Decision
	expiresAt time.Time
}

// RedisConfig configures the optional Redis backing store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewResponseCache builds a cache with the given TTL. If redisCfg is
// nil or the connection check fails, the cache runs in local-only
// (degraded) mode without returning an error — an AI outage or a
// caching-layer outage must never block trading.
func NewResponseCache(ttl time.Duration, redisCfg *RedisConfig) *ResponseCache {
	c := &ResponseCache{
		ttl:   ttl,
		local: make(map[string]cachedDecision),
	}

	if redisCfg == nil {
		return c
	}

	client := redis.NewClient(&redis.Options{
		Addr:         redisCfg.Addr,
		Password:     redisCfg.Password,
		DB:           redisCfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err == nil {
		c.client = client
		c.healthy = true
	}

	return c
}

// HashPrompt produces the cache key for a prompt.
func HashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Get returns a cached Decision for key, if still within TTL.
func (c *ResponseCache) Get(ctx context.Context, key string) (Decision, bool) {
	if c.client != nil && c.healthy {
		val, err := c.client.Get(ctx, "ai:decision:"+key).Result()
		if err == nil {
			var d Decision
			if json.Unmarshal([]byte(val), &d) == nil {
				return d, true
			}
		}
		if err != redis.Nil && err != nil {
			c.healthy = false
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.local[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return Decision{}, false
	}
	return entry.decision, true
}

// Set stores d under key for the cache's configured TTL.
func (c *ResponseCache) Set(ctx context.Context, key string, d Decision) {
	if c.client != nil && c.healthy {
		if data, err := json.Marshal(d); err == nil {
			if err := c.client.Set(ctx, "ai:decision:"+key, data, c.ttl).Err(); err != nil {
				c.healthy = false
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[key] = cachedDecision{decision: d, expiresAt: time.Now().Add(c.ttl)}
}

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sachero10/backend-tienda-ropa/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateLimiter allows limit requests per window per client IP. Counters live
// in Redis so every instance shares them; with rdb == nil a process-local
// window is used instead. Redis errors fail open.
func RateLimiter(rdb *redis.Client, name string, limit int, window time.Duration) gin.HandlerFunc {
	var counter windowCounter
	if rdb != nil {
		counter = &redisCounter{rdb: rdb, name: name}
	} else {
		counter = newMemoryCounter()
	}

	return func(c *gin.Context) {
		count, resetIn, err := counter.hit(c.Request.Context(), c.ClientIP(), window)
		if err != nil {
			log.Warn().Err(err).Str("limiter", name).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if count > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(resetIn.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Too many requests. Try again shortly."))
			return
		}
		c.Next()
	}
}

type windowCounter interface {
	// hit records one request and returns the count in the current window and
	// the time until it resets.
	hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// ── Redis fixed window ────────────────────────────────────────────────────────

type redisCounter struct {
	rdb  *redis.Client
	name string
}

func (r *redisCounter) hit(ctx context.Context, ip string, window time.Duration) (int64, time.Duration, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", r.name, ip)
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	ttl, err := r.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	// first hit of the window, or a key that lost its expiry
	if count == 1 || ttl < 0 {
		if err := r.rdb.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = window
	}
	return count, ttl, nil
}

// ── In-process fallback ───────────────────────────────────────────────────────

type memoryEntry struct {
	count     int64
	windowEnd time.Time
}

type memoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	lastGC  time.Time
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{entries: make(map[string]*memoryEntry), lastGC: time.Now()}
}

const purgeInterval = 5 * time.Minute

func (m *memoryCounter) hit(_ context.Context, ip string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if now.Sub(m.lastGC) > purgeInterval {
		// drop IPs whose window ended, so the map does not grow forever
		for k, e := range m.entries {
			if now.After(e.windowEnd) {
				delete(m.entries, k)
			}
		}
		m.lastGC = now
	}

	e, ok := m.entries[ip]
	if !ok || now.After(e.windowEnd) {
		e = &memoryEntry{windowEnd: now.Add(window)}
		m.entries[ip] = e
	}
	e.count++
	return e.count, e.windowEnd.Sub(now), nil
}

package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"coach_admin_backend/internal/common"
	"coach_admin_backend/internal/config"
	"coach_admin_backend/internal/platform/metrics"
)

// RateLimiter decides whether the caller identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
	Name() string
}

// NewRateLimiter picks the Redis limiter when a client is available and the
// in-process one otherwise. It returns nil when limiting is disabled.
func NewRateLimiter(cfg *config.Config, client *redis.Client) RateLimiter {
	if cfg.CreateCoachRatePerMinute <= 0 {
		return nil
	}
	if client != nil {
		return NewRedisRateLimiter(client, "ratelimit:create-coach:", cfg.CreateCoachRatePerMinute+cfg.CreateCoachBurst, time.Minute)
	}
	return NewMemoryRateLimiter(rate.Limit(float64(cfg.CreateCoachRatePerMinute)/60), cfg.CreateCoachBurst)
}

// RedisRateLimiter is a fixed-window counter shared by every instance. Each
// window gets its own key, so a counter that lost its TTL still stops
// applying once the window has passed.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedisRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RedisRateLimiter{client: client, prefix: prefix, limit: int64(limit), window: window, now: time.Now}
}

func (l *RedisRateLimiter) Name() string { return "redis" }

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	windowSecs := int64(l.window / time.Second)
	bucket := now.Unix() / windowSecs
	k := fmt.Sprintf("%s%s:%d", l.prefix, key, bucket)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, l.window+time.Second)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("rate limit incr: %w", err)
	}
	if incr.Val() <= l.limit {
		return true, 0, nil
	}
	// Until the next window opens.
	retryAfter := time.Unix((bucket+1)*windowSecs, 0).Sub(now)
	return false, retryAfter, nil
}

// memoryLimiterSweepInterval bounds how often idle buckets are dropped.
const memoryLimiterSweepInterval = time.Minute

// MemoryRateLimiter keeps one token bucket per key in this process. Buckets
// that have refilled completely are dropped, since a new one is equivalent.
type MemoryRateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters sync.Map // key -> *rate.Limiter
	now      func() time.Time

	sweepMu   sync.Mutex
	lastSweep time.Time
}

func NewMemoryRateLimiter(limit rate.Limit, burst int) *MemoryRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &MemoryRateLimiter{limit: limit, burst: burst, now: time.Now, lastSweep: time.Now()}
}

func (l *MemoryRateLimiter) Name() string { return "memory" }

func (l *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	l.maybeSweep(now)

	v, ok := l.limiters.Load(key)
	if !ok {
		v, _ = l.limiters.LoadOrStore(key, rate.NewLimiter(l.limit, l.burst))
	}
	lim := v.(*rate.Limiter)

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Minute, nil
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

func (l *MemoryRateLimiter) maybeSweep(now time.Time) {
	if !l.sweepMu.TryLock() {
		return
	}
	defer l.sweepMu.Unlock()
	if now.Sub(l.lastSweep) < memoryLimiterSweepInterval {
		return
	}
	l.lastSweep = now
	full := float64(l.burst)
	l.limiters.Range(func(k, v any) bool {
		if v.(*rate.Limiter).TokensAt(now) >= full {
			l.limiters.Delete(k)
		}
		return true
	})
}

// RateLimit rejects callers over the limiter's allowance with 429. The
// caller is the authenticated admin when known, otherwise the client IP.
// A failing limiter lets the request through.
func RateLimit(limiter RateLimiter, prom *metrics.Prom, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := common.GetFirebaseUIDFromContext(c)
		if key == "" {
			key = c.ClientIP()
		}

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("Rate limiter unavailable, allowing request",
				zap.String("limiter", limiter.Name()),
				zap.Error(err))
			c.Next()
			return
		}
		prom.ObserveRateLimit(limiter.Name(), allowed)
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			common.RespondWithError(c, common.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

package http

import (
	"context"
	"strconv"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

const rateLimitKeyPrefix = "helpdesk:ratelimit:"

// RateLimiter throttles requests per client IP and route. It uses Redis when a
// client is available and a process-local token bucket otherwise, or when
// Redis errors.
type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	limit    redis_rate.Limit
	logger   *zap.Logger
}

// NewRateLimiter builds a limiter allowing perMinute requests per key. rdb may be nil.
func NewRateLimiter(rdb *redis.Client, perMinute int, logger *zap.Logger) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	rl := &RateLimiter{
		fallback: newLocalLimiter(),
		limit:    redis_rate.PerMinute(perMinute),
		logger:   logger,
	}
	if rdb != nil {
		rl.limiter = redis_rate.NewLimiter(rdb)
	}
	return rl
}

// Handler is the fiber middleware.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rateLimitKeyPrefix + c.IP() + ":" + c.Path()
		res := rl.allow(c.UserContext(), key)

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit.Rate))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if res.Allowed == 0 {
			retry := int(res.RetryAfter.Seconds())
			if retry < 1 {
				retry = 1
			}
			return apperrors.NewRateLimited(retry)
		}
		return c.Next()
	}
}

func (rl *RateLimiter) allow(ctx context.Context, key string) *redis_rate.Result {
	if rl.limiter != nil {
		res, err := rl.limiter.Allow(ctx, key, rl.limit)
		if err == nil {
			return res
		}
		rl.logger.Warn("rate limiter backend failed, using local limiter", zap.String("key", key), zap.Error(err))
	}
	return rl.fallback.allow(key, rl.limit)
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

type localLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	lastSweep time.Time
	now       func() time.Time
}

const localEntryTTL = 10 * time.Minute

func newLocalLimiter() *localLimiter {
	return &localLimiter{entries: make(map[string]*limiterEntry), now: time.Now}
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) *redis_rate.Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > localEntryTTL {
		for k, e := range l.entries {
			if now.Sub(e.lastAccess) > localEntryTTL {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	perSecond := float64(limit.Rate) / limit.Period.Seconds()
	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(perSecond), limit.Burst)}
		l.entries[key] = entry
	}
	entry.lastAccess = now

	res := &redis_rate.Result{Limit: limit, RetryAfter: -1}
	if entry.limiter.AllowN(now, 1) {
		res.Allowed = 1
	} else {
		res.RetryAfter = time.Duration(float64(time.Second) / perSecond)
	}
	if remaining := int(entry.limiter.TokensAt(now)); remaining > 0 {
		res.Remaining = remaining
	}
	return res
}

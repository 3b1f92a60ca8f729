package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/logger"
	"github.com/dronesight/dronesight-backend/pkg/clientip"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the number of requests allowed per IP in one window
	RateLimitMaxRequests = 100
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = time.Hour
)

// RateLimiter counts requests per IP in Redis and blocks IPs that exceed the
// window limit. Every request refreshes the window. Redis failures let the
// request through.
type RateLimiter struct {
	rdb        *redis.Client
	max        int
	window     time.Duration
	block      time.Duration
	trustProxy bool
	log        *logrus.Entry
}

func NewRateLimiter(rdb *redis.Client, trustProxy bool) *RateLimiter {
	return &RateLimiter{
		rdb:        rdb,
		max:        RateLimitMaxRequests,
		window:     RateLimitWindow,
		block:      BlockedIPDuration,
		trustProxy: trustProxy,
		log:        logger.For("ratelimit"),
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := clientip.RealClientIP(r, l.trustProxy)

		blockedKey := BlockedIPKeyPrefix + ip
		blocked, err := l.rdb.Exists(ctx, blockedKey).Result()
		if err == nil && blocked > 0 {
			writeLimited(w, "Your IP has been temporarily blocked due to excessive requests. Please try again later.", 0)
			return
		}

		key := RateLimitKeyPrefix + ip
		var incr *redis.IntCmd
		_, err = l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, l.window)
			return nil
		})
		if err != nil {
			l.log.WithError(err).Warn("rate limit check failed, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		count := int(incr.Val())
		if count > l.max {
			if err := l.rdb.Set(ctx, blockedKey, "1", l.block).Err(); err != nil {
				l.log.WithError(err).Warn("failed to block ip")
			}
			l.log.WithField("ip", ip).Warn("rate limit exceeded, ip blocked")
			writeLimited(w, "Rate limit exceeded. Your IP has been temporarily blocked. Please try again later.", int(l.window.Seconds()))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.max-count))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(l.window).Unix(), 10))
		next.ServeHTTP(w, r)
	})
}

// Unblock removes ip from the blocked list.
func (l *RateLimiter) Unblock(ctx context.Context, ip string) error {
	return l.rdb.Del(ctx, BlockedIPKeyPrefix+ip).Err()
}

func writeLimited(w http.ResponseWriter, message string, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	if retryAfter > 0 {
		fmt.Fprintf(w, `{"success":false,"message":%q,"retry_after":%d}`, message, retryAfter)
		return
	}
	fmt.Fprintf(w, `{"success":false,"message":%q}`, message)
}

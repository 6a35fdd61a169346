package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/adocstore/internal/metrics"
	"github.com/xxxsen/adocstore/internal/pkg/errcode"
	"github.com/xxxsen/adocstore/internal/pkg/response"
)

type redisRateLimiter struct {
	client *redis.Client
	window time.Duration
	limit  int
	now    func() time.Time
}

// RedisRateLimit is a fixed window limiter shared by every replica: each
// request INCRs a per-window key and is rejected once the count passes limit.
// A nil client falls back to the in-memory limiter.
func RedisRateLimit(client *redis.Client, window time.Duration, limit int) gin.HandlerFunc {
	if client == nil {
		return RateLimit(window, limit)
	}
	if limit <= 0 {
		limit = 1
	}
	if window < time.Second {
		window = time.Second
	}
	l := &redisRateLimiter{client: client, window: window, limit: limit, now: time.Now}
	return l.handle
}

func (l *redisRateLimiter) handle(c *gin.Context) {
	key, subject := rateKey(c)
	windowSeconds := int64(l.window / time.Second)
	bucket := l.now().Unix() / windowSeconds
	redisKey := fmt.Sprintf("adocstore:rl:%s:%d", key, bucket)

	ctx := c.Request.Context()
	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		logutil.GetLogger(ctx).Error("rate limit check failed", zap.String("key", redisKey), zap.Error(err))
		metrics.RateLimitTotal.WithLabelValues("redis", "error").Inc()
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "rate limit check failed")
		return
	}
	if cnt == 1 {
		_ = l.client.Expire(ctx, redisKey, l.window+time.Second).Err()
	}
	if cnt > int64(l.limit) {
		logutil.GetLogger(ctx).Warn("rate limit hit", zap.String("subject", subject), zap.Int64("count", cnt))
		metrics.RateLimitTotal.WithLabelValues("redis", "rejected").Inc()
		c.Header("Retry-After", strconv.FormatInt(windowSeconds, 10))
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
		return
	}
	metrics.RateLimitTotal.WithLabelValues("redis", "allowed").Inc()
	c.Next()
}

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/adocstore/internal/metrics"
	"github.com/xxxsen/adocstore/internal/pkg/errcode"
	"github.com/xxxsen/adocstore/internal/pkg/response"
)

type rateWindow struct {
	start time.Time
	count int
}

type rateLimiter struct {
	mu            sync.Mutex
	window        time.Duration
	limit         int
	last          map[string]*rateWindow
	sweepInterval time.Duration
	lastSweep     time.Time
	now           func() time.Time
}

// RateLimit allows limit requests per caller and route within each window.
// Callers are keyed by tenant once authenticated, by client ip otherwise.
func RateLimit(window time.Duration, limit int) gin.HandlerFunc {
	if limit <= 0 {
		limit = 1
	}
	limiter := &rateLimiter{
		window:        window,
		limit:         limit,
		last:          make(map[string]*rateWindow),
		sweepInterval: window,
		now:           time.Now,
	}
	return limiter.handle
}

func rateKey(c *gin.Context) (string, string) {
	subject := "ip:" + c.ClientIP()
	if id, ok := TenantID(c); ok {
		subject = "tenant:" + strconv.FormatInt(id, 10)
	}
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return strings.Join([]string{subject, path}, "|"), subject
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.window <= 0 {
		c.Next()
		return
	}
	key, subject := rateKey(c)
	now := l.now()

	l.mu.Lock()
	if l.sweepInterval > 0 && now.Sub(l.lastSweep) >= l.sweepInterval {
		l.cleanupExpiredLocked(now)
	}
	w, exists := l.last[key]
	if !exists || now.Sub(w.start) >= l.window {
		w = &rateWindow{start: now}
		l.last[key] = w
	}
	if w.count >= l.limit {
		l.mu.Unlock()
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("subject", subject),
			zap.String("path", c.Request.URL.Path),
		)
		metrics.RateLimitTotal.WithLabelValues("memory", "rejected").Inc()
		c.Header("Retry-After", strconv.Itoa(int(l.window.Seconds())+1))
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
		return
	}
	w.count++
	l.mu.Unlock()
	metrics.RateLimitTotal.WithLabelValues("memory", "allowed").Inc()
	c.Next()
}

func (l *rateLimiter) cleanupExpiredLocked(now time.Time) {
	for key, w := range l.last {
		if now.Sub(w.start) >= l.window {
			delete(l.last, key)
		}
	}
	l.lastSweep = now
}

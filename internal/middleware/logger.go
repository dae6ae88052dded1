package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/spimexfeed/internal/logger"
)

// RequestLogger emits one structured log line per request with method, path,
// status, latency, client IP, and the identifier set by RequestID. Query
// endpoints answered from the cache and from the store log identically; the
// latency field is what tells them apart in practice.
//
// Example line:
//
//	request_id=123e4567-e89b-12d3-a456-426614174000 method=GET path=/api/v1/dynamics status=200 latency_ms=2
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		rid, _ := c.Get(RequestIDKey)

		logger.L().Info().
			Str("request_id", toString(rid)).
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Int64("latency_ms", latency.Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}

// toString unwraps a context value that should be a string; anything else
// (including nil) renders as empty rather than panicking in the log path.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// client tracks one caller's request count within the current window.
type client struct {
	lastSeen time.Time
	count    int
}

// In-memory per-IP counters. Single-instance only; a multi-instance
// deployment would need these in Redis alongside the query cache.
var (
	clients         = make(map[string]*client)
	window          = time.Minute
	limit           = 60
	rateLimiterLock sync.Mutex
)

// RateLimiter caps each client IP at `limit` requests per `window`
// (60/minute by default) and answers 429 with an error body once the cap is
// exceeded. Counters reset when a client stays quiet for a full window.
func RateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		rateLimiterLock.Lock()
		cl, ok := clients[ip]
		if !ok || now.Sub(cl.lastSeen) > window {
			cl = &client{lastSeen: now, count: 1}
			clients[ip] = cl
		} else {
			cl.count++
			cl.lastSeen = now
		}
		exceeded := cl.count > limit
		rateLimiterLock.Unlock()

		if exceeded {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}

package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const partnerIDKey = "partner_id"

// partnerAuth requires the X-Partner-ID header on every request under it.
// Trusting the header is the deployment contract: an upstream gateway has
// already authenticated the caller.
func partnerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		partnerID := strings.TrimSpace(c.GetHeader("X-Partner-ID"))
		if partnerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "X-Partner-ID header required",
			})
			return
		}
		c.Set(partnerIDKey, partnerID)
		c.Next()
	}
}

func partnerFromContext(c *gin.Context) string {
	if v, ok := c.Get(partnerIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// rateLimit applies a fixed-window per-partner limit. A limiter outage fails
// open: an upload burst is cheaper than a hard outage of the upload path.
func rateLimit(limiter RateLimiter, limit int, window time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		key := "upload:" + partnerFromContext(c)
		decision, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			retryAfter := int(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Code:    "RATE_LIMITED",
				Message: "upload rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// uploadTimeout bounds the synchronous portion of an upload. The background
// task, once scheduled, is not subject to this deadline.
func uploadTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// requestLogger emits one structured line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"partner_id", partnerFromContext(c),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

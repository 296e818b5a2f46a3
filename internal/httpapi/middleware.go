package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/metrics"
	"github.com/kitbuilder587/finanalyst/internal/ratelimit"
)

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func recordMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status())
	}
}

// rateLimit - лимит на клиентский IP, при превышении 429 и Retry-After
func rateLimit(l *ratelimit.Limiter, m *metrics.Metrics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if l.Allow(key) {
			c.Next()
			return
		}

		if m != nil {
			m.RecordRateLimitHit("http")
		}
		wait := l.RetryAfter(key)
		logger.Warn("rate limit exceeded",
			zap.String("client_ip", key),
			zap.Duration("retry_after", wait),
		)

		secs := int(math.Ceil(wait.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "rate limit exceeded, try again in " + strconv.Itoa(secs) + "s",
		})
	}
}

package server

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/meterbill/internal/observability/logger"
	"go.uber.org/zap"
)

// MeteringRateLimit applies the per-tenant token bucket to metering updates.
func (s *Server) MeteringRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.meteringLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		tenantID := tenantIDFromContext(c)
		result, err := s.meteringLimiter.AllowTenant(ctx, tenantID)
		if err != nil {
			logger.FromContext(ctx).Warn("metering rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			s.denyMeteringRateLimit(c, result.RetryAfter)
			return
		}
		c.Next()
	}
}

func (s *Server) denyMeteringRateLimit(c *gin.Context, retryAfter time.Duration) {
	ctx := c.Request.Context()
	endpoint := normalizeRateLimitEndpoint(c)
	logger.FromContext(ctx).Warn("metering rate limit exceeded", zap.String("endpoint", endpoint))
	if s.obsMetrics != nil {
		s.obsMetrics.RecordRateLimitDenied(ctx, endpoint)
	}

	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}

package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/edubill/internal/observability/logger"
	"github.com/smallbiznis/edubill/internal/orgcontext"
	"github.com/smallbiznis/edubill/internal/ratelimit"
	"go.uber.org/zap"
)

const rateLimitReasonOrgRate = "org-rate"

// NumberValidationRateLimit throttles the as-you-type number check per tenant.
// It is a no-op unless the limiter is enabled.
func (s *Server) NumberValidationRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.validateLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		orgID, ok := orgcontext.OrgIDFromContext(ctx)
		if !ok || orgID == 0 {
			AbortWithError(c, ErrOrgRequired)
			return
		}

		res, err := s.validateLimiter.AllowOrg(ctx, orgID.String())
		if err != nil {
			logger.FromContext(ctx).Warn("invoice number validation rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		writeRateLimitHeaders(c, res)
		if !res.Allowed {
			logger.FromContext(ctx).Warn("invoice number validation rate limit exceeded",
				zap.String("reason", rateLimitReasonOrgRate),
				zap.String("endpoint", normalizeRateLimitEndpoint(c)),
			)
			c.Header("X-Rate-Limited-Reason", rateLimitReasonOrgRate)
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}

func writeRateLimitHeaders(c *gin.Context, res *ratelimit.RateLimitResult) {
	if res == nil || res.Limit <= 0 {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if !res.Allowed {
		retry := int(math.Ceil(res.RetryAfter.Seconds()))
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
	}
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := c.FullPath()
	if endpoint == "" {
		endpoint = c.Request.URL.Path
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/edubill/internal/config"
	"github.com/smallbiznis/edubill/internal/observability/metrics"
)

const (
	keyNumberValidationOrg = "invoice_numbers:validate:org:%s"

	endpointNumberValidation = "invoice_numbers.validate"
)

// NumberValidationLimiter throttles the keystroke-driven invoice number check per tenant.
type NumberValidationLimiter struct {
	enabled bool

	bucket  *TokenBucket
	metrics *metrics.Metrics

	rate  float64
	burst int
}

func NewNumberValidationLimiter(cfg config.Config, client *redis.Client, m *metrics.Metrics) (*NumberValidationLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.ValidateEnabled {
		return &NumberValidationLimiter{}, nil
	}
	if client == nil {
		return nil, errors.New("rate limit requires REDIS_ADDR")
	}
	if limitCfg.ValidateRate <= 0 || limitCfg.ValidateBurst <= 0 {
		return nil, errors.New("invoice number validation rate limit must be positive")
	}

	return &NumberValidationLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		metrics: m,
		rate:    limitCfg.ValidateRate,
		burst:   limitCfg.ValidateBurst,
	}, nil
}

func (l *NumberValidationLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowOrg consumes one token for the tenant. A disabled limiter always allows.
func (l *NumberValidationLimiter) AllowOrg(ctx context.Context, orgID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	orgID = strings.TrimSpace(orgID)
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyNumberValidationOrg, orgID), l.rate, l.burst)
	if err != nil {
		return res, err
	}
	if res.Allowed {
		l.metrics.RecordRateLimitAllowed(ctx, orgID, endpointNumberValidation)
	} else {
		l.metrics.RecordRateLimitDenied(ctx, orgID, endpointNumberValidation, "token_bucket_empty")
	}
	return res, nil
}

package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedService wraps a Service with a client-side token bucket,
// smoothing bursts of validation-engine batch calls against a provider's
// requests-per-second quota. It estimates one request as one token; callers
// needing token-cost-aware limiting should size the bucket generously and
// treat this as a request-rate backstop, not a token-budget enforcer.
type RateLimitedService struct {
	inner   Service
	limiter *rate.Limiter
}

// NewRateLimited wraps inner with a limiter allowing ratePerSecond requests
// per second, with burst as the maximum instantaneous burst size.
func NewRateLimited(inner Service, ratePerSecond float64, burst int) *RateLimitedService {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedService{inner: inner, limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Complete blocks until the limiter admits the call (or ctx is done), then
// delegates to inner.
func (s *RateLimitedService) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Complete(ctx, req)
}

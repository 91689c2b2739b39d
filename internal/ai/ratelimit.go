package ai

import (
	"context"

	"golang.org/x/time/rate"
)

// newRateLimiter builds the requests/minute budget for outbound AI
// calls, with burst capacity for the full minute's allowance.
func newRateLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	perSecond := float64(requestsPerMinute) / 60.0
	return rate.NewLimiter(rate.Limit(perSecond), requestsPerMinute)
}

// wait blocks until the limiter admits one more call or ctx is done.
func wait(ctx context.Context, limiter *rate.Limiter) error {
	return limiter.Wait(ctx)
}

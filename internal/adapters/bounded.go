package adapters

import (
	"context"

	"golang.org/x/time/rate"
)

// BoundedCaller wraps a rate limiter and a concurrency semaphore around
// calls to MetadataSource/PriceSource, the only adapters spec.md 5 allows
// to be shared across tenants ("must be safe for concurrent use; engine
// does not serialize them" — BoundedCaller bounds, rather than serializes,
// the fan-out against a potentially slow or rate-limited backend).
type BoundedCaller struct {
	limiter *rate.Limiter
	sem     chan struct{}
}

// NewBoundedCaller builds a caller allowing at most ratePerSecond calls/sec
// (burst equal to maxConcurrent) and at most maxConcurrent calls in flight.
func NewBoundedCaller(ratePerSecond float64, maxConcurrent int) *BoundedCaller {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &BoundedCaller{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), maxConcurrent),
		sem:     make(chan struct{}, maxConcurrent),
	}
}

// Call runs fn once the rate limiter and the concurrency semaphore both
// admit it, or returns ctx's error if it is cancelled first.
func (b *BoundedCaller) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-b.sem }()
	return fn(ctx)
}

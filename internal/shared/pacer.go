package shared

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out consecutive catalog requests.
//
// The first call returns immediately; later calls wait until interval has passed since the previous one.
// A zero or negative interval disables pacing.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a [Pacer] allowing one request per interval.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request may be issued or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

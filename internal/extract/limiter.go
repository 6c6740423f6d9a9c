package extract

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// adaptiveLimiter paces extractor calls. Throttling responses halve the
// rate down to a quarter of the initial value; successes raise it by 20%
// up to twice the initial value.
type adaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	initial rate.Limit
	current rate.Limit
}

func newAdaptiveLimiter(perSec float64, burst int) *adaptiveLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(perSec)
	if perSec <= 0 {
		limit = rate.Inf
	}
	return &adaptiveLimiter{
		limiter: rate.NewLimiter(limit, burst),
		initial: limit,
		current: limit,
	}
}

func (a *adaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func (a *adaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initial == rate.Inf {
		return
	}
	a.current = min(a.current*1.2, a.initial*2)
	a.limiter.SetLimit(a.current)
}

func (a *adaptiveLimiter) OnThrottle() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initial == rate.Inf {
		return
	}
	a.current = max(a.current*0.5, a.initial/4)
	a.limiter.SetLimit(a.current)
	zap.L().Warn("extract: throttled, reducing request rate",
		zap.Float64("new_rate", float64(a.current)),
	)
}

func (a *adaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

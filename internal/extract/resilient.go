package extract

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/resilience"
)

// ResilientOptions configures a Resilient extractor.
type ResilientOptions struct {
	Name       string
	RatePerSec float64
	Burst      int
	// Timeout bounds each attempt; zero means no per-attempt timeout.
	Timeout time.Duration
	Retry   resilience.RetryPolicy
	Breaker resilience.BreakerConfig
}

// Resilient wraps an Extractor with an adaptive rate limit, a circuit
// breaker and retries of transient failures.
type Resilient struct {
	inner   Extractor
	name    string
	timeout time.Duration
	retry   resilience.RetryPolicy
	breaker *resilience.Breaker
	limiter *adaptiveLimiter
}

// NewResilient wraps inner.
func NewResilient(inner Extractor, opts ResilientOptions) *Resilient {
	if opts.Breaker.Name == "" {
		opts.Breaker.Name = opts.Name
	}
	return &Resilient{
		inner:   inner,
		name:    opts.Name,
		timeout: opts.Timeout,
		retry:   opts.Retry,
		breaker: resilience.NewBreaker(opts.Breaker),
		limiter: newAdaptiveLimiter(opts.RatePerSec, opts.Burst),
	}
}

// Extract implements Extractor.
func (r *Resilient) Extract(ctx context.Context, doc model.Document) ([]model.Fragment, error) {
	policy := r.retry
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.LogRetries(r.name, doc.Name)
	}

	return resilience.DoVal(ctx, policy, func(ctx context.Context) ([]model.Fragment, error) {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extract: rate limit wait")
		}
		return resilience.Call(ctx, r.breaker, r.attempt(doc))
	})
}

// Breaker exposes the circuit breaker state for health reporting.
func (r *Resilient) Breaker() *resilience.Breaker { return r.breaker }

func (r *Resilient) attempt(doc model.Document) func(ctx context.Context) ([]model.Fragment, error) {
	return func(ctx context.Context) ([]model.Fragment, error) {
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		fragments, err := r.inner.Extract(ctx, doc)
		if err != nil {
			var te *resilience.TransientError
			if errors.As(err, &te) && te.StatusCode == http.StatusTooManyRequests {
				r.limiter.OnThrottle()
			}
			return nil, err
		}
		r.limiter.OnSuccess()
		return fragments, nil
	}
}

package extract

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/contact-extractor/internal/config"
	"github.com/sells-group/contact-extractor/internal/model"
	"github.com/sells-group/contact-extractor/internal/resilience"
)

type scriptedExtractor struct {
	calls atomic.Int32
	errs  []error
}

func (s *scriptedExtractor) Extract(context.Context, model.Document) ([]model.Fragment, error) {
	n := int(s.calls.Add(1)) - 1
	if n < len(s.errs) && s.errs[n] != nil {
		return nil, s.errs[n]
	}
	return []model.Fragment{{Type: "name", Text: "John Smith"}}, nil
}

func fastOptions() ResilientOptions {
	return ResilientOptions{
		Name:    "test",
		Retry:   resilience.RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		Breaker: resilience.BreakerConfig{FailureThreshold: 10, Cooldown: time.Minute},
	}
}

func TestResilient_RetriesTransient(t *testing.T) {
	inner := &scriptedExtractor{errs: []error{
		resilience.NewTransientError(errors.New("unavailable"), 503),
		resilience.NewTransientError(errors.New("unavailable"), 503),
	}}
	r := NewResilient(inner, fastOptions())

	fragments, err := r.Extract(context.Background(), model.Document{Name: "a.pdf"})
	require.NoError(t, err)
	assert.Len(t, fragments, 1)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestResilient_PermanentNotRetried(t *testing.T) {
	inner := &scriptedExtractor{errs: []error{errors.New("bad request")}}
	r := NewResilient(inner, fastOptions())

	_, err := r.Extract(context.Background(), model.Document{Name: "a.pdf"})
	require.Error(t, err)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestResilient_CircuitOpens(t *testing.T) {
	transient := resilience.NewTransientError(errors.New("down"), 500)
	inner := &scriptedExtractor{errs: []error{transient, transient, transient, transient}}
	opts := fastOptions()
	opts.Retry.MaxAttempts = 1
	opts.Breaker.FailureThreshold = 2
	r := NewResilient(inner, opts)

	for range 2 {
		_, err := r.Extract(context.Background(), model.Document{Name: "a.pdf"})
		require.Error(t, err)
	}
	assert.Equal(t, resilience.Open, r.Breaker().State())

	_, err := r.Extract(context.Background(), model.Document{Name: "a.pdf"})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestResilient_ThrottleSlowsLimiter(t *testing.T) {
	inner := &scriptedExtractor{errs: []error{resilience.NewTransientError(errors.New("slow down"), 429)}}
	opts := fastOptions()
	opts.RatePerSec = 1000
	opts.Burst = 10
	r := NewResilient(inner, opts)

	_, err := r.Extract(context.Background(), model.Document{Name: "a.pdf"})
	require.NoError(t, err)
	// Halved on 429, then raised 20% on success.
	assert.InDelta(t, 600, float64(r.limiter.Limit()), 0.001)
}

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	a := newAdaptiveLimiter(10, 1)
	for range 10 {
		a.OnThrottle()
	}
	assert.InDelta(t, 2.5, float64(a.Limit()), 0.001)
	for range 20 {
		a.OnSuccess()
	}
	assert.InDelta(t, 20, float64(a.Limit()), 0.001)

	unlimited := newAdaptiveLimiter(0, 0)
	unlimited.OnThrottle()
	assert.Equal(t, rate.Inf, unlimited.Limit())
}

func TestNewExtractor_Providers(t *testing.T) {
	ext, err := NewExtractor(config.ExtractorConfig{Provider: "fixture"})
	require.NoError(t, err)
	r, ok := ext.(*Resilient)
	require.True(t, ok)
	assert.IsType(t, &Fixture{}, r.inner)

	ext, err = NewExtractor(config.ExtractorConfig{
		Provider:   "documentai",
		DocumentAI: config.DocumentAIConfig{ProjectID: "p", ProcessorID: "x", AccessToken: "t"},
	})
	require.NoError(t, err)
	assert.IsType(t, &DocumentAI{}, ext.(*Resilient).inner)

	ext, err = NewExtractor(config.ExtractorConfig{Provider: "text", Text: config.TextConfig{AnthropicKey: "k"}})
	require.NoError(t, err)
	assert.IsType(t, &TextExtractor{}, ext.(*Resilient).inner)
}

func TestNewExtractor_Errors(t *testing.T) {
	_, err := NewExtractor(config.ExtractorConfig{Provider: "ocr"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "ocr"`)

	_, err = NewExtractor(config.ExtractorConfig{Provider: "documentai"})
	require.Error(t, err)

	_, err = NewExtractor(config.ExtractorConfig{Provider: "text"})
	require.Error(t, err)
}

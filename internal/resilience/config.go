package resilience

import "time"

// PolicyFromConfig builds a RetryPolicy from flat config values. Zero or
// negative values keep the defaults.
func PolicyFromConfig(maxAttempts, initialBackoffMs, maxBackoffMs int, multiplier float64) RetryPolicy {
	p := DefaultRetryPolicy()
	if maxAttempts > 0 {
		p.MaxAttempts = maxAttempts
	}
	if initialBackoffMs > 0 {
		p.InitialBackoff = time.Duration(initialBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		p.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}
	if multiplier > 0 {
		p.Multiplier = multiplier
	}
	return p
}

// BreakerFromConfig builds a named BreakerConfig from flat config values.
func BreakerFromConfig(name string, failureThreshold, cooldownSecs int) BreakerConfig {
	cfg := DefaultBreakerConfig()
	cfg.Name = name
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if cooldownSecs > 0 {
		cfg.Cooldown = time.Duration(cooldownSecs) * time.Second
	}
	return cfg
}

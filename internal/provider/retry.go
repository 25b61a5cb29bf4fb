package provider

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

// RetryConfig configures the retry wrapper.
type RetryConfig struct {
	// Attempts is the total number of tries per call (default: 3).
	Attempts int
	// BaseDelay is the delay before the second try; later tries double it
	// (default: 2s).
	BaseDelay time.Duration
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:  3,
		BaseDelay: 2 * time.Second,
	}
}

// retryProvider decorates a Provider with backoff on transient failures.
type retryProvider struct {
	inner Provider
	cfg   RetryConfig
}

// WithRetry wraps a provider so transient failures (rate limits, overload,
// timeouts) are retried with exponential backoff. Non-transient failures
// return immediately.
func WithRetry(inner Provider, cfg RetryConfig) Provider {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	return &retryProvider{inner: inner, cfg: cfg}
}

func (r *retryProvider) Name() string {
	return r.inner.Name()
}

func (r *retryProvider) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	delay := r.cfg.BaseDelay

	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		text, err := r.inner.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !retryable(err) {
			return "", err
		}
		if attempt == r.cfg.Attempts {
			break
		}

		log.Printf("[provider] %s: attempt %d/%d failed (%v), retrying in %s",
			r.inner.Name(), attempt, r.cfg.Attempts, err, delay)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return "", lastErr
}

// retryable reports whether an error looks transient. The provider error is
// deliberately opaque, so this goes by well-known substrings from the
// backend SDKs.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"rate limit",
		"rate_limit",
		"overloaded",
		"429",
		"529",
		"503",
		"timeout",
		"temporarily unavailable",
		"connection reset",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

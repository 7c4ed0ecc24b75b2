// Package transport holds the HTTP retry/backoff policy shared by every
// provider (§4.3). Grounded on the teacher's callLLMWithRetry
// (domain/service/llm_caller.go): a manual attempt loop with
// cancellation-aware waits and a retry-notification hook, generalized from
// a fixed 2s-doubling wait to the spec's exact jittered formula and
// Retry-After override, computed via cenkalti/backoff/v5's BackOff
// interface.
package transport

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	pkgerrors "github.com/marschhuynh/agentcore/pkg/errors"
)

// RetryConfig mirrors domain/valueobject.RetryConfig; duplicated here as
// plain fields so the transport package has no domain dependency.
type RetryConfig struct {
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	JitterFactor float64
	MaxRetries   int
}

// DefaultRetryConfig matches spec.md §4.3's stated defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BaseDelay:    1 * time.Second,
		Multiplier:   2,
		MaxDelay:     60 * time.Second,
		JitterFactor: 0.2,
		MaxRetries:   10,
	}
}

// jitteredBackOff computes min(maxDelay, base·multiplier^attempt)·(1±jitter·uniform[0,1]),
// implementing backoff.BackOff so the retry loop below can drive it like
// any other backoff.BackOff. The capped-exponential-growth part (the
// "min(maxDelay, base·multiplier^attempt)" term) is delegated to
// cenkalti/backoff/v5's ExponentialBackOff with randomization disabled;
// this package's own jitter formula is layered on top of its output
// because the spec's ±jitterFactor·uniform[0,1] shape does not match the
// library's own randomization model closely enough to reuse directly.
type jitteredBackOff struct {
	cfg RetryConfig
	exp *backoff.ExponentialBackOff
}

func newJitteredBackOff(cfg RetryConfig) *jitteredBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cfg.BaseDelay
	exp.Multiplier = cfg.Multiplier
	exp.MaxInterval = cfg.MaxDelay
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0 // attempts are bounded by cfg.MaxRetries, not elapsed time
	return &jitteredBackOff{cfg: cfg, exp: exp}
}

func (j *jitteredBackOff) NextBackOff() time.Duration {
	capped := j.exp.NextBackOff()
	jitter := 1 + j.cfg.JitterFactor*(2*rand.Float64()-1)
	return time.Duration(float64(capped) * jitter)
}

// RetryableError wraps an error with the classification that decides
// whether the transport loop retries it, and an optional server-supplied
// Retry-After override.
type RetryableError struct {
	Category   pkgerrors.Category
	RetryAfter time.Duration // zero means "no override"
	Err        error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// retryable reports whether category is one the transport loop retries
// (§4.3): 429, 500, 502, 503, 504, connection errors, DNS failures.
func retryable(cat pkgerrors.Category) bool {
	switch cat {
	case pkgerrors.RateLimit, pkgerrors.NetworkError, pkgerrors.Timeout:
		return true
	default:
		return false
	}
}

// ClassifyStatus maps an HTTP status code to the category that governs
// retry eligibility.
func ClassifyStatus(status int) pkgerrors.Category {
	switch {
	case status == http.StatusTooManyRequests:
		return pkgerrors.RateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.Unauthenticated
	case status == http.StatusNotFound:
		return pkgerrors.NotFound
	case status == http.StatusInternalServerError || status == http.StatusBadGateway ||
		status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return pkgerrors.NetworkError
	case status >= 500:
		return pkgerrors.Unknown
	case status >= 400:
		return pkgerrors.InvalidInput
	default:
		return pkgerrors.Unknown
	}
}

// ClassifyDialError maps a transport-level connection failure (not an HTTP
// status) to network_error.
func ClassifyDialError(err error) pkgerrors.Category {
	if err == nil {
		return pkgerrors.Unknown
	}
	return pkgerrors.NetworkError
}

// ParseRetryAfter parses the Retry-After header (seconds or HTTP-date).
func ParseRetryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if when, err := http.ParseTime(header); err == nil {
		d := time.Until(when)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// Do runs op, retrying per cfg on retryable errors (§4.3). op's error, if
// non-nil, must be a *RetryableError so Do can classify it; streamStarted
// lets callers report that deltas have already been emitted, which
// forbids further retries regardless of category (§8 Open Question iii).
// A *RetryableError that ends the loop is returned wrapped in a
// *pkgerrors.CoreError of its category.
func Do[T any](ctx context.Context, logger *zap.Logger, cfg RetryConfig, op func(ctx context.Context) (T, bool, error)) (T, error) {
	bo := newJitteredBackOff(cfg)
	var lastErr error
	categorized := func(err error) error {
		if re, ok := err.(*RetryableError); ok {
			return pkgerrors.Wrap(re.Category, "llm request failed", re)
		}
		return err
	}

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := bo.NextBackOff()
			if re, ok := lastErr.(*RetryableError); ok && re.RetryAfter > 0 {
				wait = re.RetryAfter
			}
			logger.Info("retrying LLM call",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", cfg.MaxRetries),
				zap.Duration("wait", wait),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			}
		}

		result, streamStarted, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if streamStarted {
			// Open Question (iii): never retry once deltas have begun.
			var zero T
			return zero, categorized(err)
		}

		re, ok := err.(*RetryableError)
		if !ok || !retryable(re.Category) {
			var zero T
			return zero, categorized(err)
		}
	}

	var zero T
	return zero, categorized(lastErr)
}

var _ backoff.BackOff = (*jitteredBackOff)(nil)

func (j *jitteredBackOff) Reset() { j.exp.Reset() }

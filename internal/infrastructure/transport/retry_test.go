package transport

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"

	pkgerrors "github.com/marschhuynh/agentcore/pkg/errors"
)

func TestClassifyStatus(t *testing.T) {
	cases := map[int]pkgerrors.Category{
		429: pkgerrors.RateLimit,
		401: pkgerrors.Unauthenticated,
		403: pkgerrors.Unauthenticated,
		404: pkgerrors.NotFound,
		500: pkgerrors.NetworkError,
		502: pkgerrors.NetworkError,
		400: pkgerrors.InvalidInput,
		200: pkgerrors.Unknown,
	}
	for status, want := range cases {
		if got := ClassifyStatus(status); got != want {
			t.Errorf("ClassifyStatus(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	d, ok := ParseRetryAfter("30")
	if !ok || d != 30*time.Second {
		t.Fatalf("got %v, %v", d, ok)
	}
}

func TestParseRetryAfterHTTPDate(t *testing.T) {
	future := time.Now().Add(45 * time.Second).UTC()
	header := future.Format(http.TimeFormat)
	d, ok := ParseRetryAfter(header)
	if !ok {
		t.Fatal("expected a parsed duration")
	}
	if d <= 0 || d > 46*time.Second {
		t.Fatalf("unexpected duration %v", d)
	}
}

func TestParseRetryAfterEmpty(t *testing.T) {
	if _, ok := ParseRetryAfter(""); ok {
		t.Fatal("empty header must not parse")
	}
}

func TestJitteredBackOffRespectsMaxDelay(t *testing.T) {
	bo := newJitteredBackOff(RetryConfig{BaseDelay: time.Second, Multiplier: 2, MaxDelay: 5 * time.Second, JitterFactor: 0})
	for i := 0; i < 10; i++ {
		d := bo.NextBackOff()
		if d > 5*time.Second {
			t.Fatalf("attempt %d exceeded max delay: %v", i, d)
		}
	}
}

func TestDoSucceedsWithoutRetry(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), zap.NewNop(), DefaultRetryConfig(), func(ctx context.Context) (string, bool, error) {
		calls++
		return "ok", false, nil
	})
	if err != nil || result != "ok" || calls != 1 {
		t.Fatalf("result=%q err=%v calls=%d", result, err, calls)
	}
}

func TestDoRetriesRetryableErrorThenSucceeds(t *testing.T) {
	calls := 0
	cfg := RetryConfig{BaseDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond, JitterFactor: 0, MaxRetries: 3}
	result, err := Do(context.Background(), zap.NewNop(), cfg, func(ctx context.Context) (int, bool, error) {
		calls++
		if calls < 3 {
			return 0, false, &RetryableError{Category: pkgerrors.NetworkError, Err: errors.New("boom")}
		}
		return 42, false, nil
	})
	if err != nil || result != 42 || calls != 3 {
		t.Fatalf("result=%d err=%v calls=%d", result, err, calls)
	}
}

func TestDoDoesNotRetryNonRetryableCategory(t *testing.T) {
	calls := 0
	cfg := RetryConfig{BaseDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond, MaxRetries: 5}
	_, err := Do(context.Background(), zap.NewNop(), cfg, func(ctx context.Context) (int, bool, error) {
		calls++
		return 0, false, &RetryableError{Category: pkgerrors.InvalidInput, Err: errors.New("bad request")}
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected single attempt for a non-retryable category, got %d calls, err=%v", calls, err)
	}
}

func TestDoNeverRetriesOnceStreamStarted(t *testing.T) {
	calls := 0
	cfg := RetryConfig{BaseDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond, MaxRetries: 5}
	_, err := Do(context.Background(), zap.NewNop(), cfg, func(ctx context.Context) (int, bool, error) {
		calls++
		return 0, true, &RetryableError{Category: pkgerrors.NetworkError, Err: errors.New("dropped mid-stream")}
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected exactly one attempt once streaming has begun, got %d calls", calls)
	}
}

func TestDoHonorsRetryAfterOverride(t *testing.T) {
	calls := 0
	cfg := RetryConfig{BaseDelay: time.Hour, Multiplier: 2, MaxDelay: time.Hour, MaxRetries: 1}
	start := time.Now()
	_, err := Do(context.Background(), zap.NewNop(), cfg, func(ctx context.Context) (int, bool, error) {
		calls++
		if calls == 1 {
			return 0, false, &RetryableError{Category: pkgerrors.RateLimit, RetryAfter: 10 * time.Millisecond, Err: errors.New("rate limited")}
		}
		return 1, false, nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Retry-After override was not honored, waited %v", elapsed)
	}
}

func TestDoStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{BaseDelay: time.Hour, Multiplier: 1, MaxDelay: time.Hour, MaxRetries: 5}
	cancel()
	_, err := Do(ctx, zap.NewNop(), cfg, func(ctx context.Context) (int, bool, error) {
		return 0, false, &RetryableError{Category: pkgerrors.NetworkError, Err: errors.New("x")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

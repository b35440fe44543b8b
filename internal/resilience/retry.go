package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Action tells the retry loop what to do with a failed attempt.
type Action int

const (
	// Abort stops retrying and returns the error.
	Abort Action = iota
	// Retry sleeps the current backoff and tries again without growing it.
	Retry
	// Backoff sleeps the current backoff, then grows it by Multiplier (up to MaxBackoff).
	Backoff
)

func (a Action) String() string {
	switch a {
	case Abort:
		return "abort"
	case Retry:
		return "retry"
	case Backoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// RetryConfig controls retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 6.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry. Default: 5s.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Default: 300s.
	MaxBackoff time.Duration

	// Multiplier scales the backoff after each escalating failure. Default: 2.0.
	Multiplier float64

	// JitterFraction adds random jitter as a fraction of the computed delay
	// (0.0 = no jitter, 0.5 = ±50%). Default: 0.
	JitterFraction float64

	// Classify maps a failure to an Action. If nil, DefaultClassify is used.
	Classify func(err error) Action

	// OnRetry is called before each retry sleep with attempt number, error and delay.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Sleep waits for d or until ctx is done. If nil, a timer-based sleep is used.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig returns the retry policy used against rate-limited public APIs.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    6,
		InitialBackoff: 5 * time.Second,
		MaxBackoff:     300 * time.Second,
		Multiplier:     2.0,
	}
}

// DefaultClassify backs off on rate limiting and server errors, retries other
// transient errors at the current delay, and aborts on everything else.
func DefaultClassify(err error) Action {
	if err == nil || IsContextError(err) {
		return Abort
	}
	if IsRateLimitOrServerError(err) {
		return Backoff
	}
	if IsTransient(err) {
		return Retry
	}
	return Abort
}

// Do executes fn with retry logic according to cfg. Context cancellation stops
// retries immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal executes fn returning a value with retry logic. The backoff only grows
// after failures classified as Backoff, so consecutive waits never shrink.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	var zero T
	var lastErr error
	delay := cfg.InitialBackoff
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}

		action := cfg.Classify(lastErr)
		if action == Abort {
			return zero, lastErr
		}

		// Don't sleep after the last attempt.
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := jitter(delay, cfg.JitterFraction)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr, wait)
		}
		if err := cfg.Sleep(ctx, wait); err != nil {
			return zero, lastErr
		}

		if action == Backoff {
			delay = nextBackoff(delay, cfg)
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 6
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 5 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 300 * time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	if cfg.Classify == nil {
		cfg.Classify = DefaultClassify
	}
	if cfg.Sleep == nil {
		cfg.Sleep = SleepContext
	}
	return cfg
}

func nextBackoff(delay time.Duration, cfg RetryConfig) time.Duration {
	next := time.Duration(float64(delay) * cfg.Multiplier)
	if next > cfg.MaxBackoff || next < delay {
		return cfg.MaxBackoff
	}
	return next
}

func jitter(delay time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return delay
	}
	jitterRange := float64(delay) * fraction
	d := float64(delay) + (rand.Float64()*2-1)*jitterRange // [-jitterRange, +jitterRange]
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// SleepContext waits for d, returning early with ctx.Err() if ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error, time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
	}
}

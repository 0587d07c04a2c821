/*
Package retry implements the bounded-retry policy shared by DocStoreReader
and DocStoreWriter: classify the error, decide whether it is recoverable,
and back off exponentially with jitter before trying again. A server-hinted
retry-after delay, when present, overrides the computed backoff.
*/
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/tablesync/pkg/apperr"
	"github.com/cuemby/tablesync/pkg/metrics"
)

// Policy configures bounded retry behavior.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Log        zerolog.Logger

	// sleep is swapped out in tests to avoid real waits.
	sleep func(time.Duration)
	// rand is swapped out in tests for deterministic jitter.
	rand func() float64
}

// DefaultPolicy returns the engine's default bounded-retry configuration:
// five retries, 100ms base delay, 60s cap.
func DefaultPolicy(log zerolog.Logger) Policy {
	return Policy{
		MaxRetries: 5,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   60 * time.Second,
		Log:        log,
		sleep:      time.Sleep,
		rand:       rand.Float64,
	}
}

func (p Policy) sleeper() func(time.Duration) {
	if p.sleep != nil {
		return p.sleep
	}
	return time.Sleep
}

func (p Policy) jitter() func() float64 {
	if p.rand != nil {
		return p.rand
	}
	return rand.Float64
}

// Execute runs op, retrying on recoverable errors (RateLimited, Timeout,
// Unavailable) up to MaxRetries times with exponential backoff and full
// jitter. name identifies the operation in log lines. A RateLimitedError
// carrying a server-hinted RetryAfterMs overrides the computed delay.
func (p Policy) Execute(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !apperr.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxRetries {
			break
		}

		delay := p.backoff(attempt)
		if rl, ok := lastErr.(*apperr.RateLimitedError); ok && rl.RetryAfterMs > 0 {
			delay = time.Duration(rl.RetryAfterMs) * time.Millisecond
		}

		metrics.RetryAttemptsTotal.WithLabelValues(string(apperr.Classify(lastErr))).Inc()

		p.Log.Warn().
			Str("operation", name).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(lastErr).
			Msg("retrying after recoverable error")

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		p.sleeper()(delay)
	}
	return lastErr
}

func (p Policy) backoff(attempt int) time.Duration {
	exp := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if exp > float64(p.MaxDelay) {
		exp = float64(p.MaxDelay)
	}
	jittered := exp * p.jitter()
	d := time.Duration(jittered)
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

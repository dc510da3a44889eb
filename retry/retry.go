// Package retry implements the exponential backoff policy applied to every
// outbound call to the reasoning engine or a remote tool.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/everydev1618/fincoach/errdefs"
)

// Policy configures retry behavior for transient failures.
// A Policy is a plain value: it holds no state across calls and is safe to
// share between concurrent conversations.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int `yaml:"max_attempts"`

	// BaseMultiplier is the exponential growth factor between delays.
	BaseMultiplier float64 `yaml:"base_multiplier"`

	// InitialDelay is the wait after the first failed attempt.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// RetryableStatusCodes lists the remote statuses worth another attempt.
	RetryableStatusCodes []int `yaml:"retryable_status_codes"`
}

// Default returns the policy used when nothing else is configured.
func Default() Policy {
	return Policy{
		MaxAttempts:          5,
		BaseMultiplier:       7,
		InitialDelay:         time.Second,
		RetryableStatusCodes: []int{429, 500, 503, 504},
	}
}

// Validate checks the policy is usable.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errdefs.Invalid("max_attempts", "must be a positive integer, got %d", p.MaxAttempts)
	}
	if p.BaseMultiplier < 1 {
		return errdefs.Invalid("base_multiplier", "must be >= 1, got %v", p.BaseMultiplier)
	}
	if p.InitialDelay < 0 {
		return errdefs.Invalid("initial_delay", "must not be negative, got %v", p.InitialDelay)
	}
	return nil
}

// Delay returns the wait after the given failed attempt (1-based):
// InitialDelay × BaseMultiplier^(attempt-1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(p.InitialDelay) * math.Pow(p.BaseMultiplier, float64(attempt-1)))
}

// Retryable reports whether err carries a status in RetryableStatusCodes.
func (p Policy) Retryable(err error) bool {
	code, ok := errdefs.StatusCode(err)
	if !ok {
		return false
	}
	return slices.Contains(p.RetryableStatusCodes, code)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a single Do call.
type Option func(*options)

type options struct {
	sleep Sleeper
	name  string
	log   *log.Entry
}

// WithSleeper replaces the real timer, mostly for tests.
func WithSleeper(s Sleeper) Option {
	return func(o *options) {
		o.sleep = s
	}
}

// WithName labels log lines with the operation being retried.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the log entry used for attempt reporting.
func WithLogger(l *log.Entry) Option {
	return func(o *options) {
		o.log = l
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// policy runs out of attempts. Each call starts with a fresh attempt counter.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := options{sleep: sleepContext, name: "call", log: log.NewEntry(log.StandardLogger())}
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		start := time.Now()
		result, err := fn(ctx)
		if err == nil {
			o.log.WithFields(log.Fields{
				"op":         o.name,
				"attempt":    attempt,
				"latency_ms": time.Since(start).Milliseconds(),
			}).Debug("call succeeded")
			return result, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		code, _ := errdefs.StatusCode(err)
		entry := o.log.WithFields(log.Fields{
			"op":           o.name,
			"attempt":      attempt,
			"max_attempts": maxAttempts,
			"status":       code,
			"error":        err.Error(),
		})

		if !p.Retryable(err) {
			entry.Debug("not retrying")
			return zero, err
		}
		if attempt >= maxAttempts {
			entry.Warn("retries exhausted")
			return zero, &errdefs.ExhaustedRetryError{Attempts: attempt, Err: err}
		}

		delay := p.Delay(attempt)
		entry.WithField("delay_ms", delay.Milliseconds()).Warn("call failed, retrying after backoff")
		if err := o.sleep(ctx, delay); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return zero, err
			}
			return zero, fmt.Errorf("backoff: %w", err)
		}
	}
}

package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ErrMaxRetriesExceeded is joined with the last attempt's error when every
// attempt failed
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Config is an exponential backoff policy
type Config struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// InitialInterval is the wait before the first retry (default 1s)
	InitialInterval time.Duration
	// MaxInterval caps every wait (default 30s)
	MaxInterval time.Duration
	// Multiplier grows the wait after each retry (default 2)
	Multiplier float64
	// JitterFactor spreads each wait by ±factor, clamped to [0,1]
	JitterFactor float64
	// RetryIf filters which errors are retried; nil retries all of them.
	// Errors wrapped with Permanent are never retried.
	RetryIf func(err error) bool
	// OnRetry is called before sleeping; attempt counts from 1
	OnRetry func(attempt int, err error, next time.Duration)
}

// DefaultConfig waits 1s, 2s, 4s... up to 30s, five times
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      5,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
		JitterFactor:    0.1,
	}
}

func (c Config) withDefaults() Config {
	if c.InitialInterval <= 0 {
		c.InitialInterval = time.Second
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2
	}
	c.JitterFactor = math.Min(math.Max(c.JitterFactor, 0), 1)
	return c
}

// Interval is the wait before retry number attempt+1
func (c Config) Interval(attempt int) time.Duration {
	c = c.withDefaults()
	d := float64(c.InitialInterval) * math.Pow(c.Multiplier, float64(attempt))
	if c.JitterFactor > 0 {
		d += (rand.Float64()*2 - 1) * d * c.JitterFactor
	}
	return time.Duration(math.Min(math.Max(d, 0), float64(c.MaxInterval)))
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent stops Do at this error
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, returns a non-retryable error, the retries
// run out or ctx is done. A non-retryable error is returned unwrapped.
func Do(ctx context.Context, cfg *Config, op func(ctx context.Context) error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := cfg.withDefaults()

	var last error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return errors.Join(err, last)
			}
			return err
		}

		last = op(ctx)
		if last == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(last, &perm) {
			return perm.err
		}
		if c.RetryIf != nil && !c.RetryIf(last) {
			return last
		}
		if attempt >= c.MaxRetries {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempt+1, last)
		}

		wait := c.Interval(attempt)
		if c.OnRetry != nil {
			c.OnRetry(attempt+1, last, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ctx.Err(), last)
		case <-timer.C:
		}
	}
}

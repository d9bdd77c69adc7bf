// Package retrylimit retries calls against a remote API with exponential
// backoff behind an adaptive rate limiter. The limiter slows down when the
// remote side reports overload and speeds back up after a quiet period.
//
// Example usage:
//
//	lim := retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5)
//	r := retrylimit.New(lim, retrylimit.DefaultConfig())
//	err := r.Do(ctx, func() error {
//	    return doSomeWork()
//	})
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// Limiter
// =============================================================================

// AdaptiveLimiter is a token bucket whose rate moves between min and max.
type AdaptiveLimiter struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	quiet     time.Duration
	lastError time.Time
}

// NewAdaptiveLimiter starts at initial requests per second. Success adds
// stepUp once no failure was seen for ten seconds; a rate-limited call
// multiplies the rate by stepDown.
func NewAdaptiveLimiter(initial, lo, hi, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	lo = max(lo, 1)
	initial = max(initial, lo)
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, max(1, int(initial))),
		minLimit: lo,
		maxLimit: max(hi, lo),
		stepUp:   stepUp,
		stepDown: stepDown,
		quiet:    10 * time.Second,
	}
}

// Wait blocks until a token is available or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success raises the rate after a quiet period.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastError) > a.quiet {
		a.set(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited lowers the rate.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = time.Now()
	a.set(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return float64(a.limiter.Limit())
}

func (a *AdaptiveLimiter) set(limit rate.Limit) {
	limit = min(max(limit, a.minLimit), a.maxLimit)
	if limit != a.limiter.Limit() {
		a.limiter.SetLimit(limit)
		a.limiter.SetBurst(max(1, int(limit)))
	}
}

// =============================================================================
// Errors
// =============================================================================

// Class is how a failed call is treated.
type Class int

const (
	// Fatal errors are returned at once.
	Fatal Class = iota
	// Retry errors are retried after the backoff delay.
	Retry
	// Throttled errors slow the limiter down and are retried after
	// RateLimitDelay.
	Throttled
)

// Classifier decides what to do with a failed call.
type Classifier func(error) Class

// StatusError is implemented by errors that carry an HTTP status code.
type StatusError interface {
	error
	StatusCode() int
}

// FatalError stops retries regardless of the classifier.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

// ClassifyStatus retries 5xx, throttles on 429 and treats everything else,
// including errors without a status, as fatal.
func ClassifyStatus(err error) Class {
	var se StatusError
	if !errors.As(err, &se) {
		return Fatal
	}
	switch code := se.StatusCode(); {
	case code == 429:
		return Throttled
	case code >= 500 && code < 600:
		return Retry
	default:
		return Fatal
	}
}

// ErrExhausted is wrapped around the last error when attempts run out.
var ErrExhausted = errors.New("max attempts exceeded")

// =============================================================================
// Retry
// =============================================================================

// Config tunes a Retrier.
type Config struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	RateLimitDelay time.Duration
	Multiplier     float64
	Jitter         bool
	Classify       Classifier
	// Logf receives one line per retried attempt. Nil discards them.
	Logf func(format string, args ...any)
}

// DefaultConfig returns the settings used for chat API calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    4,
		InitialDelay:   250 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		RateLimitDelay: time.Second,
		Multiplier:     2,
		Jitter:         true,
		Classify:       ClassifyStatus,
	}
}

// Retrier runs calls through a shared limiter.
type Retrier struct {
	lim *AdaptiveLimiter
	cfg Config
}

// New returns a Retrier. lim may be nil to retry without rate limiting.
func New(lim *AdaptiveLimiter, cfg Config) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if cfg.Classify == nil {
		cfg.Classify = ClassifyStatus
	}
	if cfg.Logf == nil {
		cfg.Logf = func(string, ...any) {}
	}
	return &Retrier{lim: lim, cfg: cfg}
}

// Do calls fn until it succeeds, fails fatally, runs out of attempts or ctx
// is done.
func (r *Retrier) Do(ctx context.Context, fn func() error) error {
	delay := r.cfg.InitialDelay
	var err error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if r.lim != nil {
			if werr := r.lim.Wait(ctx); werr != nil {
				return werr
			}
		} else if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if err = fn(); err == nil {
			if r.lim != nil {
				r.lim.Success()
			}
			return nil
		}

		var fatal *FatalError
		if errors.As(err, &fatal) {
			return err
		}

		wait := delay
		switch r.cfg.Classify(err) {
		case Fatal:
			return err
		case Throttled:
			if r.lim != nil {
				r.lim.RateLimited()
			}
			wait = r.cfg.RateLimitDelay
		case Retry:
			if r.cfg.Jitter {
				wait = jitter(delay)
			}
			delay = min(time.Duration(float64(delay)*r.cfg.Multiplier), r.cfg.MaxDelay)
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}
		r.cfg.Logf("retry %d/%d after %v: %v", attempt, r.cfg.MaxAttempts, wait, err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("%w (%d): %w", ErrExhausted, r.cfg.MaxAttempts, err)
}

// jitter adds up to 25% to delay.
func jitter(delay time.Duration) time.Duration {
	if delay < 4 {
		return delay
	}
	return delay + rand.N(delay/4)
}

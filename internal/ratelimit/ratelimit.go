// Package ratelimit provides per-key token buckets for command cooldowns and
// channel slowmode.
//
// Example usage:
//
//	cooldowns := ratelimit.NewManager(2, 10*time.Second)
//	if err := cooldowns.Acquire(userID).Drip(); err != nil {
//	    // err is a *ratelimit.LimitedError; errors.Is(err, ratelimit.ErrLimited)
//	}
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrLimited is matched by every error Drip returns.
var ErrLimited = errors.New("rate limited")

// LimitedError carries the time until the next token.
type LimitedError struct {
	Remaining time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.Remaining.Round(time.Millisecond))
}

func (e *LimitedError) Is(target error) bool { return target == ErrLimited }

// =============================================================================
// RateLimit
// =============================================================================

// RateLimit is one bucket of tokens refilled evenly over the cooldown.
// Safe for concurrent use.
type RateLimit struct {
	mu       sync.Mutex
	bucket   int
	cooldown time.Duration
	limiter  *rate.Limiter
	now      func() time.Time
}

// New returns a full bucket of size bucket refilled over cooldown.
func New(bucket int, cooldown time.Duration) *RateLimit {
	return newRateLimit(bucket, cooldown, time.Now)
}

func newRateLimit(bucket int, cooldown time.Duration, now func() time.Time) *RateLimit {
	if bucket < 1 {
		bucket = 1
	}
	r := &RateLimit{bucket: bucket, cooldown: cooldown, now: now}
	r.limiter = r.fresh()
	return r
}

func (r *RateLimit) fresh() *rate.Limiter {
	interval := r.cooldown / time.Duration(r.bucket)
	if interval <= 0 {
		interval = time.Nanosecond
	}
	l := rate.NewLimiter(rate.Every(interval), r.bucket)
	l.AllowN(r.now(), 0)
	return l
}

// Bucket returns the bucket size.
func (r *RateLimit) Bucket() int { return r.bucket }

// Cooldown returns the full refill time.
func (r *RateLimit) Cooldown() time.Duration { return r.cooldown }

// Drip consumes one token, or returns a *LimitedError when none is left.
func (r *RateLimit) Drip() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if r.limiter.AllowN(now, 1) {
		return nil
	}
	return &LimitedError{Remaining: r.remainingTimeLocked(now)}
}

// Limited reports whether the next Drip would fail.
func (r *RateLimit) Limited() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limiter.TokensAt(r.now()) < 1
}

// Remaining returns the whole tokens left.
func (r *RateLimit) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(math.Floor(r.limiter.TokensAt(r.now())))
}

// RemainingTime returns how long until the next token, zero if one is ready.
func (r *RateLimit) RemainingTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remainingTimeLocked(r.now())
}

func (r *RateLimit) remainingTimeLocked(now time.Time) time.Duration {
	res := r.limiter.ReserveN(now, 1)
	if !res.OK() {
		return r.cooldown
	}
	d := res.DelayFrom(now)
	res.CancelAt(now)
	return d
}

// Full reports whether the bucket holds every token.
func (r *RateLimit) Full() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limiter.TokensAt(r.now()) >= float64(r.bucket)
}

// ResetTime empties the bucket so the whole cooldown starts over now.
func (r *RateLimit) ResetTime() {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.fresh()
	l.AllowN(r.now(), r.bucket)
	r.limiter = l
}

// Reset refills the bucket.
func (r *RateLimit) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter = r.fresh()
}

// =============================================================================
// Manager
// =============================================================================

// Manager hands out one RateLimit per key, all sharing bucket and cooldown.
type Manager struct {
	mu       sync.Mutex
	bucket   int
	cooldown time.Duration
	entries  map[string]*RateLimit
	now      func() time.Time
}

// NewManager returns an empty manager.
func NewManager(bucket int, cooldown time.Duration) *Manager {
	return &Manager{
		bucket:   bucket,
		cooldown: cooldown,
		entries:  make(map[string]*RateLimit),
		now:      time.Now,
	}
}

// WithClock replaces the time source. Meant for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
	return m
}

// Acquire returns the limiter for key, creating a full one.
func (m *Manager) Acquire(key string) *RateLimit {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[key]
	if !ok {
		r = newRateLimit(m.bucket, m.cooldown, m.now)
		m.entries[key] = r
	}
	return r
}

// Get returns the limiter for key without creating one.
func (m *Manager) Get(key string) (*RateLimit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[key]
	return r, ok
}

// Delete forgets key.
func (m *Manager) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Sweep drops every limiter whose bucket has refilled and returns how many.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, r := range m.entries {
		if r.Full() {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

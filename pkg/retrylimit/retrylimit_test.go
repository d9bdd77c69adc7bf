package retrylimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type statusErr int

func (s statusErr) Error() string   { return "status" }
func (s statusErr) StatusCode() int { return int(s) }

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	cfg.RateLimitDelay = time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestDoRetriesServerErrors(t *testing.T) {
	calls := 0
	r := New(nil, fastConfig())
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return statusErr(502)
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("Do = %v after %d calls", err, calls)
	}
}

func TestDoStopsOnFatal(t *testing.T) {
	for name, fail := range map[string]error{
		"not found":   statusErr(404),
		"plain error": errors.New("boom"),
		"fatal":       &FatalError{Err: statusErr(503)},
	} {
		calls := 0
		err := New(nil, fastConfig()).Do(context.Background(), func() error {
			calls++
			return fail
		})
		if calls != 1 || err == nil {
			t.Errorf("%s: %d calls, err %v", name, calls, err)
		}
	}
}

func TestDoExhausts(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = 2
	err := New(nil, cfg).Do(context.Background(), func() error { return statusErr(500) })
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("err = %v, want ErrExhausted", err)
	}
	var se StatusError
	if !errors.As(err, &se) || se.StatusCode() != 500 {
		t.Errorf("last error not wrapped: %v", err)
	}
}

func TestThrottleLowersLimit(t *testing.T) {
	lim := NewAdaptiveLimiter(8, 1, 10, 1, 0.5)
	calls := 0
	err := New(lim, fastConfig()).Do(context.Background(), func() error {
		calls++
		if calls == 1 {
			return statusErr(429)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := lim.CurrentLimit(); got != 4 {
		t.Errorf("limit = %v, want 4", got)
	}
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(nil, fastConfig()).Do(ctx, func() error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

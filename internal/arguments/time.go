package arguments

import (
	"context"
	"time"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/pkg/util"
)

// Date resolves a future calendar date.
type Date struct{ named }

func (a *Date) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if t, ok := futureDate(raw); ok {
		return t, nil
	}
	return nil, msg.Errorf("RESOLVER_INVALID_DATE", p.Name)
}

// Duration resolves a positive span such as "1h30m" or "2 days".
type Duration struct{ named }

func (a *Duration) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if d, ok := positiveDuration(raw); ok {
		return d, nil
	}
	return nil, msg.Errorf("RESOLVER_INVALID_DURATION", p.Name)
}

// Time resolves a future instant given either as a date or as a duration
// from now. Both parse failures report the same generic error.
type Time struct{ named }

func (a *Time) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if t, ok := futureDate(raw); ok {
		return t, nil
	}
	if d, ok := positiveDuration(raw); ok {
		return now().Add(d), nil
	}
	return nil, msg.Errorf("RESOLVER_INVALID_TIME", p.Name)
}

func futureDate(raw string) (time.Time, bool) {
	t, err := util.ParseDateTpl(raw, time.UTC)
	if err != nil || !t.After(now()) {
		return time.Time{}, false
	}
	return t, true
}

func positiveDuration(raw string) (time.Duration, bool) {
	d, err := util.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

package util

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrBadDuration is returned for input ParseDuration cannot read.
var ErrBadDuration = errors.New("invalid duration")

const (
	day  = 24 * time.Hour
	week = 7 * day
)

var durationUnits = map[string]time.Duration{
	"ms": time.Millisecond, "msec": time.Millisecond, "millisecond": time.Millisecond, "milliseconds": time.Millisecond,
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": day, "day": day, "days": day,
	"w": week, "wk": week, "wks": week, "week": week, "weeks": week,
	"mo": 30 * day, "month": 30 * day, "months": 30 * day,
	"y": 365 * day, "yr": 365 * day, "yrs": 365 * day, "year": 365 * day, "years": 365 * day,
}

var (
	durationPart   = regexp.MustCompile(`(?i)(-?\d+(?:\.\d+)?)\s*([a-z]+)`)
	durationFiller = regexp.MustCompile(`(?i)[\s,]+|\band\b`)
)

// ParseDuration reads "1h30m", "2 days 3 hours", "1w" and similar. Every
// character must belong to a number-unit pair or to a separator.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrBadDuration
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	matches := durationPart.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return 0, ErrBadDuration
	}

	var total time.Duration
	last := 0
	for _, m := range matches {
		if gap := s[last:m[0]]; durationFiller.ReplaceAllString(gap, "") != "" {
			return 0, fmt.Errorf("%w: unexpected %q", ErrBadDuration, gap)
		}
		n, err := strconv.ParseFloat(s[m[2]:m[3]], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrBadDuration, err)
		}
		unit, ok := durationUnits[strings.ToLower(s[m[4]:m[5]])]
		if !ok {
			return 0, fmt.Errorf("%w: unknown unit %q", ErrBadDuration, s[m[4]:m[5]])
		}
		total += time.Duration(n * float64(unit))
		last = m[1]
	}
	if tail := s[last:]; durationFiller.ReplaceAllString(tail, "") != "" {
		return 0, fmt.Errorf("%w: unexpected %q", ErrBadDuration, tail)
	}
	return total, nil
}

// FormatDuration renders d as "1d 2h 3m 4s", dropping zero parts. Durations
// under a second render in milliseconds.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(time.Second)
	var parts []string
	for _, u := range []struct {
		size time.Duration
		tag  string
	}{{day, "d"}, {time.Hour, "h"}, {time.Minute, "m"}, {time.Second, "s"}} {
		if n := d / u.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.tag))
			d -= n * u.size
		}
	}
	return strings.Join(parts, " ")
}

package arguments

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/keshon/piecebot/internal/core"
)

var (
	truthy = map[string]bool{"1": true, "true": true, "+": true, "t": true, "yes": true, "y": true}
	falsy  = map[string]bool{"0": true, "false": true, "-": true, "f": true, "no": true, "n": true}
)

// ParseBool resolves the boolean vocabulary shared with the boolean
// serializer, case-insensitively.
func ParseBool(s string) (value, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case truthy[s]:
		return true, true
	case falsy[s]:
		return false, true
	}
	return false, false
}

type Boolean struct{ named }

func (a *Boolean) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if v, ok := ParseBool(raw); ok {
		return v, nil
	}
	return nil, msg.Errorf("RESOLVER_INVALID_BOOL", p.Name)
}

type Integer struct{ named }

// IsInteger reports whether f is a whole number that fits in an int64.
func IsInteger(f float64) bool {
	return !math.IsNaN(f) && f == math.Trunc(f) && f >= -(1<<63) && f < 1<<63
}

// Run accepts any finite integral number, "1e3" included.
func (a *Integer) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !IsInteger(f) {
		return nil, msg.Errorf("RESOLVER_INVALID_INT", p.Name)
	}
	if err := MinOrMax(msg, f, p, ""); err != nil {
		return nil, err
	}
	return int(f), nil
}

type Float struct{ named }

func (a *Float) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, msg.Errorf("RESOLVER_INVALID_FLOAT", p.Name)
	}
	if err := MinOrMax(msg, f, p, ""); err != nil {
		return nil, err
	}
	return f, nil
}

type String struct{ named }

// Run bounds the length in characters.
func (a *String) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if raw == "" {
		return nil, msg.Errorf("RESOLVER_INVALID_STRING", p.Name)
	}
	suffix := msg.Language().Get("RESOLVER_STRING_SUFFIX")
	if err := MinOrMax(msg, float64(utf8.RuneCountInString(raw)), p, suffix); err != nil {
		return nil, err
	}
	return raw, nil
}

type Literal struct{ named }

func (a *Literal) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if strings.EqualFold(raw, p.Name) {
		return p.Name, nil
	}
	return nil, msg.Errorf("RESOLVER_INVALID_LITERAL", p.Name)
}

type Regex struct{ named }

// Run returns the submatches of the possible's pattern.
func (a *Regex) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if p.Regex == nil {
		return nil, core.ErrPossibleRegex
	}
	if m := p.Regex.FindStringSubmatch(raw); m != nil {
		return m, nil
	}
	return nil, msg.Errorf("RESOLVER_INVALID_REGEX_MATCH", p.Name, p.Regex.String())
}

type URL struct{ named }

// Run requires a scheme and a host.
func (a *URL) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, msg.Errorf("RESOLVER_INVALID_URL", p.Name)
	}
	return raw, nil
}

// Default passes the token through untouched.
type Default struct{ named }

func (a *Default) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if raw == "" {
		return nil, msg.Errorf("RESOLVER_INVALID_STRING", p.Name)
	}
	return raw, nil
}

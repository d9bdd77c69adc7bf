package core

import (
	"fmt"
	"regexp"
	"strings"
)

// Possible is one alternative of a usage tag: a name, the resolver type that
// handles it and optional bounds or pattern. It is immutable once built.
type Possible struct {
	Name  string
	Type  string
	Min   *float64
	Max   *float64
	Regex *regexp.Regexp
}

// PossibleOption configures a Possible at construction.
type PossibleOption func(*possibleConfig)

type possibleConfig struct {
	min, max *float64
	pattern  string
	flags    string
	hasRegex bool
}

// WithMin sets the lower bound (inclusive).
func WithMin(v float64) PossibleOption {
	return func(c *possibleConfig) { c.min = &v }
}

// WithMax sets the upper bound (inclusive).
func WithMax(v float64) PossibleOption {
	return func(c *possibleConfig) { c.max = &v }
}

// WithBounds sets both bounds.
func WithBounds(min, max float64) PossibleOption {
	return func(c *possibleConfig) { c.min, c.max = &min, &max }
}

// WithRegex sets the pattern for regex possibles. Flags follow the i/m/s
// letters of usage strings.
func WithRegex(pattern, flags string) PossibleOption {
	return func(c *possibleConfig) {
		c.pattern, c.flags, c.hasRegex = pattern, flags, true
	}
}

func isRegexType(t string) bool {
	switch strings.ToLower(t) {
	case "regex", "reg", "regexp":
		return true
	}
	return false
}

// NewPossible builds a Possible. Regex types without a pattern are rejected.
func NewPossible(name, typ string, opts ...PossibleOption) (*Possible, error) {
	var cfg possibleConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if typ == "" {
		typ = "literal"
	}
	p := &Possible{Name: name, Type: strings.ToLower(typ), Min: cfg.min, Max: cfg.max}

	if isRegexType(typ) {
		if !cfg.hasRegex || cfg.pattern == "" {
			return nil, fmt.Errorf("possible %q: %w", name, ErrPossibleRegex)
		}
	}
	if cfg.hasRegex {
		var prefix string
		for _, f := range cfg.flags {
			switch f {
			case 'i', 'm', 's':
				prefix += string(f)
			case 'g', 'u', 'y':
			default:
				return nil, fmt.Errorf("possible %q: unknown regex flag %q", name, f)
			}
		}
		pattern := cfg.pattern
		if prefix != "" {
			pattern = "(?" + prefix + ")" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("possible %q: %w", name, err)
		}
		p.Regex = re
	}
	return p, nil
}

// MustPossible is NewPossible for static usage declarations.
func MustPossible(name, typ string, opts ...PossibleOption) *Possible {
	p, err := NewPossible(name, typ, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Tag is one slot of a command usage.
type Tag struct {
	Required  bool
	Repeat    bool
	Rest      bool
	Possibles []*Possible
}

// Usage is the ordered list of tags a command accepts.
type Usage []Tag

// Required builds a mandatory tag.
func Required(p ...*Possible) Tag { return Tag{Required: true, Possibles: p} }

// Optional builds an optional tag.
func Optional(p ...*Possible) Tag { return Tag{Possibles: p} }

// Lit is a literal possible, the way sub-command names are declared.
func Lit(name string) *Possible { return &Possible{Name: name, Type: "literal"} }

// Arg is MustPossible without options.
func Arg(name, typ string, opts ...PossibleOption) *Possible {
	return MustPossible(name, typ, opts...)
}

// String renders the usage the way help pages show it.
func (u Usage) String() string {
	parts := make([]string, 0, len(u))
	for _, t := range u {
		names := make([]string, 0, len(t.Possibles))
		for _, p := range t.Possibles {
			if p.Type == "literal" {
				names = append(names, p.Name)
			} else {
				names = append(names, p.Name+":"+p.Type)
			}
		}
		body := strings.Join(names, "|")
		if t.Required {
			body = "<" + body + ">"
		} else {
			body = "[" + body + "]"
		}
		if t.Repeat {
			body += " [...]"
		}
		parts = append(parts, body)
	}
	return strings.Join(parts, " ")
}

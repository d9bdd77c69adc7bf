package core

import (
	"errors"
	"testing"
)

func TestNewPossibleRegexRequiresPattern(t *testing.T) {
	for _, typ := range []string{"regex", "reg", "regexp", "REGEX"} {
		if _, err := NewPossible("pattern", typ); !errors.Is(err, ErrPossibleRegex) {
			t.Errorf("%s: expected ErrPossibleRegex, got %v", typ, err)
		}
	}

	p, err := NewPossible("word", "regex", WithRegex(`^ab+c$`, "i"))
	if err != nil {
		t.Fatal(err)
	}
	if !p.Regex.MatchString("ABBC") {
		t.Error("the i flag was not applied")
	}

	if _, err := NewPossible("word", "regex", WithRegex(`x`, "q")); err == nil {
		t.Error("expected an unknown flag to fail")
	}
}

func TestNewPossibleDefaults(t *testing.T) {
	p := MustPossible("show", "")
	if p.Type != "literal" {
		t.Errorf("expected literal type, got %q", p.Type)
	}
	b := MustPossible("n", "Integer", WithBounds(1, 10))
	if b.Type != "integer" || *b.Min != 1 || *b.Max != 10 {
		t.Errorf("unexpected possible %+v", b)
	}
}

func TestUsageString(t *testing.T) {
	u := Usage{
		Required(Lit("show"), Lit("set")),
		Optional(Arg("key", "string")),
		{Repeat: true, Possibles: []*Possible{Arg("value", "any")}},
	}
	want := "<show|set> [key:string] [value:any] [...]"
	if got := u.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

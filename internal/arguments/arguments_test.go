package arguments_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/arguments"
	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/coretest"
)

func newEnv(t *testing.T) *coretest.Env {
	t.Helper()
	env := coretest.NewEnv(t, core.Options{})
	if err := arguments.Register(env.Client); err != nil {
		t.Fatal(err)
	}
	return env
}

func run(t *testing.T, env *coretest.Env, typ, raw string, p *core.Possible) (any, error) {
	t.Helper()
	arg, ok := env.Client.Arguments.Get(typ)
	if !ok {
		t.Fatalf("argument %q not registered", typ)
	}
	if p == nil {
		p = core.Arg("value", typ)
	}
	msg := env.Message(coretest.UserID, coretest.GuildID, "")
	return arg.Run(context.Background(), raw, p, msg)
}

func TestBooleanVocabulary(t *testing.T) {
	env := newEnv(t)
	for _, in := range []string{"1", "true", "+", "t", "yes", "y", "TRUE", "True", "T", "Yes"} {
		v, err := run(t, env, "boolean", in, nil)
		if err != nil || v != true {
			t.Errorf("%q: got %v, %v; want true", in, v, err)
		}
	}
	for _, in := range []string{"0", "false", "-", "f", "no", "n", "FALSE", "No", "N"} {
		v, err := run(t, env, "bool", in, nil)
		if err != nil || v != false {
			t.Errorf("%q: got %v, %v; want false", in, v, err)
		}
	}
	for _, in := range []string{"", "2", "yep", "on", "off", "nope"} {
		if _, err := run(t, env, "boolean", in, nil); core.ErrorKey(err) != "RESOLVER_INVALID_BOOL" {
			t.Errorf("%q: expected RESOLVER_INVALID_BOOL, got %v", in, err)
		}
	}
}

func TestIntegerAndFloatBounds(t *testing.T) {
	env := newEnv(t)
	bounded := func(typ string) *core.Possible { return core.Arg("n", typ, core.WithBounds(1, 10)) }

	tests := []struct {
		typ, raw string
		want     any
		errKey   string
	}{
		{"integer", "1", 1, ""},
		{"integer", "10", 10, ""},
		{"integer", "5", 5, ""},
		{"integer", "0", nil, "RESOLVER_MINMAX_BOTH"},
		{"integer", "11", nil, "RESOLVER_MINMAX_BOTH"},
		{"integer", "2.5", nil, "RESOLVER_INVALID_INT"},
		{"integer", "abc", nil, "RESOLVER_INVALID_INT"},
		{"integer", "9223372036854775808", nil, "RESOLVER_INVALID_INT"},
		{"integer", "-9223372036854777856", nil, "RESOLVER_INVALID_INT"},
		{"float", "2.5", 2.5, ""},
		{"float", "10.01", nil, "RESOLVER_MINMAX_BOTH"},
		{"float", "NaN", nil, "RESOLVER_INVALID_FLOAT"},
		{"float", "Inf", nil, "RESOLVER_INVALID_FLOAT"},
	}
	for _, tt := range tests {
		v, err := run(t, env, tt.typ, tt.raw, bounded(tt.typ))
		if tt.errKey != "" {
			if core.ErrorKey(err) != tt.errKey {
				t.Errorf("%s %q: expected %s, got %v", tt.typ, tt.raw, tt.errKey, err)
			}
			continue
		}
		if err != nil || v != tt.want {
			t.Errorf("%s %q: got %v, %v; want %v", tt.typ, tt.raw, v, err, tt.want)
		}
	}

	// Unbounded accepts any finite number of the right kind.
	if v, err := run(t, env, "int", "-123456", nil); err != nil || v != -123456 {
		t.Errorf("unbounded integer: %v, %v", v, err)
	}
	if v, err := run(t, env, "integer", "-9223372036854775808", nil); err != nil || v != math.MinInt {
		t.Errorf("lowest integer: %v, %v", v, err)
	}
	if v, err := run(t, env, "number", "1e3", nil); err != nil || v != 1000.0 {
		t.Errorf("unbounded float: %v, %v", v, err)
	}

	_, err := run(t, env, "integer", "3", core.Arg("n", "integer", core.WithBounds(5, 5)))
	if core.ErrorKey(err) != "RESOLVER_MINMAX_EXACTLY" {
		t.Errorf("expected the exact bound error, got %v", err)
	}
	_, err = run(t, env, "integer", "3", core.Arg("n", "integer", core.WithMin(5)))
	if err == nil || err.Error() != "n must be greater than 5." {
		t.Errorf("unexpected min error %v", err)
	}
}

func TestStringLengthBounds(t *testing.T) {
	env := newEnv(t)
	p := core.Arg("name", "string", core.WithMax(3))
	if _, err := run(t, env, "string", "héllo", p); err == nil || err.Error() != "name must be less than 3 characters." {
		t.Errorf("unexpected error %v", err)
	}
	if v, err := run(t, env, "str", "héy", p); err != nil || v != "héy" {
		t.Errorf("got %v, %v", v, err)
	}
}

func TestLiteralAndRegex(t *testing.T) {
	env := newEnv(t)
	if v, err := run(t, env, "literal", "SHOW", core.Lit("show")); err != nil || v != "show" {
		t.Errorf("literal: %v, %v", v, err)
	}
	p := core.Arg("code", "regex", core.WithRegex(`^([a-z]+)-(\d+)$`, ""))
	v, err := run(t, env, "regex", "abc-12", p)
	if err != nil {
		t.Fatal(err)
	}
	if m := v.([]string); len(m) != 3 || m[2] != "12" {
		t.Errorf("unexpected submatches %v", m)
	}
	if _, err := run(t, env, "regexp", "12-abc", p); core.ErrorKey(err) != "RESOLVER_INVALID_REGEX_MATCH" {
		t.Errorf("expected a regex mismatch, got %v", err)
	}
}

func TestTimeReportsGenericError(t *testing.T) {
	env := newEnv(t)
	v, err := run(t, env, "time", "2h", nil)
	if err != nil {
		t.Fatal(err)
	}
	if d := time.Until(v.(time.Time)); d < time.Hour || d > 3*time.Hour {
		t.Errorf("expected about two hours from now, got %v", d)
	}
	if _, err := run(t, env, "time", "2999-01-01", nil); err != nil {
		t.Errorf("expected a future date to resolve, got %v", err)
	}
	if _, err := run(t, env, "time", "yesterday-ish", nil); core.ErrorKey(err) != "RESOLVER_INVALID_TIME" {
		t.Errorf("expected the generic time error, got %v", err)
	}
	if _, err := run(t, env, "date", "2001-01-01", nil); core.ErrorKey(err) != "RESOLVER_INVALID_DATE" {
		t.Errorf("past dates must be rejected, got %v", err)
	}
}

func TestDomainResolvers(t *testing.T) {
	env := newEnv(t)
	roleID := "500000000000000000"
	env.Discord.AddRole(coretest.GuildID, roleID, "Mods")

	u, err := run(t, env, "user", "<@!"+coretest.UserID+">", nil)
	if err != nil || u.(*discordgo.User).ID != coretest.UserID {
		t.Errorf("user mention: %v, %v", u, err)
	}
	if _, err := run(t, env, "mention", "999999999999999999", nil); core.ErrorKey(err) != "RESOLVER_INVALID_USER" {
		t.Errorf("expected fetch failure to read as invalid user, got %v", err)
	}
	r, err := run(t, env, "role", "<@&"+roleID+">", nil)
	if err != nil || r.(*discordgo.Role).Name != "Mods" {
		t.Errorf("role mention: %v, %v", r, err)
	}
	if _, err := run(t, env, "textchannel", "<#"+coretest.GuildID+">", nil); err != nil {
		t.Errorf("text channel: %v", err)
	}
	if _, err := run(t, env, "voicechannel", coretest.GuildID, nil); core.ErrorKey(err) != "RESOLVER_INVALID_CHANNEL" {
		t.Errorf("expected the kind filter to reject a text channel, got %v", err)
	}
}

func TestPieceResolvers(t *testing.T) {
	env := newEnv(t)
	v, err := run(t, env, "argument", "int", nil)
	if err != nil || v.(core.Piece).Name() != "integer" {
		t.Errorf("argument by alias: %v, %v", v, err)
	}
	if _, err := run(t, env, "cmd", "nothing", core.Arg("target", "command")); err == nil || err.Error() != "target must be a valid command name." {
		t.Errorf("unexpected error %v", err)
	}
	s, err := run(t, env, "store", "argument", nil)
	if err != nil || s.(core.AnyStore).Name() != "arguments" {
		t.Errorf("store by singular name: %v, %v", s, err)
	}
	if _, err := run(t, env, "piece", "en-US", nil); err != nil {
		t.Errorf("piece across stores: %v", err)
	}
}

func TestMultiHasBase(t *testing.T) {
	env := newEnv(t)
	arg, _ := env.Client.Arguments.Get("...integer")
	multi, ok := arg.(core.MultiArgument)
	if !ok {
		t.Fatal("...integer is not a multi argument")
	}
	if multi.Base().Name() != "integer" {
		t.Errorf("unexpected base %s", multi.Base().Name())
	}
}

package core_test

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/coretest"
)

type wordArg struct{ core.NoAliases }

func (wordArg) Name() string { return "string" }
func (wordArg) Run(_ context.Context, raw string, _ *core.Possible, _ *core.Message) (any, error) {
	return raw, nil
}

type numArg struct{ core.NoAliases }

func (numArg) Name() string { return "integer" }
func (numArg) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, msg.Errorf("RESOLVER_INVALID_INT", p.Name)
	}
	return n, nil
}

type litArg struct{ core.NoAliases }

func (litArg) Name() string { return "literal" }
func (litArg) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if strings.EqualFold(raw, p.Name) {
		return p.Name, nil
	}
	return nil, msg.Errorf("RESOLVER_INVALID_LITERAL", p.Name)
}

type multiNumArg struct{ core.NoAliases }

func (multiNumArg) Name() string { return "...integer" }
func (multiNumArg) Run(ctx context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	return numArg{}.Run(ctx, raw, p, msg)
}
func (multiNumArg) Base() core.Argument { return numArg{} }

type usageCommand struct {
	core.NoAliases
	usage core.Usage
	opts  core.CommandOptions
}

func (c *usageCommand) Name() string                  { return "test" }
func (c *usageCommand) Description() string           { return "" }
func (c *usageCommand) Category() string              { return "" }
func (c *usageCommand) Usage() core.Usage             { return c.usage }
func (c *usageCommand) Options() core.CommandOptions  { return c.opts }
func (c *usageCommand) Run(context.Context, *core.Message, []any) (*discordgo.Message, error) {
	return nil, nil
}

func promptEnv(t *testing.T) *coretest.Env {
	env := coretest.NewEnv(t, core.Options{})
	c := env.Client
	for _, f := range []func() core.Argument{
		func() core.Argument { return wordArg{} },
		func() core.Argument { return numArg{} },
		func() core.Argument { return litArg{} },
		func() core.Argument { return multiNumArg{} },
	} {
		if err := c.Arguments.Register(f); err != nil {
			t.Fatal(err)
		}
	}
	return env
}

func prompt(t *testing.T, env *coretest.Env, content string, cmd core.Command) ([]any, error) {
	t.Helper()
	msg := env.Message(coretest.UserID, coretest.GuildID, content)
	msg.Prefix = "!"
	msg.PrefixLength = 1
	msg.CommandText = "test"
	return env.Client.Prompter.Run(context.Background(), msg, cmd)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in, delim string
		quoted    bool
		want      []string
	}{
		{`a  b c`, "", true, []string{"a", "b", "c"}},
		{`set "hello world" x`, "", true, []string{"set", "hello world", "x"}},
		{`a, b ,c`, ",", false, []string{"a", "b", "c"}},
		{`say "hi there"`, "", false, []string{"say", `"hi`, `there"`}},
		{``, "", true, nil},
	}
	for _, tt := range tests {
		if got := core.Tokenize(tt.in, tt.delim, tt.quoted); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrompterResolvesTags(t *testing.T) {
	env := promptEnv(t)
	cmd := &usageCommand{usage: core.Usage{
		core.Required(core.Lit("add"), core.Lit("remove")),
		core.Optional(core.Arg("count", "integer")),
		{Rest: true, Possibles: []*core.Possible{core.Arg("text", "string")}},
	}}

	params, err := prompt(t, env, "!test ADD 3 hello there", cmd)
	if err != nil {
		t.Fatal(err)
	}
	want := []any{"add", 3, "hello there"}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("got %#v, want %#v", params, want)
	}

	// The optional integer is skipped without consuming the token.
	params, err = prompt(t, env, "!test remove hello", cmd)
	if err != nil {
		t.Fatal(err)
	}
	want = []any{"remove", nil, "hello"}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("got %#v, want %#v", params, want)
	}
}

func TestPrompterMissingRequired(t *testing.T) {
	env := promptEnv(t)
	cmd := &usageCommand{usage: core.Usage{core.Required(core.Arg("count", "integer"))}}

	_, err := prompt(t, env, "!test", cmd)
	if core.ErrorKey(err) != "COMMANDMESSAGE_MISSING_REQUIRED" {
		t.Fatalf("expected missing required, got %v", err)
	}
	if err.Error() != "count is a required argument." {
		t.Errorf("unexpected message %q", err.Error())
	}

	_, err = prompt(t, env, "!test abc", cmd)
	if core.ErrorKey(err) != "RESOLVER_INVALID_INT" {
		t.Errorf("expected the resolver error, got %v", err)
	}
}

func TestPrompterMultiAndRepeat(t *testing.T) {
	env := promptEnv(t)

	multi := &usageCommand{usage: core.Usage{core.Required(core.Arg("numbers", "...integer"))}}
	params, err := prompt(t, env, "!test 1 2 3", multi)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(params, []any{[]any{1, 2, 3}}) {
		t.Errorf("unexpected multi params %#v", params)
	}

	repeat := &usageCommand{usage: core.Usage{{Required: true, Repeat: true, Possibles: []*core.Possible{core.Arg("n", "integer")}}}}
	params, err = prompt(t, env, "!test 4 5", repeat)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(params, []any{4, 5}) {
		t.Errorf("unexpected repeat params %#v", params)
	}
}

func TestPrompterNoMatchAcrossPossibles(t *testing.T) {
	env := promptEnv(t)
	cmd := &usageCommand{usage: core.Usage{core.Required(core.Lit("show"), core.Lit("set"))}}

	_, err := prompt(t, env, "!test nope", cmd)
	if core.ErrorKey(err) != "COMMANDMESSAGE_NOMATCH" {
		t.Errorf("expected no match error, got %v", err)
	}
	var le *core.LocalizedError
	if !errors.As(err, &le) || !strings.Contains(le.Text, "show, set") {
		t.Errorf("expected the possibilities listed, got %v", err)
	}
}

func TestPrompterRestKeepsRawText(t *testing.T) {
	env := promptEnv(t)
	cmd := &usageCommand{usage: core.Usage{
		core.Required(core.Arg("count", "integer")),
		{Required: true, Rest: true, Possibles: []*core.Possible{core.Arg("text", "string")}},
	}}

	params, err := prompt(t, env, "!test 2   \"a  b\"\n  'c'  ", cmd)
	if err != nil {
		t.Fatal(err)
	}
	want := []any{2, "\"a  b\"\n  'c'"}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("got %#v, want %#v", params, want)
	}

	quoted := &usageCommand{usage: cmd.usage, opts: core.CommandOptions{QuotedStringSupport: true}}
	params, err = prompt(t, env, `!test "3" say "x  y"`, quoted)
	if err != nil {
		t.Fatal(err)
	}
	want = []any{3, `say "x  y"`}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("got %#v, want %#v", params, want)
	}
}

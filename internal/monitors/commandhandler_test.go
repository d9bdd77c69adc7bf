package monitors_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/coretest"
	"github.com/keshon/piecebot/internal/pieces"
)

// tracer records its runs and fails with err when set.
type tracer struct {
	core.NoAliases
	usage core.Usage
	err   error

	mu   sync.Mutex
	runs int
}

func (c *tracer) Name() string                 { return "tracer" }
func (c *tracer) Description() string          { return "tracer" }
func (c *tracer) Category() string             { return "Test" }
func (c *tracer) Usage() core.Usage            { return c.usage }
func (c *tracer) Options() core.CommandOptions { return core.CommandOptions{} }

func (c *tracer) Run(ctx context.Context, msg *core.Message, _ []any) (*discordgo.Message, error) {
	c.mu.Lock()
	c.runs++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return msg.Reply(ctx, "ran")
}

func (c *tracer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

// gate is an inhibitor that counts its calls and blocks with reason.
type gate struct {
	core.NoAliases
	reason string
	calls  int
}

func (g *gate) Name() string { return "gate" }

func (g *gate) Run(context.Context, *core.Message, core.Command) error {
	g.calls++
	if g.reason != "" {
		return core.Inhibit(g.reason)
	}
	return nil
}

type counter struct {
	core.NoAliases
	calls int
}

func (f *counter) Name() string { return "counter" }

func (f *counter) Run(context.Context, *core.Message, core.Command, *discordgo.Message, time.Duration) error {
	f.calls++
	return nil
}

type fixture struct {
	env   *coretest.Env
	cmd   *tracer
	gate  *gate
	final *counter
}

func setup(t *testing.T, opts core.Options, cmd *tracer) *fixture {
	t.Helper()
	env := coretest.NewEnv(t, opts)
	c := env.Client
	if err := pieces.Register(c); err != nil {
		t.Fatalf("register pieces: %v", err)
	}
	f := &fixture{env: env, cmd: cmd, gate: &gate{}, final: &counter{}}
	if err := c.Commands.Register(func() core.Command { return cmd }); err != nil {
		t.Fatal(err)
	}
	if err := c.Inhibitors.Register(func() core.Inhibitor { return f.gate }); err != nil {
		t.Fatal(err)
	}
	if err := c.Finalizers.Register(func() core.Finalizer { return f.final }); err != nil {
		t.Fatal(err)
	}
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return f
}

func (f *fixture) dispatch(content string) {
	msg := f.env.Message(coretest.UserID, coretest.GuildID, content)
	f.env.Client.RunMonitors(context.Background(), msg)
}

func TestInhibitedCommandNeverRuns(t *testing.T) {
	f := setup(t, core.Options{}, &tracer{})
	f.gate.reason = "not today"

	f.dispatch("!tracer")

	if f.cmd.count() != 0 {
		t.Error("command body ran despite the inhibitor")
	}
	if f.final.calls != 0 {
		t.Error("finalizer ran for an inhibited command")
	}
	if got := f.env.Discord.Contents(); len(got) != 1 || got[0] != "not today" {
		t.Errorf("sent %q, want the inhibition reason", got)
	}
}

func TestArgumentErrorStopsAfterInhibitors(t *testing.T) {
	f := setup(t, core.Options{}, &tracer{usage: core.Usage{core.Required(core.Arg("n", "integer"))}})

	f.dispatch("!tracer abc")

	if f.gate.calls != 1 {
		t.Errorf("inhibitor ran %d times, want 1", f.gate.calls)
	}
	if f.cmd.count() != 0 || f.final.calls != 0 {
		t.Errorf("body ran %d times, finalizer %d times", f.cmd.count(), f.final.calls)
	}
	if got := f.env.Discord.Contents(); len(got) != 1 {
		t.Errorf("sent %q, want one argument error", got)
	}
}

func TestSuccessRunsFinalizers(t *testing.T) {
	f := setup(t, core.Options{}, &tracer{})

	f.dispatch("!TRACER")

	if f.cmd.count() != 1 || f.final.calls != 1 {
		t.Errorf("body %d, finalizer %d", f.cmd.count(), f.final.calls)
	}
}

func TestCommandErrorSkipsFinalizers(t *testing.T) {
	f := setup(t, core.Options{}, &tracer{err: errors.New("kaput")})

	f.dispatch("!tracer")

	if f.final.calls != 0 {
		t.Error("finalizer ran after a failing command")
	}
	got := f.env.Discord.Contents()
	if len(got) != 1 || !strings.Contains(got[0], "kaput") {
		t.Errorf("sent %q, want the error in a code block", got)
	}
}

func TestTypingReleasedOnEveryExit(t *testing.T) {
	tests := []struct {
		name    string
		cmd     *tracer
		content string
	}{
		{"success", &tracer{}, "!tracer"},
		{"argument error", &tracer{usage: core.Usage{core.Required(core.Arg("n", "integer"))}}, "!tracer x"},
		{"command error", &tracer{err: errors.New("boom")}, "!tracer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, core.Options{Typing: true}, tt.cmd)
			f.dispatch(tt.content)
			d := f.env.Discord
			if d.TypingStarts != 1 || d.TypingStops != 1 {
				t.Errorf("typing started %d, stopped %d", d.TypingStarts, d.TypingStops)
			}
		})
	}
}

func TestNoTypingWhenInhibited(t *testing.T) {
	f := setup(t, core.Options{Typing: true}, &tracer{})
	f.gate.reason = "no"
	f.dispatch("!tracer")
	if f.env.Discord.TypingStarts != 0 {
		t.Error("typing started before inhibitors passed")
	}
}

func TestPrefixResolution(t *testing.T) {
	f := setup(t, core.Options{}, &tracer{})

	f.dispatch("tracer")
	f.dispatch("!unknowncommand")
	if n := len(f.env.Discord.Sent); n != 0 {
		t.Fatalf("sent %d messages for unprefixed/unknown input", n)
	}

	f.dispatch("<@" + coretest.SelfID + ">")
	got := f.env.Discord.Contents()
	if len(got) != 1 || !strings.Contains(got[0], "!") {
		t.Fatalf("mention reminder = %q", got)
	}

	f.dispatch("<@!" + coretest.SelfID + "> tracer")
	if f.cmd.count() != 1 {
		t.Error("mention prefix did not dispatch")
	}
}

func TestUnpostableChannelIsIgnored(t *testing.T) {
	f := setup(t, core.Options{}, &tracer{})
	f.env.Discord.Permissions[coretest.SelfID] = discordgo.PermissionViewChannel

	f.dispatch("!tracer")
	if f.cmd.count() != 0 || f.gate.calls != 0 {
		t.Error("dispatched in a channel the bot cannot post in")
	}
}

func TestBlacklistedUserIgnored(t *testing.T) {
	f := setup(t, core.Options{}, &tracer{})
	res, err := f.env.Client.ClientSettings().Update(context.Background(),
		[]core.Change{{Key: "userBlacklist", Value: coretest.UserID}},
		core.UpdateOptions{Action: core.ActionAdd})
	if err != nil || res.Err() != nil {
		t.Fatalf("blacklist: %v %v", err, res.Err())
	}

	f.dispatch("!tracer")
	if f.cmd.count() != 0 || f.gate.calls != 0 {
		t.Error("blacklisted user reached the command")
	}
}

func TestNoPrefixDM(t *testing.T) {
	f := setup(t, core.Options{NoPrefixDM: true}, &tracer{})
	msg := f.env.Message(coretest.UserID, "", "tracer")
	f.env.Client.RunMonitors(context.Background(), msg)
	if f.cmd.count() != 1 {
		t.Error("bare command in DM did not run")
	}
}

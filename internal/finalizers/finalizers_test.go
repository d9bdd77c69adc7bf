package finalizers_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/coretest"
	"github.com/keshon/piecebot/internal/finalizers"
	"github.com/keshon/piecebot/internal/inhibitors"
	"github.com/keshon/piecebot/internal/pieces"
)

type slow struct {
	core.NoAliases
	cooldown time.Duration
}

func (c *slow) Name() string        { return "slow" }
func (c *slow) Description() string { return "slow" }
func (c *slow) Category() string    { return "Test" }
func (c *slow) Usage() core.Usage {
	return core.Usage{core.Optional(core.Arg("who", "user"))}
}
func (c *slow) Options() core.CommandOptions {
	return core.CommandOptions{Cooldown: c.cooldown}
}

func (c *slow) Run(ctx context.Context, msg *core.Message, _ []any) (*discordgo.Message, error) {
	return msg.Reply(ctx, "done")
}

func setup(t *testing.T, opts core.Options) (*coretest.Env, *finalizers.CommandCooldown) {
	t.Helper()
	env := coretest.NewEnv(t, opts)
	if err := pieces.Register(env.Client); err != nil {
		t.Fatalf("register pieces: %v", err)
	}
	if err := env.Client.Commands.Register(func() core.Command { return &slow{cooldown: time.Minute} }); err != nil {
		t.Fatal(err)
	}
	if err := env.Client.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	fin, ok := env.Client.Finalizers.Get(inhibitors.CooldownFinalizer)
	if !ok {
		t.Fatal("cooldown finalizer not loaded")
	}
	return env, fin.(*finalizers.CommandCooldown)
}

func dispatch(env *coretest.Env, author, content string) {
	env.Client.RunMonitors(context.Background(), env.Message(author, coretest.GuildID, content))
}

func TestCooldownBucketsDroppedOnUnload(t *testing.T) {
	env, cd := setup(t, core.Options{})

	dispatch(env, coretest.UserID, "!slow")
	if cd.Tracked() != 1 {
		t.Fatalf("Tracked = %d after one run", cd.Tracked())
	}
	cmd, _ := env.Client.Commands.Get("slow")
	if rl, ok := cd.Cooldown(cmd, coretest.UserID); !ok || !rl.Limited() {
		t.Error("bucket not drained by the run")
	}

	if err := env.Client.Commands.Unload("slow"); err != nil {
		t.Fatal(err)
	}
	if cd.Tracked() != 0 {
		t.Errorf("Tracked = %d after unload", cd.Tracked())
	}
}

func TestCooldownSkipsOwners(t *testing.T) {
	env, cd := setup(t, core.Options{})
	dispatch(env, coretest.OwnerID, "!slow")
	if cd.Tracked() != 0 {
		t.Error("owner run created a bucket")
	}
}

func TestCommandLogging(t *testing.T) {
	env, _ := setup(t, core.Options{CommandLogging: true})
	dispatch(env, coretest.UserID, "!slow <@"+coretest.OwnerID+">")

	lines := env.Console.Get("log")
	var found string
	for _, l := range lines {
		if strings.HasPrefix(l, "slow(") {
			found = l
		}
	}
	if found == "" {
		t.Fatalf("no command line in %q", lines)
	}
	for _, want := range []string{"slow(owner)", "ran by user[" + coretest.UserID + "]", "in Test Guild[" + coretest.GuildID + "]"} {
		if !strings.Contains(found, want) {
			t.Errorf("line %q missing %q", found, want)
		}
	}
}

func TestCommandLoggingOff(t *testing.T) {
	env, _ := setup(t, core.Options{})
	dispatch(env, coretest.UserID, "!slow")
	for _, l := range env.Console.Get("log") {
		if strings.HasPrefix(l, "slow(") {
			t.Errorf("logged %q with logging off", l)
		}
	}
}

func TestCooldownReloadReplacesHook(t *testing.T) {
	env, old := setup(t, core.Options{})
	dispatch(env, coretest.UserID, "!slow")
	if old.Tracked() != 1 {
		t.Fatalf("Tracked = %d before reload", old.Tracked())
	}

	reloaded, err := env.Client.Finalizers.Reload(context.Background(), inhibitors.CooldownFinalizer)
	if err != nil {
		t.Fatal(err)
	}
	cd := reloaded.(*finalizers.CommandCooldown)
	dispatch(env, coretest.UserID, "!slow")
	if cd.Tracked() != 1 {
		t.Fatalf("Tracked = %d on the reloaded finalizer", cd.Tracked())
	}

	if err := env.Client.Commands.Unload("slow"); err != nil {
		t.Fatal(err)
	}
	if cd.Tracked() != 0 {
		t.Errorf("Tracked = %d after unload", cd.Tracked())
	}
	// The stale instance no longer has a hook on the command store.
	if old.Tracked() != 1 {
		t.Errorf("old finalizer still notified, Tracked = %d", old.Tracked())
	}
}

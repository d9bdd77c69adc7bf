package inhibitors_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/coretest"
	"github.com/keshon/piecebot/internal/pieces"
)

// tunable runs with whatever options the test hands it.
type tunable struct {
	core.NoAliases
	opts core.CommandOptions
	runs int
}

func (c *tunable) Name() string                 { return "tunable" }
func (c *tunable) Description() string          { return "tunable" }
func (c *tunable) Category() string             { return "Test" }
func (c *tunable) Usage() core.Usage            { return nil }
func (c *tunable) Options() core.CommandOptions { return c.opts }

func (c *tunable) Run(ctx context.Context, msg *core.Message, _ []any) (*discordgo.Message, error) {
	c.runs++
	return msg.Reply(ctx, "ok")
}

func setup(t *testing.T, clientOpts core.Options, opts core.CommandOptions) (*coretest.Env, *tunable) {
	t.Helper()
	env := coretest.NewEnv(t, clientOpts)
	cmd := &tunable{opts: opts}
	if err := pieces.Register(env.Client); err != nil {
		t.Fatalf("register pieces: %v", err)
	}
	if err := env.Client.Commands.Register(func() core.Command { return cmd }); err != nil {
		t.Fatal(err)
	}
	if err := env.Client.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return env, cmd
}

// send dispatches "!tunable" and returns the bot's replies to it.
func send(env *coretest.Env, author, guild string) []string {
	before := len(env.Discord.Contents())
	env.Client.RunMonitors(context.Background(), env.Message(author, guild, "!tunable"))
	return env.Discord.Contents()[before:]
}

func TestReasons(t *testing.T) {
	tests := []struct {
		name   string
		opts   core.CommandOptions
		author string
		guild  string
		want   string
	}{
		{"permission level", core.CommandOptions{PermissionLevel: 10}, coretest.UserID, coretest.GuildID,
			"You do not have permission to use this command."},
		{"guild only in DM", core.CommandOptions{RunIn: []string{core.RunInText}}, coretest.UserID, "",
			"This command is only enabled in text channels."},
		{"runs nowhere", core.CommandOptions{RunIn: []string{}}, coretest.UserID, coretest.GuildID,
			"The tunable command is not configured to run in any channel."},
		{"nsfw", core.CommandOptions{NSFW: true}, coretest.UserID, coretest.GuildID,
			"You can only use NSFW commands in NSFW channels."},
		{"bot permissions", core.CommandOptions{BotPermissions: discordgo.PermissionEmbedLinks}, coretest.UserID, coretest.GuildID,
			"Insufficient permissions, missing: **Embed Links**"},
		{"required settings", core.CommandOptions{RequiredSettings: []string{"disabledCommands"}}, coretest.UserID, coretest.GuildID,
			"The guild is missing the following settings: **disabledCommands**. The command cannot run."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, cmd := setup(t, core.Options{}, tt.opts)
			got := send(env, tt.author, tt.guild)
			if cmd.runs != 0 {
				t.Error("command ran")
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("replies = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOwnerPassesPermissionLevel(t *testing.T) {
	env, cmd := setup(t, core.Options{}, core.CommandOptions{PermissionLevel: 10})
	send(env, coretest.OwnerID, coretest.GuildID)
	if cmd.runs != 1 {
		t.Error("owner was blocked")
	}
}

func TestBotAdministratorSkipsPermissionCheck(t *testing.T) {
	env, cmd := setup(t, core.Options{}, core.CommandOptions{BotPermissions: discordgo.PermissionManageRoles})
	env.Discord.Permissions[coretest.SelfID] |= discordgo.PermissionAdministrator
	send(env, coretest.UserID, coretest.GuildID)
	if cmd.runs != 1 {
		t.Error("administrator bot was blocked")
	}
}

func TestCooldown(t *testing.T) {
	env, cmd := setup(t, core.Options{}, core.CommandOptions{Cooldown: time.Minute})

	send(env, coretest.UserID, coretest.GuildID)
	got := send(env, coretest.UserID, coretest.GuildID)
	if cmd.runs != 1 {
		t.Fatalf("ran %d times inside the cooldown", cmd.runs)
	}
	if len(got) != 1 || !strings.HasPrefix(got[0], "You have just used this command.") {
		t.Errorf("replies = %q", got)
	}

	send(env, coretest.OwnerID, coretest.GuildID)
	send(env, coretest.OwnerID, coretest.GuildID)
	if cmd.runs != 3 {
		t.Errorf("owner was held by the cooldown, runs = %d", cmd.runs)
	}
}

func TestSlowmode(t *testing.T) {
	env, cmd := setup(t, core.Options{Slowmode: time.Minute}, core.CommandOptions{})

	send(env, coretest.UserID, coretest.GuildID)
	if got := send(env, coretest.UserID, coretest.GuildID); len(got) != 0 {
		t.Errorf("slowmode replied %q, want silence", got)
	}
	if cmd.runs != 1 {
		t.Errorf("runs = %d", cmd.runs)
	}
}

func TestGuildDisabledCommand(t *testing.T) {
	env, cmd := setup(t, core.Options{}, core.CommandOptions{})
	_, err := env.Client.Gateways.Guilds.Acquire(coretest.GuildID).Update(context.Background(),
		[]core.Change{{Key: "disabledCommands", Value: "tunable"}},
		core.UpdateOptions{Action: core.ActionAdd})
	if err != nil {
		t.Fatal(err)
	}

	got := send(env, coretest.UserID, coretest.GuildID)
	if cmd.runs != 0 || len(got) != 1 || got[0] != "This command has been disabled by an admin in this guild." {
		t.Errorf("runs %d, replies %q", cmd.runs, got)
	}
}

func TestHiddenCommandStillRuns(t *testing.T) {
	env, cmd := setup(t, core.Options{}, core.CommandOptions{Hidden: true})
	send(env, coretest.UserID, coretest.GuildID)
	if cmd.runs != 1 {
		t.Error("hidden command refused its own invocation")
	}
}

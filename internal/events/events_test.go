package events_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/coretest"
	"github.com/keshon/piecebot/internal/pieces"
)

const otherGuild = "210000000000000000"

func newEnv(t *testing.T, opts core.Options, init bool) *coretest.Env {
	t.Helper()
	env := coretest.NewEnv(t, opts)
	env.Discord.AddGuild(otherGuild, "Other Guild", coretest.UserID)
	if err := pieces.Register(env.Client); err != nil {
		t.Fatalf("register pieces: %v", err)
	}
	if init {
		if err := env.Client.Init(context.Background()); err != nil {
			t.Fatalf("Init: %v", err)
		}
	}
	return env
}

func blacklistGuild(t *testing.T, env *coretest.Env, id string) {
	t.Helper()
	res, err := env.Client.ClientSettings().Update(context.Background(),
		[]core.Change{{Key: "guildBlacklist", Value: id}},
		core.UpdateOptions{Action: core.ActionAdd})
	if err != nil || res.Err() != nil {
		t.Fatalf("blacklist %s: %v %v", id, err, res.Err())
	}
}

func TestReadyInitialisesOnce(t *testing.T) {
	env := newEnv(t, core.Options{}, false)
	ctx := context.Background()

	env.Client.Emit(ctx, core.EventReady, &discordgo.Ready{})
	if !env.Client.Ready() {
		t.Fatal("client not ready after the ready event")
	}
	env.Client.Emit(ctx, core.EventReady, &discordgo.Ready{})
	if lines := env.Console.Get("error"); len(lines) != 0 {
		t.Errorf("errors on second ready: %q", lines)
	}
}

func TestReadyLeavesBlacklistedGuilds(t *testing.T) {
	env := newEnv(t, core.Options{}, true)
	blacklistGuild(t, env, otherGuild)

	env.Client.Emit(context.Background(), core.EventReady, &discordgo.Ready{})
	if !slices.Equal(env.Discord.Left, []string{otherGuild}) {
		t.Errorf("left %v", env.Discord.Left)
	}
}

func TestGuildCreate(t *testing.T) {
	env := newEnv(t, core.Options{}, true)
	blacklistGuild(t, env, otherGuild)
	ctx := context.Background()

	env.Client.Emit(ctx, core.EventGuildCreate, &discordgo.Guild{ID: coretest.GuildID})
	env.Client.Emit(ctx, core.EventGuildCreate, &discordgo.Guild{ID: otherGuild, Unavailable: true})
	if len(env.Discord.Left) != 0 {
		t.Fatalf("left %v", env.Discord.Left)
	}
	env.Client.Emit(ctx, core.EventGuildCreate, &discordgo.Guild{ID: otherGuild})
	if !slices.Equal(env.Discord.Left, []string{otherGuild}) {
		t.Errorf("left %v", env.Discord.Left)
	}
}

func TestGuildDelete(t *testing.T) {
	for _, preserve := range []bool{true, false} {
		env := newEnv(t, core.Options{PreserveSettings: preserve}, true)
		ctx := context.Background()
		_, err := env.Client.Gateways.Guilds.Acquire(coretest.GuildID).Update(ctx,
			[]core.Change{{Key: "prefix", Value: "?"}}, core.UpdateOptions{})
		if err != nil {
			t.Fatal(err)
		}

		env.Client.Emit(ctx, core.EventGuildDelete, &discordgo.Guild{ID: coretest.GuildID})
		has, _ := env.Provider.Has(ctx, core.GatewayGuilds, coretest.GuildID)
		if has != preserve {
			t.Errorf("preserve=%v: stored=%v", preserve, has)
		}
	}
}

func TestEditedCommandReruns(t *testing.T) {
	env := newEnv(t, core.Options{CommandEditing: true}, true)
	ctx := context.Background()

	msg := env.Message(coretest.UserID, coretest.GuildID, "!info")
	env.Client.RunMonitors(ctx, msg)
	first := env.Discord.Sent[0].Message.ID

	edited := *msg.Message
	edited.Content = "!invite"
	env.Client.Emit(ctx, core.EventMessageUpdate, &discordgo.MessageUpdate{
		Message:      &edited,
		BeforeUpdate: msg.Message,
	})

	if !slices.Equal(env.Discord.Deleted, []string{first}) {
		t.Errorf("deleted %v, want the first reply", env.Discord.Deleted)
	}
	got := env.Discord.Contents()
	if len(got) != 2 || !strings.HasPrefix(got[1], "To add") {
		t.Errorf("sent %q", got)
	}
}

func TestEditIgnoredWhenOff(t *testing.T) {
	env := newEnv(t, core.Options{}, true)
	msg := env.Message(coretest.UserID, coretest.GuildID, "!info")
	env.Client.RunMonitors(context.Background(), msg)

	edited := *msg.Message
	edited.Content = "!invite"
	env.Client.Emit(context.Background(), core.EventMessageUpdate, &discordgo.MessageUpdate{Message: &edited})
	if len(env.Discord.Sent) != 1 || len(env.Discord.Deleted) != 0 {
		t.Errorf("sent %d, deleted %d", len(env.Discord.Sent), len(env.Discord.Deleted))
	}
}

func TestMessageDeleteRemovesReplies(t *testing.T) {
	env := newEnv(t, core.Options{}, true)
	ctx := context.Background()
	msg := env.Message(coretest.UserID, coretest.GuildID, "!info")
	env.Client.RunMonitors(ctx, msg)

	env.Client.Emit(ctx, core.EventMessageDelete, &discordgo.MessageDelete{Message: msg.Message})
	if len(env.Discord.Deleted) != 1 {
		t.Errorf("deleted %v", env.Discord.Deleted)
	}
	if len(env.Client.Responses(msg.ID)) != 0 {
		t.Error("responses still tracked")
	}
}

func TestPieceFailureReachesWTF(t *testing.T) {
	env := newEnv(t, core.Options{}, true)
	env.Client.Emit(context.Background(), core.EventTaskError, errors.New("cron exploded"))
	lines := env.Console.Get("wtf")
	if len(lines) != 1 || !strings.Contains(lines[0], "cron exploded") {
		t.Errorf("wtf lines = %q", lines)
	}
}

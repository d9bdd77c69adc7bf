package serializers_test

import (
	"context"
	"math"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/coretest"
	"github.com/keshon/piecebot/internal/serializers"
)

const roleID = "500000000000000000"

func newEnv(t *testing.T) *coretest.Env {
	t.Helper()
	env := coretest.NewEnv(t, core.Options{})
	if err := serializers.Register(env.Client); err != nil {
		t.Fatal(err)
	}
	env.Discord.AddRole(coretest.GuildID, roleID, "Mods")
	return env
}

func fixture(env *coretest.Env, typ string, guild *discordgo.Guild) (core.Serializer, *core.SerializerContext) {
	ser, _ := env.Client.Serializers.Get(typ)
	return ser, &core.SerializerContext{
		Client:   env.Client,
		Entry:    &core.SchemaEntry{Key: "key", Type: typ},
		Language: env.Client.Language(""),
		Guild:    guild,
	}
}

func TestRoundTrip(t *testing.T) {
	env := newEnv(t)
	guild := env.Discord.GuildMap[coretest.GuildID]
	ctx := context.Background()

	tests := []struct {
		typ string
		raw any
	}{
		{"boolean", "yes"},
		{"integer", "42"},
		{"integer", 42.0},
		{"float", "2.5"},
		{"string", "hello"},
		{"url", "https://example.com/x"},
		{"user", "<@" + coretest.UserID + ">"},
		{"guild", coretest.GuildID},
		{"textchannel", "<#" + coretest.GuildID + ">"},
		{"role", "<@&" + roleID + ">"},
		{"role", "Mods"},
		{"language", "en-US"},
		{"piece", "bool"},
	}
	for _, tt := range tests {
		typ := tt.typ
		ser, sc := fixture(env, typ, guild)
		first, err := ser.Deserialize(ctx, tt.raw, sc)
		if err != nil {
			t.Errorf("%s %v: %v", typ, tt.raw, err)
			continue
		}
		stored := ser.Serialize(first)
		second, err := ser.Deserialize(ctx, stored, sc)
		if err != nil {
			t.Errorf("%s %v: stored form %v does not read back: %v", typ, tt.raw, stored, err)
			continue
		}
		if again := ser.Serialize(second); again != stored {
			t.Errorf("%s %v: %v != %v", typ, tt.raw, again, stored)
		}
	}
}

func TestRoleByName(t *testing.T) {
	env := newEnv(t)
	env.Discord.AddRole(coretest.GuildID, "500000000000000001", "Mods")
	guild := env.Discord.GuildMap[coretest.GuildID]
	ctx := context.Background()

	ser, sc := fixture(env, "role", guild)
	v, err := ser.Deserialize(ctx, "Mods", sc)
	if err != nil {
		t.Fatal(err)
	}
	if id := ser.Serialize(v); id != roleID {
		t.Errorf("expected the first matching role %s, got %v", roleID, id)
	}
	if got := ser.Stringify(ctx, roleID, sc); got != "Mods" {
		t.Errorf("stringify: %q", got)
	}
	if _, err := ser.Deserialize(ctx, "mods", sc); core.ErrorKey(err) != "RESOLVER_INVALID_ROLE" {
		t.Errorf("names match exactly, got %v", err)
	}

	ser, sc = fixture(env, "role", nil)
	if _, err := ser.Deserialize(ctx, "Mods", sc); core.ErrorKey(err) != "RESOLVER_INVALID_GUILD" {
		t.Errorf("expected a guild requirement, got %v", err)
	}
}

func TestIntegerBoundsFromSchema(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	schema := core.NewSchema().Add("volume", "integer", core.Bounds(0, 100), core.Default(50))
	gw := core.NewGateway(env.Client, "test", schema)
	if err := gw.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	s := gw.Acquire("x")

	res, err := s.Update(ctx, []core.Change{{Key: "volume", Value: "101"}}, core.UpdateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 1 || core.ErrorKey(res.Errors[0]) != "RESOLVER_MINMAX_BOTH" {
		t.Errorf("unexpected errors %v", res.Errors)
	}
	if _, err := s.Update(ctx, []core.Change{{Key: "volume", Value: "80"}}, core.UpdateOptions{}); err != nil {
		t.Fatal(err)
	}
	if v := s.Get("volume"); v != 80 {
		t.Errorf("got %v", v)
	}
	if env.Provider.Writes() != 1 {
		t.Errorf("rejected updates must not write, got %d writes", env.Provider.Writes())
	}
}

func TestBooleanDisplay(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	s := env.Client.Gateways.Guilds.Acquire(coretest.GuildID)
	guild := env.Discord.GuildMap[coretest.GuildID]

	if got := s.Display(ctx, "disableNaturalPrefix", guild, nil); got != "Disabled" {
		t.Errorf("got %q", got)
	}
	if _, err := s.Update(ctx, []core.Change{{Key: "disableNaturalPrefix", Value: "y"}}, core.UpdateOptions{}); err != nil {
		t.Fatal(err)
	}
	if got := s.Display(ctx, "disableNaturalPrefix", guild, nil); got != "Enabled" {
		t.Errorf("got %q", got)
	}
}

func TestBooleanDisplayLocalized(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	s := env.Client.Gateways.Guilds.Acquire(coretest.GuildID)
	guild := env.Discord.GuildMap[coretest.GuildID]

	ru := env.Client.Language("ru-RU")
	if got := s.Display(ctx, "disableNaturalPrefix", guild, ru); got != "Выключено" {
		t.Errorf("got %q", got)
	}

	ser, _ := env.Client.Serializers.Get("boolean")
	if got := ser.Stringify(ctx, true, &core.SerializerContext{Client: env.Client}); got != "Enabled" {
		t.Errorf("without a language: %q", got)
	}
}

func TestIntegerRejectsOverflow(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	ser, sc := fixture(env, "integer", nil)

	for _, raw := range []any{"9223372036854775808", 9223372036854775808.0, "-9223372036854777856", "1e19"} {
		if _, err := ser.Deserialize(ctx, raw, sc); core.ErrorKey(err) != "RESOLVER_INVALID_INT" {
			t.Errorf("%v: expected RESOLVER_INVALID_INT, got %v", raw, err)
		}
	}
	if v, err := ser.Deserialize(ctx, "-9223372036854775808", sc); err != nil || v != math.MinInt {
		t.Errorf("lowest integer: %v, %v", v, err)
	}
}

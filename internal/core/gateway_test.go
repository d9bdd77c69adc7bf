package core_test

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/coretest"
)

// passSerializer stores strings as they are and rejects "bad".
type passSerializer struct {
	core.NoAliases
	name string
}

func (s passSerializer) Name() string { return s.name }
func (s passSerializer) Deserialize(_ context.Context, raw any, sc *core.SerializerContext) (any, error) {
	v := fmt.Sprint(raw)
	if v == "bad" {
		return nil, sc.Errorf("RESOLVER_INVALID_STRING", sc.Entry.Key)
	}
	return v, nil
}
func (s passSerializer) Serialize(v any) any { return v }
func (s passSerializer) Stringify(_ context.Context, v any, _ *core.SerializerContext) string {
	return strings.ToUpper(fmt.Sprint(v))
}

func settingsEnv(t *testing.T) *coretest.Env {
	env := coretest.NewEnv(t, core.Options{Prefix: []string{"?"}})
	for _, name := range []string{"string", "boolean", "command", "language", "user", "any"} {
		if err := env.Client.Serializers.Register(func() core.Serializer { return passSerializer{name: name} }); err != nil {
			t.Fatal(err)
		}
	}
	return env
}

func TestSettingsDefaults(t *testing.T) {
	env := settingsEnv(t)
	s := env.Client.Gateways.Guilds.Acquire(coretest.GuildID)

	if got := s.Get("prefix"); got != "?" {
		t.Errorf("expected the client prefix as default, got %v", got)
	}
	if got := s.Get("disabledCommands"); !reflect.DeepEqual(got, []any{}) {
		t.Errorf("expected an empty list, got %#v", got)
	}
	if s.Has("prefix") {
		t.Error("Has reported a default value as set")
	}
	if got := s.Display(context.Background(), "disabledCommands", nil, nil); got != "None" {
		t.Errorf("expected None for an empty list, got %q", got)
	}
}

func TestSettingsUpdateBatchesOneWrite(t *testing.T) {
	ctx := context.Background()
	env := settingsEnv(t)
	s := env.Client.Gateways.Guilds.Acquire(coretest.GuildID)

	res, err := s.Update(ctx, []core.Change{
		{Key: "prefix", Value: "$"},
		{Key: "disabledCommands", Value: "ping"},
		{Key: "nope", Value: "x"},
		{Key: "language", Value: "bad"},
	}, core.UpdateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Updated) != 2 || len(res.Errors) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if env.Provider.Writes() != 1 {
		t.Errorf("expected one provider write, got %d", env.Provider.Writes())
	}
	if got := s.GetString("prefix"); got != "$" {
		t.Errorf("prefix = %q", got)
	}
	if got := s.GetStrings("disabledCommands"); !reflect.DeepEqual(got, []string{"ping"}) {
		t.Errorf("disabledCommands = %v", got)
	}
	if got := s.Display(ctx, "disabledCommands", nil, nil); got != "[ PING ]" {
		t.Errorf("unexpected display %q", got)
	}
}

func TestSettingsArrayActions(t *testing.T) {
	ctx := context.Background()
	env := settingsEnv(t)
	s := env.Client.Gateways.Guilds.Acquire(coretest.GuildID)

	update := func(action string, v any) *core.UpdateResult {
		t.Helper()
		res, err := s.Update(ctx, []core.Change{{Key: "disabledCommands", Value: v}}, core.UpdateOptions{Action: action})
		if err != nil {
			t.Fatal(err)
		}
		return res
	}

	update(core.ActionAuto, "a")
	update(core.ActionAuto, "b")
	update(core.ActionAuto, "a")
	if got := s.GetStrings("disabledCommands"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("auto must toggle membership, got %v", got)
	}

	if res := update(core.ActionAdd, "b"); core.ErrorKey(res.Err()) != "SETTING_GATEWAY_DUPLICATE_VALUE" {
		t.Errorf("expected duplicate error, got %v", res.Err())
	}
	if res := update(core.ActionRemove, "z"); core.ErrorKey(res.Err()) != "SETTING_GATEWAY_MISSING_VALUE" {
		t.Errorf("expected missing error, got %v", res.Err())
	}

	update(core.ActionOverwrite, []string{"x", "y"})
	if got := s.GetStrings("disabledCommands"); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("overwrite must replace the list, got %v", got)
	}

	if _, err := s.Reset(ctx, "disabledCommands"); err != nil {
		t.Fatal(err)
	}
	if s.Has("disabledCommands") {
		t.Error("reset left the key set")
	}
}

func TestGatewaySyncLoadsStoredRecords(t *testing.T) {
	ctx := context.Background()
	env := settingsEnv(t)
	if err := env.Provider.Create(ctx, core.GatewayGuilds, "g2", core.Record{"prefix": "%"}); err != nil {
		t.Fatal(err)
	}
	if err := env.Client.Gateways.Guilds.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	s, ok := env.Client.Gateways.Guilds.Get("g2")
	if !ok || s.GetString("prefix") != "%" {
		t.Fatalf("expected the stored record to be cached")
	}

	if err := env.Client.Gateways.Guilds.Delete(ctx, "g2"); err != nil {
		t.Fatal(err)
	}
	if has, _ := env.Provider.Has(ctx, core.GatewayGuilds, "g2"); has {
		t.Error("Delete left the record in the provider")
	}
}

func TestSettingsConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	env := settingsEnv(t)
	s := env.Client.ClientSettings()

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Update(ctx, []core.Change{{Key: "guildBlacklist", Value: fmt.Sprintf("g%d", i)}},
				core.UpdateOptions{Action: core.ActionAdd})
			if err == nil {
				err = res.Err()
			}
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if got := s.GetStrings("guildBlacklist"); len(got) != n {
		t.Errorf("guildBlacklist has %d entries, want %d", len(got), n)
	}
	stored, ok, err := env.Provider.Get(ctx, core.GatewayClientStorage, s.ID)
	if err != nil || !ok {
		t.Fatalf("stored record: %v %v", ok, err)
	}
	if list, _ := stored["guildBlacklist"].([]any); len(list) != n {
		t.Errorf("provider holds %d entries, want %d", len(list), n)
	}
}

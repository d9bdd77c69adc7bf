package extendables_test

import (
	"context"
	"errors"
	"testing"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/coretest"
	"github.com/keshon/piecebot/internal/extendables"
	"github.com/keshon/piecebot/internal/pieces"
)

func newEnv(t *testing.T) *coretest.Env {
	t.Helper()
	env := coretest.NewEnv(t, core.Options{})
	if err := pieces.Register(env.Client); err != nil {
		t.Fatalf("register pieces: %v", err)
	}
	if err := env.Client.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return env
}

func TestCodeBlock(t *testing.T) {
	tests := []struct {
		lang, code, want string
	}{
		{"js", "1 + 1", "```js\n1 + 1\n```"},
		{"", "a ``` b", "```\na ``\u200b` b\n```"},
		{"", "``", "```\n``\n```"},
	}
	for _, tt := range tests {
		if got := extendables.CodeBlock(tt.lang, tt.code); got != tt.want {
			t.Errorf("CodeBlock(%q, %q) = %q, want %q", tt.lang, tt.code, got, tt.want)
		}
	}
}

func TestSendersTrackResponses(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	msg := env.Message(coretest.UserID, coretest.GuildID, "hello")

	if _, err := extendables.SendLocale(ctx, msg, "COMMAND_PING"); err != nil {
		t.Fatal(err)
	}
	if _, err := extendables.SendCode(ctx, msg, "txt", "x"); err != nil {
		t.Fatal(err)
	}
	got := env.Discord.Contents()
	if len(got) != 2 || got[0] != "Ping?" || got[1] != "```txt\nx\n```" {
		t.Errorf("sent %q", got)
	}
	if n := len(env.Client.Responses(msg.ID)); n != 2 {
		t.Errorf("tracked %d responses", n)
	}
}

func TestDisabledCapability(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	if err := env.Client.Extendables.Disable(extendables.CapSendCode); err != nil {
		t.Fatal(err)
	}
	msg := env.Message(coretest.UserID, coretest.GuildID, "hello")

	_, err := extendables.SendCode(ctx, msg, "", "x")
	if !errors.Is(err, extendables.ErrCapabilityDisabled) {
		t.Fatalf("err = %v", err)
	}
	if err.Error() != "The sendCode capability is disabled." {
		t.Errorf("message = %q", err.Error())
	}
	if len(env.Discord.Sent) != 0 {
		t.Error("sent through a disabled capability")
	}
	if _, err := extendables.SendMessage(ctx, msg, "still fine"); err != nil {
		t.Errorf("other capability failed: %v", err)
	}
}

func TestGuildSettingsInDM(t *testing.T) {
	env := newEnv(t)
	s, err := extendables.GuildSettings(env.Message(coretest.UserID, "", "hi"))
	if err != nil || s != nil {
		t.Errorf("GuildSettings in DM = %v, %v", s, err)
	}
}

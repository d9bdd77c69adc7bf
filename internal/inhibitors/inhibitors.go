// Package inhibitors holds the checks run before a command. An inhibitor
// returns nil to let the command through, core.Inhibit to explain the block
// or core.Silent to drop the message quietly.
package inhibitors

import (
	"context"
	"slices"
	"strings"

	"github.com/keshon/piecebot/internal/core"
)

type named struct {
	core.NoAliases
	name string
}

func (n named) Name() string { return n.name }

// Register adds every inhibitor to c.
func Register(c *core.Client) error {
	for _, f := range []func() core.Inhibitor{
		func() core.Inhibitor { return &Blacklist{named{name: "blacklist"}} },
		func() core.Inhibitor { return &Disabled{named{name: "disabled"}} },
		func() core.Inhibitor { return &Hidden{named{name: "hidden"}} },
		func() core.Inhibitor { return &RunIn{named{name: "runIn"}} },
		func() core.Inhibitor { return &NSFW{named{name: "nsfw"}} },
		func() core.Inhibitor { return &Permissions{named{name: "permissions"}} },
		func() core.Inhibitor { return &MissingBotPermissions{named{name: "missingBotPermissions"}} },
		func() core.Inhibitor { return &RequiredSettings{named{name: "requiredSettings"}} },
		func() core.Inhibitor { return &Cooldown{named: named{name: "cooldown"}} },
		func() core.Inhibitor { return NewSlowmode() },
	} {
		if err := c.Inhibitors.Register(f); err != nil {
			return err
		}
	}
	return nil
}

func inhibit(msg *core.Message, key string, args ...any) error {
	return core.Inhibit(msg.Language().Get(key, args...))
}

// Blacklist silently drops messages from blacklisted users and guilds.
type Blacklist struct{ named }

func (i *Blacklist) SpamProtection() bool { return true }

func (i *Blacklist) Run(_ context.Context, msg *core.Message, _ core.Command) error {
	if msg.Client.IsOwner(msg.AuthorID()) {
		return nil
	}
	settings := msg.Client.ClientSettings()
	if slices.Contains(settings.GetStrings("userBlacklist"), msg.AuthorID()) {
		return core.Silent()
	}
	if msg.InGuild() && slices.Contains(settings.GetStrings("guildBlacklist"), msg.GuildID) {
		return core.Silent()
	}
	return nil
}

// Disabled blocks commands disabled in their store or in the guild.
type Disabled struct{ named }

func (i *Disabled) Run(_ context.Context, msg *core.Message, cmd core.Command) error {
	if !msg.Client.Commands.IsEnabled(cmd.Name()) {
		return inhibit(msg, "INHIBITOR_DISABLED_GLOBAL")
	}
	if s := msg.GuildSettings(); s != nil && slices.Contains(s.GetStrings("disabledCommands"), cmd.Name()) {
		return inhibit(msg, "INHIBITOR_DISABLED_GUILD")
	}
	return nil
}

// Hidden keeps hidden commands out of listings for everyone but the owners.
// A command never hides from its own invocation.
type Hidden struct{ named }

func (i *Hidden) Run(_ context.Context, msg *core.Message, cmd core.Command) error {
	if !cmd.Options().Hidden || msg.Command == cmd || msg.Client.IsOwner(msg.AuthorID()) {
		return nil
	}
	return core.Silent()
}

// RunIn blocks commands in channel kinds they do not run in. A nil RunIn
// means everywhere; an empty non-nil one means nowhere.
type RunIn struct{ named }

func (i *RunIn) Run(_ context.Context, msg *core.Message, cmd core.Command) error {
	o := cmd.Options()
	if o.RunIn != nil && len(o.RunIn) == 0 {
		return inhibit(msg, "INHIBITOR_RUNIN_NONE", cmd.Name())
	}
	if !o.RunsIn(msg.ChannelKind()) {
		return inhibit(msg, "INHIBITOR_RUNIN", strings.Join(o.RunIn, ", "))
	}
	return nil
}

type NSFW struct{ named }

func (i *NSFW) Run(_ context.Context, msg *core.Message, cmd core.Command) error {
	if cmd.Options().NSFW && (msg.Channel == nil || !msg.Channel.NSFW) {
		return inhibit(msg, "INHIBITOR_NSFW")
	}
	return nil
}

package events

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
)

// MessageCreate hands new messages to the monitors.
type MessageCreate struct {
	named
	client *core.Client
}

func (e *MessageCreate) Guarded() bool { return true }

func (e *MessageCreate) Run(ctx context.Context, payload any) error {
	m, ok := payload.(*discordgo.Message)
	if !ok || m == nil {
		return fmt.Errorf("unexpected payload %T", payload)
	}
	e.client.RunMonitors(ctx, core.NewMessage(ctx, e.client, m))
	return nil
}

// MessageUpdate re-runs edited commands when command editing is on. The
// replies to the previous version are deleted first.
type MessageUpdate struct {
	named
	client *core.Client
}

func (e *MessageUpdate) Run(ctx context.Context, payload any) error {
	if !e.client.Options.CommandEditing {
		return nil
	}
	up, ok := payload.(*discordgo.MessageUpdate)
	if !ok || up.Message == nil {
		return fmt.Errorf("unexpected payload %T", payload)
	}
	if up.Author == nil {
		return nil
	}
	if up.BeforeUpdate != nil && up.BeforeUpdate.Content == up.Content {
		return nil
	}
	deleteResponses(ctx, e.client, up.ID)

	msg := core.NewMessage(ctx, e.client, up.Message)
	msg.Edited = true
	e.client.RunMonitors(ctx, msg)
	return nil
}

// MessageDelete removes the replies to a deleted command message.
type MessageDelete struct {
	named
	client *core.Client
}

func (e *MessageDelete) Run(ctx context.Context, payload any) error {
	del, ok := payload.(*discordgo.MessageDelete)
	if !ok || del.Message == nil {
		return fmt.Errorf("unexpected payload %T", payload)
	}
	deleteResponses(ctx, e.client, del.ID)
	return nil
}

func deleteResponses(ctx context.Context, c *core.Client, messageID string) {
	for _, r := range c.Responses(messageID) {
		if err := c.Discord.Delete(ctx, r.ChannelID, r.ID); err != nil {
			c.Logf(ctx, core.EventWarn, "delete response %s: %v", r.ID, err)
		}
	}
	c.ForgetResponses(messageID)
}

func guildBlacklisted(c *core.Client, guildID string) bool {
	return slices.Contains(c.ClientSettings().GetStrings("guildBlacklist"), guildID)
}

// GuildCreate leaves guilds on the blacklist as soon as the bot joins.
type GuildCreate struct {
	named
	client *core.Client
}

func (e *GuildCreate) Run(ctx context.Context, payload any) error {
	g, ok := payload.(*discordgo.Guild)
	if !ok || g == nil {
		return fmt.Errorf("unexpected payload %T", payload)
	}
	if g.Unavailable || !guildBlacklisted(e.client, g.ID) {
		return nil
	}
	if err := e.client.Discord.LeaveGuild(ctx, g.ID); err != nil {
		return fmt.Errorf("leave blacklisted guild %s: %w", g.ID, err)
	}
	e.client.Logf(ctx, core.EventVerbose, "left blacklisted guild %s (%s)", g.Name, g.ID)
	return nil
}

// GuildDelete drops the settings of a guild the bot left, unless settings
// are preserved. Outages are ignored.
type GuildDelete struct {
	named
	client *core.Client
}

func (e *GuildDelete) Run(ctx context.Context, payload any) error {
	g, ok := payload.(*discordgo.Guild)
	if !ok || g == nil {
		return fmt.Errorf("unexpected payload %T", payload)
	}
	if g.Unavailable || e.client.Options.PreserveSettings {
		return nil
	}
	return e.client.Gateways.Guilds.Delete(ctx, g.ID)
}

// Ready initialises the client on the first ready and leaves blacklisted
// guilds on every one.
type Ready struct {
	named
	client *core.Client
}

func (e *Ready) Run(ctx context.Context, _ any) error {
	c := e.client
	if !c.Ready() {
		if err := c.Init(ctx); err != nil {
			c.Logf(ctx, core.EventError, "init: %v", err)
		}
	}
	guilds := c.Discord.Guilds()
	for _, g := range guilds {
		if !guildBlacklisted(c, g.ID) {
			continue
		}
		c.Logf(ctx, core.EventVerbose, "leaving blacklisted guild %s (%s)", g.Name, g.ID)
		if err := c.Discord.LeaveGuild(ctx, g.ID); err != nil {
			c.Logf(ctx, core.EventWarn, "leave guild %s: %v", g.ID, err)
		}
	}
	c.Logf(ctx, core.EventLog, "ready, serving %d guilds", len(guilds))
	return nil
}

type Disconnect struct {
	named
	client *core.Client
}

func (e *Disconnect) Run(ctx context.Context, _ any) error {
	e.client.Logf(ctx, core.EventWarn, "disconnected from the gateway")
	return nil
}

type Resumed struct {
	named
	client *core.Client
}

func (e *Resumed) Run(ctx context.Context, _ any) error {
	e.client.Logf(ctx, core.EventLog, "gateway session resumed")
	return nil
}

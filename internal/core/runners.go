package core

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// RunInhibitors runs every enabled inhibitor against cmd and merges the
// outcome. Any silent block makes the whole result silent; otherwise the
// reasons are joined one per line. In selective runs SpamProtector
// inhibitors are skipped. It returns nil when nothing blocked.
func (c *Client) RunInhibitors(ctx context.Context, msg *Message, cmd Command, selective bool) *Inhibition {
	var (
		reasons []string
		blocked bool
		silent  bool
	)
	for _, inh := range c.Inhibitors.Active() {
		if sp, ok := inh.(SpamProtector); ok && selective && sp.SpamProtection() {
			continue
		}
		err := inh.Run(ctx, msg, cmd)
		if err == nil {
			continue
		}
		blocked = true

		var in *Inhibition
		if !errors.As(err, &in) {
			c.Emit(ctx, EventWTF, &PieceError{Piece: inh, Message: msg, Err: err})
			silent = true
			continue
		}
		if in.Silent() {
			silent = true
			continue
		}
		reasons = append(reasons, in.Reason)
	}
	if !blocked {
		return nil
	}
	if silent {
		return &Inhibition{}
	}
	return &Inhibition{Reason: strings.Join(reasons, "\n")}
}

// RunFinalizers runs every enabled finalizer after a successful command.
func (c *Client) RunFinalizers(ctx context.Context, msg *Message, cmd Command, response *discordgo.Message, elapsed time.Duration) {
	for _, fin := range c.Finalizers.Active() {
		if err := fin.Run(ctx, msg, cmd, response, elapsed); err != nil {
			c.Emit(ctx, EventFinalizerError, &PieceError{Piece: fin, Message: msg, Err: err})
		}
	}
}

// RunMonitors hands msg to every enabled monitor whose filters accept it.
func (c *Client) RunMonitors(ctx context.Context, msg *Message) {
	for _, mon := range c.Monitors.Active() {
		if !c.monitorAccepts(mon.Options(), msg) {
			continue
		}
		if err := mon.Run(ctx, msg); err != nil {
			c.Emit(ctx, EventMonitorError, &PieceError{Piece: mon, Message: msg, Err: err})
		}
	}
}

func (c *Client) monitorAccepts(o MonitorOptions, msg *Message) bool {
	self := msg.AuthorID() == c.Discord.SelfID()
	switch {
	case o.IgnoreBots && msg.Author != nil && msg.Author.Bot && !self:
		return false
	case o.IgnoreSelf && self:
		return false
	case o.IgnoreOthers && !self:
		return false
	case o.IgnoreWebhooks && msg.WebhookID != "":
		return false
	case o.IgnoreEdits && msg.Edited:
		return false
	}
	if o.IgnoreBlacklistedUsers || o.IgnoreBlacklistedGuilds {
		settings := c.ClientSettings()
		if o.IgnoreBlacklistedUsers && slices.Contains(settings.GetStrings("userBlacklist"), msg.AuthorID()) {
			return false
		}
		if o.IgnoreBlacklistedGuilds && msg.InGuild() && slices.Contains(settings.GetStrings("guildBlacklist"), msg.GuildID) {
			return false
		}
	}
	return true
}

package arguments

import (
	"context"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
)

// Fetch failures of every kind resolve to the "invalid" error of the type.

type User struct{ named }

func (a *User) Run(ctx context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if id, ok := core.MatchID(core.UserOrMemberPattern, raw); ok {
		if u, ok := core.Maybe(msg.Client.Discord.User(ctx, id)); ok {
			return u, nil
		}
	}
	return nil, msg.Errorf("RESOLVER_INVALID_USER", p.Name)
}

type Member struct{ named }

func (a *Member) Run(ctx context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if !msg.InGuild() {
		return nil, msg.Errorf("RESOLVER_INVALID_GUILD", p.Name)
	}
	if id, ok := core.MatchID(core.UserOrMemberPattern, raw); ok {
		if m, ok := core.Maybe(msg.Client.Discord.Member(ctx, msg.GuildID, id)); ok {
			return m, nil
		}
	}
	return nil, msg.Errorf("RESOLVER_INVALID_MEMBER", p.Name)
}

var (
	textKinds     = []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews}
	voiceKinds    = []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice}
	categoryKinds = []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory}
	dmKinds       = []discordgo.ChannelType{discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM}
)

// Channel resolves a channel mention or id, optionally limited to kinds.
type Channel struct {
	named
	kinds []discordgo.ChannelType
}

func (a *Channel) Run(ctx context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if id, ok := core.MatchID(core.ChannelPattern, raw); ok {
		ch, ok := core.Maybe(msg.Client.Discord.Channel(ctx, id))
		if ok && (len(a.kinds) == 0 || slices.Contains(a.kinds, ch.Type)) {
			return ch, nil
		}
	}
	return nil, msg.Errorf("RESOLVER_INVALID_CHANNEL", p.Name)
}

type Guild struct{ named }

func (a *Guild) Run(ctx context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if id, ok := core.MatchID(core.SnowflakePattern, raw); ok {
		if g, ok := core.Maybe(msg.Client.Discord.Guild(ctx, id)); ok {
			return g, nil
		}
	}
	return nil, msg.Errorf("RESOLVER_INVALID_GUILD", p.Name)
}

// Role resolves a role mention or id within the message's guild.
type Role struct{ named }

func (a *Role) Run(ctx context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if !msg.InGuild() {
		return nil, msg.Errorf("RESOLVER_INVALID_GUILD", p.Name)
	}
	if id, ok := core.MatchID(core.RolePattern, raw); ok {
		roles, _ := core.Maybe(msg.Client.Discord.Roles(ctx, msg.GuildID))
		for _, r := range roles {
			if r.ID == id {
				return r, nil
			}
		}
	}
	return nil, msg.Errorf("RESOLVER_INVALID_ROLE", p.Name)
}

type Emoji struct{ named }

func (a *Emoji) Run(ctx context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if id, ok := core.MatchID(core.EmojiPattern, raw); ok {
		if e, ok := core.Maybe(msg.Client.Discord.Emoji(ctx, id)); ok {
			return e, nil
		}
	}
	return nil, msg.Errorf("RESOLVER_INVALID_EMOJI", p.Name)
}

// Message resolves a message id in the current channel.
type Message struct{ named }

func (a *Message) Run(ctx context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if id, ok := core.MatchID(core.SnowflakePattern, raw); ok {
		if m, ok := core.Maybe(msg.Client.Discord.ChannelMessage(ctx, msg.ChannelID, id)); ok {
			return m, nil
		}
	}
	return nil, msg.Errorf("RESOLVER_INVALID_MESSAGE", p.Name)
}

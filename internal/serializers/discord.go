package serializers

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
)

// Domain serializers store snowflakes. Stringify receives either the stored
// id or the resolved object and falls back to the id when a lookup fails.

func idOf(v any) string {
	switch o := v.(type) {
	case string:
		return o
	case *discordgo.User:
		return o.ID
	case *discordgo.Guild:
		return o.ID
	case *discordgo.Channel:
		return o.ID
	case *discordgo.Role:
		return o.ID
	case *discordgo.Emoji:
		return o.ID
	}
	return fmt.Sprint(v)
}

type User struct{ named }

func (s *User) Deserialize(ctx context.Context, raw any, sc *core.SerializerContext) (any, error) {
	if u, ok := raw.(*discordgo.User); ok {
		return u, nil
	}
	if id, ok := core.MatchID(core.UserOrMemberPattern, idOf(raw)); ok {
		if u, ok := core.Maybe(sc.Client.Discord.User(ctx, id)); ok {
			return u, nil
		}
	}
	return nil, sc.Errorf("RESOLVER_INVALID_USER", sc.Entry.Key)
}
func (s *User) Serialize(v any) any { return idOf(v) }
func (s *User) Stringify(ctx context.Context, v any, sc *core.SerializerContext) string {
	u, ok := v.(*discordgo.User)
	if !ok {
		u, ok = core.Maybe(sc.Client.Discord.User(ctx, idOf(v)))
	}
	if !ok {
		return idOf(v)
	}
	return u.Username
}

type Guild struct{ named }

func (s *Guild) Deserialize(ctx context.Context, raw any, sc *core.SerializerContext) (any, error) {
	if g, ok := raw.(*discordgo.Guild); ok {
		return g, nil
	}
	if id, ok := core.MatchID(core.SnowflakePattern, idOf(raw)); ok {
		if g, ok := core.Maybe(sc.Client.Discord.Guild(ctx, id)); ok {
			return g, nil
		}
	}
	return nil, sc.Errorf("RESOLVER_INVALID_GUILD", sc.Entry.Key)
}
func (s *Guild) Serialize(v any) any { return idOf(v) }
func (s *Guild) Stringify(ctx context.Context, v any, sc *core.SerializerContext) string {
	g, ok := v.(*discordgo.Guild)
	if !ok {
		g, ok = core.Maybe(sc.Client.Discord.Guild(ctx, idOf(v)))
	}
	if !ok {
		return idOf(v)
	}
	return g.Name
}

var (
	textKinds     = []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews}
	voiceKinds    = []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice}
	categoryKinds = []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory}
)

// Channel accepts channels of kinds, or any channel when kinds is empty.
type Channel struct {
	named
	kinds []discordgo.ChannelType
}

func (s *Channel) accepts(ch *discordgo.Channel) bool {
	return len(s.kinds) == 0 || slices.Contains(s.kinds, ch.Type)
}

func (s *Channel) Deserialize(ctx context.Context, raw any, sc *core.SerializerContext) (any, error) {
	if ch, ok := raw.(*discordgo.Channel); ok && s.accepts(ch) {
		return ch, nil
	}
	if id, ok := core.MatchID(core.ChannelPattern, idOf(raw)); ok {
		if ch, ok := core.Maybe(sc.Client.Discord.Channel(ctx, id)); ok && s.accepts(ch) {
			return ch, nil
		}
	}
	return nil, sc.Errorf("RESOLVER_INVALID_CHANNEL", sc.Entry.Key)
}
func (s *Channel) Serialize(v any) any { return idOf(v) }
func (s *Channel) Stringify(ctx context.Context, v any, sc *core.SerializerContext) string {
	ch, ok := v.(*discordgo.Channel)
	if !ok {
		ch, ok = core.Maybe(sc.Client.Discord.Channel(ctx, idOf(v)))
	}
	if !ok {
		return idOf(v)
	}
	return "#" + ch.Name
}

// Role is guild scoped: it resolves an id or mention first, then the first
// role whose name matches exactly.
type Role struct{ named }

func (s *Role) Deserialize(ctx context.Context, raw any, sc *core.SerializerContext) (any, error) {
	if sc.Guild == nil {
		return nil, sc.Errorf("RESOLVER_INVALID_GUILD", sc.Entry.Key)
	}
	if r, ok := raw.(*discordgo.Role); ok {
		return r, nil
	}
	str := idOf(raw)
	roles, _ := core.Maybe(sc.Client.Discord.Roles(ctx, sc.Guild.ID))
	if id, ok := core.MatchID(core.RolePattern, str); ok {
		for _, r := range roles {
			if r.ID == id {
				return r, nil
			}
		}
	}
	for _, r := range roles {
		if r.Name == str {
			return r, nil
		}
	}
	return nil, sc.Errorf("RESOLVER_INVALID_ROLE", sc.Entry.Key)
}
func (s *Role) Serialize(v any) any { return idOf(v) }
func (s *Role) Stringify(ctx context.Context, v any, sc *core.SerializerContext) string {
	if r, ok := v.(*discordgo.Role); ok {
		return r.Name
	}
	if sc.Guild != nil {
		roles, _ := core.Maybe(sc.Client.Discord.Roles(ctx, sc.Guild.ID))
		for _, r := range roles {
			if r.ID == idOf(v) {
				return r.Name
			}
		}
	}
	return idOf(v)
}

type Emoji struct{ named }

func (s *Emoji) Deserialize(ctx context.Context, raw any, sc *core.SerializerContext) (any, error) {
	if e, ok := raw.(*discordgo.Emoji); ok {
		return e, nil
	}
	if id, ok := core.MatchID(core.EmojiPattern, idOf(raw)); ok {
		if e, ok := core.Maybe(sc.Client.Discord.Emoji(ctx, id)); ok {
			return e, nil
		}
	}
	return nil, sc.Errorf("RESOLVER_INVALID_EMOJI", sc.Entry.Key)
}
func (s *Emoji) Serialize(v any) any { return idOf(v) }
func (s *Emoji) Stringify(ctx context.Context, v any, sc *core.SerializerContext) string {
	e, ok := v.(*discordgo.Emoji)
	if !ok {
		e, ok = core.Maybe(sc.Client.Discord.Emoji(ctx, idOf(v)))
	}
	if !ok {
		return idOf(v)
	}
	return e.MessageFormat()
}

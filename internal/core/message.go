package core

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Message is an inbound chat message together with what dispatch learned
// about it.
type Message struct {
	*discordgo.Message

	Client  *Client
	Guild   *discordgo.Guild
	Channel *discordgo.Channel
	Edited  bool

	Prefix        string
	PrefixLength  int
	MentionPrefix bool
	CommandText   string
	Command       Command
	Params        []any

	responses []*discordgo.Message
}

// NewMessage wraps m, resolving its guild and channel through the cache.
func NewMessage(ctx context.Context, c *Client, m *discordgo.Message) *Message {
	msg := &Message{Message: m, Client: c}
	if m.GuildID != "" {
		msg.Guild, _ = Maybe(c.Discord.Guild(ctx, m.GuildID))
	}
	msg.Channel, _ = Maybe(c.Discord.Channel(ctx, m.ChannelID))
	return msg
}

// InGuild reports whether the message was sent in a guild channel.
func (m *Message) InGuild() bool { return m.GuildID != "" }

// ChannelKind returns RunInText for guild channels and RunInDM otherwise.
func (m *Message) ChannelKind() string {
	if m.InGuild() {
		return RunInText
	}
	return RunInDM
}

// GuildSettings returns the settings of the message's guild, or nil in DMs.
func (m *Message) GuildSettings() *Settings {
	if !m.InGuild() {
		return nil
	}
	return m.Client.Gateways.Guilds.Acquire(m.GuildID)
}

// Language returns the guild's configured language or the client default.
func (m *Message) Language() Language {
	if s := m.GuildSettings(); s != nil {
		if name, ok := s.Get("language").(string); ok && name != "" {
			return m.Client.Language(name)
		}
	}
	return m.Client.Language("")
}

// Errorf builds a LocalizedError in the message's language.
func (m *Message) Errorf(key string, args ...any) error {
	return Localize(m.Language(), key, args...)
}

// Send posts data to the message's channel and tracks it as a response.
func (m *Message) Send(ctx context.Context, data *discordgo.MessageSend) (*discordgo.Message, error) {
	sent, err := m.Client.Discord.Send(ctx, m.ChannelID, data)
	if err != nil {
		return nil, err
	}
	m.responses = append(m.responses, sent)
	m.Client.trackResponse(m.ID, sent)
	return sent, nil
}

// Reply sends plain content.
func (m *Message) Reply(ctx context.Context, content string) (*discordgo.Message, error) {
	return m.Send(ctx, &discordgo.MessageSend{Content: content})
}

// Responses returns what was sent in reply to this message.
func (m *Message) Responses() []*discordgo.Message { return m.responses }

// AuthorID returns the author's id, or "" for system messages.
func (m *Message) AuthorID() string {
	if m.Author == nil {
		return ""
	}
	return m.Author.ID
}

// HasAtLeastPermissionLevel reports whether the author reaches min.
func (m *Message) HasAtLeastPermissionLevel(ctx context.Context, min int) bool {
	_, ok := m.Client.PermissionLevels.Run(ctx, m, min)
	return ok
}

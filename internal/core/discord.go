package core

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Discord is the slice of the platform the pieces talk to. Lookups try the
// session cache before the REST API.
type Discord interface {
	SelfID() string
	User(ctx context.Context, userID string) (*discordgo.User, error)
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	CachedMember(guildID, userID string) (*discordgo.Member, bool)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	Guilds() []*discordgo.Guild
	Roles(ctx context.Context, guildID string) ([]*discordgo.Role, error)
	Emoji(ctx context.Context, emojiID string) (*discordgo.Emoji, error)
	ChannelMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	ChannelPermissions(ctx context.Context, userID, channelID string) (int64, error)
	Send(ctx context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error)
	Edit(ctx context.Context, channelID, messageID, content string) (*discordgo.Message, error)
	UserChannel(ctx context.Context, userID string) (*discordgo.Channel, error)
	Delete(ctx context.Context, channelID, messageID string) error
	StartTyping(channelID string) (stop func())
	LeaveGuild(ctx context.Context, guildID string) error
	Latency() time.Duration
}

// Maybe collapses a fetch result into a found flag. Transport failures,
// missing permissions and real 404s all read as "not found" here; resolvers
// report every one of them with the same localized error.
func Maybe[T any](v T, err error) (T, bool) {
	if err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

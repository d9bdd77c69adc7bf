package general

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/extendables"
)

type PingCommand struct{ core.NoAliases }

func (c *PingCommand) Name() string                 { return "ping" }
func (c *PingCommand) Description() string          { return "COMMAND_PING_DESCRIPTION" }
func (c *PingCommand) Category() string             { return category }
func (c *PingCommand) Usage() core.Usage            { return nil }
func (c *PingCommand) Options() core.CommandOptions { return core.CommandOptions{} }

// Run posts a reply and edits it with the round trip and heartbeat.
func (c *PingCommand) Run(ctx context.Context, msg *core.Message, _ []any) (*discordgo.Message, error) {
	first, err := extendables.SendLocale(ctx, msg, "COMMAND_PING")
	if err != nil {
		return nil, err
	}
	roundtrip := max(sentAt(first).Sub(sentAt(msg.Message)), 0)
	heartbeat := msg.Client.Discord.Latency()
	content := msg.Language().Get("COMMAND_PINGPONG", roundtrip.Milliseconds(), heartbeat.Milliseconds())
	return msg.Client.Discord.Edit(ctx, first.ChannelID, first.ID, content)
}

func sentAt(m *discordgo.Message) time.Time {
	if m.EditedTimestamp != nil {
		return *m.EditedTimestamp
	}
	return m.Timestamp
}

package general

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/extendables"
)

type InfoCommand struct{}

func (c *InfoCommand) Name() string                 { return "info" }
func (c *InfoCommand) Aliases() []string            { return []string{"details", "what"} }
func (c *InfoCommand) Description() string          { return "COMMAND_INFO_DESCRIPTION" }
func (c *InfoCommand) Category() string             { return category }
func (c *InfoCommand) Usage() core.Usage            { return nil }
func (c *InfoCommand) Options() core.CommandOptions { return core.CommandOptions{} }

func (c *InfoCommand) Run(ctx context.Context, msg *core.Message, _ []any) (*discordgo.Message, error) {
	return extendables.SendLocale(ctx, msg, "COMMAND_INFO")
}

type InviteCommand struct{ core.NoAliases }

func (c *InviteCommand) Name() string                 { return "invite" }
func (c *InviteCommand) Description() string          { return "COMMAND_INVITE_DESCRIPTION" }
func (c *InviteCommand) Category() string             { return category }
func (c *InviteCommand) Usage() core.Usage            { return nil }
func (c *InviteCommand) Options() core.CommandOptions { return core.CommandOptions{} }

func (c *InviteCommand) Run(ctx context.Context, msg *core.Message, _ []any) (*discordgo.Message, error) {
	client := msg.Client
	name := "the bot"
	if self, ok := core.Maybe(client.Discord.User(ctx, client.Discord.SelfID())); ok {
		name = self.Username
	}
	return extendables.SendLocale(ctx, msg, "COMMAND_INVITE", name, InviteURL(client), name)
}

// InviteURL builds the OAuth2 link adding the bot to a guild. Without a
// configured permission set it asks for what the loaded commands need.
func InviteURL(c *core.Client) string {
	perms := c.Options.InvitePermissions
	if perms == 0 {
		perms = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages
		for _, cmd := range c.Commands.All() {
			perms |= cmd.Options().BotPermissions
		}
	}
	return fmt.Sprintf("https://discord.com/oauth2/authorize?client_id=%s&permissions=%d&scope=bot", c.Discord.SelfID(), perms)
}

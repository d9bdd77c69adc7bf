package admin

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/extendables"
)

type RebootCommand struct{ core.NoAliases }

func (c *RebootCommand) Name() string        { return "reboot" }
func (c *RebootCommand) Description() string { return "COMMAND_REBOOT_DESCRIPTION" }
func (c *RebootCommand) Category() string    { return category }
func (c *RebootCommand) Guarded() bool       { return true }
func (c *RebootCommand) Usage() core.Usage   { return nil }

func (c *RebootCommand) Options() core.CommandOptions {
	return core.CommandOptions{PermissionLevel: ownerLevel, Guarded: true}
}

// Run announces the reboot, flushes the providers and exits. The process
// supervisor is expected to start the bot again.
func (c *RebootCommand) Run(ctx context.Context, msg *core.Message, _ []any) (*discordgo.Message, error) {
	reply, err := extendables.SendLocale(ctx, msg, "COMMAND_REBOOT")
	if err != nil {
		msg.Client.Logf(ctx, core.EventWarn, "reboot notice: %v", err)
	}
	if err := msg.Client.Shutdown(ctx); err != nil {
		msg.Client.Logf(ctx, core.EventError, "shutdown: %v", err)
	}
	msg.Client.Exit(0)
	return reply, nil
}

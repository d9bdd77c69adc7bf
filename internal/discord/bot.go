// Package discord connects the client to the Discord gateway. Gateway
// handlers forward their payloads to the client's event pieces; everything
// else happens in the pieces.
//
// Example usage:
//
//	b, err := discord.NewBot(cfg.DiscordToken, func(d core.Discord) *core.Client {
//		return core.NewClient(cfg.Options(), d, con)
//	})
//	err = b.Run(ctx)
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
)

// Intents the bot identifies with. Message content is privileged and must be
// enabled for the application.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// Bot owns the gateway session and the client built on top of it.
type Bot struct {
	dg     *discordgo.Session
	client *core.Client
	ctx    context.Context
}

// NewBot creates the session and hands its adapter to build.
func NewBot(token string, build func(core.Discord) *core.Client) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = Intents
	dg.State.MaxMessageCount = 200
	dg.StateEnabled = true

	b := &Bot{dg: dg, ctx: context.Background()}
	session := NewSession(dg, func(format string, args ...any) {
		if b.client != nil {
			b.client.Logf(b.ctx, core.EventDebug, format, args...)
		}
	})
	b.client = build(session)
	return b, nil
}

// Client returns the client the bot dispatches to.
func (b *Bot) Client() *core.Client { return b.client }

// Run opens the gateway and blocks until ctx is done, then shuts the client
// down and closes the session.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.addHandlers()

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	b.client.Logf(context.WithoutCancel(ctx), core.EventLog, "shutdown signal received, cleaning up")

	var errs []error
	if err := b.client.Shutdown(context.WithoutCancel(ctx)); err != nil {
		errs = append(errs, err)
	}
	if err := b.dg.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close session: %w", err))
	}
	return errors.Join(errs...)
}

func (b *Bot) addHandlers() {
	c := b.client
	b.dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		c.Emit(b.ctx, core.EventReady, r)
	})
	b.dg.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		c.Emit(b.ctx, core.EventDisconnect, nil)
	})
	b.dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Resumed) {
		c.Emit(b.ctx, core.EventResumed, r)
	})
	b.dg.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if !c.Ready() {
			return
		}
		c.Emit(b.ctx, core.EventMessageCreate, m.Message)
	})
	b.dg.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageUpdate) {
		if !c.Ready() {
			return
		}
		c.Emit(b.ctx, core.EventMessageUpdate, m)
	})
	b.dg.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageDelete) {
		c.Emit(b.ctx, core.EventMessageDelete, m)
	})
	b.dg.AddHandler(func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		if !c.Ready() {
			return
		}
		c.Emit(b.ctx, core.EventGuildCreate, g.Guild)
	})
	b.dg.AddHandler(func(_ *discordgo.Session, g *discordgo.GuildDelete) {
		c.Emit(b.ctx, core.EventGuildDelete, g.Guild)
	})
}

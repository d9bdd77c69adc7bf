package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/extendables"
)

var pieceUsage = core.Usage{core.Required(core.Arg("piece", "piece"))}

// pieceParam returns the resolved piece and its store.
func pieceParam(msg *core.Message, params []any) (core.Piece, core.AnyStore, error) {
	p, _ := params[0].(core.Piece)
	if p == nil {
		return nil, nil, msg.Errorf("COMMANDMESSAGE_MISSING_REQUIRED", "piece")
	}
	s, ok := storeOf(msg.Client, p)
	if !ok {
		return nil, nil, fmt.Errorf("piece %q is not loaded: %w", p.Name(), core.ErrNotFound)
	}
	return p, s, nil
}

type DisableCommand struct{ core.NoAliases }

func (c *DisableCommand) Name() string        { return "disable" }
func (c *DisableCommand) Description() string { return "COMMAND_DISABLE_DESCRIPTION" }
func (c *DisableCommand) Category() string    { return category }
func (c *DisableCommand) Guarded() bool       { return true }
func (c *DisableCommand) Usage() core.Usage   { return pieceUsage }

func (c *DisableCommand) Options() core.CommandOptions {
	return core.CommandOptions{PermissionLevel: ownerLevel, Guarded: true}
}

func (c *DisableCommand) Run(ctx context.Context, msg *core.Message, params []any) (*discordgo.Message, error) {
	p, s, err := pieceParam(msg, params)
	if err != nil {
		return nil, err
	}
	if err := s.Disable(p.Name()); err != nil {
		if errors.Is(err, core.ErrGuarded) {
			return extendables.SendLocale(ctx, msg, "COMMAND_DISABLE_WARN")
		}
		return nil, err
	}
	return extendables.SendCode(ctx, msg, "diff", msg.Language().Get("COMMAND_DISABLE", kind(s), p.Name()))
}

type EnableCommand struct{ core.NoAliases }

func (c *EnableCommand) Name() string        { return "enable" }
func (c *EnableCommand) Description() string { return "COMMAND_ENABLE_DESCRIPTION" }
func (c *EnableCommand) Category() string    { return category }
func (c *EnableCommand) Guarded() bool       { return true }
func (c *EnableCommand) Usage() core.Usage   { return pieceUsage }

func (c *EnableCommand) Options() core.CommandOptions {
	return core.CommandOptions{PermissionLevel: ownerLevel, Guarded: true}
}

func (c *EnableCommand) Run(ctx context.Context, msg *core.Message, params []any) (*discordgo.Message, error) {
	p, s, err := pieceParam(msg, params)
	if err != nil {
		return nil, err
	}
	if err := s.Enable(p.Name()); err != nil {
		return nil, err
	}
	return extendables.SendCode(ctx, msg, "diff", msg.Language().Get("COMMAND_ENABLE", kind(s), p.Name()))
}

package admin

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/extendables"
	"github.com/keshon/piecebot/pkg/util"
)

// =============================================================================
// load
// =============================================================================

type LoadCommand struct{}

func (c *LoadCommand) Name() string        { return "load" }
func (c *LoadCommand) Aliases() []string   { return []string{"l"} }
func (c *LoadCommand) Description() string { return "COMMAND_LOAD_DESCRIPTION" }
func (c *LoadCommand) Category() string    { return category }
func (c *LoadCommand) Guarded() bool       { return true }

func (c *LoadCommand) Usage() core.Usage {
	return core.Usage{
		core.Required(core.Arg("store", "store")),
		core.Required(core.Arg("name", "string")),
	}
}

func (c *LoadCommand) Options() core.CommandOptions {
	return core.CommandOptions{PermissionLevel: ownerLevel, Guarded: true}
}

func (c *LoadCommand) Run(ctx context.Context, msg *core.Message, params []any) (*discordgo.Message, error) {
	s, _ := params[0].(core.AnyStore)
	name, _ := params[1].(string)
	if s == nil {
		return nil, msg.Errorf("RESOLVER_INVALID_STORE", "store")
	}

	start := time.Now()
	p, err := s.LoadPiece(ctx, name)
	switch {
	case errors.Is(err, core.ErrNotFound):
		msg.Client.Logf(ctx, core.EventWarn, "load %s %q: %v", kind(s), name, err)
		return extendables.SendLocale(ctx, msg, "COMMAND_LOAD_FAIL")
	case err != nil:
		return extendables.SendLocale(ctx, msg, "COMMAND_LOAD_ERROR", kind(s), name, err.Error())
	}
	return extendables.SendLocale(ctx, msg, "COMMAND_LOAD", kind(s), p.Name(), took(start))
}

// =============================================================================
// unload
// =============================================================================

type UnloadCommand struct{}

func (c *UnloadCommand) Name() string        { return "unload" }
func (c *UnloadCommand) Aliases() []string   { return []string{"u"} }
func (c *UnloadCommand) Description() string { return "COMMAND_UNLOAD_DESCRIPTION" }
func (c *UnloadCommand) Category() string    { return category }
func (c *UnloadCommand) Guarded() bool       { return true }
func (c *UnloadCommand) Usage() core.Usage   { return pieceUsage }

func (c *UnloadCommand) Options() core.CommandOptions {
	return core.CommandOptions{PermissionLevel: ownerLevel, Guarded: true}
}

func (c *UnloadCommand) Run(ctx context.Context, msg *core.Message, params []any) (*discordgo.Message, error) {
	p, s, err := pieceParam(msg, params)
	if err != nil {
		return nil, err
	}
	if err := s.Unload(p.Name()); err != nil {
		if errors.Is(err, core.ErrGuarded) {
			return extendables.SendLocale(ctx, msg, "COMMAND_UNLOAD_WARN")
		}
		return nil, err
	}
	return extendables.SendLocale(ctx, msg, "COMMAND_UNLOAD", kind(s), p.Name())
}

// =============================================================================
// reload
// =============================================================================

type ReloadCommand struct{}

func (c *ReloadCommand) Name() string        { return "reload" }
func (c *ReloadCommand) Aliases() []string   { return []string{"r"} }
func (c *ReloadCommand) Description() string { return "COMMAND_RELOAD_DESCRIPTION" }
func (c *ReloadCommand) Category() string    { return category }
func (c *ReloadCommand) Guarded() bool       { return true }

func (c *ReloadCommand) Usage() core.Usage {
	return core.Usage{core.Required(core.Lit("everything"), core.Arg("store", "store"), core.Arg("piece", "piece"))}
}

func (c *ReloadCommand) Options() core.CommandOptions {
	return core.CommandOptions{PermissionLevel: ownerLevel, Guarded: true}
}

func (c *ReloadCommand) Run(ctx context.Context, msg *core.Message, params []any) (*discordgo.Message, error) {
	start := time.Now()
	switch v := params[0].(type) {
	case string:
		if err := util.Parallel(ctx, msg.Client.Stores(), 4, reloadStore); err != nil {
			return nil, err
		}
		return extendables.SendLocale(ctx, msg, "COMMAND_RELOAD_EVERYTHING", took(start))

	case core.AnyStore:
		if err := reloadStore(ctx, v); err != nil {
			return nil, err
		}
		return extendables.SendLocale(ctx, msg, "COMMAND_RELOAD_ALL", v.Name(), took(start))

	case core.Piece:
		s, ok := storeOf(msg.Client, v)
		if !ok {
			return nil, msg.Errorf("RESOLVER_INVALID_PIECE", "piece", "piece")
		}
		p, err := s.ReloadPiece(ctx, v.Name())
		if err != nil {
			msg.Client.Logf(ctx, core.EventError, "reload %s %s: %v", kind(s), v.Name(), err)
			return extendables.SendLocale(ctx, msg, "COMMAND_RELOAD_FAILED", kind(s), v.Name())
		}
		return extendables.SendLocale(ctx, msg, "COMMAND_RELOAD", kind(s), p.Name(), took(start))
	}
	return nil, msg.Errorf("COMMANDMESSAGE_MISSING_REQUIRED", "piece")
}

// reloadStore reloads every live piece of s.
func reloadStore(ctx context.Context, s core.AnyStore) error {
	for _, name := range s.Names() {
		if _, err := s.ReloadPiece(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

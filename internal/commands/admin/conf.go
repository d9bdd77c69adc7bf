package admin

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/extendables"
)

// SettingsCommand edits one gateway's settings through the set, show,
// remove and reset sub-commands. conf and userconf are two instances.
type SettingsCommand struct {
	name        string
	aliases     []string
	description string
	header      string
	options     core.CommandOptions
	target      func(msg *core.Message) *core.Settings
}

// NewConfCommand returns the per-guild settings command.
func NewConfCommand() *SettingsCommand {
	return &SettingsCommand{
		name:        "conf",
		aliases:     []string{"settings"},
		description: "COMMAND_CONF_SERVER_DESCRIPTION",
		header:      "COMMAND_CONF_SERVER",
		options: core.CommandOptions{
			PermissionLevel: 6,
			RunIn:           []string{core.RunInText},
			Guarded:         true,
			SubCommands:     true,
		},
		target: func(msg *core.Message) *core.Settings { return msg.GuildSettings() },
	}
}

// NewUserConfCommand returns the per-user settings command.
func NewUserConfCommand() *SettingsCommand {
	return &SettingsCommand{
		name:        "userconf",
		description: "COMMAND_CONF_USER_DESCRIPTION",
		header:      "COMMAND_CONF_USER",
		options:     core.CommandOptions{SubCommands: true},
		target: func(msg *core.Message) *core.Settings {
			return msg.Client.Gateways.Users.Acquire(msg.AuthorID())
		},
	}
}

func (c *SettingsCommand) Name() string                 { return c.name }
func (c *SettingsCommand) Aliases() []string            { return c.aliases }
func (c *SettingsCommand) Description() string          { return c.description }
func (c *SettingsCommand) Category() string             { return category }
func (c *SettingsCommand) Guarded() bool                { return c.options.Guarded }
func (c *SettingsCommand) Options() core.CommandOptions { return c.options }

func (c *SettingsCommand) Usage() core.Usage {
	return core.Usage{
		core.Required(core.Lit("set"), core.Lit("show"), core.Lit("remove"), core.Lit("reset")),
		core.Optional(core.Arg("key", "string")),
		{Rest: true, Possibles: []*core.Possible{core.Arg("value", "string")}},
	}
}

func (c *SettingsCommand) SubCommand(name string) (core.CommandFunc, bool) {
	switch name {
	case "show":
		return c.show, true
	case "set":
		return c.set, true
	case "remove":
		return c.remove, true
	case "reset":
		return c.reset, true
	}
	return nil, false
}

// Run is only reached without a sub-command, which usage rules out.
func (c *SettingsCommand) Run(ctx context.Context, msg *core.Message, params []any) (*discordgo.Message, error) {
	return c.show(ctx, msg, nil)
}

func param(params []any, i int) string {
	if i >= len(params) {
		return ""
	}
	s, _ := params[i].(string)
	return s
}

// =============================================================================
// Sub-commands
// =============================================================================

func (c *SettingsCommand) show(ctx context.Context, msg *core.Message, params []any) (*discordgo.Message, error) {
	settings := c.target(msg)
	schema := settings.Gateway().Schema
	lang := msg.Language()
	key := param(params, 0)

	if entry, ok := schema.Entry(key); ok && entry.Configurable {
		return extendables.SendLocale(ctx, msg, "COMMAND_CONF_GET", key, settings.Display(ctx, key, msg.Guild, lang))
	}
	if key != "" && !schema.IsFolder(key) {
		return nil, msg.Errorf("COMMAND_CONF_GET_NOEXT", key)
	}

	title := ""
	if key != "" {
		title = ": " + key
	}
	listing := c.folder(ctx, msg, settings, key)
	return extendables.SendLocale(ctx, msg, c.header, title, extendables.CodeBlock("asciidoc", listing))
}

// folder renders the entries and sub-folders under prefix.
func (c *SettingsCommand) folder(ctx context.Context, msg *core.Message, settings *core.Settings, prefix string) string {
	entries, folders := settings.Gateway().Schema.Folder(prefix)
	lang := msg.Language()

	var sb strings.Builder
	if len(folders) > 0 {
		sb.WriteString("= Folders =\n")
		for _, f := range folders {
			sb.WriteString(f + "\n")
		}
		sb.WriteString("\n")
	}
	if len(entries) > 0 {
		longest := 0
		for _, e := range entries {
			longest = max(longest, len(e.Key))
		}
		sb.WriteString("= Settings =\n")
		for _, e := range entries {
			fmt.Fprintf(&sb, "%-*s :: %s\n", longest, e.Key, settings.Display(ctx, e.Key, msg.Guild, lang))
		}
	}
	if sb.Len() == 0 {
		return lang.Get("SETTING_GATEWAY_NONE")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (c *SettingsCommand) set(ctx context.Context, msg *core.Message, params []any) (*discordgo.Message, error) {
	key, value := param(params, 0), param(params, 1)
	if key == "" {
		return nil, msg.Errorf("COMMAND_CONF_NOKEY")
	}
	if value == "" {
		return nil, msg.Errorf("COMMAND_CONF_NOVALUE")
	}
	if key == "disabledCommands" {
		if cmd, ok := msg.Client.Commands.Get(value); ok && cmd.Options().Guarded {
			return nil, msg.Errorf("COMMAND_CONF_GUARDED", cmd.Name())
		}
	}

	settings := c.target(msg)
	action := core.ActionOverwrite
	if entry, ok := settings.Gateway().Schema.Entry(key); ok && entry.Array {
		action = core.ActionAdd
	}
	return c.update(ctx, msg, settings, key, value, action)
}

func (c *SettingsCommand) remove(ctx context.Context, msg *core.Message, params []any) (*discordgo.Message, error) {
	key, value := param(params, 0), param(params, 1)
	if key == "" {
		return nil, msg.Errorf("COMMAND_CONF_NOKEY")
	}
	if value == "" {
		return nil, msg.Errorf("COMMAND_CONF_NOVALUE")
	}
	settings := c.target(msg)
	entry, ok := settings.Gateway().Schema.Entry(key)
	if !ok {
		return nil, msg.Errorf("COMMAND_CONF_GET_NOEXT", key)
	}
	if !entry.Array {
		return nil, msg.Errorf("COMMAND_CONF_KEY_NOT_ARRAY")
	}
	return c.update(ctx, msg, settings, key, value, core.ActionRemove)
}

func (c *SettingsCommand) update(ctx context.Context, msg *core.Message, settings *core.Settings, key, value, action string) (*discordgo.Message, error) {
	res, err := settings.Update(ctx, []core.Change{{Key: key, Value: value}}, core.UpdateOptions{
		Action:   action,
		Guild:    msg.Guild,
		Language: msg.Language(),
	})
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", key, err)
	}
	if len(res.Errors) > 0 {
		return nil, res.Errors[0]
	}
	if len(res.Updated) == 1 && reflect.DeepEqual(res.Updated[0].Previous, res.Updated[0].Next) {
		return nil, msg.Errorf("COMMAND_CONF_NOCHANGE", key)
	}
	return extendables.SendLocale(ctx, msg, "COMMAND_CONF_UPDATED", key, settings.Display(ctx, key, msg.Guild, msg.Language()))
}

func (c *SettingsCommand) reset(ctx context.Context, msg *core.Message, params []any) (*discordgo.Message, error) {
	key := param(params, 0)
	if key == "" {
		return nil, msg.Errorf("COMMAND_CONF_NOKEY")
	}
	settings := c.target(msg)
	res, err := settings.Reset(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reset %s: %w", key, err)
	}
	if len(res.Errors) > 0 {
		return nil, res.Errors[0]
	}
	return extendables.SendLocale(ctx, msg, "COMMAND_CONF_RESET", key, settings.Display(ctx, key, msg.Guild, msg.Language()))
}

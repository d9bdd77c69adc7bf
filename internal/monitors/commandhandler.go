// Package monitors holds the pieces that see every inbound message.
package monitors

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
)

// Register adds every monitor to c.
func Register(c *core.Client) error {
	return c.Monitors.Register(func() core.Monitor { return &CommandHandler{} })
}

// CommandHandler turns prefixed messages into command runs: prefix, command
// lookup, inhibitors, typing, arguments, execution, finalizers.
type CommandHandler struct{ core.NoAliases }

func (m *CommandHandler) Name() string { return "commandHandler" }

func (m *CommandHandler) Guarded() bool { return true }

func (m *CommandHandler) Options() core.MonitorOptions {
	return core.MonitorOptions{
		IgnoreBots:              true,
		IgnoreSelf:              true,
		IgnoreWebhooks:          true,
		IgnoreBlacklistedUsers:  true,
		IgnoreBlacklistedGuilds: true,
	}
}

func (m *CommandHandler) Run(ctx context.Context, msg *core.Message) error {
	c := msg.Client

	if msg.InGuild() {
		if _, ok := c.Discord.CachedMember(msg.GuildID, c.Discord.SelfID()); !ok {
			_, _ = core.Maybe(c.Discord.Member(ctx, msg.GuildID, c.Discord.SelfID()))
		}
		if !postable(ctx, msg) {
			return nil
		}
	}

	if !resolvePrefix(msg) {
		return nil
	}
	if msg.CommandText == "" {
		if msg.MentionPrefix {
			_, err := msg.Reply(ctx, msg.Language().Get("PREFIX_REMINDER", strings.Join(guildPrefixes(msg), ", ")))
			return err
		}
		return nil
	}

	cmd, ok := c.Commands.Get(msg.CommandText)
	if !ok {
		c.Emit(ctx, core.EventCommandUnknown, &core.CommandEvent{Message: msg, CommandText: msg.CommandText})
		return nil
	}
	msg.Command = cmd

	if in := c.RunInhibitors(ctx, msg, cmd, false); in != nil {
		c.Emit(ctx, core.EventCommandInhibited, &core.CommandEvent{Message: msg, Command: cmd, CommandText: msg.CommandText, Err: in})
		return nil
	}

	m.run(ctx, msg, cmd)
	return nil
}

// run covers the steps that hold the typing indicator.
func (m *CommandHandler) run(ctx context.Context, msg *core.Message, cmd core.Command) {
	c := msg.Client
	if c.Options.Typing {
		stop := c.Discord.StartTyping(msg.ChannelID)
		defer stop()
	}

	params, err := c.Prompter.Run(ctx, msg, cmd)
	if err != nil {
		c.Emit(ctx, core.EventArgumentError, &core.CommandEvent{Message: msg, Command: cmd, CommandText: msg.CommandText, Err: err})
		return
	}
	msg.Params = params

	body, params, err := subCommand(msg, cmd, params)
	if err != nil {
		c.Emit(ctx, core.EventCommandError, &core.CommandEvent{Message: msg, Command: cmd, CommandText: msg.CommandText, Params: msg.Params, Err: err})
		return
	}

	start := time.Now()
	response, err := body(ctx, msg, params)
	elapsed := time.Since(start)

	event := &core.CommandEvent{
		Message:     msg,
		Command:     cmd,
		CommandText: msg.CommandText,
		Params:      msg.Params,
		Response:    response,
		Err:         err,
		Elapsed:     elapsed,
	}
	if err != nil {
		c.Emit(ctx, core.EventCommandError, event)
		return
	}
	c.RunFinalizers(ctx, msg, cmd, response, elapsed)
	c.Emit(ctx, core.EventCommandSuccess, event)
}

// subCommand picks the body to run. Commands with SubCommands set are
// dispatched on their first parameter, which is not passed on.
func subCommand(msg *core.Message, cmd core.Command, params []any) (core.CommandFunc, []any, error) {
	if !cmd.Options().SubCommands {
		return cmd.Run, params, nil
	}
	name := ""
	if len(params) > 0 {
		name, _ = params[0].(string)
	}
	if sc, ok := cmd.(core.SubCommander); ok && name != "" {
		if fn, ok := sc.SubCommand(name); ok {
			return fn, params[1:], nil
		}
	}
	return nil, nil, msg.Errorf("COMMAND_ERROR_UNKNOWN_SUBCOMMAND", name, cmd.Name())
}

func postable(ctx context.Context, msg *core.Message) bool {
	perms, ok := core.Maybe(msg.Client.Discord.ChannelPermissions(ctx, msg.Client.Discord.SelfID(), msg.ChannelID))
	if !ok {
		return false
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	need := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages)
	return perms&need == need
}

// =============================================================================
// Prefix resolution
// =============================================================================

// guildPrefixes returns the configured prefixes, longest first.
func guildPrefixes(msg *core.Message) []string {
	var out []string
	if s := msg.GuildSettings(); s != nil {
		out = s.GetStrings("prefix")
	} else {
		out = append(out, msg.Client.Options.Prefix...)
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func mentionPattern(selfID string) *regexp.Regexp {
	return regexp.MustCompile(`^<@!?` + regexp.QuoteMeta(selfID) + `>`)
}

// resolvePrefix fills the prefix fields of msg in the order mention, guild
// prefix, regex prefix, then the bare DM fallback. It reports whether any
// matched.
func resolvePrefix(msg *core.Message) bool {
	content := msg.Content
	c := msg.Client

	if match := mentionPattern(c.Discord.SelfID()).FindString(content); match != "" {
		msg.Prefix, msg.PrefixLength, msg.MentionPrefix = match, len(match), true
	} else {
		matched := false
		for _, p := range guildPrefixes(msg) {
			if p != "" && strings.HasPrefix(content, p) {
				msg.Prefix, msg.PrefixLength, matched = p, len(p), true
				break
			}
		}
		if !matched && c.Options.RegexPrefix != nil && !naturalPrefixDisabled(msg) {
			if loc := c.Options.RegexPrefix.FindStringIndex(content); loc != nil && loc[0] == 0 {
				msg.Prefix, msg.PrefixLength, matched = content[:loc[1]], loc[1], true
			}
		}
		if !matched && !msg.InGuild() && c.Options.NoPrefixDM {
			msg.Prefix, msg.PrefixLength, matched = "", 0, true
		}
		if !matched {
			return false
		}
	}

	rest := strings.TrimLeftFunc(content[msg.PrefixLength:], unicode.IsSpace)
	if fields := strings.Fields(rest); len(fields) > 0 {
		msg.CommandText = strings.ToLower(fields[0])
	}
	return true
}

func naturalPrefixDisabled(msg *core.Message) bool {
	s := msg.GuildSettings()
	return s != nil && s.GetBool("disableNaturalPrefix")
}

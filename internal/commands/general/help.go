package general

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/config"
	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/extendables"
)

// maxMessageLength is Discord's limit for one message.
const maxMessageLength = 2000

type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"commands"} }
func (c *HelpCommand) Description() string { return "COMMAND_HELP_DESCRIPTION" }
func (c *HelpCommand) Category() string    { return category }
func (c *HelpCommand) Guarded() bool       { return true }

func (c *HelpCommand) Usage() core.Usage {
	return core.Usage{core.Optional(core.Arg("command", "command"))}
}

func (c *HelpCommand) Options() core.CommandOptions {
	return core.CommandOptions{Guarded: true}
}

func (c *HelpCommand) Run(ctx context.Context, msg *core.Message, params []any) (*discordgo.Message, error) {
	if len(params) > 0 {
		if cmd, ok := params[0].(core.Command); ok {
			return extendables.SendCode(ctx, msg, "asciidoc", describe(msg, cmd))
		}
	}

	chunks := chunk(listing(ctx, msg), maxMessageLength)
	if !msg.InGuild() {
		var last *discordgo.Message
		for _, part := range chunks {
			sent, err := extendables.SendMessage(ctx, msg, part)
			if err != nil {
				return nil, err
			}
			last = sent
		}
		return last, nil
	}

	if err := sendDM(ctx, msg, chunks); err != nil {
		msg.Client.Logf(ctx, core.EventDebug, "help DM to %s: %v", msg.AuthorID(), err)
		return extendables.SendLocale(ctx, msg, "COMMAND_HELP_NODM")
	}
	return extendables.SendLocale(ctx, msg, "COMMAND_HELP_DM")
}

func sendDM(ctx context.Context, msg *core.Message, chunks []string) error {
	d := msg.Client.Discord
	dm, err := d.UserChannel(ctx, msg.AuthorID())
	if err != nil {
		return err
	}
	for _, part := range chunks {
		if _, err := d.Send(ctx, dm.ID, &discordgo.MessageSend{Content: part}); err != nil {
			return err
		}
	}
	return nil
}

// displayPrefix is the prefix shown in help: the one the user typed, or the
// guild's first prefix when they mentioned the bot.
func displayPrefix(msg *core.Message) string {
	if msg.Prefix != "" && !msg.MentionPrefix {
		return msg.Prefix
	}
	if s := msg.GuildSettings(); s != nil {
		if p := s.GetStrings("prefix"); len(p) > 0 {
			return p[0]
		}
	}
	if len(msg.Client.Options.Prefix) > 0 {
		return msg.Client.Options.Prefix[0]
	}
	return ""
}

// describe renders the help page of one command.
func describe(msg *core.Message, cmd core.Command) string {
	lang := msg.Language()
	usage := displayPrefix(msg) + cmd.Name()
	if u := cmd.Usage().String(); u != "" {
		usage += " " + u
	}
	extended := lang.Get("COMMAND_HELP_NO_EXTENDED")
	if key := cmd.Options().ExtendedHelp; key != "" {
		extended = localized(lang, key)
	}
	return strings.Join([]string{
		"= " + cmd.Name() + " =",
		localized(lang, cmd.Description()),
		lang.Get("COMMAND_HELP_USAGE", usage),
		lang.Get("COMMAND_HELP_EXTENDED"),
		extended,
	}, "\n")
}

// listing renders one block per category with the commands the author may
// run here. Only the selective inhibitors are consulted.
func listing(ctx context.Context, msg *core.Message) []string {
	lang := msg.Language()
	prefix := displayPrefix(msg)

	byCategory := map[string][]core.Command{}
	longest := 0
	for _, cmd := range msg.Client.Commands.Active() {
		if in := msg.Client.RunInhibitors(ctx, msg, cmd, true); in != nil {
			continue
		}
		byCategory[cmd.Category()] = append(byCategory[cmd.Category()], cmd)
		longest = max(longest, len(cmd.Name()))
	}

	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool {
		wi, wj := config.CategoryWeight(categories[i]), config.CategoryWeight(categories[j])
		if wi != wj {
			return wi < wj
		}
		return categories[i] < categories[j]
	})

	blocks := make([]string, 0, len(categories))
	for _, cat := range categories {
		lines := make([]string, 0, len(byCategory[cat]))
		for _, cmd := range byCategory[cat] {
			lines = append(lines, fmt.Sprintf("%s%-*s :: %s", prefix, longest, cmd.Name(), localized(lang, cmd.Description())))
		}
		blocks = append(blocks, fmt.Sprintf("**%s Commands**\n%s", cat, extendables.CodeBlock("asciidoc", strings.Join(lines, "\n"))))
	}
	return blocks
}

// chunk packs blocks into messages no longer than limit. A single block over
// the limit is cut on line boundaries.
func chunk(blocks []string, limit int) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, b := range blocks {
		if cur.Len() > 0 && cur.Len()+1+len(b) > limit {
			flush()
		}
		if len(b) > limit {
			for _, line := range strings.Split(b, "\n") {
				if cur.Len() > 0 && cur.Len()+1+len(line) > limit {
					flush()
				}
				if cur.Len() > 0 {
					cur.WriteByte('\n')
				}
				cur.WriteString(line)
			}
			continue
		}
		if cur.Len() > 0 {
			cur.WriteByte('\n')
		}
		cur.WriteString(b)
	}
	flush()
	return out
}

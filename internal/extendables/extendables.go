// Package extendables provides the message helpers pieces reply with. Each
// helper belongs to a named capability piece and refuses to act while that
// piece is disabled.
//
// Example usage:
//
//	if _, err := extendables.SendLocale(ctx, msg, "COMMAND_PING"); err != nil {
//		return nil, err
//	}
package extendables

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
)

// Capability names.
const (
	CapSendMessage   = "sendMessage"
	CapSendLocale    = "sendLocale"
	CapSendCode      = "sendCode"
	CapSendEmbed     = "sendEmbed"
	CapLanguage      = "language"
	CapGuildSettings = "guildSettings"
)

// ErrCapabilityDisabled is matched by every DisabledError.
var ErrCapabilityDisabled = errors.New("capability disabled")

// DisabledError reports a call through an uninstalled capability.
type DisabledError struct {
	Capability string
	Text       string
}

func (e *DisabledError) Error() string {
	if e.Text != "" {
		return e.Text
	}
	return fmt.Sprintf("%s: %s", ErrCapabilityDisabled, e.Capability)
}

func (e *DisabledError) Is(target error) bool { return target == ErrCapabilityDisabled }

// Capability is the piece standing for one group of helpers.
type Capability struct {
	core.NoAliases
	name      string
	appliesTo []string
}

func (p *Capability) Name() string        { return p.name }
func (p *Capability) AppliesTo() []string { return p.appliesTo }

// Register installs every capability on c.
func Register(c *core.Client) error {
	caps := []Capability{
		{name: CapSendMessage, appliesTo: []string{"Message", "Channel"}},
		{name: CapSendLocale, appliesTo: []string{"Message", "Channel"}},
		{name: CapSendCode, appliesTo: []string{"Message", "Channel"}},
		{name: CapSendEmbed, appliesTo: []string{"Message", "Channel"}},
		{name: CapLanguage, appliesTo: []string{"Message", "Guild"}},
		{name: CapGuildSettings, appliesTo: []string{"Message", "Guild"}},
	}
	for _, cp := range caps {
		if err := c.Extendables.Register(func() core.Extendable {
			return &Capability{name: cp.name, appliesTo: cp.appliesTo}
		}); err != nil {
			return err
		}
	}
	return nil
}

func installed(c *core.Client, name string) error {
	if c.Extendables.IsEnabled(name) {
		return nil
	}
	text := ""
	if lang := c.Language(""); lang != nil {
		text = lang.Get("EXTENDABLE_DISABLED", name)
	}
	return &DisabledError{Capability: name, Text: text}
}

// =============================================================================
// Senders
// =============================================================================

// SendMessage replies with plain content.
func SendMessage(ctx context.Context, msg *core.Message, content string) (*discordgo.Message, error) {
	if err := installed(msg.Client, CapSendMessage); err != nil {
		return nil, err
	}
	return msg.Send(ctx, &discordgo.MessageSend{Content: content})
}

// SendLocale replies with key resolved in the message's language.
func SendLocale(ctx context.Context, msg *core.Message, key string, args ...any) (*discordgo.Message, error) {
	if err := installed(msg.Client, CapSendLocale); err != nil {
		return nil, err
	}
	lang, err := Language(msg)
	if err != nil {
		return nil, err
	}
	return msg.Send(ctx, &discordgo.MessageSend{Content: lang.Get(key, args...)})
}

// SendCode replies with code in a fenced block tagged lang.
func SendCode(ctx context.Context, msg *core.Message, lang, code string) (*discordgo.Message, error) {
	if err := installed(msg.Client, CapSendCode); err != nil {
		return nil, err
	}
	return msg.Send(ctx, &discordgo.MessageSend{Content: CodeBlock(lang, code)})
}

// SendEmbed replies with one embed and optional content.
func SendEmbed(ctx context.Context, msg *core.Message, embed *discordgo.MessageEmbed, content string) (*discordgo.Message, error) {
	if err := installed(msg.Client, CapSendEmbed); err != nil {
		return nil, err
	}
	return msg.Send(ctx, &discordgo.MessageSend{Content: content, Embeds: []*discordgo.MessageEmbed{embed}})
}

// CodeBlock fences code, escaping backtick runs that would close it early.
func CodeBlock(lang, code string) string {
	return "```" + lang + "\n" + escapeFence(code) + "\n```"
}

func escapeFence(s string) string {
	out := make([]rune, 0, len(s))
	ticks := 0
	for _, r := range s {
		if r == '`' {
			ticks++
			if ticks == 3 {
				out = append(out, '\u200b')
				ticks = 1
			}
		} else {
			ticks = 0
		}
		out = append(out, r)
	}
	return string(out)
}

// =============================================================================
// Accessors
// =============================================================================

// Language returns the language the message should be answered in.
func Language(msg *core.Message) (core.Language, error) {
	if err := installed(msg.Client, CapLanguage); err != nil {
		return nil, err
	}
	lang := msg.Language()
	if lang == nil {
		return nil, fmt.Errorf("no language loaded: %w", core.ErrNotFound)
	}
	return lang, nil
}

// GuildSettings returns the settings of the message's guild, or nil in DMs.
func GuildSettings(msg *core.Message) (*core.Settings, error) {
	if err := installed(msg.Client, CapGuildSettings); err != nil {
		return nil, err
	}
	return msg.GuildSettings(), nil
}

package admin

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/extendables"
)

type BlacklistCommand struct{ core.NoAliases }

func (c *BlacklistCommand) Name() string        { return "blacklist" }
func (c *BlacklistCommand) Description() string { return "COMMAND_BLACKLIST_DESCRIPTION" }
func (c *BlacklistCommand) Category() string    { return category }
func (c *BlacklistCommand) Guarded() bool       { return true }

func (c *BlacklistCommand) Usage() core.Usage {
	return core.Usage{{
		Required: true,
		Repeat:   true,
		Possibles: []*core.Possible{
			core.Arg("user", "user"),
			core.Arg("guild", "guild"),
			core.Arg("guildID", "string"),
		},
	}}
}

func (c *BlacklistCommand) Options() core.CommandOptions {
	return core.CommandOptions{PermissionLevel: ownerLevel, Guarded: true}
}

// toggled tracks the ids flipped on one blacklist.
type toggled struct {
	list           []string
	added, removed []string
	changed        bool
}

func (t *toggled) flip(id, label string) {
	if i := slices.Index(t.list, id); i >= 0 {
		t.list = slices.Delete(t.list, i, i+1)
		t.removed = append(t.removed, label)
	} else {
		t.list = append(t.list, id)
		t.added = append(t.added, label)
	}
	t.changed = true
}

func (t *toggled) value() []any {
	out := make([]any, len(t.list))
	for i, id := range t.list {
		out[i] = id
	}
	return out
}

// Run flips every target on its blacklist and stores both lists with one
// settings write.
func (c *BlacklistCommand) Run(ctx context.Context, msg *core.Message, params []any) (*discordgo.Message, error) {
	client := msg.Client
	settings := client.ClientSettings()
	users := &toggled{list: settings.GetStrings("userBlacklist")}
	guilds := &toggled{list: settings.GetStrings("guildBlacklist")}

	seen := map[string]bool{}
	for _, p := range params {
		switch v := p.(type) {
		case *discordgo.User:
			if !seen["u"+v.ID] {
				seen["u"+v.ID] = true
				users.flip(v.ID, v.Username)
			}
		case *discordgo.Guild:
			if !seen["g"+v.ID] {
				seen["g"+v.ID] = true
				guilds.flip(v.ID, v.Name)
			}
		case string:
			if !seen["g"+v] {
				seen["g"+v] = true
				guilds.flip(v, v)
			}
		}
	}

	var changes []core.Change
	if users.changed {
		changes = append(changes, core.Change{Key: "userBlacklist", Value: users.value()})
	}
	if guilds.changed {
		changes = append(changes, core.Change{Key: "guildBlacklist", Value: guilds.value()})
	}
	if len(changes) > 0 {
		res, err := settings.Update(ctx, changes, core.UpdateOptions{
			Action:   core.ActionOverwrite,
			Guild:    msg.Guild,
			Language: msg.Language(),
		})
		if err != nil {
			return nil, fmt.Errorf("update blacklists: %w", err)
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
	}

	lang := msg.Language()
	var sections []string
	section := func(key string, names []string) {
		if len(names) > 0 {
			sections = append(sections, lang.Get(key), extendables.CodeBlock("", strings.Join(names, "\n")))
		}
	}
	section("COMMAND_BLACKLIST_USERS_ADDED", users.added)
	section("COMMAND_BLACKLIST_USERS_REMOVED", users.removed)
	section("COMMAND_BLACKLIST_GUILDS_ADDED", guilds.added)
	section("COMMAND_BLACKLIST_GUILDS_REMOVED", guilds.removed)

	return extendables.SendMessage(ctx, msg, strings.Join(sections, "\n"))
}

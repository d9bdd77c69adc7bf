package inhibitors

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
)

// Permissions climbs the permission ladder from the command's level. A
// failure that hit a break level is explained; any other one is silent.
type Permissions struct{ named }

func (i *Permissions) Run(ctx context.Context, msg *core.Message, cmd core.Command) error {
	broke, ok := msg.Client.PermissionLevels.Run(ctx, msg, cmd.Options().PermissionLevel)
	if ok {
		return nil
	}
	if broke {
		return inhibit(msg, "INHIBITOR_PERMISSIONS")
	}
	return core.Silent()
}

// impliedPermissions are granted to the bot in every DM channel.
const impliedPermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionSendTTSMessages |
	discordgo.PermissionEmbedLinks |
	discordgo.PermissionAttachFiles |
	discordgo.PermissionReadMessageHistory |
	discordgo.PermissionMentionEveryone |
	discordgo.PermissionUseExternalEmojis |
	discordgo.PermissionAddReactions

// MissingBotPermissions blocks commands the bot lacks channel permissions for.
type MissingBotPermissions struct{ named }

func (i *MissingBotPermissions) Run(ctx context.Context, msg *core.Message, cmd core.Command) error {
	required := cmd.Options().BotPermissions
	if required == 0 {
		return nil
	}
	var have int64 = impliedPermissions
	if msg.InGuild() {
		perms, err := msg.Client.Discord.ChannelPermissions(ctx, msg.Client.Discord.SelfID(), msg.ChannelID)
		if err != nil {
			return fmt.Errorf("bot permissions in %s: %w", msg.ChannelID, err)
		}
		have = perms
	}
	if have&discordgo.PermissionAdministrator != 0 {
		return nil
	}
	if missing := core.MissingPermissions(have, required); len(missing) > 0 {
		return inhibit(msg, "INHIBITOR_MISSING_BOT_PERMS", strings.Join(missing, ", "))
	}
	return nil
}

// RequiredSettings blocks guild commands whose settings are unset.
type RequiredSettings struct{ named }

func (i *RequiredSettings) Run(_ context.Context, msg *core.Message, cmd core.Command) error {
	keys := cmd.Options().RequiredSettings
	s := msg.GuildSettings()
	if len(keys) == 0 || s == nil {
		return nil
	}
	var missing []string
	for _, k := range keys {
		if isUnset(s.Get(k)) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return inhibit(msg, "INHIBITOR_REQUIRED_SETTINGS", strings.Join(missing, ", "))
	}
	return nil
}

func isUnset(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	}
	return false
}

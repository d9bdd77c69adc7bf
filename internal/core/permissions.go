package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"
)

// PermissionNames maps permission bits to the labels shown to users.
var PermissionNames = map[int64]string{
	discordgo.PermissionCreateInstantInvite: "Create Instant Invite",
	discordgo.PermissionKickMembers:         "Kick Members",
	discordgo.PermissionBanMembers:          "Ban Members",
	discordgo.PermissionAdministrator:       "Administrator",
	discordgo.PermissionManageChannels:      "Manage Channels",
	discordgo.PermissionManageGuild:         "Manage Server",
	discordgo.PermissionAddReactions:        "Add Reactions",
	discordgo.PermissionViewAuditLogs:       "View Audit Logs",
	discordgo.PermissionViewChannel:         "View Channel",
	discordgo.PermissionSendMessages:        "Send Messages",
	discordgo.PermissionSendTTSMessages:     "Send TTS Messages",
	discordgo.PermissionManageMessages:      "Manage Messages",
	discordgo.PermissionEmbedLinks:          "Embed Links",
	discordgo.PermissionAttachFiles:         "Attach Files",
	discordgo.PermissionReadMessageHistory:  "Read Message History",
	discordgo.PermissionMentionEveryone:     "Mention Everyone",
	discordgo.PermissionUseExternalEmojis:   "Use External Emojis",
	discordgo.PermissionManageThreads:       "Manage Threads",
	discordgo.PermissionVoiceConnect:        "Connect",
	discordgo.PermissionVoiceSpeak:          "Speak",
	discordgo.PermissionChangeNickname:      "Change Nickname",
	discordgo.PermissionManageNicknames:     "Manage Nicknames",
	discordgo.PermissionManageRoles:         "Manage Roles",
	discordgo.PermissionManageWebhooks:      "Manage Webhooks",
	discordgo.PermissionModerateMembers:     "Moderate Members",
}

// MissingPermissions lists the labels of the bits in required absent from have.
func MissingPermissions(have, required int64) []string {
	var bits []int64
	for bit := range PermissionNames {
		if required&bit != 0 && have&bit == 0 {
			bits = append(bits, bit)
		}
	}
	sort.Slice(bits, func(i, j int) bool { return bits[i] < bits[j] })
	out := make([]string, 0, len(bits))
	for _, b := range bits {
		name := PermissionNames[b]
		if name == "" {
			name = fmt.Sprintf("0x%x", b)
		}
		out = append(out, name)
	}
	return out
}

// PermissionCheck decides whether a message author holds one level.
type PermissionCheck func(ctx context.Context, msg *Message) bool

// PermissionLevel is one rung of the 0-10 ladder. A Break level stops the
// climb when its check fails, so lower levels cannot be skipped past it.
type PermissionLevel struct {
	Break bool
	Check PermissionCheck
}

// PermissionLevels is the ladder commands declare their minimum against.
type PermissionLevels struct {
	levels [11]*PermissionLevel
}

// NewPermissionLevels returns an empty ladder.
func NewPermissionLevels() *PermissionLevels { return &PermissionLevels{} }

// Add sets level n.
func (p *PermissionLevels) Add(n int, check PermissionCheck, brk bool) *PermissionLevels {
	if n < 0 || n >= len(p.levels) {
		panic(fmt.Sprintf("permission level %d out of range", n))
	}
	p.levels[n] = &PermissionLevel{Break: brk, Check: check}
	return p
}

// Run climbs from min upward. broke reports that a break level stopped the
// climb; ok reports that some level at or above min passed.
func (p *PermissionLevels) Run(ctx context.Context, msg *Message, min int) (broke, ok bool) {
	if min < 0 {
		min = 0
	}
	for i := min; i < len(p.levels); i++ {
		level := p.levels[i]
		if level == nil {
			continue
		}
		if level.Check(ctx, msg) {
			return false, true
		}
		if level.Break {
			return true, false
		}
	}
	return false, false
}

// DefaultPermissionLevels is the stock ladder: everyone, server managers,
// server owner, bot owners.
func DefaultPermissionLevels() *PermissionLevels {
	return NewPermissionLevels().
		Add(0, func(context.Context, *Message) bool { return true }, false).
		Add(6, func(ctx context.Context, msg *Message) bool {
			if !msg.InGuild() || msg.Author == nil {
				return false
			}
			perms, err := msg.Client.Discord.ChannelPermissions(ctx, msg.Author.ID, msg.ChannelID)
			if err != nil {
				return false
			}
			return perms&(discordgo.PermissionManageGuild|discordgo.PermissionAdministrator) != 0
		}, false).
		Add(7, func(_ context.Context, msg *Message) bool {
			return msg.Guild != nil && msg.Author != nil && msg.Guild.OwnerID == msg.Author.ID
		}, false).
		Add(9, func(_ context.Context, msg *Message) bool {
			return msg.Client.IsOwner(msg.AuthorID())
		}, true).
		Add(10, func(_ context.Context, msg *Message) bool {
			return msg.Client.IsOwner(msg.AuthorID())
		}, false)
}

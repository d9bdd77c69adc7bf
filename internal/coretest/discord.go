// Package coretest provides in-memory fakes of the platform and the
// persistence layer for piece tests.
package coretest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
)

// ErrUnknown is returned by fetches of ids the fake does not hold.
var ErrUnknown = errors.New("unknown entity")

// SelfID is the bot user id of every fake.
const SelfID = "100000000000000000"

// Sent records one message posted through the fake.
type Sent struct {
	ChannelID string
	Data      *discordgo.MessageSend
	Message   *discordgo.Message
}

// Discord implements core.Discord over maps. Func fields override the
// default behaviour of the matching method.
type Discord struct {
	mu sync.Mutex

	Users    map[string]*discordgo.User
	Members  map[string]map[string]*discordgo.Member
	Channels map[string]*discordgo.Channel
	GuildMap map[string]*discordgo.Guild
	RoleMap  map[string][]*discordgo.Role
	Emojis   map[string]*discordgo.Emoji
	Messages map[string]*discordgo.Message
	// Permissions maps user id to the bits returned for every channel.
	Permissions map[string]int64

	SendFunc   func(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error)
	// DMFunc overrides UserChannel, e.g. to simulate closed DMs.
	DMFunc     func(userID string) (*discordgo.Channel, error)
	MemberFunc func(guildID, userID string) (*discordgo.Member, error)

	Sent         []Sent
	Edits        []string
	Deleted      []string
	Left         []string
	TypingStarts int
	TypingStops  int
	MemberCalls  int

	nextID int
}

var _ core.Discord = (*Discord)(nil)

// NewDiscord returns an empty fake knowing only the bot user.
func NewDiscord() *Discord {
	d := &Discord{
		Users:       map[string]*discordgo.User{},
		Members:     map[string]map[string]*discordgo.Member{},
		Channels:    map[string]*discordgo.Channel{},
		GuildMap:    map[string]*discordgo.Guild{},
		RoleMap:     map[string][]*discordgo.Role{},
		Emojis:      map[string]*discordgo.Emoji{},
		Messages:    map[string]*discordgo.Message{},
		Permissions: map[string]int64{},
		nextID:      900000000000000000,
	}
	d.AddUser(SelfID, "piecebot", true)
	d.Permissions[SelfID] = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages
	return d
}

// AddUser stores a user.
func (d *Discord) AddUser(id, name string, bot bool) *discordgo.User {
	u := &discordgo.User{ID: id, Username: name, Bot: bot}
	d.mu.Lock()
	d.Users[id] = u
	d.mu.Unlock()
	return u
}

// AddGuild stores a guild with one text channel of the same id and the bot
// as a cached member.
func (d *Discord) AddGuild(id, name, ownerID string) *discordgo.Guild {
	g := &discordgo.Guild{ID: id, Name: name, OwnerID: ownerID}
	d.mu.Lock()
	d.GuildMap[id] = g
	d.mu.Unlock()
	d.AddChannel(id, id, "general", discordgo.ChannelTypeGuildText)
	d.AddMember(id, SelfID)
	return g
}

// AddChannel stores a channel.
func (d *Discord) AddChannel(id, guildID, name string, typ discordgo.ChannelType) *discordgo.Channel {
	ch := &discordgo.Channel{ID: id, GuildID: guildID, Name: name, Type: typ}
	d.mu.Lock()
	d.Channels[id] = ch
	d.mu.Unlock()
	return ch
}

// AddMember stores a member of guildID for a known user.
func (d *Discord) AddMember(guildID, userID string) *discordgo.Member {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Members[guildID] == nil {
		d.Members[guildID] = map[string]*discordgo.Member{}
	}
	m := &discordgo.Member{GuildID: guildID, User: d.Users[userID]}
	d.Members[guildID][userID] = m
	return m
}

// AddRole stores a role of guildID.
func (d *Discord) AddRole(guildID, id, name string) *discordgo.Role {
	r := &discordgo.Role{ID: id, Name: name}
	d.mu.Lock()
	d.RoleMap[guildID] = append(d.RoleMap[guildID], r)
	d.mu.Unlock()
	return r
}

func (d *Discord) SelfID() string { return SelfID }

func (d *Discord) User(_ context.Context, userID string) (*discordgo.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.Users[userID]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %s: %w", userID, ErrUnknown)
}

func (d *Discord) Member(_ context.Context, guildID, userID string) (*discordgo.Member, error) {
	d.mu.Lock()
	d.MemberCalls++
	fn := d.MemberFunc
	d.mu.Unlock()
	if fn != nil {
		return fn(guildID, userID)
	}
	if m, ok := d.CachedMember(guildID, userID); ok {
		return m, nil
	}
	return nil, fmt.Errorf("member %s/%s: %w", guildID, userID, ErrUnknown)
}

func (d *Discord) CachedMember(guildID, userID string) (*discordgo.Member, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.Members[guildID][userID]
	return m, ok
}

func (d *Discord) Channel(_ context.Context, channelID string) (*discordgo.Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.Channels[channelID]; ok {
		return ch, nil
	}
	return nil, fmt.Errorf("channel %s: %w", channelID, ErrUnknown)
}

func (d *Discord) Guild(_ context.Context, guildID string) (*discordgo.Guild, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if g, ok := d.GuildMap[guildID]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("guild %s: %w", guildID, ErrUnknown)
}

func (d *Discord) Guilds() []*discordgo.Guild {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*discordgo.Guild, 0, len(d.GuildMap))
	for _, g := range d.GuildMap {
		out = append(out, g)
	}
	return out
}

func (d *Discord) Roles(_ context.Context, guildID string) ([]*discordgo.Role, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.GuildMap[guildID]; !ok {
		return nil, fmt.Errorf("guild %s: %w", guildID, ErrUnknown)
	}
	return append([]*discordgo.Role(nil), d.RoleMap[guildID]...), nil
}

func (d *Discord) Emoji(_ context.Context, emojiID string) (*discordgo.Emoji, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.Emojis[emojiID]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("emoji %s: %w", emojiID, ErrUnknown)
}

func (d *Discord) ChannelMessage(_ context.Context, channelID, messageID string) (*discordgo.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m, ok := d.Messages[messageID]; ok && m.ChannelID == channelID {
		return m, nil
	}
	return nil, fmt.Errorf("message %s: %w", messageID, ErrUnknown)
}

func (d *Discord) ChannelPermissions(_ context.Context, userID, channelID string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.Channels[channelID]; !ok {
		return 0, fmt.Errorf("channel %s: %w", channelID, ErrUnknown)
	}
	return d.Permissions[userID], nil
}

func (d *Discord) Send(_ context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	if d.SendFunc != nil {
		return d.SendFunc(channelID, data)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	msg := &discordgo.Message{
		ID:        strconv.Itoa(d.nextID),
		ChannelID: channelID,
		Content:   data.Content,
		Embeds:    data.Embeds,
		Author:    d.Users[SelfID],
		Timestamp: time.Now(),
	}
	d.Messages[msg.ID] = msg
	d.Sent = append(d.Sent, Sent{ChannelID: channelID, Data: data, Message: msg})
	return msg, nil
}

func (d *Discord) Edit(_ context.Context, channelID, messageID, content string) (*discordgo.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.Messages[messageID]
	if !ok || m.ChannelID != channelID {
		return nil, fmt.Errorf("message %s: %w", messageID, ErrUnknown)
	}
	edited := *m
	edited.Content = content
	now := time.Now()
	edited.EditedTimestamp = &now
	d.Messages[messageID] = &edited
	d.Edits = append(d.Edits, content)
	return &edited, nil
}

func (d *Discord) UserChannel(_ context.Context, userID string) (*discordgo.Channel, error) {
	if d.DMFunc != nil {
		return d.DMFunc(userID)
	}
	id := "dm-" + userID
	d.mu.Lock()
	ch, ok := d.Channels[id]
	d.mu.Unlock()
	if ok {
		return ch, nil
	}
	return d.AddChannel(id, "", "", discordgo.ChannelTypeDM), nil
}

func (d *Discord) Delete(_ context.Context, channelID, messageID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.Messages, messageID)
	d.Deleted = append(d.Deleted, messageID)
	return nil
}

func (d *Discord) StartTyping(string) func() {
	d.mu.Lock()
	d.TypingStarts++
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		d.TypingStops++
		d.mu.Unlock()
	}
}

func (d *Discord) LeaveGuild(_ context.Context, guildID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Left = append(d.Left, guildID)
	delete(d.GuildMap, guildID)
	return nil
}

func (d *Discord) Latency() time.Duration { return 42 * time.Millisecond }

// Contents returns the content of every sent message in order.
func (d *Discord) Contents() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.Sent))
	for i, s := range d.Sent {
		out[i] = s.Data.Content
	}
	return out
}

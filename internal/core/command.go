package core

import (
	"context"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Argument resolves one raw usage token into a typed value.
type Argument interface {
	Piece
	Run(ctx context.Context, raw string, p *Possible, msg *Message) (any, error)
}

// MultiArgument repeats a base resolver over every remaining token. The
// splitting is done by the prompter; the piece only names its base.
type MultiArgument interface {
	Argument
	Base() Argument
}

// Serializer validates, stores and displays one settings value type.
type Serializer interface {
	Piece
	Deserialize(ctx context.Context, raw any, sc *SerializerContext) (any, error)
	Serialize(value any) any
	Stringify(ctx context.Context, value any, sc *SerializerContext) string
}

// Run-in channel kinds.
const (
	RunInText = "text"
	RunInDM   = "dm"
)

// Cooldown levels.
const (
	CooldownAuthor  = "author"
	CooldownChannel = "channel"
	CooldownGuild   = "guild"
)

// CommandOptions carries everything the dispatcher and inhibitors need to
// know about a command besides its body.
type CommandOptions struct {
	PermissionLevel     int
	RunIn               []string
	Cooldown            time.Duration
	Bucket              int
	CooldownLevel       string
	NSFW                bool
	Hidden              bool
	Guarded             bool
	SubCommands         bool
	RequiredSettings    []string
	BotPermissions      int64
	Delimiter           string
	QuotedStringSupport bool
	ExtendedHelp        string
}

// RunsIn reports whether the command may run in the given channel kind.
func (o CommandOptions) RunsIn(kind string) bool {
	if len(o.RunIn) == 0 {
		return true
	}
	return slices.Contains(o.RunIn, kind)
}

// CooldownKey returns the bucket msg falls into for this command's cooldown
// level. Guild-level cooldowns fall back to the channel in DMs.
func (o CommandOptions) CooldownKey(msg *Message) string {
	switch o.CooldownLevel {
	case CooldownChannel:
		return msg.ChannelID
	case CooldownGuild:
		if msg.InGuild() {
			return msg.GuildID
		}
		return msg.ChannelID
	default:
		return msg.AuthorID()
	}
}

// Sweeper is implemented by pieces holding expiring state that the cleanup
// task prunes. Sweep returns the number of entries dropped.
type Sweeper interface {
	Sweep() int
}

// Command is a chat command.
type Command interface {
	Piece
	Description() string
	Category() string
	Usage() Usage
	Options() CommandOptions
	Run(ctx context.Context, msg *Message, params []any) (*discordgo.Message, error)
}

// CommandFunc is the body of a command or one of its sub-commands.
type CommandFunc func(ctx context.Context, msg *Message, params []any) (*discordgo.Message, error)

// SubCommander is implemented by commands with SubCommands set. The first
// resolved parameter selects the method.
type SubCommander interface {
	SubCommand(name string) (CommandFunc, bool)
}

// Event listens to one named client event.
type Event interface {
	Piece
	Event() string
	Run(ctx context.Context, payload any) error
}

// OnceEvent is unloaded after its first run.
type OnceEvent interface {
	Once() bool
}

// Inhibitor may block a command before it runs by returning an Inhibition.
type Inhibitor interface {
	Piece
	Run(ctx context.Context, msg *Message, cmd Command) error
}

// SpamProtector inhibitors are skipped in selective runs (help listings).
type SpamProtector interface {
	SpamProtection() bool
}

// Finalizer runs after a command completed successfully.
type Finalizer interface {
	Piece
	Run(ctx context.Context, msg *Message, cmd Command, response *discordgo.Message, elapsed time.Duration) error
}

// MonitorOptions filter which messages reach a monitor.
type MonitorOptions struct {
	IgnoreBots              bool
	IgnoreSelf              bool
	IgnoreOthers            bool
	IgnoreWebhooks          bool
	IgnoreEdits             bool
	IgnoreBlacklistedUsers  bool
	IgnoreBlacklistedGuilds bool
}

// Monitor sees every inbound message.
type Monitor interface {
	Piece
	Options() MonitorOptions
	Run(ctx context.Context, msg *Message) error
}

// Language resolves message keys for one locale.
type Language interface {
	Piece
	Get(key string, args ...any) string
	Has(key string) bool
}

// Record is one persisted settings document.
type Record map[string]any

// Provider persists settings records, one table per gateway.
type Provider interface {
	Piece
	HasTable(ctx context.Context, table string) (bool, error)
	CreateTable(ctx context.Context, table string) error
	DeleteTable(ctx context.Context, table string) error
	GetAll(ctx context.Context, table string) (map[string]Record, error)
	GetKeys(ctx context.Context, table string) ([]string, error)
	Get(ctx context.Context, table, id string) (Record, bool, error)
	Has(ctx context.Context, table, id string) (bool, error)
	Create(ctx context.Context, table, id string, data Record) error
	Update(ctx context.Context, table, id string, data Record) error
	Replace(ctx context.Context, table, id string, data Record) error
	Delete(ctx context.Context, table, id string) error
}

// Task is a unit of scheduled work.
type Task interface {
	Piece
	Run(ctx context.Context, data map[string]any) error
}

// Extendable names a capability that helper functions check before acting.
type Extendable interface {
	Piece
	AppliesTo() []string
}

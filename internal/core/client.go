package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/patrickmn/go-cache"
)

// Options are the client-wide knobs read from configuration.
type Options struct {
	Prefix                 []string
	RegexPrefix            *regexp.Regexp
	DefaultLanguage        string
	Owners                 []string
	Typing                 bool
	CommandEditing         bool
	CommandLogging         bool
	CommandMessageLifetime time.Duration
	NoPrefixDM             bool
	Slowmode               time.Duration
	SlowmodeAggressive     bool
	PreserveSettings       bool
	ProviderName           string
	EvalTimeout            time.Duration
	InvitePermissions      int64
}

// Console is the operator-facing log sink.
type Console interface {
	Log(format string, args ...any)
	Verbose(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Debug(format string, args ...any)
	WTF(format string, args ...any)
}

// Scheduler runs persisted task entries once the client is ready.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
}

// Client is the context every piece receives. It owns the stores, the
// settings gateways and the platform handle.
type Client struct {
	Options Options
	Discord Discord
	Console Console

	Arguments   *Store[Argument]
	Serializers *Store[Serializer]
	Commands    *Store[Command]
	Events      *Store[Event]
	Inhibitors  *Store[Inhibitor]
	Finalizers  *Store[Finalizer]
	Monitors    *Store[Monitor]
	Languages   *Store[Language]
	Providers   *Store[Provider]
	Tasks       *Store[Task]
	Extendables *Store[Extendable]

	Gateways         *Gateways
	PermissionLevels *PermissionLevels
	Prompter         *Prompter
	Schedule         Scheduler

	// Exit terminates the process; reboot calls it after shutdown.
	Exit func(code int)

	responses *cache.Cache
	startedAt time.Time

	mu    sync.Mutex
	ready bool
}

// NewClient wires empty stores and the stock gateways around d.
func NewClient(opts Options, d Discord, console Console) *Client {
	if len(opts.Prefix) == 0 {
		opts.Prefix = []string{"!"}
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "en-US"
	}
	if opts.ProviderName == "" {
		opts.ProviderName = "json"
	}

	lifetime := opts.CommandMessageLifetime
	if lifetime <= 0 {
		lifetime = cache.NoExpiration
	}

	c := &Client{
		Options:          opts,
		Discord:          d,
		Console:          console,
		Arguments:        NewStore[Argument]("arguments"),
		Serializers:      NewStore[Serializer]("serializers"),
		Commands:         NewStore[Command]("commands"),
		Events:           NewStore[Event]("events"),
		Inhibitors:       NewStore[Inhibitor]("inhibitors"),
		Finalizers:       NewStore[Finalizer]("finalizers"),
		Monitors:         NewStore[Monitor]("monitors"),
		Languages:        NewStore[Language]("languages"),
		Providers:        NewStore[Provider]("providers"),
		Tasks:            NewStore[Task]("tasks"),
		Extendables:      NewStore[Extendable]("extendables"),
		PermissionLevels: DefaultPermissionLevels(),
		Exit:             os.Exit,
		responses:        cache.New(lifetime, 0),
		startedAt:        time.Now(),
	}
	c.Arguments.client = c
	c.Serializers.client = c
	c.Commands.client = c
	c.Events.client = c
	c.Inhibitors.client = c
	c.Finalizers.client = c
	c.Monitors.client = c
	c.Languages.client = c
	c.Providers.client = c
	c.Tasks.client = c
	c.Extendables.client = c

	c.Prompter = &Prompter{client: c}
	c.Gateways = &Gateways{
		Guilds:        NewGateway(c, GatewayGuilds, GuildSchema(opts)),
		Users:         NewGateway(c, GatewayUsers, NewSchema()),
		ClientStorage: NewGateway(c, GatewayClientStorage, ClientSchema()),
	}
	return c
}

// GuildSchema is the stock per-guild schema.
func GuildSchema(opts Options) *Schema {
	var prefix any
	if len(opts.Prefix) == 1 {
		prefix = opts.Prefix[0]
	} else {
		list := make([]any, len(opts.Prefix))
		for i, p := range opts.Prefix {
			list[i] = p
		}
		prefix = list
	}
	return NewSchema().
		Add("prefix", "string", Default(prefix)).
		Add("language", "language", Default(opts.DefaultLanguage)).
		Add("disableNaturalPrefix", "boolean", Default(false)).
		Add("disabledCommands", "command", Array())
}

// ClientSchema is the stock schema of the bot-wide settings.
func ClientSchema() *Schema {
	return NewSchema().
		Add("userBlacklist", "user", Array()).
		Add("guildBlacklist", "string", Array()).
		Add("schedules", "any", Array(), Hidden())
}

// Stores returns every store in a fixed order.
func (c *Client) Stores() []AnyStore {
	return []AnyStore{
		c.Providers, c.Languages, c.Serializers, c.Arguments, c.Extendables,
		c.Commands, c.Inhibitors, c.Finalizers, c.Monitors, c.Events, c.Tasks,
	}
}

// Store finds a store by name.
func (c *Client) Store(name string) (AnyStore, bool) {
	k := key(name)
	for _, s := range c.Stores() {
		if key(s.Name()) == k {
			return s, true
		}
	}
	return nil, false
}

// IsOwner reports whether id belongs to a bot owner.
func (c *Client) IsOwner(id string) bool {
	return id != "" && slices.Contains(c.Options.Owners, id)
}

// Language returns the named language, falling back to the default one.
// It returns nil only when no language is loaded at all.
func (c *Client) Language(name string) Language {
	if name != "" {
		if l, ok := c.Languages.Get(name); ok && c.Languages.IsEnabled(name) {
			return l
		}
	}
	if l, ok := c.Languages.Get(c.Options.DefaultLanguage); ok {
		return l
	}
	if active := c.Languages.Active(); len(active) > 0 {
		return active[0]
	}
	return nil
}

// ClientSettings returns the bot-wide settings entry.
func (c *Client) ClientSettings() *Settings {
	return c.Gateways.ClientStorage.Acquire(c.Discord.SelfID())
}

// Uptime is the time since the client was built.
func (c *Client) Uptime() time.Duration { return time.Since(c.startedAt) }

// Ready reports whether Init completed.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Init initialises providers, syncs the gateways and then initialises every
// other piece. Errors are joined; the client is usable afterwards either way.
func (c *Client) Init(ctx context.Context) error {
	var errs []error
	if err := c.Providers.InitAll(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, g := range c.Gateways.All() {
		if err := g.Sync(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range []interface{ InitAll(context.Context) error }{
		c.Languages, c.Serializers, c.Arguments, c.Extendables, c.Commands,
		c.Inhibitors, c.Finalizers, c.Monitors, c.Events, c.Tasks,
	} {
		if err := s.InitAll(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Schedule != nil {
		if err := c.Schedule.Start(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	return errors.Join(errs...)
}

// Shutdown stops the scheduler and releases piece resources, providers last.
func (c *Client) Shutdown(ctx context.Context) error {
	if c.Schedule != nil {
		c.Schedule.Stop()
	}
	var errs []error
	for _, s := range []interface{ ShutdownAll(context.Context) error }{
		c.Tasks, c.Monitors, c.Commands, c.Events, c.Providers,
	} {
		if err := s.ShutdownAll(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit runs every enabled event piece listening to name. A failing listener
// is reported through eventError, except listeners of eventError itself.
func (c *Client) Emit(ctx context.Context, name string, payload any) {
	for _, ev := range c.Events.Active() {
		if ev.Event() != name {
			continue
		}
		err := ev.Run(ctx, payload)
		if once, ok := ev.(OnceEvent); ok && once.Once() {
			_ = c.Events.Unload(ev.Name())
		}
		if err != nil && name != EventEventError {
			c.Emit(ctx, EventEventError, &PieceError{Piece: ev, Err: err})
		}
	}
}

// Logf formats a line and emits it on one of the console events.
func (c *Client) Logf(ctx context.Context, event, format string, args ...any) {
	c.Emit(ctx, event, fmt.Sprintf(format, args...))
}

func (c *Client) trackResponse(messageID string, sent *discordgo.Message) {
	var list []*discordgo.Message
	if v, ok := c.responses.Get(messageID); ok {
		list = v.([]*discordgo.Message)
	}
	c.responses.SetDefault(messageID, append(list, sent))
}

// Responses returns the replies sent to the command message messageID.
func (c *Client) Responses(messageID string) []*discordgo.Message {
	if v, ok := c.responses.Get(messageID); ok {
		return v.([]*discordgo.Message)
	}
	return nil
}

// ForgetResponses drops the tracked replies of messageID.
func (c *Client) ForgetResponses(messageID string) {
	c.responses.Delete(messageID)
}

// SweepResponses drops tracked replies older than the message lifetime.
func (c *Client) SweepResponses() int {
	before := c.responses.ItemCount()
	c.responses.DeleteExpired()
	return before - c.responses.ItemCount()
}

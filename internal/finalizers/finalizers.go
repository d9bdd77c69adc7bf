// Package finalizers holds the hooks run after a command succeeded.
package finalizers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/inhibitors"
	"github.com/keshon/piecebot/internal/ratelimit"
)

// Register adds every finalizer to c.
func Register(c *core.Client) error {
	for _, f := range []func() core.Finalizer{
		func() core.Finalizer { return NewCommandCooldown() },
		func() core.Finalizer { return &CommandLogging{} },
	} {
		if err := c.Finalizers.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// commandCooldown
// =============================================================================

// CommandCooldown drips one token from the invoker's bucket of the command.
// Buckets are kept per command and dropped when the command leaves its store.
type CommandCooldown struct {
	core.NoAliases

	mu       sync.Mutex
	managers map[core.Command]*ratelimit.Manager
}

var _ inhibitors.CooldownTracker = (*CommandCooldown)(nil)

// NewCommandCooldown returns the finalizer with no buckets.
func NewCommandCooldown() *CommandCooldown {
	return &CommandCooldown{managers: make(map[core.Command]*ratelimit.Manager)}
}

func (f *CommandCooldown) Name() string { return inhibitors.CooldownFinalizer }

func (f *CommandCooldown) Init(_ context.Context, c *core.Client) error {
	c.Commands.OnRemove(f.Name(), f.forget)
	return nil
}

func (f *CommandCooldown) forget(cmd core.Command) {
	f.mu.Lock()
	delete(f.managers, cmd)
	f.mu.Unlock()
}

func (f *CommandCooldown) manager(cmd core.Command) *ratelimit.Manager {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.managers[cmd]
	if !ok {
		o := cmd.Options()
		bucket := o.Bucket
		if bucket < 1 {
			bucket = 1
		}
		m = ratelimit.NewManager(bucket, o.Cooldown)
		f.managers[cmd] = m
	}
	return m
}

func (f *CommandCooldown) Run(_ context.Context, msg *core.Message, cmd core.Command, _ *discordgo.Message, _ time.Duration) error {
	o := cmd.Options()
	if o.Cooldown <= 0 || msg.Client.IsOwner(msg.AuthorID()) {
		return nil
	}
	if err := f.manager(cmd).Acquire(o.CooldownKey(msg)).Drip(); err != nil {
		return fmt.Errorf("cooldown of %s: %w", cmd.Name(), err)
	}
	return nil
}

// Cooldown returns the bucket key holds for cmd, if it was ever dripped.
func (f *CommandCooldown) Cooldown(cmd core.Command, key string) (*ratelimit.RateLimit, bool) {
	f.mu.Lock()
	m, ok := f.managers[cmd]
	f.mu.Unlock()
	if !ok {
		return nil, false
	}
	return m.Get(key)
}

// Tracked returns the number of commands holding buckets.
func (f *CommandCooldown) Tracked() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.managers)
}

// Sweep drops refilled buckets and the managers left empty.
func (f *CommandCooldown) Sweep() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for cmd, m := range f.managers {
		n += m.Sweep()
		if m.Len() == 0 {
			delete(f.managers, cmd)
		}
	}
	return n
}

// =============================================================================
// commandLogging
// =============================================================================

// CommandLogging writes one log line per command when CommandLogging is on.
type CommandLogging struct{ core.NoAliases }

func (f *CommandLogging) Name() string { return "commandLogging" }

func (f *CommandLogging) Run(ctx context.Context, msg *core.Message, cmd core.Command, _ *discordgo.Message, elapsed time.Duration) error {
	if !msg.Client.Options.CommandLogging {
		return nil
	}
	where := "Direct Messages"
	if msg.Guild != nil {
		where = fmt.Sprintf("%s[%s]", msg.Guild.Name, msg.Guild.ID)
	} else if msg.InGuild() {
		where = "[" + msg.GuildID + "]"
	}
	author := msg.AuthorID()
	if msg.Author != nil {
		author = fmt.Sprintf("%s[%s]", msg.Author.Username, msg.Author.ID)
	}
	msg.Client.Logf(ctx, core.EventLog, "%s(%s) ran by %s in %s took %s",
		cmd.Name(), formatParams(msg.Params), author, where, elapsed.Round(time.Microsecond))
	return nil
}

func formatParams(params []any) string {
	parts := make([]string, len(params))
	for i, p := range params {
		switch v := p.(type) {
		case nil:
			parts[i] = "null"
		case core.Piece:
			parts[i] = v.Name()
		case *discordgo.User:
			parts[i] = v.Username
		case *discordgo.Channel:
			parts[i] = "#" + v.Name
		case *discordgo.Role:
			parts[i] = "@" + v.Name
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, ", ")
}

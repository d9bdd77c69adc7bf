package inhibitors

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/ratelimit"
	"github.com/keshon/piecebot/pkg/util"
)

// CooldownFinalizer names the finalizer whose buckets Cooldown reads.
const CooldownFinalizer = "commandCooldown"

// CooldownTracker is implemented by the finalizer that drips cooldown
// buckets after each successful command.
type CooldownTracker interface {
	Cooldown(cmd core.Command, key string) (*ratelimit.RateLimit, bool)
}

// Cooldown blocks a command while the author's bucket for it is empty.
type Cooldown struct{ named }

func (i *Cooldown) SpamProtection() bool { return true }

func (i *Cooldown) Run(_ context.Context, msg *core.Message, cmd core.Command) error {
	o := cmd.Options()
	if o.Cooldown <= 0 || msg.Client.IsOwner(msg.AuthorID()) {
		return nil
	}
	fin, ok := msg.Client.Finalizers.Get(CooldownFinalizer)
	if !ok || !msg.Client.Finalizers.IsEnabled(CooldownFinalizer) {
		return nil
	}
	tracker, ok := fin.(CooldownTracker)
	if !ok {
		return nil
	}
	rl, ok := tracker.Cooldown(cmd, o.CooldownKey(msg))
	if !ok || !rl.Limited() {
		return nil
	}
	return inhibit(msg, "INHIBITOR_COOLDOWN", util.FormatDuration(ceilSeconds(rl.RemainingTime())))
}

func ceilSeconds(d time.Duration) time.Duration {
	return time.Duration(math.Ceil(d.Seconds())) * time.Second
}

// Slowmode allows one command per user per slowmode window. With the
// aggressive option every attempt during the window restarts it.
type Slowmode struct {
	named

	mu      sync.Mutex
	manager *ratelimit.Manager
}

// NewSlowmode returns the slowmode inhibitor.
func NewSlowmode() *Slowmode { return &Slowmode{named: named{name: "slowmode"}} }

func (i *Slowmode) SpamProtection() bool { return true }

func (i *Slowmode) buckets(c *core.Client) *ratelimit.Manager {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.manager == nil && c.Options.Slowmode > 0 {
		i.manager = ratelimit.NewManager(1, c.Options.Slowmode)
	}
	return i.manager
}

func (i *Slowmode) Run(_ context.Context, msg *core.Message, _ core.Command) error {
	m := i.buckets(msg.Client)
	if m == nil || msg.Client.IsOwner(msg.AuthorID()) {
		return nil
	}
	rl := m.Acquire(msg.AuthorID())
	if err := rl.Drip(); err != nil {
		if msg.Client.Options.SlowmodeAggressive {
			rl.ResetTime()
		}
		return core.Silent()
	}
	return nil
}

// Sweep drops the buckets of users whose window has passed.
func (i *Slowmode) Sweep() int {
	i.mu.Lock()
	m := i.manager
	i.mu.Unlock()
	if m == nil {
		return 0
	}
	return m.Sweep()
}

package general

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/extendables"
	"github.com/keshon/piecebot/pkg/util"
)

type StatsCommand struct{}

func (c *StatsCommand) Name() string                 { return "stats" }
func (c *StatsCommand) Aliases() []string            { return []string{"stat"} }
func (c *StatsCommand) Description() string          { return "COMMAND_STATS_DESCRIPTION" }
func (c *StatsCommand) Category() string             { return category }
func (c *StatsCommand) Usage() core.Usage            { return nil }
func (c *StatsCommand) Options() core.CommandOptions { return core.CommandOptions{} }

// Run reports process and host figures. Host readings that fail show "n/a".
func (c *StatsCommand) Run(ctx context.Context, msg *core.Message, _ []any) (*discordgo.Message, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	sysMem, cpuLoad, hostUp := "n/a", "n/a", "n/a"
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sysMem = fmt.Sprintf("%.1f", vm.UsedPercent)
	}
	if load, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(load) > 0 {
		cpuLoad = fmt.Sprintf("%.1f", load[0])
	}
	if up, err := host.UptimeWithContext(ctx); err == nil {
		hostUp = util.FormatDuration(time.Duration(up) * time.Second)
	}

	users, channels := 0, 0
	guilds := msg.Client.Discord.Guilds()
	for _, g := range guilds {
		users += g.MemberCount
		channels += len(g.Channels)
	}

	text := msg.Language().Get("COMMAND_STATS",
		fmt.Sprintf("%.2f", float64(ms.HeapAlloc)/1024/1024),
		sysMem,
		cpuLoad,
		util.FormatDuration(msg.Client.Uptime()),
		hostUp,
		users,
		len(guilds),
		channels,
		discordgo.VERSION,
		runtime.Version(),
	)
	return extendables.SendCode(ctx, msg, "asciidoc", text)
}

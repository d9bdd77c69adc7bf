// Package general holds the commands every user can run: help, info,
// invite, ping and stats.
package general

import (
	"github.com/keshon/piecebot/internal/core"
)

const category = "General"

// Register adds every general command to c.
func Register(c *core.Client) error {
	factories := []func() core.Command{
		func() core.Command { return &HelpCommand{} },
		func() core.Command { return &InfoCommand{} },
		func() core.Command { return &InviteCommand{} },
		func() core.Command { return &PingCommand{} },
		func() core.Command { return &StatsCommand{} },
	}
	for _, f := range factories {
		if err := c.Commands.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// localized resolves a description key, passing plain text through.
func localized(lang core.Language, s string) string {
	if lang != nil && lang.Has(s) {
		return lang.Get(s)
	}
	return s
}

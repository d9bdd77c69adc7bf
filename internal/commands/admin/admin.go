// Package admin holds the owner-only commands: piece management, settings,
// the blacklist and the evaluator.
//
// Example usage:
//
//	c := core.NewClient(opts, discord, console)
//	if err := admin.Register(c); err != nil {
//		log.Fatal(err)
//	}
package admin

import (
	"strings"
	"time"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/pkg/util"
)

const category = "Admin"

// ownerLevel is the permission level reserved for bot owners.
const ownerLevel = 10

// Register adds every admin command to c.
func Register(c *core.Client) error {
	factories := []func() core.Command{
		func() core.Command { return &BlacklistCommand{} },
		func() core.Command { return NewConfCommand() },
		func() core.Command { return NewUserConfCommand() },
		func() core.Command { return &DisableCommand{} },
		func() core.Command { return &EnableCommand{} },
		func() core.Command { return &EvalCommand{} },
		func() core.Command { return &LoadCommand{} },
		func() core.Command { return &UnloadCommand{} },
		func() core.Command { return &ReloadCommand{} },
		func() core.Command { return &RebootCommand{} },
	}
	for _, f := range factories {
		if err := c.Commands.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// storeOf finds the store holding p.
func storeOf(c *core.Client, p core.Piece) (core.AnyStore, bool) {
	for _, s := range c.Stores() {
		if live, ok := s.Lookup(p.Name()); ok && live == p {
			return s, true
		}
	}
	return nil, false
}

// kind is the singular store name shown in replies, e.g. "command".
func kind(s core.AnyStore) string {
	return strings.TrimSuffix(s.Name(), "s")
}

func took(start time.Time) string {
	return util.FormatDuration(time.Since(start).Round(time.Millisecond))
}

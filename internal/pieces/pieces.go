// Package pieces registers the stock piece packages on a client. Languages
// and providers are left to the caller since they depend on configuration.
package pieces

import (
	"fmt"

	"github.com/keshon/piecebot/internal/arguments"
	"github.com/keshon/piecebot/internal/commands/admin"
	"github.com/keshon/piecebot/internal/commands/general"
	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/events"
	"github.com/keshon/piecebot/internal/extendables"
	"github.com/keshon/piecebot/internal/finalizers"
	"github.com/keshon/piecebot/internal/inhibitors"
	"github.com/keshon/piecebot/internal/monitors"
	"github.com/keshon/piecebot/internal/serializers"
	"github.com/keshon/piecebot/internal/tasks"
)

type registrar struct {
	name string
	fn   func(*core.Client) error
}

var stock = []registrar{
	{"arguments", arguments.Register},
	{"serializers", serializers.Register},
	{"extendables", extendables.Register},
	{"inhibitors", inhibitors.Register},
	{"finalizers", finalizers.Register},
	{"monitors", monitors.Register},
	{"events", events.Register},
	{"tasks", tasks.Register},
	{"admin commands", admin.Register},
	{"general commands", general.Register},
}

// Register adds every stock piece to c.
func Register(c *core.Client) error {
	for _, r := range stock {
		if err := r.fn(c); err != nil {
			return fmt.Errorf("register %s: %w", r.name, err)
		}
	}
	return nil
}

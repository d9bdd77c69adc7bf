package core

import "context"

// Piece is any unit held by a Store: an argument, a command, an event...
type Piece interface {
	Name() string
	Aliases() []string
}

// Initializer is implemented by pieces that need the client before they run.
type Initializer interface {
	Init(ctx context.Context, c *Client) error
}

// Enabler is notified when its store enables it.
type Enabler interface {
	OnEnable()
}

// Disabler is notified when its store disables it.
type Disabler interface {
	OnDisable()
}

// Shutdowner releases resources when the client shuts down.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Guarded pieces can be neither disabled nor unloaded.
type Guarded interface {
	Guarded() bool
}

// DisabledByDefault pieces are loaded but start disabled.
type DisabledByDefault interface {
	DisabledByDefault() bool
}

// NoAliases can be embedded by pieces that answer to their name only.
type NoAliases struct{}

func (NoAliases) Aliases() []string { return nil }

func isGuarded(p Piece) bool {
	g, ok := p.(Guarded)
	return ok && g.Guarded()
}

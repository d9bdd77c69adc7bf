package arguments

import (
	"context"
	"strings"

	"github.com/keshon/piecebot/internal/core"
)

type pieceKind struct {
	name    string
	aliases []string
	store   func(*core.Client) core.AnyStore
}

var pieceKinds = []pieceKind{
	{"command", []string{"cmd"}, func(c *core.Client) core.AnyStore { return c.Commands }},
	{"event", nil, func(c *core.Client) core.AnyStore { return c.Events }},
	{"task", nil, func(c *core.Client) core.AnyStore { return c.Tasks }},
	{"provider", nil, func(c *core.Client) core.AnyStore { return c.Providers }},
	{"inhibitor", nil, func(c *core.Client) core.AnyStore { return c.Inhibitors }},
	{"finalizer", nil, func(c *core.Client) core.AnyStore { return c.Finalizers }},
	{"monitor", nil, func(c *core.Client) core.AnyStore { return c.Monitors }},
	{"language", nil, func(c *core.Client) core.AnyStore { return c.Languages }},
	{"serializer", nil, func(c *core.Client) core.AnyStore { return c.Serializers }},
	{"extendable", nil, func(c *core.Client) core.AnyStore { return c.Extendables }},
	{"argument", nil, func(c *core.Client) core.AnyStore { return c.Arguments }},
}

// Piece resolves a name in one store.
type Piece struct {
	named
	store func(*core.Client) core.AnyStore
}

func newPieceArgument(k pieceKind) *Piece {
	return &Piece{named: named{k.name, k.aliases}, store: k.store}
}

func (a *Piece) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if piece, ok := a.store(msg.Client).Lookup(raw); ok {
		return piece, nil
	}
	return nil, msg.Errorf("RESOLVER_INVALID_PIECE", p.Name, a.name)
}

// AnyPiece resolves a name in every store, in store order.
type AnyPiece struct{ named }

func (a *AnyPiece) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	for _, s := range msg.Client.Stores() {
		if piece, ok := s.Lookup(raw); ok {
			return piece, nil
		}
	}
	return nil, msg.Errorf("RESOLVER_INVALID_PIECE", p.Name, a.name)
}

// Store resolves a store name, singular or plural.
type Store struct{ named }

func (a *Store) Run(_ context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	if s, ok := msg.Client.Store(raw); ok {
		return s, nil
	}
	if s, ok := msg.Client.Store(strings.ToLower(raw) + "s"); ok {
		return s, nil
	}
	return nil, msg.Errorf("RESOLVER_INVALID_STORE", p.Name)
}

// Multi resolves every remaining token through its base resolver. The
// prompter does the splitting; Run alone resolves a single token.
type Multi struct {
	name   string
	base   string
	client *core.Client
}

func (a *Multi) Name() string      { return a.name }
func (a *Multi) Aliases() []string { return nil }

// Base returns the live single-value resolver, or nil when it is unloaded.
func (a *Multi) Base() core.Argument {
	arg, ok := a.client.Arguments.Get(a.base)
	if !ok {
		return nil
	}
	return arg
}

func (a *Multi) Run(ctx context.Context, raw string, p *core.Possible, msg *core.Message) (any, error) {
	base := a.Base()
	if base == nil {
		return nil, msg.Errorf("RESOLVER_INVALID_PIECE", p.Name, "argument")
	}
	return base.Run(ctx, raw, p, msg)
}

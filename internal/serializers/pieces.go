package serializers

import (
	"context"
	"fmt"

	"github.com/keshon/piecebot/internal/core"
)

// Piece serializers store piece names.

func pieceName(v any) string {
	if p, ok := v.(core.Piece); ok {
		return p.Name()
	}
	return fmt.Sprint(v)
}

type Command struct{ named }

func (s *Command) Deserialize(_ context.Context, raw any, sc *core.SerializerContext) (any, error) {
	if cmd, ok := sc.Client.Commands.Get(pieceName(raw)); ok {
		return cmd, nil
	}
	return nil, sc.Errorf("RESOLVER_INVALID_PIECE", sc.Entry.Key, "command")
}
func (s *Command) Serialize(v any) any { return pieceName(v) }
func (s *Command) Stringify(_ context.Context, v any, _ *core.SerializerContext) string {
	return pieceName(v)
}

type Language struct{ named }

func (s *Language) Deserialize(_ context.Context, raw any, sc *core.SerializerContext) (any, error) {
	if lang, ok := sc.Client.Languages.Get(pieceName(raw)); ok {
		return lang, nil
	}
	return nil, sc.Errorf("RESOLVER_INVALID_PIECE", sc.Entry.Key, "language")
}
func (s *Language) Serialize(v any) any { return pieceName(v) }
func (s *Language) Stringify(_ context.Context, v any, _ *core.SerializerContext) string {
	return pieceName(v)
}

// Piece accepts a name from any store.
type Piece struct{ named }

func (s *Piece) Deserialize(_ context.Context, raw any, sc *core.SerializerContext) (any, error) {
	name := pieceName(raw)
	for _, store := range sc.Client.Stores() {
		if p, ok := store.Lookup(name); ok {
			return p, nil
		}
	}
	return nil, sc.Errorf("RESOLVER_INVALID_PIECE", sc.Entry.Key, "piece")
}
func (s *Piece) Serialize(v any) any { return pieceName(v) }
func (s *Piece) Stringify(_ context.Context, v any, _ *core.SerializerContext) string {
	return pieceName(v)
}

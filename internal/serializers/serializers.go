// Package serializers validates, stores and displays settings values. Each
// serializer stores a stable identifier and renders a human label.
package serializers

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/keshon/piecebot/internal/arguments"
	"github.com/keshon/piecebot/internal/core"
)

type named struct {
	name    string
	aliases []string
}

func (n named) Name() string      { return n.name }
func (n named) Aliases() []string { return n.aliases }

// Register adds every serializer to c.
func Register(c *core.Client) error {
	for _, f := range []func() core.Serializer{
		func() core.Serializer { return &Any{named{"any", nil}} },
		func() core.Serializer { return &Boolean{named{"boolean", []string{"bool"}}} },
		func() core.Serializer { return &Integer{named{"integer", []string{"int"}}} },
		func() core.Serializer { return &Float{named{"float", nil}} },
		func() core.Serializer { return &Float{named{"number", []string{"num"}}} },
		func() core.Serializer { return &String{named{"string", []string{"str"}}} },
		func() core.Serializer { return &URL{named{"url", nil}} },
		func() core.Serializer { return &User{named{"user", nil}} },
		func() core.Serializer { return &Guild{named{"guild", nil}} },
		func() core.Serializer { return &Channel{named: named{"channel", nil}} },
		func() core.Serializer { return &Channel{named: named{"textchannel", nil}, kinds: textKinds} },
		func() core.Serializer { return &Channel{named: named{"voicechannel", nil}, kinds: voiceKinds} },
		func() core.Serializer { return &Channel{named: named{"categorychannel", nil}, kinds: categoryKinds} },
		func() core.Serializer { return &Role{named{"role", nil}} },
		func() core.Serializer { return &Emoji{named{"emoji", nil}} },
		func() core.Serializer { return &Command{named{"command", nil}} },
		func() core.Serializer { return &Language{named{"language", nil}} },
		func() core.Serializer { return &Piece{named{"piece", nil}} },
	} {
		if err := c.Serializers.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// Any stores values untouched.
type Any struct{ named }

func (s *Any) Deserialize(_ context.Context, raw any, _ *core.SerializerContext) (any, error) {
	return raw, nil
}
func (s *Any) Serialize(v any) any { return v }
func (s *Any) Stringify(_ context.Context, v any, _ *core.SerializerContext) string {
	return fmt.Sprint(v)
}

type Boolean struct{ named }

func (s *Boolean) Deserialize(_ context.Context, raw any, sc *core.SerializerContext) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		if b, ok := arguments.ParseBool(v); ok {
			return b, nil
		}
	}
	return nil, sc.Errorf("RESOLVER_INVALID_BOOL", sc.Entry.Key)
}
func (s *Boolean) Serialize(v any) any { return v }
func (s *Boolean) Stringify(_ context.Context, v any, sc *core.SerializerContext) string {
	key, text := "SETTING_GATEWAY_DISABLED", "Disabled"
	if b, ok := v.(bool); ok && b {
		key, text = "SETTING_GATEWAY_ENABLED", "Enabled"
	}
	if sc == nil || sc.Language == nil {
		return text
	}
	return sc.Language.Get(key)
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

type Integer struct{ named }

// Deserialize also accepts float64 holding integers, the way JSON reads
// stored values back.
func (s *Integer) Deserialize(_ context.Context, raw any, sc *core.SerializerContext) (any, error) {
	f, ok := toFloat(raw)
	if !ok || !arguments.IsInteger(f) {
		return nil, sc.Errorf("RESOLVER_INVALID_INT", sc.Entry.Key)
	}
	if err := core.CheckBounds(sc.Language, sc.Entry.Key, f, sc.Entry.Min, sc.Entry.Max, ""); err != nil {
		return nil, err
	}
	return int(f), nil
}
func (s *Integer) Serialize(v any) any { return v }
func (s *Integer) Stringify(_ context.Context, v any, _ *core.SerializerContext) string {
	return fmt.Sprint(v)
}

type Float struct{ named }

func (s *Float) Deserialize(_ context.Context, raw any, sc *core.SerializerContext) (any, error) {
	f, ok := toFloat(raw)
	if !ok || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, sc.Errorf("RESOLVER_INVALID_FLOAT", sc.Entry.Key)
	}
	if err := core.CheckBounds(sc.Language, sc.Entry.Key, f, sc.Entry.Min, sc.Entry.Max, ""); err != nil {
		return nil, err
	}
	return f, nil
}
func (s *Float) Serialize(v any) any { return v }
func (s *Float) Stringify(_ context.Context, v any, _ *core.SerializerContext) string {
	return fmt.Sprint(v)
}

type String struct{ named }

func (s *String) Deserialize(_ context.Context, raw any, sc *core.SerializerContext) (any, error) {
	str, ok := raw.(string)
	if !ok || str == "" {
		return nil, sc.Errorf("RESOLVER_INVALID_STRING", sc.Entry.Key)
	}
	suffix := ""
	if sc.Language != nil {
		suffix = sc.Language.Get("RESOLVER_STRING_SUFFIX")
	}
	if err := core.CheckBounds(sc.Language, sc.Entry.Key, float64(utf8.RuneCountInString(str)), sc.Entry.Min, sc.Entry.Max, suffix); err != nil {
		return nil, err
	}
	return str, nil
}
func (s *String) Serialize(v any) any { return v }
func (s *String) Stringify(_ context.Context, v any, _ *core.SerializerContext) string {
	return fmt.Sprint(v)
}

type URL struct{ named }

func (s *URL) Deserialize(_ context.Context, raw any, sc *core.SerializerContext) (any, error) {
	str, _ := raw.(string)
	u, err := url.Parse(str)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, sc.Errorf("RESOLVER_INVALID_URL", sc.Entry.Key)
	}
	return str, nil
}
func (s *URL) Serialize(v any) any { return v }
func (s *URL) Stringify(_ context.Context, v any, _ *core.SerializerContext) string {
	return fmt.Sprint(v)
}

// Package arguments holds the usage resolvers: each turns one raw token into
// a typed value or a localized error.
package arguments

import (
	"time"

	"github.com/keshon/piecebot/internal/core"
)

// now is the clock of the date and time resolvers.
var now = time.Now

type named struct {
	name    string
	aliases []string
}

func (n named) Name() string      { return n.name }
func (n named) Aliases() []string { return n.aliases }

// MinOrMax checks value against the bounds of p. It returns nil when value is
// inside or p has no bounds.
func MinOrMax(msg *core.Message, value float64, p *core.Possible, suffix string) error {
	return core.CheckBounds(msg.Language(), p.Name, value, p.Min, p.Max, suffix)
}

// Register adds every resolver to c.
func Register(c *core.Client) error {
	factories := []func() core.Argument{
		func() core.Argument { return &Boolean{named{"boolean", []string{"bool"}}} },
		func() core.Argument { return &Integer{named{"integer", []string{"int"}}} },
		func() core.Argument { return &Float{named{"float", []string{"num", "number"}}} },
		func() core.Argument { return &String{named{"string", []string{"str"}}} },
		func() core.Argument { return &Literal{named{"literal", nil}} },
		func() core.Argument { return &Regex{named{"regex", []string{"reg", "regexp"}}} },
		func() core.Argument { return &URL{named{"url", []string{"hyperlink"}}} },
		func() core.Argument { return &Default{named{"default", nil}} },
		func() core.Argument { return &Date{named{"date", nil}} },
		func() core.Argument { return &Duration{named{"duration", nil}} },
		func() core.Argument { return &Time{named{"time", nil}} },

		func() core.Argument { return &User{named{"user", []string{"mention"}}} },
		func() core.Argument { return &Member{named{"member", nil}} },
		func() core.Argument { return &Channel{named: named{"channel", nil}} },
		func() core.Argument { return &Channel{named: named{"textchannel", nil}, kinds: textKinds} },
		func() core.Argument { return &Channel{named: named{"voicechannel", nil}, kinds: voiceKinds} },
		func() core.Argument { return &Channel{named: named{"categorychannel", nil}, kinds: categoryKinds} },
		func() core.Argument { return &Channel{named: named{"dmchannel", nil}, kinds: dmKinds} },
		func() core.Argument { return &Guild{named{"guild", nil}} },
		func() core.Argument { return &Role{named{"role", nil}} },
		func() core.Argument { return &Emoji{named{"emoji", nil}} },
		func() core.Argument { return &Message{named{"message", []string{"msg"}}} },

		func() core.Argument { return &Store{named{"store", nil}} },
		func() core.Argument { return &AnyPiece{named{"piece", nil}} },
	}
	for _, kind := range pieceKinds {
		factories = append(factories, func() core.Argument { return newPieceArgument(kind) })
	}
	for _, base := range []string{"user", "member", "role", "channel", "string", "integer", "float", "command", "piece"} {
		factories = append(factories, func() core.Argument { return &Multi{name: "..." + base, base: base, client: c} })
	}

	for _, f := range factories {
		if err := c.Arguments.Register(f); err != nil {
			return err
		}
	}
	return nil
}

package core

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Prompter resolves a command's usage tags against the message content.
// Invalid input fails immediately; there is no interactive reprompt.
type Prompter struct {
	client *Client
}

// ArgString returns the raw text following the prefix and command name.
func ArgString(msg *Message) string {
	if msg.PrefixLength > len(msg.Content) {
		return ""
	}
	rest := strings.TrimLeftFunc(msg.Content[msg.PrefixLength:], unicode.IsSpace)
	if len(msg.CommandText) <= len(rest) && strings.EqualFold(rest[:len(msg.CommandText)], msg.CommandText) {
		rest = rest[len(msg.CommandText):]
	}
	return strings.TrimSpace(rest)
}

// Tokenize splits s on delimiter, or on whitespace when delimiter is blank.
// With quoted set, double-quoted runs stay in one token and lose their quotes.
func Tokenize(s, delimiter string, quoted bool) []string {
	spans := tokenize(s, delimiter, quoted)
	if len(spans) == 0 {
		return nil
	}
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = sp.text
	}
	return out
}

// span is a token and the byte offset in the source where it starts.
type span struct {
	text  string
	start int
}

func tokenize(s, delimiter string, quoted bool) []span {
	var out []span
	if strings.TrimSpace(delimiter) != "" && !quoted {
		pos := 0
		for {
			end := len(s)
			idx := strings.Index(s[pos:], delimiter)
			if idx >= 0 {
				end = pos + idx
			}
			part := s[pos:end]
			if text := strings.TrimSpace(part); text != "" {
				lead := len(part) - len(strings.TrimLeftFunc(part, unicode.IsSpace))
				out = append(out, span{text: text, start: pos + lead})
			}
			if idx < 0 {
				return out
			}
			pos = end + len(delimiter)
		}
	}

	isSep := unicode.IsSpace
	if d := strings.TrimSpace(delimiter); d != "" {
		isSep = func(r rune) bool { return strings.ContainsRune(d, r) }
	}

	var (
		cur     strings.Builder
		inQuote bool
		hasTok  bool
		start   = -1
	)
	flush := func() {
		if hasTok {
			out = append(out, span{text: strings.TrimSpace(cur.String()), start: start})
		}
		cur.Reset()
		hasTok = false
		start = -1
	}
	for i, r := range s {
		switch {
		case quoted && r == '"':
			if inQuote {
				inQuote = false
				hasTok = true
				continue
			}
			if !hasTok {
				inQuote = true
				start = i
				continue
			}
			cur.WriteRune(r)
		case !inQuote && isSep(r):
			flush()
		default:
			if start < 0 {
				start = i
			}
			cur.WriteRune(r)
			hasTok = true
		}
	}
	flush()
	return out
}

// Run resolves every tag of cmd's usage and returns the parameters in tag
// order. Skipped optional tags yield nil.
func (p *Prompter) Run(ctx context.Context, msg *Message, cmd Command) ([]any, error) {
	opts := cmd.Options()
	args := ArgString(msg)
	spans := tokenize(args, opts.Delimiter, opts.QuotedStringSupport)
	tokens := make([]string, len(spans))
	for k, sp := range spans {
		tokens[k] = sp.text
	}

	var params []any
	i := 0
	for _, tag := range cmd.Usage() {
		if len(tag.Possibles) == 0 {
			continue
		}
		remaining := tokens[min(i, len(tokens)):]

		if len(remaining) == 0 {
			if tag.Required {
				return params, msg.Errorf("COMMANDMESSAGE_MISSING_REQUIRED", tag.Possibles[0].Name)
			}
			params = append(params, nil)
			continue
		}

		switch {
		case tag.Rest:
			// Rest tags see the original text, quotes and spacing included.
			v, err := p.resolveTag(ctx, msg, tag, strings.TrimSpace(args[spans[i].start:]))
			if err != nil {
				if tag.Required {
					return params, err
				}
				params = append(params, nil)
				continue
			}
			params = append(params, v)
			i = len(tokens)

		case tag.Repeat:
			for _, raw := range remaining {
				v, err := p.resolveTag(ctx, msg, tag, raw)
				if err != nil {
					return params, err
				}
				params = append(params, v)
			}
			i = len(tokens)

		default:
			v, consumed, err := p.resolveMulti(ctx, msg, tag, remaining)
			if err != nil {
				if tag.Required {
					return params, err
				}
				params = append(params, nil)
				continue
			}
			params = append(params, v)
			i += consumed
		}
	}
	return params, nil
}

// resolveMulti handles tags whose first matching possible is a multi argument;
// those consume every remaining token. Other tags consume one.
func (p *Prompter) resolveMulti(ctx context.Context, msg *Message, tag Tag, remaining []string) (any, int, error) {
	for _, pos := range tag.Possibles {
		arg, ok := p.argument(pos.Type)
		if !ok {
			continue
		}
		multi, ok := arg.(MultiArgument)
		if !ok {
			continue
		}
		base := multi.Base()
		if base == nil {
			return nil, 0, fmt.Errorf("argument %q has no base resolver: %w", pos.Type, ErrNotFound)
		}
		values := make([]any, 0, len(remaining))
		for _, raw := range remaining {
			v, err := base.Run(ctx, raw, pos, msg)
			if err != nil {
				return nil, 0, err
			}
			values = append(values, v)
		}
		return values, len(remaining), nil
	}
	v, err := p.resolveTag(ctx, msg, tag, remaining[0])
	return v, 1, err
}

// resolveTag tries the possibles of tag in order against raw.
func (p *Prompter) resolveTag(ctx context.Context, msg *Message, tag Tag, raw string) (any, error) {
	var lastErr error
	for _, pos := range tag.Possibles {
		arg, ok := p.argument(pos.Type)
		if !ok {
			lastErr = fmt.Errorf("argument type %q: %w", pos.Type, ErrNotFound)
			continue
		}
		v, err := arg.Run(ctx, raw, pos, msg)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	if len(tag.Possibles) > 1 {
		names := make([]string, len(tag.Possibles))
		for i, pos := range tag.Possibles {
			names[i] = pos.Name
		}
		return nil, msg.Errorf("COMMANDMESSAGE_NOMATCH", strings.Join(names, ", "))
	}
	return nil, lastErr
}

func (p *Prompter) argument(typ string) (Argument, bool) {
	arg, ok := p.client.Arguments.Get(typ)
	if !ok || !p.client.Arguments.IsEnabled(typ) {
		return nil, false
	}
	return arg, true
}

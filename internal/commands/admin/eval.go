package admin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dop251/goja"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/extendables"
	"github.com/keshon/piecebot/pkg/util"
)

const (
	defaultEvalTimeout = 10 * time.Second
	maxEvalOutput      = 1900
)

var evalFlag = regexp.MustCompile(`(?:^|\s)--(silent|async)\b`)

// inspectJS renders a value and names its type the way a REPL would.
const inspectJS = `(function (v) {
	var type = v === null ? 'null' : (typeof v === 'object' && v.constructor ? v.constructor.name : typeof v);
	var text;
	if (v instanceof Error) {
		text = String(v);
	} else if (typeof v === 'object' && v !== null) {
		try { text = JSON.stringify(v, null, 2); } catch (e) { text = String(v); }
	} else {
		text = String(v);
	}
	return [text, type];
})`

type EvalCommand struct{}

func (c *EvalCommand) Name() string        { return "eval" }
func (c *EvalCommand) Aliases() []string   { return []string{"ev"} }
func (c *EvalCommand) Description() string { return "COMMAND_EVAL_DESCRIPTION" }
func (c *EvalCommand) Category() string    { return category }
func (c *EvalCommand) Guarded() bool       { return true }

func (c *EvalCommand) Usage() core.Usage {
	return core.Usage{{Required: true, Rest: true, Possibles: []*core.Possible{core.Arg("expression", "string")}}}
}

func (c *EvalCommand) Options() core.CommandOptions {
	return core.CommandOptions{
		PermissionLevel: ownerLevel,
		Guarded:         true,
		ExtendedHelp:    "COMMAND_EVAL_EXTENDEDHELP",
	}
}

// evalResult is one finished evaluation.
type evalResult struct {
	text    string
	typ     string
	failed  bool
	timeout bool
	elapsed time.Duration
}

func (c *EvalCommand) Run(ctx context.Context, msg *core.Message, params []any) (*discordgo.Message, error) {
	expr, _ := params[0].(string)
	flags := map[string]bool{}
	for _, m := range evalFlag.FindAllStringSubmatch(expr, -1) {
		flags[m[1]] = true
	}
	code := strings.TrimSpace(evalFlag.ReplaceAllString(expr, ""))

	timeout := msg.Client.Options.EvalTimeout
	if timeout <= 0 {
		timeout = defaultEvalTimeout
	}
	res, err := evaluate(ctx, msg, code, flags["async"], timeout)
	if err != nil {
		return nil, err
	}
	if flags["silent"] {
		return nil, nil
	}
	if res.timeout {
		return extendables.SendLocale(ctx, msg, "COMMAND_EVAL_TIMEOUT", util.FormatDuration(timeout))
	}

	text := res.text
	if runes := []rune(text); len(runes) > maxEvalOutput {
		text = string(runes[:maxEvalOutput]) + "..."
	}
	footer := "⏱ " + util.FormatDuration(res.elapsed)
	key := "COMMAND_EVAL_OUTPUT"
	if res.failed {
		key = "COMMAND_EVAL_ERROR"
	}
	return extendables.SendLocale(ctx, msg, key, text, res.typ, footer)
}

// evaluate runs code in a fresh runtime that is interrupted after timeout
// or when ctx ends.
func evaluate(ctx context.Context, msg *core.Message, code string, async bool, timeout time.Duration) (*evalResult, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if err := vm.Set("msg", evalMessage(msg)); err != nil {
		return nil, fmt.Errorf("set msg: %w", err)
	}
	if err := vm.Set("client", evalClient(msg.Client)); err != nil {
		return nil, fmt.Errorf("set client: %w", err)
	}
	inspectVal, err := vm.RunString(inspectJS)
	if err != nil {
		return nil, fmt.Errorf("compile inspector: %w", err)
	}
	inspect, ok := goja.AssertFunction(inspectVal)
	if !ok {
		return nil, errors.New("inspector is not a function")
	}

	if async {
		code = "(async () => {\n" + code + "\n})()"
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(runCtx, func() { vm.Interrupt(runCtx.Err()) })
	defer stop()

	start := time.Now()
	value, runErr := vm.RunString(code)
	res := &evalResult{elapsed: time.Since(start)}

	var interrupted *goja.InterruptedError
	if errors.As(runErr, &interrupted) {
		res.timeout = true
		return res, nil
	}
	vm.ClearInterrupt()

	if runErr != nil {
		res.failed = true
		var ex *goja.Exception
		if errors.As(runErr, &ex) {
			value = ex.Value()
		} else {
			value = vm.ToValue(runErr.Error())
		}
	} else if p, ok := value.Export().(*goja.Promise); ok {
		switch p.State() {
		case goja.PromiseStateFulfilled:
			value = p.Result()
		case goja.PromiseStateRejected:
			res.failed = true
			value = p.Result()
		}
	}

	out, err := inspect(goja.Undefined(), value)
	if err != nil {
		res.text, res.typ = value.String(), "unknown"
		return res, nil
	}
	var pair []any
	if err := vm.ExportTo(out, &pair); err != nil || len(pair) != 2 {
		res.text, res.typ = value.String(), "unknown"
		return res, nil
	}
	res.text, res.typ = fmt.Sprint(pair[0]), fmt.Sprint(pair[1])
	return res, nil
}

type evalMessageView struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	AuthorID  string `json:"authorID"`
	ChannelID string `json:"channelID"`
	GuildID   string `json:"guildID"`
}

func evalMessage(msg *core.Message) evalMessageView {
	return evalMessageView{
		ID:        msg.ID,
		Content:   msg.Content,
		AuthorID:  msg.AuthorID(),
		ChannelID: msg.ChannelID,
		GuildID:   msg.GuildID,
	}
}

type evalClientView struct {
	Uptime   string         `json:"uptime"`
	Guilds   int            `json:"guilds"`
	Pieces   map[string]int `json:"pieces"`
	Owners   []string       `json:"owners"`
	Prefixes []string       `json:"prefixes"`
}

func evalClient(c *core.Client) evalClientView {
	pieces := map[string]int{}
	for _, s := range c.Stores() {
		pieces[s.Name()] = s.Size()
	}
	return evalClientView{
		Uptime:   util.FormatDuration(c.Uptime()),
		Guilds:   len(c.Discord.Guilds()),
		Pieces:   pieces,
		Owners:   c.Options.Owners,
		Prefixes: c.Options.Prefix,
	}
}

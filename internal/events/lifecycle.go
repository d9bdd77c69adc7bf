package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/extendables"
)

func commandEvent(payload any) (*core.CommandEvent, error) {
	ev, ok := payload.(*core.CommandEvent)
	if !ok || ev.Message == nil {
		return nil, fmt.Errorf("unexpected payload %T", payload)
	}
	return ev, nil
}

// CommandError answers a failed command. Localized errors are shown as they
// are; anything else is logged and echoed in a code block.
type CommandError struct {
	named
	client *core.Client
}

func (e *CommandError) Run(ctx context.Context, payload any) error {
	ev, err := commandEvent(payload)
	if err != nil {
		return err
	}
	var le *core.LocalizedError
	if errors.As(ev.Err, &le) {
		_, err = extendables.SendMessage(ctx, ev.Message, le.Error())
		return err
	}
	name := ev.CommandText
	if ev.Command != nil {
		name = ev.Command.Name()
	}
	e.client.Logf(ctx, core.EventWTF, "[COMMAND] %s: %v", name, ev.Err)
	_, err = extendables.SendCode(ctx, ev.Message, "JSON", ev.Err.Error())
	return err
}

// ArgumentError answers input the prompter rejected.
type ArgumentError struct {
	named
	client *core.Client
}

func (e *ArgumentError) Run(ctx context.Context, payload any) error {
	ev, err := commandEvent(payload)
	if err != nil {
		return err
	}
	_, err = extendables.SendMessage(ctx, ev.Message, ev.Err.Error())
	return err
}

// CommandInhibited explains a block unless it was silent.
type CommandInhibited struct {
	named
	client *core.Client
}

func (e *CommandInhibited) Run(ctx context.Context, payload any) error {
	ev, err := commandEvent(payload)
	if err != nil {
		return err
	}
	reason := ev.Reason()
	if reason == "" {
		return nil
	}
	_, err = extendables.SendMessage(ctx, ev.Message, reason)
	return err
}

type CommandUnknown struct {
	named
	client *core.Client
}

func (e *CommandUnknown) Run(ctx context.Context, payload any) error {
	ev, err := commandEvent(payload)
	if err != nil {
		return err
	}
	e.client.Logf(ctx, core.EventDebug, "unknown command %q from %s", ev.CommandText, ev.Message.AuthorID())
	return nil
}

type CommandSuccess struct {
	named
	client *core.Client
}

func (e *CommandSuccess) Run(ctx context.Context, payload any) error {
	ev, err := commandEvent(payload)
	if err != nil {
		return err
	}
	e.client.Logf(ctx, core.EventVerbose, "%s ran for %s in %s", ev.Command.Name(), ev.Message.AuthorID(), ev.Elapsed)
	return nil
}

// Package events holds the listeners of client events: console sinks,
// command lifecycle reporting and the platform event handlers.
package events

import (
	"context"
	"fmt"

	"github.com/keshon/piecebot/internal/core"
)

type named struct {
	core.NoAliases
	name  string
	event string
}

func (n named) Name() string  { return n.name }
func (n named) Event() string { return n.event }

// on names a listener after the event it handles.
func on(event string) named { return named{name: event, event: event} }

// Register adds every event listener to c.
func Register(c *core.Client) error {
	var factories []func() core.Event
	for _, level := range []string{core.EventLog, core.EventVerbose, core.EventWarn, core.EventError, core.EventDebug, core.EventWTF} {
		factories = append(factories, func() core.Event { return &ConsoleSink{named: on(level), console: c.Console} })
	}
	for _, event := range []string{core.EventEventError, core.EventMonitorError, core.EventFinalizerError, core.EventTaskError} {
		factories = append(factories, func() core.Event { return &PieceFailure{named: on(event), client: c} })
	}
	factories = append(factories,
		func() core.Event { return &CommandError{named: on(core.EventCommandError), client: c} },
		func() core.Event { return &ArgumentError{named: on(core.EventArgumentError), client: c} },
		func() core.Event { return &CommandInhibited{named: on(core.EventCommandInhibited), client: c} },
		func() core.Event { return &CommandUnknown{named: on(core.EventCommandUnknown), client: c} },
		func() core.Event { return &CommandSuccess{named: on(core.EventCommandSuccess), client: c} },
		func() core.Event { return &MessageCreate{named: on(core.EventMessageCreate), client: c} },
		func() core.Event { return &MessageUpdate{named: on(core.EventMessageUpdate), client: c} },
		func() core.Event { return &MessageDelete{named: on(core.EventMessageDelete), client: c} },
		func() core.Event { return &GuildCreate{named: on(core.EventGuildCreate), client: c} },
		func() core.Event { return &GuildDelete{named: on(core.EventGuildDelete), client: c} },
		func() core.Event { return &Ready{named: on(core.EventReady), client: c} },
		func() core.Event { return &Disconnect{named: on(core.EventDisconnect), client: c} },
		func() core.Event { return &Resumed{named: on(core.EventResumed), client: c} },
	)
	for _, f := range factories {
		if err := c.Events.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// ConsoleSink forwards one log level to the console.
type ConsoleSink struct {
	named
	console core.Console
}

func (e *ConsoleSink) Run(_ context.Context, payload any) error {
	if e.console == nil {
		return nil
	}
	line := fmt.Sprint(payload)
	switch e.event {
	case core.EventVerbose:
		e.console.Verbose("%s", line)
	case core.EventWarn:
		e.console.Warn("%s", line)
	case core.EventError:
		e.console.Error("%s", line)
	case core.EventDebug:
		e.console.Debug("%s", line)
	case core.EventWTF:
		e.console.WTF("%s", line)
	default:
		e.console.Log("%s", line)
	}
	return nil
}

// PieceFailure reports failing events, monitors, finalizers and tasks on
// the wtf sink.
type PieceFailure struct {
	named
	client *core.Client
}

func (e *PieceFailure) Run(ctx context.Context, payload any) error {
	e.client.Logf(ctx, core.EventWTF, "[%s] %v", e.event, payload)
	return nil
}

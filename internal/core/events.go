package core

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// Console sinks. Their payload is the formatted line.
const (
	EventLog     = "log"
	EventVerbose = "verbose"
	EventWarn    = "warn"
	EventError   = "error"
	EventDebug   = "debug"
	EventWTF     = "wtf"
)

// Dispatch lifecycle.
const (
	EventCommandError     = "commandError"
	EventArgumentError    = "argumentError"
	EventCommandInhibited = "commandInhibited"
	EventCommandUnknown   = "commandUnknown"
	EventCommandSuccess   = "commandSuccess"
	EventEventError       = "eventError"
	EventMonitorError     = "monitorError"
	EventFinalizerError   = "finalizerError"
	EventTaskError        = "taskError"
)

// Platform events, carrying the discordgo payload.
const (
	EventMessageCreate = "messageCreate"
	EventMessageUpdate = "messageUpdate"
	EventMessageDelete = "messageDelete"
	EventGuildCreate   = "guildCreate"
	EventGuildDelete   = "guildDelete"
	EventReady         = "ready"
	EventDisconnect    = "disconnect"
	EventResumed       = "resumed"
)

// CommandEvent is the payload of the command lifecycle events.
type CommandEvent struct {
	Message     *Message
	Command     Command
	CommandText string
	Params      []any
	Response    *discordgo.Message
	Err         error
	Elapsed     time.Duration
}

// Reason returns the user-facing text of an inhibition, if any.
func (e *CommandEvent) Reason() string {
	if in, ok := e.Err.(*Inhibition); ok {
		return in.Reason
	}
	return ""
}

// PieceError reports a failure inside an event, monitor, finalizer or task.
type PieceError struct {
	Piece   Piece
	Message *Message
	Err     error
}

func (e *PieceError) Error() string {
	if e.Piece == nil {
		return e.Err.Error()
	}
	return e.Piece.Name() + ": " + e.Err.Error()
}

func (e *PieceError) Unwrap() error { return e.Err }

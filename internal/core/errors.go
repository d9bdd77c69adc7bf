package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no live piece or factory answers to a name.
	ErrNotFound = errors.New("piece not found")
	// ErrNameConflict is returned when a name or alias is already taken in a store.
	ErrNameConflict = errors.New("piece name already registered")
	// ErrAlreadyLoaded is returned when loading a piece that is already live.
	ErrAlreadyLoaded = errors.New("piece already loaded")
	// ErrGuarded is returned when disabling or unloading a guarded piece.
	ErrGuarded = errors.New("piece is guarded")
	// ErrPossibleRegex is returned when a regex-typed possible carries no pattern.
	ErrPossibleRegex = errors.New("regex possible requires a pattern")
)

// LocalizedError is a user-facing failure resolved through a Language.
// Text holds the resolved string; Key and Args keep the lookup for callers
// that need to match on it.
type LocalizedError struct {
	Key  string
	Args []any
	Text string
}

func (e *LocalizedError) Error() string {
	if e.Text != "" {
		return e.Text
	}
	return e.Key
}

// Localize resolves key through lang and wraps it as a LocalizedError.
func Localize(lang Language, key string, args ...any) error {
	text := key
	if lang != nil {
		text = lang.Get(key, args...)
	}
	return &LocalizedError{Key: key, Args: args, Text: text}
}

// ErrorKey returns the language key carried by err, or "".
func ErrorKey(err error) string {
	var le *LocalizedError
	if errors.As(err, &le) {
		return le.Key
	}
	return ""
}

// Inhibition blocks a command before it runs. An empty Reason is a silent
// block: nothing is sent to the user.
type Inhibition struct {
	Reason string
}

func (i *Inhibition) Error() string {
	if i.Reason == "" {
		return "command inhibited"
	}
	return fmt.Sprintf("command inhibited: %s", i.Reason)
}

// Silent reports whether the inhibition must not be explained to the user.
func (i *Inhibition) Silent() bool { return i.Reason == "" }

// Inhibit blocks with a reason shown to the user.
func Inhibit(reason string) error { return &Inhibition{Reason: reason} }

// Silent blocks without telling the user why.
func Silent() error { return &Inhibition{} }

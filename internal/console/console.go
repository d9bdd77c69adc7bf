// Package console is the operator log sink. Lines go to stdout and, when a
// file is configured, to a rotating log file.
//
// Example usage:
//
//	con := console.New(console.Options{Level: "debug", File: "logs/bot.log"})
//	defer con.Close()
//	con.Log("Starting %s...", name)
package console

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level string
	// File enables a rotating log file when set.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// Out replaces stdout. Used by tests.
	Out io.Writer
	// NoColor disables ANSI colours on the console writer.
	NoColor bool
}

// Console implements core.Console over zerolog.
type Console struct {
	logger zerolog.Logger
	file   *lumberjack.Logger
}

// New builds a console. An unknown level falls back to info.
func New(opts Options) *Console {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    opts.NoColor,
		TimeFormat: time.DateTime,
	}}

	c := &Console{}
	if opts.File != "" {
		c.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    valueOr(opts.MaxSizeMB, 20),
			MaxBackups: valueOr(opts.MaxBackups, 5),
			MaxAge:     valueOr(opts.MaxAgeDays, 28),
		}
		writers = append(writers, c.file)
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	c.logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
	return c
}

func valueOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Close flushes and closes the log file, if any.
func (c *Console) Close() error {
	if c.file == nil {
		return nil
	}
	return c.file.Close()
}

func (c *Console) Log(format string, args ...any) {
	c.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// Verbose lines are only written at trace level.
func (c *Console) Verbose(format string, args ...any) {
	c.logger.Trace().Msg(fmt.Sprintf(format, args...))
}

func (c *Console) Warn(format string, args ...any) {
	c.logger.Warn().Msg(fmt.Sprintf(format, args...))
}

func (c *Console) Error(format string, args ...any) {
	c.logger.Error().Msg(fmt.Sprintf(format, args...))
}

func (c *Console) Debug(format string, args ...any) {
	c.logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// WTF logs at error level and marks the line as unexpected.
func (c *Console) WTF(format string, args ...any) {
	c.logger.Error().Bool("wtf", true).Msg(fmt.Sprintf(format, args...))
}

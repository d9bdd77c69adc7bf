// cmd/piecebot/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/piecebot/internal/config"
	"github.com/keshon/piecebot/internal/console"
	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/discord"
	"github.com/keshon/piecebot/internal/languages"
	"github.com/keshon/piecebot/internal/pieces"
	"github.com/keshon/piecebot/internal/providers"
	"github.com/keshon/piecebot/internal/schedule"
)

const appName = "piecebot"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "[ERR]", err)
		os.Exit(1)
	}

	con := console.New(console.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer con.Close()
	con.Log("Starting %s bot...", appName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var setupErr error
	bot, err := discord.NewBot(cfg.DiscordToken, func(d core.Discord) *core.Client {
		c := core.NewClient(cfg.Options(), d, con)
		c.Exit = func(code int) {
			con.Close()
			os.Exit(code)
		}
		c.Schedule = schedule.New(c)
		setupErr = setup(c, cfg)
		return c
	})
	if err != nil {
		con.Error("%v", err)
		os.Exit(1)
	}
	if setupErr != nil {
		con.Error("register pieces: %v", setupErr)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- bot.Run(ctx)
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		con.Log("Received signal %s, shutting down...", s)
		cancel()
		if err := <-errCh; err != nil {
			con.Error("shutdown: %v", err)
		}
	case err := <-errCh:
		if err != nil {
			con.Error("Discord bot error: %v", err)
		}
		cancel()
	}

	con.Log("Discord bot exited cleanly")
}

func setup(c *core.Client, cfg *config.Config) error {
	if err := providers.Register(c, providers.Options{DataDir: cfg.DataDir, Backups: cfg.DataBackups}); err != nil {
		return err
	}
	if err := languages.Register(c); err != nil {
		return err
	}
	return pieces.Register(c)
}

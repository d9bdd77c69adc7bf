// Package config reads the bot configuration from the environment. A .env
// file in the working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/keshon/piecebot/internal/core"
)

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required,notEmpty"`

	Prefix          []string `env:"PREFIX" envSeparator:"," envDefault:"!"`
	RegexPrefix     string   `env:"REGEX_PREFIX"`
	Owners          []string `env:"OWNERS" envSeparator:","`
	DefaultLanguage string   `env:"DEFAULT_LANGUAGE" envDefault:"en-US"`

	Provider    string `env:"PROVIDER" envDefault:"json"`
	DataDir     string `env:"DATA_DIR" envDefault:"data"`
	DataBackups int    `env:"DATA_BACKUPS" envDefault:"3"`

	Typing                 bool          `env:"TYPING"`
	CommandEditing         bool          `env:"COMMAND_EDITING"`
	CommandLogging         bool          `env:"COMMAND_LOGGING"`
	CommandMessageLifetime time.Duration `env:"COMMAND_MESSAGE_LIFETIME" envDefault:"30m"`
	NoPrefixDM             bool          `env:"NO_PREFIX_DM"`
	Slowmode               time.Duration `env:"SLOWMODE" envDefault:"0s"`
	SlowmodeAggressive     bool          `env:"SLOWMODE_AGGRESSIVE"`
	PreserveSettings       bool          `env:"PRESERVE_SETTINGS" envDefault:"true"`
	EvalTimeout            time.Duration `env:"EVAL_TIMEOUT" envDefault:"5s"`
	InvitePermissions      int64         `env:"INVITE_PERMISSIONS"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load reads .env files, if any, and parses the environment. A missing .env
// is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	return ParseWith(env.Options{})
}

// ParseWith parses with custom env options, such as a fixed Environment map.
func ParseWith(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case "json", "sqlite":
	default:
		return fmt.Errorf("unknown PROVIDER %q", c.Provider)
	}
	if c.RegexPrefix != "" {
		if _, err := regexp.Compile(c.RegexPrefix); err != nil {
			return fmt.Errorf("invalid REGEX_PREFIX: %w", err)
		}
	}
	if c.Slowmode < 0 || c.CommandMessageLifetime < 0 || c.EvalTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// Options converts the configuration into client options.
func (c *Config) Options() core.Options {
	var prefixes []string
	for _, p := range c.Prefix {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	var owners []string
	for _, o := range c.Owners {
		if o = strings.TrimSpace(o); o != "" {
			owners = append(owners, o)
		}
	}
	var regexPrefix *regexp.Regexp
	if c.RegexPrefix != "" {
		regexPrefix = regexp.MustCompile(c.RegexPrefix)
	}
	return core.Options{
		Prefix:                 prefixes,
		RegexPrefix:            regexPrefix,
		DefaultLanguage:        c.DefaultLanguage,
		Owners:                 owners,
		Typing:                 c.Typing,
		CommandEditing:         c.CommandEditing,
		CommandLogging:         c.CommandLogging,
		CommandMessageLifetime: c.CommandMessageLifetime,
		NoPrefixDM:             c.NoPrefixDM,
		Slowmode:               c.Slowmode,
		SlowmodeAggressive:     c.SlowmodeAggressive,
		PreserveSettings:       c.PreserveSettings,
		ProviderName:           c.Provider,
		EvalTimeout:            c.EvalTimeout,
		InvitePermissions:      c.InvitePermissions,
	}
}

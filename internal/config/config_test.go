package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func parse(vars map[string]string) (*Config, error) {
	return ParseWith(env.Options{Environment: vars})
}

func TestDefaults(t *testing.T) {
	cfg, err := parse(map[string]string{"DISCORD_TOKEN": "abc"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	opts := cfg.Options()
	if len(opts.Prefix) != 1 || opts.Prefix[0] != "!" {
		t.Errorf("Prefix = %v", opts.Prefix)
	}
	if opts.ProviderName != "json" || opts.DefaultLanguage != "en-US" {
		t.Errorf("provider/language = %q/%q", opts.ProviderName, opts.DefaultLanguage)
	}
	if !opts.PreserveSettings || opts.CommandMessageLifetime != 30*time.Minute || opts.EvalTimeout != 5*time.Second {
		t.Errorf("options = %+v", opts)
	}
	if cfg.LogLevel != "info" || cfg.DataDir != "data" {
		t.Errorf("log level %q, data dir %q", cfg.LogLevel, cfg.DataDir)
	}
}

func TestOverrides(t *testing.T) {
	cfg, err := parse(map[string]string{
		"DISCORD_TOKEN": "abc",
		"PREFIX":        "?, ;;",
		"OWNERS":        "1,2",
		"PROVIDER":      "sqlite",
		"SLOWMODE":      "1500ms",
		"REGEX_PREFIX":  `^hey bot,?\s*`,
		"TYPING":        "true",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	opts := cfg.Options()
	if len(opts.Prefix) != 2 || opts.Prefix[0] != "?" || opts.Prefix[1] != ";;" {
		t.Errorf("Prefix = %q", opts.Prefix)
	}
	if len(opts.Owners) != 2 || opts.ProviderName != "sqlite" || !opts.Typing {
		t.Errorf("options = %+v", opts)
	}
	if opts.Slowmode != 1500*time.Millisecond {
		t.Errorf("Slowmode = %v", opts.Slowmode)
	}
	if opts.RegexPrefix == nil || !opts.RegexPrefix.MatchString("hey bot, ping") {
		t.Errorf("RegexPrefix = %v", opts.RegexPrefix)
	}
}

func TestInvalid(t *testing.T) {
	for name, vars := range map[string]map[string]string{
		"missing token": {},
		"bad provider":  {"DISCORD_TOKEN": "abc", "PROVIDER": "mongo"},
		"bad regex":     {"DISCORD_TOKEN": "abc", "REGEX_PREFIX": "("},
		"bad duration":  {"DISCORD_TOKEN": "abc", "SLOWMODE": "soon"},
	} {
		if _, err := parse(vars); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCategoryWeight(t *testing.T) {
	if CategoryWeight("General") >= CategoryWeight("Admin") {
		t.Error("General should list before Admin")
	}
	if CategoryWeight("Unknown") <= CategoryWeight("Fun") {
		t.Error("unknown categories should list after weighted ones")
	}
}

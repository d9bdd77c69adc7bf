// Package languages registers one language piece per catalog locale.
package languages

import (
	"fmt"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/i18n"
)

// Language serves one locale of a catalog bundle.
type Language struct {
	core.NoAliases
	locale string
	bundle *i18n.Bundle
}

// New returns the piece for locale.
func New(bundle *i18n.Bundle, locale string) *Language {
	return &Language{locale: locale, bundle: bundle}
}

func (l *Language) Name() string { return l.locale }

// Get formats key with args.
func (l *Language) Get(key string, args ...any) string {
	return l.bundle.Get(l.locale, key, args...)
}

// Has reports whether key is defined for this locale or the base locale.
func (l *Language) Has(key string) bool { return l.bundle.Has(l.locale, key) }

// The base locale backs every fallback and cannot be unloaded.
func (l *Language) Guarded() bool { return l.locale == i18n.BaseLocale }

// Register adds a language piece for every locale in the embedded catalog.
func Register(c *core.Client) error {
	bundle, err := i18n.Default()
	if err != nil {
		return fmt.Errorf("load language catalogs: %w", err)
	}
	for _, locale := range bundle.Locales() {
		if err := c.Languages.Register(func() core.Language { return New(bundle, locale) }); err != nil {
			return err
		}
	}
	return nil
}

// Package i18n loads the message catalogs behind the language pieces.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v2"
)

const (
	// BaseLocale is the locale every other catalog falls back to.
	BaseLocale = "en-US"
	// DefaultKey is used for keys no catalog defines. It receives the key
	// and the locale name.
	DefaultKey = "DEFAULT"
)

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds every locale catalog and the x/text catalog built from them.
type Bundle struct {
	locales map[string]map[string]string
	tags    map[string]language.Tag
	builder *catalog.Builder

	mu       sync.Mutex
	printers map[string]*message.Printer
}

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

var (
	defaultOnce   sync.Once
	defaultBundle *Bundle
	defaultErr    error
)

// Default returns the embedded bundle, loading it once.
func Default() (*Bundle, error) {
	defaultOnce.Do(func() {
		defaultBundle, defaultErr = LoadFromFS(embeddedFS)
	})
	return defaultBundle, defaultErr
}

// LoadFromFS reads locales/<locale>/<namespace>.yaml files from fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{
		locales:  map[string]map[string]string{},
		tags:     map[string]language.Tag{},
		builder:  catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale))),
		printers: map[string]*message.Printer{},
	}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.addFile(p, file); err != nil {
			return nil, err
		}
	}
	if !b.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	if _, ok := b.locales[BaseLocale][DefaultKey]; !ok {
		return nil, fmt.Errorf("base locale %s lacks the %s message", BaseLocale, DefaultKey)
	}
	return b, nil
}

func (b *Bundle) addFile(p string, file catalogFile) error {
	dir := path.Base(path.Dir(p))
	ns := strings.TrimSuffix(path.Base(p), path.Ext(p))

	locale := strings.TrimSpace(file.Locale)
	if locale != dir {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", p, locale, dir)
	}
	if strings.TrimSpace(file.Namespace) != ns {
		return fmt.Errorf("catalog %s: namespace %q must match filename %q", p, file.Namespace, ns)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages map is required", p)
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("catalog %s: parse locale: %w", p, err)
	}
	b.tags[locale] = tag

	messages, ok := b.locales[locale]
	if !ok {
		messages = map[string]string{}
		b.locales[locale] = messages
	}
	for k, v := range file.Messages {
		k = strings.TrimSpace(k)
		if k == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		if _, dup := messages[k]; dup {
			return fmt.Errorf("catalog %s: duplicate key %q in locale %q", p, k, locale)
		}
		messages[k] = v
		if err := b.builder.SetString(tag, k, v); err != nil {
			return fmt.Errorf("catalog %s: key %q: %w", p, k, err)
		}
	}
	return nil
}

// HasLocale reports whether locale has a catalog.
func (b *Bundle) HasLocale(locale string) bool {
	_, ok := b.locales[locale]
	return ok
}

// Locales returns the catalog locales, sorted.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for l := range b.locales {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Has reports whether locale or the base locale defines key.
func (b *Bundle) Has(locale, key string) bool {
	_, ok := b.resolve(locale, key)
	return ok
}

// Keys returns the keys defined for locale itself, sorted.
func (b *Bundle) Keys(locale string) []string {
	out := make([]string, 0, len(b.locales[locale]))
	for k := range b.locales[locale] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (b *Bundle) resolve(locale, key string) (string, bool) {
	if _, ok := b.locales[locale][key]; ok {
		return locale, true
	}
	if _, ok := b.locales[BaseLocale][key]; ok {
		return BaseLocale, true
	}
	return "", false
}

func (b *Bundle) printer(locale string) *message.Printer {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.printers[locale]
	if !ok {
		p = message.NewPrinter(b.tags[locale], message.Catalog(b.builder))
		b.printers[locale] = p
	}
	return p
}

// Get formats key for locale. Keys missing from the locale come from the
// base locale; keys missing everywhere render the DEFAULT message.
func (b *Bundle) Get(locale, key string, args ...any) string {
	from, ok := b.resolve(locale, key)
	if !ok {
		from, _ = b.resolve(locale, DefaultKey)
		return b.printer(from).Sprintf(DefaultKey, key, locale)
	}
	return b.printer(from).Sprintf(key, args...)
}

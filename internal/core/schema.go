package core

import (
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// SchemaEntry describes one settings key. Type names the serializer that
// validates its values.
type SchemaEntry struct {
	Key          string
	Type         string
	Default      any
	Array        bool
	Configurable bool
	Min          *float64
	Max          *float64
}

// DefaultValue returns the entry default; arrays default to an empty list.
func (e *SchemaEntry) DefaultValue() any {
	if e.Array {
		if list, ok := e.Default.([]any); ok {
			return append([]any(nil), list...)
		}
		return []any{}
	}
	return e.Default
}

// EntryOption configures a SchemaEntry.
type EntryOption func(*SchemaEntry)

// Default sets the value returned while a key is unset.
func Default(v any) EntryOption { return func(e *SchemaEntry) { e.Default = v } }

// Array makes the key hold a list.
func Array() EntryOption { return func(e *SchemaEntry) { e.Array = true } }

// Hidden keeps the key out of the conf command.
func Hidden() EntryOption { return func(e *SchemaEntry) { e.Configurable = false } }

// Bounds limits numeric values or string lengths.
func Bounds(min, max float64) EntryOption {
	return func(e *SchemaEntry) { e.Min, e.Max = &min, &max }
}

// Schema is the ordered set of keys a gateway stores.
type Schema struct {
	entries []*SchemaEntry
	byKey   map[string]*SchemaEntry
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{byKey: make(map[string]*SchemaEntry)}
}

// Add appends a key. Dotted keys form folders.
func (s *Schema) Add(key, typ string, opts ...EntryOption) *Schema {
	e := &SchemaEntry{Key: key, Type: strings.ToLower(typ), Configurable: true}
	for _, opt := range opts {
		opt(e)
	}
	if _, ok := s.byKey[key]; !ok {
		s.entries = append(s.entries, e)
	}
	s.byKey[key] = e
	return s
}

// Entry returns the entry for key.
func (s *Schema) Entry(key string) (*SchemaEntry, bool) {
	e, ok := s.byKey[key]
	return e, ok
}

// Entries returns every entry in declaration order.
func (s *Schema) Entries() []*SchemaEntry {
	return append([]*SchemaEntry(nil), s.entries...)
}

// IsFolder reports whether some key lives under prefix.
func (s *Schema) IsFolder(prefix string) bool {
	if prefix == "" {
		return true
	}
	for _, e := range s.entries {
		if strings.HasPrefix(e.Key, prefix+".") {
			return true
		}
	}
	return false
}

// Folder returns the configurable entries directly under prefix and the
// names of its sub-folders, both sorted.
func (s *Schema) Folder(prefix string) (entries []*SchemaEntry, folders []string) {
	seen := map[string]bool{}
	base := ""
	if prefix != "" {
		base = prefix + "."
	}
	for _, e := range s.entries {
		if !e.Configurable || !strings.HasPrefix(e.Key, base) {
			continue
		}
		rest := strings.TrimPrefix(e.Key, base)
		if i := strings.IndexByte(rest, '.'); i >= 0 {
			if f := rest[:i]; !seen[f] {
				seen[f] = true
				folders = append(folders, f)
			}
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	sort.Strings(folders)
	return entries, folders
}

// SerializerContext is handed to serializers on every settings update.
type SerializerContext struct {
	Client   *Client
	Entry    *SchemaEntry
	Language Language
	Guild    *discordgo.Guild
}

// Errorf builds a LocalizedError in the update's language.
func (sc *SerializerContext) Errorf(key string, args ...any) error {
	return Localize(sc.Language, key, args...)
}

package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Gateway names.
const (
	GatewayGuilds        = "guilds"
	GatewayUsers         = "users"
	GatewayClientStorage = "clientStorage"
)

// Array update actions.
const (
	ActionAuto      = "auto"
	ActionAdd       = "add"
	ActionRemove    = "remove"
	ActionOverwrite = "overwrite"
)

// Gateway caches and persists the settings of one kind of target.
type Gateway struct {
	Name   string
	Schema *Schema

	client *Client
	mu     sync.RWMutex
	cache  map[string]*Settings
}

// NewGateway returns a gateway bound to c.
func NewGateway(c *Client, name string, schema *Schema) *Gateway {
	return &Gateway{Name: name, Schema: schema, client: c, cache: make(map[string]*Settings)}
}

func (g *Gateway) provider() (Provider, error) {
	name := g.client.Options.ProviderName
	p, ok := g.client.Providers.Get(name)
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", name, ErrNotFound)
	}
	return p, nil
}

// Acquire returns the cached settings for id, creating an empty entry.
func (g *Gateway) Acquire(id string) *Settings {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.cache[id]
	if !ok {
		s = &Settings{ID: id, gateway: g, data: Record{}}
		g.cache[id] = s
	}
	return s
}

// Get returns cached settings without creating them.
func (g *Gateway) Get(id string) (*Settings, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.cache[id]
	return s, ok
}

// Sync loads every stored record into the cache, creating the table first
// when the provider lacks it.
func (g *Gateway) Sync(ctx context.Context) error {
	p, err := g.provider()
	if err != nil {
		return err
	}
	has, err := p.HasTable(ctx, g.Name)
	if err != nil {
		return fmt.Errorf("gateway %s: %w", g.Name, err)
	}
	if !has {
		return p.CreateTable(ctx, g.Name)
	}
	records, err := p.GetAll(ctx, g.Name)
	if err != nil {
		return fmt.Errorf("gateway %s: %w", g.Name, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for id, rec := range records {
		s, ok := g.cache[id]
		if !ok {
			s = &Settings{ID: id, gateway: g}
			g.cache[id] = s
		}
		s.mu.Lock()
		s.data = rec
		s.stored = true
		s.mu.Unlock()
	}
	return nil
}

// Delete drops id from the cache and the provider.
func (g *Gateway) Delete(ctx context.Context, id string) error {
	g.mu.Lock()
	s, ok := g.cache[id]
	delete(g.cache, id)
	g.mu.Unlock()
	if !ok || !s.stored {
		return nil
	}
	p, err := g.provider()
	if err != nil {
		return err
	}
	return p.Delete(ctx, g.Name, id)
}

// Size returns the number of cached entries.
func (g *Gateway) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cache)
}

// Gateways groups the stock gateways.
type Gateways struct {
	Guilds        *Gateway
	Users         *Gateway
	ClientStorage *Gateway
}

// All returns the gateways in sync order.
func (g *Gateways) All() []*Gateway {
	return []*Gateway{g.ClientStorage, g.Guilds, g.Users}
}

// Change is one key/value pair of a settings update. A nil Value resets the key.
type Change struct {
	Key   string
	Value any
}

// UpdateOptions tune a settings update.
type UpdateOptions struct {
	Action   string
	Guild    *discordgo.Guild
	Language Language
}

// UpdatedEntry records one applied change.
type UpdatedEntry struct {
	Key      string
	Previous any
	Next     any
}

// UpdateResult lists what an update applied and what it rejected.
type UpdateResult struct {
	Updated []UpdatedEntry
	Errors  []error
}

// Err joins the rejected changes.
func (r *UpdateResult) Err() error {
	if r == nil {
		return nil
	}
	return errors.Join(r.Errors...)
}

// Settings is the stored configuration of one guild, user or the client.
// Values are kept in their serialized form (ids, primitives).
type Settings struct {
	ID string

	gateway *Gateway
	// writeMu is held for a whole Update so every change resolves against
	// the result of the previous one.
	writeMu sync.Mutex
	mu      sync.RWMutex
	data    Record
	stored  bool
}

// Gateway returns the owning gateway.
func (s *Settings) Gateway() *Gateway { return s.gateway }

// Get returns the stored value for key or the schema default.
func (s *Settings) Get(key string) any {
	s.mu.RLock()
	v, ok := s.data[key]
	s.mu.RUnlock()
	entry, known := s.gateway.Schema.Entry(key)
	if !ok || v == nil {
		if known {
			return entry.DefaultValue()
		}
		return nil
	}
	if list, isList := v.([]any); isList {
		return append([]any(nil), list...)
	}
	return v
}

// GetString returns a string value or "".
func (s *Settings) GetString(key string) string {
	v, _ := s.Get(key).(string)
	return v
}

// GetBool returns a boolean value or false.
func (s *Settings) GetBool(key string) bool {
	v, _ := s.Get(key).(bool)
	return v
}

// GetStrings returns a list value as strings. A plain string yields one item.
func (s *Settings) GetStrings(key string) []string {
	switch v := s.Get(key).(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// Has reports whether key was explicitly set.
func (s *Settings) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return ok && v != nil
}

// Update validates every change through its serializer and persists all
// accepted ones with a single provider write.
func (s *Settings) Update(ctx context.Context, changes []Change, opts UpdateOptions) (*UpdateResult, error) {
	if opts.Action == "" {
		opts.Action = ActionAuto
	}
	if opts.Language == nil {
		opts.Language = s.gateway.client.Language("")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result := &UpdateResult{}
	patch := Record{}

	for _, ch := range changes {
		entry, ok := s.gateway.Schema.Entry(ch.Key)
		if !ok {
			result.Errors = append(result.Errors, Localize(opts.Language, "SETTING_GATEWAY_KEY_NOEXT", ch.Key))
			continue
		}
		previous := s.Get(ch.Key)
		if p, pending := patch[ch.Key]; pending {
			previous = p
			if previous == nil {
				previous = entry.DefaultValue()
			}
		}

		next, err := s.resolve(ctx, entry, previous, ch.Value, opts)
		if err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		patch[ch.Key] = next
		result.Updated = append(result.Updated, UpdatedEntry{Key: ch.Key, Previous: previous, Next: next})
	}

	if len(patch) == 0 {
		return result, nil
	}
	if err := s.persist(ctx, patch); err != nil {
		return result, err
	}
	return result, nil
}

// Reset restores keys to their defaults.
func (s *Settings) Reset(ctx context.Context, keys ...string) (*UpdateResult, error) {
	changes := make([]Change, len(keys))
	for i, k := range keys {
		changes[i] = Change{Key: k}
	}
	return s.Update(ctx, changes, UpdateOptions{Action: ActionOverwrite})
}

func (s *Settings) serializer(entry *SchemaEntry) (Serializer, error) {
	ser, ok := s.gateway.client.Serializers.Get(entry.Type)
	if !ok {
		return nil, fmt.Errorf("serializer %q for key %s: %w", entry.Type, entry.Key, ErrNotFound)
	}
	return ser, nil
}

func (s *Settings) resolve(ctx context.Context, entry *SchemaEntry, previous, value any, opts UpdateOptions) (any, error) {
	if value == nil {
		return nil, nil
	}
	ser, err := s.serializer(entry)
	if err != nil {
		return nil, err
	}
	sc := &SerializerContext{Client: s.gateway.client, Entry: entry, Language: opts.Language, Guild: opts.Guild}

	convert := func(raw any) (any, error) {
		parsed, err := ser.Deserialize(ctx, raw, sc)
		if err != nil {
			return nil, err
		}
		return ser.Serialize(parsed), nil
	}

	if !entry.Array {
		return convert(value)
	}

	if list, ok := toList(value); ok {
		if opts.Action != ActionOverwrite {
			return nil, Localize(opts.Language, "SETTING_GATEWAY_INVALID_ARRAY", entry.Key)
		}
		out := make([]any, 0, len(list))
		for _, raw := range list {
			v, err := convert(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	v, err := convert(value)
	if err != nil {
		return nil, err
	}
	current, _ := previous.([]any)
	idx := indexOf(current, v)
	switch opts.Action {
	case ActionAdd:
		if idx >= 0 {
			return nil, Localize(opts.Language, "SETTING_GATEWAY_DUPLICATE_VALUE", entry.Key, ser.Stringify(ctx, v, sc))
		}
		return append(append([]any(nil), current...), v), nil
	case ActionRemove:
		if idx < 0 {
			return nil, Localize(opts.Language, "SETTING_GATEWAY_MISSING_VALUE", entry.Key, ser.Stringify(ctx, v, sc))
		}
		return removeAt(current, idx), nil
	case ActionOverwrite:
		return []any{v}, nil
	default:
		if idx >= 0 {
			return removeAt(current, idx), nil
		}
		return append(append([]any(nil), current...), v), nil
	}
}

func (s *Settings) persist(ctx context.Context, patch Record) error {
	p, err := s.gateway.provider()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(Record, len(s.data)+len(patch))
	for k, v := range s.data {
		next[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(next, k)
			continue
		}
		next[k] = v
	}

	if s.stored {
		err = p.Update(ctx, s.gateway.Name, s.ID, patch)
	} else {
		err = p.Create(ctx, s.gateway.Name, s.ID, next)
	}
	if err != nil {
		return fmt.Errorf("persist %s/%s: %w", s.gateway.Name, s.ID, err)
	}
	s.data = next
	s.stored = true
	return nil
}

// Display renders key for humans through its serializer.
func (s *Settings) Display(ctx context.Context, key string, guild *discordgo.Guild, lang Language) string {
	entry, ok := s.gateway.Schema.Entry(key)
	if !ok {
		return ""
	}
	if lang == nil {
		lang = s.gateway.client.Language("")
	}
	value := s.Get(key)
	ser, err := s.serializer(entry)
	if err != nil {
		return fmt.Sprint(value)
	}
	sc := &SerializerContext{Client: s.gateway.client, Entry: entry, Language: lang, Guild: guild}

	if entry.Array {
		list, _ := value.([]any)
		if len(list) == 0 {
			return lang.Get("SETTING_GATEWAY_NONE")
		}
		parts := make([]string, len(list))
		for i, v := range list {
			parts[i] = ser.Stringify(ctx, v, sc)
		}
		return "[ " + strings.Join(parts, " | ") + " ]"
	}
	if value == nil {
		return lang.Get("SETTING_GATEWAY_NOT_SET")
	}
	return ser.Stringify(ctx, value, sc)
}

func toList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}

func indexOf(list []any, v any) int {
	want := fmt.Sprint(v)
	for i, item := range list {
		if fmt.Sprint(item) == want {
			return i
		}
	}
	return -1
}

func removeAt(list []any, i int) []any {
	out := make([]any, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

package coretest

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/languages"
)

// Provider is an in-memory core.Provider counting writes.
type Provider struct {
	core.NoAliases

	mu      sync.Mutex
	tables  map[string]map[string]core.Record
	Creates int
	Updates int
	// UpdateLog holds the data of every Update call.
	UpdateLog []core.Record
}

// NewProvider returns an empty provider.
func NewProvider() *Provider {
	return &Provider{tables: map[string]map[string]core.Record{}}
}

func (p *Provider) Name() string { return "memory" }

func (p *Provider) HasTable(_ context.Context, table string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.tables[table]
	return ok, nil
}

func (p *Provider) CreateTable(_ context.Context, table string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.tables[table]; !ok {
		p.tables[table] = map[string]core.Record{}
	}
	return nil
}

func (p *Provider) DeleteTable(_ context.Context, table string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tables, table)
	return nil
}

func (p *Provider) GetAll(_ context.Context, table string) (map[string]core.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := map[string]core.Record{}
	for id, rec := range p.tables[table] {
		out[id] = maps.Clone(rec)
	}
	return out, nil
}

func (p *Provider) GetKeys(_ context.Context, table string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.tables[table]))
	for id := range p.tables[table] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (p *Provider) Get(_ context.Context, table, id string) (core.Record, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.tables[table][id]
	return maps.Clone(rec), ok, nil
}

func (p *Provider) Has(_ context.Context, table, id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.tables[table][id]
	return ok, nil
}

func (p *Provider) Create(_ context.Context, table, id string, data core.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tables[table] == nil {
		p.tables[table] = map[string]core.Record{}
	}
	if _, ok := p.tables[table][id]; ok {
		return fmt.Errorf("%s/%s already exists", table, id)
	}
	p.Creates++
	p.tables[table][id] = maps.Clone(data)
	return nil
}

func (p *Provider) Update(_ context.Context, table, id string, data core.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.tables[table][id]
	if !ok {
		return fmt.Errorf("%s/%s does not exist", table, id)
	}
	p.Updates++
	p.UpdateLog = append(p.UpdateLog, maps.Clone(data))
	for k, v := range data {
		if v == nil {
			delete(rec, k)
			continue
		}
		rec[k] = v
	}
	return nil
}

func (p *Provider) Replace(_ context.Context, table, id string, data core.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tables[table] == nil {
		p.tables[table] = map[string]core.Record{}
	}
	p.tables[table][id] = maps.Clone(data)
	return nil
}

func (p *Provider) Delete(_ context.Context, table, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tables[table], id)
	return nil
}

// Writes returns the number of Create and Update calls.
func (p *Provider) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Creates + p.Updates
}

// Console records every line per level.
type Console struct {
	mu    sync.Mutex
	Lines map[string][]string
}

// NewConsole returns an empty recorder.
func NewConsole() *Console { return &Console{Lines: map[string][]string{}} }

func (c *Console) add(level, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Lines[level] = append(c.Lines[level], fmt.Sprintf(format, args...))
}

func (c *Console) Log(format string, args ...any)     { c.add("log", format, args...) }
func (c *Console) Verbose(format string, args ...any) { c.add("verbose", format, args...) }
func (c *Console) Warn(format string, args ...any)    { c.add("warn", format, args...) }
func (c *Console) Error(format string, args ...any)   { c.add("error", format, args...) }
func (c *Console) Debug(format string, args ...any)   { c.add("debug", format, args...) }
func (c *Console) WTF(format string, args ...any)     { c.add("wtf", format, args...) }

// Get returns the lines logged at level.
func (c *Console) Get(level string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Lines[level]...)
}

// Env is a client wired to fakes.
type Env struct {
	Client   *core.Client
	Discord  *Discord
	Provider *Provider
	Console  *Console
}

// Guild and user ids shared by the fixtures of NewEnv.
const (
	GuildID = "200000000000000000"
	OwnerID = "300000000000000000"
	UserID  = "400000000000000000"
)

// NewEnv builds a client over fresh fakes with the language pieces loaded,
// one guild owned by OwnerID and UserID as a plain member. The gateways are
// synced. Callers register the piece packages they exercise.
func NewEnv(t testing.TB, opts core.Options) *Env {
	t.Helper()
	d := NewDiscord()
	d.AddUser(OwnerID, "owner", false)
	d.AddUser(UserID, "user", false)
	d.AddGuild(GuildID, "Test Guild", OwnerID)
	d.AddMember(GuildID, OwnerID)
	d.AddMember(GuildID, UserID)

	opts.ProviderName = "memory"
	if len(opts.Owners) == 0 {
		opts.Owners = []string{OwnerID}
	}
	console := NewConsole()
	c := core.NewClient(opts, d, console)
	c.Exit = func(int) {}

	provider := NewProvider()
	if err := c.Providers.Register(func() core.Provider { return provider }); err != nil {
		t.Fatalf("register provider: %v", err)
	}
	if err := languages.Register(c); err != nil {
		t.Fatalf("register languages: %v", err)
	}
	for _, g := range c.Gateways.All() {
		if err := g.Sync(context.Background()); err != nil {
			t.Fatalf("sync %s: %v", g.Name, err)
		}
	}
	return &Env{Client: c, Discord: d, Provider: provider, Console: console}
}

// Message builds a core.Message authored by authorID in the fixture guild.
// An empty guildID makes it a DM.
func (e *Env) Message(authorID, guildID, content string) *core.Message {
	channelID := guildID
	if guildID == "" {
		channelID = "dm-" + authorID
		if _, ok := e.Discord.Channels[channelID]; !ok {
			e.Discord.AddChannel(channelID, "", "", discordgo.ChannelTypeDM)
		}
	}
	e.Discord.mu.Lock()
	e.Discord.nextID++
	id := fmt.Sprint(e.Discord.nextID)
	author := e.Discord.Users[authorID]
	e.Discord.mu.Unlock()

	m := &discordgo.Message{
		ID:        id,
		ChannelID: channelID,
		GuildID:   guildID,
		Content:   content,
		Author:    author,
	}
	return core.NewMessage(context.Background(), e.Client, m)
}

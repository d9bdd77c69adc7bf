package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// AnyStore is the type-erased view of a Store used by the piece management
// commands and resolvers.
type AnyStore interface {
	Name() string
	Size() int
	Names() []string
	Lookup(name string) (Piece, bool)
	IsEnabled(name string) bool
	Enable(name string) error
	Disable(name string) error
	LoadPiece(ctx context.Context, name string) (Piece, error)
	Unload(name string) error
	ReloadPiece(ctx context.Context, name string) (Piece, error)
}

type storeEntry[T Piece] struct {
	piece   T
	enabled bool
}

// Store holds the pieces of one kind. Pieces are built from registered
// factories so they can be unloaded and loaded again with fresh state.
type Store[T Piece] struct {
	name   string
	client *Client

	mu        sync.RWMutex
	factories map[string]func() T
	live      map[string]*storeEntry[T]
	aliases   map[string]string
	onRemove  []removeHook[T]
}

type removeHook[T Piece] struct {
	owner string
	fn    func(T)
}

var _ AnyStore = (*Store[Command])(nil)

// NewStore returns an empty store.
func NewStore[T Piece](name string) *Store[T] {
	return &Store[T]{
		name:      name,
		factories: make(map[string]func() T),
		live:      make(map[string]*storeEntry[T]),
		aliases:   make(map[string]string),
	}
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

func (s *Store[T]) Name() string { return s.name }

// Register adds a factory and loads the piece it builds.
func (s *Store[T]) Register(factory func() T) error {
	p := factory()
	k := key(p.Name())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.factories[k]; ok {
		return fmt.Errorf("%s %q: %w", s.name, p.Name(), ErrNameConflict)
	}
	if err := s.addLocked(p); err != nil {
		return err
	}
	s.factories[k] = factory
	return nil
}

func (s *Store[T]) addLocked(p T) error {
	k := key(p.Name())
	if _, ok := s.live[k]; ok {
		return fmt.Errorf("%s %q: %w", s.name, p.Name(), ErrNameConflict)
	}
	if _, ok := s.aliases[k]; ok {
		return fmt.Errorf("%s %q: %w", s.name, p.Name(), ErrNameConflict)
	}
	for _, a := range p.Aliases() {
		ak := key(a)
		if _, ok := s.live[ak]; ok {
			return fmt.Errorf("%s alias %q: %w", s.name, a, ErrNameConflict)
		}
		if owner, ok := s.aliases[ak]; ok && owner != k {
			return fmt.Errorf("%s alias %q: %w", s.name, a, ErrNameConflict)
		}
	}

	enabled := true
	if d, ok := any(p).(DisabledByDefault); ok && d.DisabledByDefault() {
		enabled = false
	}
	s.live[k] = &storeEntry[T]{piece: p, enabled: enabled}
	for _, a := range p.Aliases() {
		s.aliases[key(a)] = k
	}
	return nil
}

func (s *Store[T]) resolveLocked(name string) (*storeEntry[T], string, bool) {
	k := key(name)
	if e, ok := s.live[k]; ok {
		return e, k, true
	}
	if target, ok := s.aliases[k]; ok {
		if e, ok := s.live[target]; ok {
			return e, target, true
		}
	}
	return nil, "", false
}

// Get returns a live piece by name or alias, enabled or not.
func (s *Store[T]) Get(name string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, _, ok := s.resolveLocked(name)
	if !ok {
		var zero T
		return zero, false
	}
	return e.piece, true
}

// Lookup is Get for callers holding an AnyStore.
func (s *Store[T]) Lookup(name string) (Piece, bool) {
	p, ok := s.Get(name)
	if !ok {
		return nil, false
	}
	return p, true
}

// IsEnabled reports whether the named piece is live and enabled.
func (s *Store[T]) IsEnabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, _, ok := s.resolveLocked(name)
	return ok && e.enabled
}

// All returns every live piece sorted by name.
func (s *Store[T]) All() []T {
	return s.collect(false)
}

// Active returns the enabled pieces sorted by name.
func (s *Store[T]) Active() []T {
	return s.collect(true)
}

func (s *Store[T]) collect(enabledOnly bool) []T {
	s.mu.RLock()
	keys := make([]string, 0, len(s.live))
	for k, e := range s.live {
		if enabledOnly && !e.enabled {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.live[k].piece)
	}
	s.mu.RUnlock()
	return out
}

// Names returns the names of the live pieces, sorted.
func (s *Store[T]) Names() []string {
	all := s.All()
	out := make([]string, len(all))
	for i, p := range all {
		out[i] = p.Name()
	}
	return out
}

// Size returns the number of live pieces.
func (s *Store[T]) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.live)
}

// Enable marks the named piece enabled.
func (s *Store[T]) Enable(name string) error {
	s.mu.Lock()
	e, _, ok := s.resolveLocked(name)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s %q: %w", s.name, name, ErrNotFound)
	}
	was := e.enabled
	e.enabled = true
	s.mu.Unlock()

	if en, ok := any(e.piece).(Enabler); ok && !was {
		en.OnEnable()
	}
	return nil
}

// Disable marks the named piece disabled. Guarded pieces refuse.
func (s *Store[T]) Disable(name string) error {
	s.mu.Lock()
	e, _, ok := s.resolveLocked(name)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s %q: %w", s.name, name, ErrNotFound)
	}
	if isGuarded(e.piece) {
		s.mu.Unlock()
		return fmt.Errorf("%s %q: %w", s.name, name, ErrGuarded)
	}
	was := e.enabled
	e.enabled = false
	s.mu.Unlock()

	if d, ok := any(e.piece).(Disabler); ok && was {
		d.OnDisable()
	}
	return nil
}

// Load builds the named piece from its factory and initialises it.
func (s *Store[T]) Load(ctx context.Context, name string) (T, error) {
	var zero T
	k := key(name)

	s.mu.Lock()
	factory, ok := s.factories[k]
	if !ok {
		s.mu.Unlock()
		return zero, fmt.Errorf("%s %q: %w", s.name, name, ErrNotFound)
	}
	if _, ok := s.live[k]; ok {
		s.mu.Unlock()
		return zero, fmt.Errorf("%s %q: %w", s.name, name, ErrAlreadyLoaded)
	}
	p := factory()
	if err := s.addLocked(p); err != nil {
		s.mu.Unlock()
		return zero, err
	}
	s.mu.Unlock()

	if err := s.initPiece(ctx, p); err != nil {
		return zero, err
	}
	return p, nil
}

// LoadPiece is Load for callers holding an AnyStore.
func (s *Store[T]) LoadPiece(ctx context.Context, name string) (Piece, error) {
	p, err := s.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Unload drops the live piece; its factory stays registered.
func (s *Store[T]) Unload(name string) error {
	s.mu.Lock()
	e, k, ok := s.resolveLocked(name)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s %q: %w", s.name, name, ErrNotFound)
	}
	if isGuarded(e.piece) {
		s.mu.Unlock()
		return fmt.Errorf("%s %q: %w", s.name, name, ErrGuarded)
	}
	delete(s.live, k)
	for a, target := range s.aliases {
		if target == k {
			delete(s.aliases, a)
		}
	}
	hooks := s.hooksLocked()
	s.mu.Unlock()

	for _, h := range hooks {
		h(e.piece)
	}
	return nil
}

// Reload unloads the named piece and loads a fresh instance.
func (s *Store[T]) Reload(ctx context.Context, name string) (T, error) {
	var zero T
	p, ok := s.Get(name)
	if !ok {
		return zero, fmt.Errorf("%s %q: %w", s.name, name, ErrNotFound)
	}
	canonical := p.Name()

	s.mu.Lock()
	e, k, _ := s.resolveLocked(canonical)
	delete(s.live, k)
	for a, target := range s.aliases {
		if target == k {
			delete(s.aliases, a)
		}
	}
	hooks := s.hooksLocked()
	s.mu.Unlock()

	for _, h := range hooks {
		h(e.piece)
	}
	return s.Load(ctx, canonical)
}

// ReloadPiece is Reload for callers holding an AnyStore.
func (s *Store[T]) ReloadPiece(ctx context.Context, name string) (Piece, error) {
	p, err := s.Reload(ctx, name)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// OnRemove registers a hook run whenever a piece leaves the store. A later
// call with the same owner replaces that owner's hook.
func (s *Store[T]) OnRemove(owner string, fn func(T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, h := range s.onRemove {
		if h.owner == owner {
			s.onRemove[i].fn = fn
			return
		}
	}
	s.onRemove = append(s.onRemove, removeHook[T]{owner: owner, fn: fn})
}

func (s *Store[T]) hooksLocked() []func(T) {
	out := make([]func(T), len(s.onRemove))
	for i, h := range s.onRemove {
		out[i] = h.fn
	}
	return out
}

// InitAll initialises every live piece. Pieces failing Init are disabled.
func (s *Store[T]) InitAll(ctx context.Context) error {
	var errs []error
	for _, p := range s.All() {
		if err := s.initPiece(ctx, p); err != nil {
			errs = append(errs, err)
			s.mu.Lock()
			if e, _, ok := s.resolveLocked(p.Name()); ok {
				e.enabled = false
			}
			s.mu.Unlock()
		}
	}
	return errors.Join(errs...)
}

func (s *Store[T]) initPiece(ctx context.Context, p T) error {
	in, ok := any(p).(Initializer)
	if !ok || s.client == nil {
		return nil
	}
	if err := in.Init(ctx, s.client); err != nil {
		return fmt.Errorf("init %s %q: %w", s.name, p.Name(), err)
	}
	return nil
}

// ShutdownAll calls Shutdown on every live piece that implements it.
func (s *Store[T]) ShutdownAll(ctx context.Context) error {
	var errs []error
	for _, p := range s.All() {
		if sd, ok := any(p).(Shutdowner); ok {
			if err := sd.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s %q: %w", s.name, p.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

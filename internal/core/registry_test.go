package core_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/keshon/piecebot/internal/core"
)

type testPiece struct {
	name    string
	aliases []string
	guarded bool
	inits   *int
	initErr error
}

func (p *testPiece) Name() string      { return p.name }
func (p *testPiece) Aliases() []string { return p.aliases }
func (p *testPiece) Guarded() bool     { return p.guarded }

func (p *testPiece) Init(context.Context, *core.Client) error {
	if p.inits != nil {
		*p.inits++
	}
	return p.initErr
}

func TestStoreRegisterAndLookup(t *testing.T) {
	s := core.NewStore[core.Piece]("things")
	if err := s.Register(func() core.Piece { return &testPiece{name: "Alpha", aliases: []string{"a"}} }); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"alpha", "ALPHA", "a"} {
		p, ok := s.Get(name)
		if !ok || p.Name() != "Alpha" {
			t.Errorf("Get(%q) = %v, %v", name, p, ok)
		}
	}

	err := s.Register(func() core.Piece { return &testPiece{name: "beta", aliases: []string{"A"}} })
	if !errors.Is(err, core.ErrNameConflict) {
		t.Errorf("expected alias conflict, got %v", err)
	}
	err = s.Register(func() core.Piece { return &testPiece{name: "alpha"} })
	if !errors.Is(err, core.ErrNameConflict) {
		t.Errorf("expected name conflict, got %v", err)
	}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	inits := 0
	s := core.NewStore[core.Piece]("things")
	_ = s.Register(func() core.Piece { return &testPiece{name: "alpha", aliases: []string{"a"}, inits: &inits} })

	var removed []string
	s.OnRemove("test", func(p core.Piece) { removed = append(removed, p.Name()) })

	if _, err := s.Load(ctx, "alpha"); !errors.Is(err, core.ErrAlreadyLoaded) {
		t.Errorf("expected ErrAlreadyLoaded, got %v", err)
	}
	if err := s.Unload("a"); err != nil {
		t.Fatalf("unload by alias: %v", err)
	}
	if _, ok := s.Get("a"); ok {
		t.Error("alias still resolves after unload")
	}
	if len(removed) != 1 {
		t.Errorf("expected one removal hook call, got %d", len(removed))
	}
	if _, err := s.Load(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	first, err := s.Load(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Reload(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("Reload must build a fresh instance")
	}
	if len(removed) != 2 {
		t.Errorf("expected the reload to run removal hooks, got %d calls", len(removed))
	}
}

func TestStoreOnRemoveReplacesOwnerHook(t *testing.T) {
	s := core.NewStore[core.Piece]("things")
	_ = s.Register(func() core.Piece { return &testPiece{name: "alpha"} })

	var calls []string
	s.OnRemove("x", func(core.Piece) { calls = append(calls, "old") })
	s.OnRemove("x", func(core.Piece) { calls = append(calls, "new") })
	s.OnRemove("y", func(core.Piece) { calls = append(calls, "other") })

	if err := s.Unload("alpha"); err != nil {
		t.Fatal(err)
	}
	if want := []string{"new", "other"}; !reflect.DeepEqual(calls, want) {
		t.Errorf("hooks ran %v, want %v", calls, want)
	}
}

func TestStoreGuardedAndDisable(t *testing.T) {
	s := core.NewStore[core.Piece]("things")
	_ = s.Register(func() core.Piece { return &testPiece{name: "core", guarded: true} })
	_ = s.Register(func() core.Piece { return &testPiece{name: "extra"} })

	if err := s.Disable("core"); !errors.Is(err, core.ErrGuarded) {
		t.Errorf("expected ErrGuarded on disable, got %v", err)
	}
	if err := s.Unload("core"); !errors.Is(err, core.ErrGuarded) {
		t.Errorf("expected ErrGuarded on unload, got %v", err)
	}

	if err := s.Disable("extra"); err != nil {
		t.Fatal(err)
	}
	if s.IsEnabled("extra") {
		t.Error("extra still enabled")
	}
	if got := len(s.Active()); got != 1 {
		t.Errorf("expected 1 active piece, got %d", got)
	}
	if got := len(s.All()); got != 2 {
		t.Errorf("expected 2 live pieces, got %d", got)
	}
	if err := s.Enable("extra"); err != nil || !s.IsEnabled("extra") {
		t.Errorf("enable failed: %v", err)
	}
}

package tasks_test

import (
	"context"
	"strings"
	"testing"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/internal/coretest"
	"github.com/keshon/piecebot/internal/pieces"
)

func TestCleanupReports(t *testing.T) {
	env := coretest.NewEnv(t, core.Options{})
	if err := pieces.Register(env.Client); err != nil {
		t.Fatalf("register pieces: %v", err)
	}
	task, ok := env.Client.Tasks.Get("cleanup")
	if !ok {
		t.Fatal("cleanup task not registered")
	}
	if err := task.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var found bool
	for _, l := range env.Console.Get("verbose") {
		if strings.HasPrefix(l, "cleanup: dropped 0 rate-limit buckets") {
			found = true
		}
	}
	if !found {
		t.Errorf("verbose lines = %q", env.Console.Get("verbose"))
	}
}

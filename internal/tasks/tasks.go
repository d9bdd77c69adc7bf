// Package tasks holds the task pieces the scheduler runs.
package tasks

import (
	"context"

	"github.com/keshon/piecebot/internal/core"
)

// Register adds every task to c.
func Register(c *core.Client) error {
	return c.Tasks.Register(func() core.Task { return &Cleanup{client: c} })
}

// Cleanup prunes idle rate-limit buckets and expired command responses.
type Cleanup struct {
	core.NoAliases
	client *core.Client
}

func (t *Cleanup) Name() string { return "cleanup" }

func (t *Cleanup) Run(ctx context.Context, _ map[string]any) error {
	swept := 0
	for _, inh := range t.client.Inhibitors.All() {
		if s, ok := inh.(core.Sweeper); ok {
			swept += s.Sweep()
		}
	}
	for _, fin := range t.client.Finalizers.All() {
		if s, ok := fin.(core.Sweeper); ok {
			swept += s.Sweep()
		}
	}
	responses := t.client.SweepResponses()
	t.client.Logf(ctx, core.EventVerbose, "cleanup: dropped %d rate-limit buckets and %d command responses", swept, responses)
	return nil
}

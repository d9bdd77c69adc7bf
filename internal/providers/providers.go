// Package providers holds the settings storage backends. The client picks one
// by name through Options.ProviderName.
//
// Example usage:
//
//	if err := providers.Register(c, providers.Options{DataDir: "data"}); err != nil {
//		log.Fatal(err)
//	}
package providers

import (
	"errors"
	"path/filepath"

	"github.com/keshon/piecebot/internal/core"
)

// ErrExists is returned by Create when the record is already stored.
var ErrExists = errors.New("record already exists")

// Options configures the stock providers.
type Options struct {
	DataDir string
	// Backups is how many previous versions the json provider keeps per record.
	Backups int
}

// Register adds the json and sqlite providers to c.
func Register(c *core.Client, opts Options) error {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if err := c.Providers.Register(func() core.Provider { return NewJSON(opts.DataDir, opts.Backups) }); err != nil {
		return err
	}
	return c.Providers.Register(func() core.Provider {
		return NewSQLite(filepath.Join(opts.DataDir, "settings.db"))
	})
}

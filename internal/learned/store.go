// Package learned keeps user category corrections keyed by normalized
// transaction description.
package learned

import (
	"context"
	"fmt"

	"github.com/insightdelivered/statement-expenses/internal/config"
)

// Store holds description -> category rules. Implementations are safe for
// concurrent use and persist every Record before returning.
type Store interface {
	Lookup(ctx context.Context, description string) (string, bool, error)
	Record(ctx context.Context, description, category string) error
	All(ctx context.Context) (map[string]string, error)
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(cfg config.LearnedConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverFile, "":
		return OpenFile(cfg.Path)
	case config.DriverSQLite:
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: unknown learned store driver %q", config.ErrMalformedConfiguration, cfg.Driver)
	}
}

package store

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Supported store drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures a Store backend.
type Options struct {
	Driver      string
	Dir         string
	DatabaseURL string
	OnCorrupt   CorruptPolicy
	Pool        *PoolConfig
}

// Open creates the configured backend and runs its migration.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(opts.Driver) {
	case "", DriverFile:
		s = NewFile(opts.Dir, opts.OnCorrupt)
	case DriverMemory:
		s = NewMemory()
	case DriverSQLite:
		dsn := opts.DatabaseURL
		if dsn == "" {
			dir := opts.Dir
			if dir == "" {
				dir = "."
			}
			dsn = filepath.Join(dir, "divar.db")
		}
		s, err = NewSQLite(dsn)
	case DriverPostgres:
		s, err = NewPostgres(ctx, opts.DatabaseURL, opts.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

package store

import (
	"context"
	"fmt"
)

// Supported ledger drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and locates a ledger backend.
type Options struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
}

// Open returns the ledger selected by opts. SQL ledgers are not migrated;
// callers that want the schema call Migrate.
func Open(ctx context.Context, opts Options) (Ledger, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryLedger(), nil
	case DriverSQLite:
		l, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return l, nil
	case DriverPostgres:
		l, err := OpenPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

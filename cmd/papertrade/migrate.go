package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/efreitasn/papertrade/internal/store"
	"github.com/google/subcommands"
)

type migrateCmd struct {
	envFile string
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create the ledger schema" }
func (*migrateCmd) Usage() string {
	return `papertrade migrate [-env <file>]

  Creates the accounts, holdings and transactions tables in the configured
  SQL store. Running it again is a no-op.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.envFile, "env", ".env", "Optional .env file to load before reading the environment.")
}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, err := setup(c.envFile)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	if cfg.StoreDriver == store.DriverMemory {
		logger.Info("memory store has no schema")
		return subcommands.ExitSuccess
	}

	ledger, err := openLedger(ctx, cfg, true)
	if err != nil {
		logger.Error("migration failed", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	ledger.Close()

	logger.Info("schema up to date", slog.String("store", cfg.StoreDriver))
	return subcommands.ExitSuccess
}

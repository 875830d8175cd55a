package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/efreitasn/papertrade/internal/config"
	"github.com/efreitasn/papertrade/internal/handler"
	"github.com/efreitasn/papertrade/internal/metrics"
	"github.com/efreitasn/papertrade/internal/quote"
	"github.com/efreitasn/papertrade/internal/service"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/google/subcommands"
)

type serveCmd struct {
	envFile string
	migrate bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the paper trading HTTP server" }
func (*serveCmd) Usage() string {
	return `papertrade serve [-env <file>] [-migrate=false]

  Starts the HTTP API. Configuration comes from the environment, optionally
  seeded from a .env file.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.envFile, "env", ".env", "Optional .env file to load before reading the environment.")
	f.BoolVar(&c.migrate, "migrate", true, "Create the schema before serving.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, err := setup(c.envFile)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}

	ledger, err := openLedger(ctx, cfg, c.migrate)
	if err != nil {
		logger.Error("failed to open ledger", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	defer ledger.Close()

	quotes, err := newQuoteSource(cfg)
	if err != nil {
		logger.Error("failed to configure quotes", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}

	m := metrics.NewCollector()
	sessions := service.NewSessionStore(cfg.SessionTTL, time.Minute)
	accounts := service.NewAccountService(ledger, sessions, cfg.StartingCash, logger)
	accounts.SetHashCost(cfg.BcryptCost)

	router := handler.NewRouter(handler.Services{
		Accounts:  accounts,
		Orders:    service.NewOrderService(ledger, quotes, m, logger),
		Portfolio: service.NewPortfolioService(ledger, quotes, m),
		Quotes:    service.NewQuoteService(quotes, m),
		Sessions:  sessions,
	}, m, logger)

	// Start the session sweeper with a cancellable context.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sessions.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("store", cfg.StoreDriver),
			slog.String("quotes", cfg.QuoteProvider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
	return subcommands.ExitSuccess
}

// setup loads the optional .env file and the configuration, and installs
// the JSON logger at the configured level as the default.
func setup(envFile string) (*config.Config, *slog.Logger, error) {
	if envFile != "" {
		if err := config.LoadDotEnv(envFile); err != nil {
			return nil, nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openLedger(ctx context.Context, cfg *config.Config, migrate bool) (store.Ledger, error) {
	ledger, err := store.Open(ctx, store.Options{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		return nil, err
	}
	if m, ok := ledger.(store.Migrator); ok && migrate {
		if err := m.Migrate(ctx); err != nil {
			ledger.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return ledger, nil
}

func newQuoteSource(cfg *config.Config) (quote.Source, error) {
	if cfg.QuoteProvider == config.QuoteStatic {
		s, err := quote.ParseStatic(cfg.StaticQuotes)
		if err != nil {
			return nil, fmt.Errorf("STATIC_QUOTES: %w", err)
		}
		return s, nil
	}
	return quote.NewClient(cfg.QuoteBaseURL, cfg.APIKey, cfg.QuoteTimeout), nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configKeys = []string{
	"PORT", "LOG_LEVEL", "STORE_DRIVER", "DATABASE_URL", "SQLITE_PATH",
	"QUOTE_PROVIDER", "API_KEY", "QUOTE_BASE_URL", "QUOTE_TIMEOUT", "STATIC_QUOTES",
	"STARTING_CASH", "SESSION_TTL", "BCRYPT_COST",
	"READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

// clearEnv unsets every config variable and supplies the API key the
// default quote provider requires.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("API_KEY", "pk_test")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.StoreDriver != StoreSQLite || cfg.SQLitePath != "papertrade.db" {
		t.Errorf("store = %q at %q, want sqlite at papertrade.db", cfg.StoreDriver, cfg.SQLitePath)
	}
	if cfg.QuoteProvider != QuoteIEX || cfg.QuoteBaseURL != "https://cloud.iexapis.com" {
		t.Errorf("quotes = %q from %q, want iex from cloud.iexapis.com", cfg.QuoteProvider, cfg.QuoteBaseURL)
	}
	if cfg.QuoteTimeout != 5*time.Second {
		t.Errorf("QuoteTimeout = %v, want 5s", cfg.QuoteTimeout)
	}
	if cfg.StartingCash.StringFixed(2) != "10000.00" {
		t.Errorf("StartingCash = %s, want 10000.00", cfg.StartingCash)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", cfg.IdleTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/papertrade")
	t.Setenv("QUOTE_PROVIDER", "static")
	t.Setenv("STATIC_QUOTES", "AAPL:100")
	t.Setenv("STARTING_CASH", "2500.5")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("BCRYPT_COST", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.StoreDriver != StorePostgres || cfg.DatabaseURL != "postgres://localhost/papertrade" {
		t.Errorf("store = %q at %q", cfg.StoreDriver, cfg.DatabaseURL)
	}
	if cfg.QuoteProvider != QuoteStatic || cfg.StaticQuotes != "AAPL:100" {
		t.Errorf("quotes = %q with %q", cfg.QuoteProvider, cfg.StaticQuotes)
	}
	if cfg.StartingCash.StringFixed(2) != "2500.50" {
		t.Errorf("StartingCash = %s, want 2500.50", cfg.StartingCash)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", cfg.SessionTTL)
	}
	if cfg.BcryptCost != 4 {
		t.Errorf("BcryptCost = %d, want 4", cfg.BcryptCost)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port", map[string]string{"PORT": "not-a-number"}},
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"store driver", map[string]string{"STORE_DRIVER": "mysql"}},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}},
		{"quote provider", map[string]string{"QUOTE_PROVIDER": "yahoo"}},
		{"iex without api key", map[string]string{"API_KEY": ""}},
		{"starting cash", map[string]string{"STARTING_CASH": "lots"}},
		{"negative starting cash", map[string]string{"STARTING_CASH": "-1"}},
		{"bcrypt cost", map[string]string{"BCRYPT_COST": "2"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %v", tc.env)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	keys := []string{
		"QUOTE_TIMEOUT", "SESSION_TTL",
		"READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "not-a-duration")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for invalid %s", key)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7070")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PORT=9999\nLOG_LEVEL=warn\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("LOG_LEVEL") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070 (environment wins over .env)", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
}

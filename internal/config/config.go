package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Quote providers accepted by QUOTE_PROVIDER.
const (
	QuoteIEX    = "iex"
	QuoteStatic = "static"
)

// Config holds all runtime configuration for the paper trading server.
type Config struct {
	Port     int
	LogLevel string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	QuoteProvider string
	APIKey        string
	QuoteBaseURL  string
	QuoteTimeout  time.Duration
	StaticQuotes  string

	StartingCash decimal.Decimal
	SessionTTL   time.Duration
	BcryptCost   int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	storeDriver := strings.ToLower(getStr("STORE_DRIVER", StoreSQLite))
	databaseURL := getStr("DATABASE_URL", "")
	switch storeDriver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if databaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q, must be one of: memory, sqlite, postgres", storeDriver)
	}

	quoteProvider := strings.ToLower(getStr("QUOTE_PROVIDER", QuoteIEX))
	apiKey := getStr("API_KEY", "")
	switch quoteProvider {
	case QuoteStatic:
	case QuoteIEX:
		if apiKey == "" {
			return nil, errors.New("API_KEY not set")
		}
	default:
		return nil, fmt.Errorf("invalid QUOTE_PROVIDER: %q, must be one of: iex, static", quoteProvider)
	}

	quoteTimeout, err := getDuration("QUOTE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_TIMEOUT: %w", err)
	}

	startingCash, err := getDecimal("STARTING_CASH", decimal.RequireFromString("10000.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_CASH: %w", err)
	}
	if startingCash.IsNegative() {
		return nil, fmt.Errorf("invalid STARTING_CASH: %s is negative", startingCash)
	}

	sessionTTL, err := getDuration("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	bcryptCost, err := getInt("BCRYPT_COST", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}
	if bcryptCost < 4 || bcryptCost > 31 {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %d, must be between 4 and 31", bcryptCost)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:            port,
		LogLevel:        logLevel,
		StoreDriver:     storeDriver,
		DatabaseURL:     databaseURL,
		SQLitePath:      getStr("SQLITE_PATH", "papertrade.db"),
		QuoteProvider:   quoteProvider,
		APIKey:          apiKey,
		QuoteBaseURL:    getStr("QUOTE_BASE_URL", "https://cloud.iexapis.com"),
		QuoteTimeout:    quoteTimeout,
		StaticQuotes:    getStr("STATIC_QUOTES", ""),
		StartingCash:    startingCash,
		SessionTTL:      sessionTTL,
		BcryptCost:      bcryptCost,
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		IdleTimeout:     idleTimeout,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getDecimal(key string, defaultVal decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return decimal.NewFromString(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

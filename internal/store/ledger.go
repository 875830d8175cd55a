package store

import (
	"context"
	"errors"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrTxClosed is returned when a Tx is used after its InTx call returned.
var ErrTxClosed = errors.New("ledger transaction already closed")

// Ledger is the persistent source of truth for accounts, holdings and the
// transaction log.
type Ledger interface {
	// CreateAccount stores a new account and assigns its ID and CreatedAt.
	// It returns domain.ErrUsernameTaken if the username is already used.
	CreateAccount(ctx context.Context, a *domain.Account) error
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error)
	// DeleteAccount removes the account together with its holdings and
	// transactions.
	DeleteAccount(ctx context.Context, id int64) error
	// ListHoldings returns the account's holdings ordered by symbol.
	ListHoldings(ctx context.Context, accountID int64) ([]domain.Holding, error)
	// ListTransactions returns the account's transactions, newest first.
	ListTransactions(ctx context.Context, accountID int64) ([]domain.Transaction, error)
	// InTx runs fn with exclusive access to one account's ledger rows. All
	// writes made through the Tx are applied if fn returns nil and discarded
	// otherwise. Calls for the same account never interleave.
	InTx(ctx context.Context, accountID int64, fn func(Tx) error) error
	Close() error
}

// Tx is a transaction-scoped view of a single account's ledger rows.
type Tx interface {
	Account(ctx context.Context) (*domain.Account, error)
	// UpdateCash sets the cash balance. Negative balances are refused with
	// domain.ErrNegativeCash.
	UpdateCash(ctx context.Context, cash decimal.Decimal) error
	// Holding returns the holding for symbol and whether it exists.
	Holding(ctx context.Context, symbol string) (domain.Holding, bool, error)
	// UpsertHolding inserts or replaces the holding for h.Symbol. Quantities
	// below one are refused with domain.ErrNonPositiveQuantity.
	UpsertHolding(ctx context.Context, h domain.Holding) error
	DeleteHolding(ctx context.Context, symbol string) error
	// AppendTransaction writes t to the log and fills in its ID, AccountID
	// and CreatedAt.
	AppendTransaction(ctx context.Context, t *domain.Transaction) error
}

// Migrator is implemented by ledgers backed by a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

var (
	_ Ledger   = (*MemoryLedger)(nil)
	_ Ledger   = (*PostgresLedger)(nil)
	_ Ledger   = (*SQLiteLedger)(nil)
	_ Migrator = (*PostgresLedger)(nil)
	_ Migrator = (*SQLiteLedger)(nil)
)

func validateHolding(h domain.Holding) error {
	if h.Quantity <= 0 {
		return domain.ErrNonPositiveQuantity
	}
	return nil
}

func validateTransaction(t *domain.Transaction) error {
	if t.Quantity <= 0 {
		return domain.ErrNonPositiveQuantity
	}
	if t.Action != domain.ActionBuy && t.Action != domain.ActionSell {
		return &domain.ValidationError{Message: "transaction action must be BUY or SELL"}
	}
	return nil
}

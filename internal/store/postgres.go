package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const pgUniqueViolation = "23505"

// PostgresLedger is a Ledger backed by a pgx connection pool. InTx locks the
// account row with SELECT ... FOR UPDATE for the life of the transaction.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and verifies the connection.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresLedger, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 0
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresLedger{pool: pool}, nil
}

func (l *PostgresLedger) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (l *PostgresLedger) Close() error {
	l.pool.Close()
	return nil
}

func (l *PostgresLedger) CreateAccount(ctx context.Context, a *domain.Account) error {
	err := l.pool.QueryRow(ctx, `
		INSERT INTO accounts (username, hash, email, cash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		a.Username, a.CredentialHash, a.Email, domain.RoundCents(a.Cash),
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	a.Cash = domain.RoundCents(a.Cash)
	return nil
}

const pgAccountColumns = `id, username, hash, email, cash, created_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Username, &a.CredentialHash, &a.Email, &a.Cash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

func (l *PostgresLedger) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return scanAccount(l.pool.QueryRow(ctx,
		`SELECT `+pgAccountColumns+` FROM accounts WHERE id = $1`, id))
}

func (l *PostgresLedger) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return scanAccount(l.pool.QueryRow(ctx,
		`SELECT `+pgAccountColumns+` FROM accounts WHERE username = $1`, username))
}

func (l *PostgresLedger) DeleteAccount(ctx context.Context, id int64) error {
	tag, err := l.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (l *PostgresLedger) exists(ctx context.Context, id int64) error {
	var found bool
	err := l.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&found)
	if err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if !found {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (l *PostgresLedger) ListHoldings(ctx context.Context, accountID int64) ([]domain.Holding, error) {
	if err := l.exists(ctx, accountID); err != nil {
		return nil, err
	}
	rows, err := l.pool.Query(ctx, `
		SELECT account_id, symbol, quantity, total_cost
		FROM holdings
		WHERE account_id = $1
		ORDER BY symbol`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	result := []domain.Holding{}
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.AccountID, &h.Symbol, &h.Quantity, &h.TotalCost); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

func (l *PostgresLedger) ListTransactions(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	if err := l.exists(ctx, accountID); err != nil {
		return nil, err
	}
	rows, err := l.pool.Query(ctx, `
		SELECT id, account_id, action, symbol, quantity, cost, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	result := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Action, &t.Symbol, &t.Quantity, &t.Cost, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (l *PostgresLedger) InTx(ctx context.Context, accountID int64, fn func(Tx) error) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked int64
	err = tx.QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}

	ptx := &postgresTx{tx: tx, accountID: accountID}
	err = fn(ptx)
	ptx.closed = true
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type postgresTx struct {
	tx        pgx.Tx
	accountID int64
	closed    bool
}

func (t *postgresTx) Account(ctx context.Context) (*domain.Account, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	return scanAccount(t.tx.QueryRow(ctx,
		`SELECT `+pgAccountColumns+` FROM accounts WHERE id = $1`, t.accountID))
}

func (t *postgresTx) UpdateCash(ctx context.Context, cash decimal.Decimal) error {
	if t.closed {
		return ErrTxClosed
	}
	if cash.IsNegative() {
		return domain.ErrNegativeCash
	}
	_, err := t.tx.Exec(ctx, `UPDATE accounts SET cash = $1 WHERE id = $2`, domain.RoundCents(cash), t.accountID)
	if err != nil {
		return fmt.Errorf("update cash: %w", err)
	}
	return nil
}

func (t *postgresTx) Holding(ctx context.Context, symbol string) (domain.Holding, bool, error) {
	if t.closed {
		return domain.Holding{}, false, ErrTxClosed
	}
	var h domain.Holding
	err := t.tx.QueryRow(ctx, `
		SELECT account_id, symbol, quantity, total_cost
		FROM holdings
		WHERE account_id = $1 AND symbol = $2`, t.accountID, symbol,
	).Scan(&h.AccountID, &h.Symbol, &h.Quantity, &h.TotalCost)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Holding{}, false, nil
	}
	if err != nil {
		return domain.Holding{}, false, fmt.Errorf("select holding: %w", err)
	}
	return h, true, nil
}

func (t *postgresTx) UpsertHolding(ctx context.Context, h domain.Holding) error {
	if t.closed {
		return ErrTxClosed
	}
	if err := validateHolding(h); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO holdings (account_id, symbol, quantity, total_cost)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, symbol)
		DO UPDATE SET quantity = EXCLUDED.quantity, total_cost = EXCLUDED.total_cost`,
		t.accountID, h.Symbol, h.Quantity, domain.RoundCents(h.TotalCost))
	if err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}
	return nil
}

func (t *postgresTx) DeleteHolding(ctx context.Context, symbol string) error {
	if t.closed {
		return ErrTxClosed
	}
	_, err := t.tx.Exec(ctx, `DELETE FROM holdings WHERE account_id = $1 AND symbol = $2`, t.accountID, symbol)
	if err != nil {
		return fmt.Errorf("delete holding: %w", err)
	}
	return nil
}

func (t *postgresTx) AppendTransaction(ctx context.Context, txn *domain.Transaction) error {
	if t.closed {
		return ErrTxClosed
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	txn.AccountID = t.accountID
	txn.Cost = domain.RoundCents(txn.Cost)
	err := t.tx.QueryRow(ctx, `
		INSERT INTO transactions (account_id, action, symbol, quantity, cost)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		t.accountID, string(txn.Action), txn.Symbol, txn.Quantity, txn.Cost,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// SQLiteLedger is a Ledger backed by a SQLite file. Transactions are opened
// with BEGIN IMMEDIATE so a second writer waits on the busy timeout instead
// of failing on upgrade.
type SQLiteLedger struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteLedger, error) {
	dsn := "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_fk=1&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteLedger{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (l *SQLiteLedger) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (l *SQLiteLedger) CreateAccount(ctx context.Context, a *domain.Account) error {
	a.Cash = domain.RoundCents(a.Cash)
	createdAt := l.now()
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO accounts (username, hash, email, cash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.Username, a.CredentialHash, a.Email, a.Cash.StringFixed(domain.CentPlaces), createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account id: %w", err)
	}
	a.ID = id
	a.CreatedAt = createdAt
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const sqliteAccountColumns = `id, username, hash, email, cash, created_at`

func scanSQLiteAccount(row rowScanner) (*domain.Account, error) {
	var (
		a    domain.Account
		cash string
	)
	err := row.Scan(&a.ID, &a.Username, &a.CredentialHash, &a.Email, &cash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	if a.Cash, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("parse cash %q: %w", cash, err)
	}
	return &a, nil
}

func (l *SQLiteLedger) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return scanSQLiteAccount(l.db.QueryRowContext(ctx,
		`SELECT `+sqliteAccountColumns+` FROM accounts WHERE id = ?`, id))
}

func (l *SQLiteLedger) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return scanSQLiteAccount(l.db.QueryRowContext(ctx,
		`SELECT `+sqliteAccountColumns+` FROM accounts WHERE username = ?`, username))
}

func (l *SQLiteLedger) DeleteAccount(ctx context.Context, id int64) error {
	res, err := l.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (l *SQLiteLedger) exists(ctx context.Context, id int64) error {
	var found bool
	err := l.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = ?)`, id).Scan(&found)
	if err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if !found {
		return domain.ErrAccountNotFound
	}
	return nil
}

func scanSQLiteHolding(row rowScanner) (domain.Holding, error) {
	var (
		h         domain.Holding
		totalCost string
	)
	if err := row.Scan(&h.AccountID, &h.Symbol, &h.Quantity, &totalCost); err != nil {
		return domain.Holding{}, err
	}
	tc, err := decimal.NewFromString(totalCost)
	if err != nil {
		return domain.Holding{}, fmt.Errorf("parse total cost %q: %w", totalCost, err)
	}
	h.TotalCost = tc
	return h, nil
}

func (l *SQLiteLedger) ListHoldings(ctx context.Context, accountID int64) ([]domain.Holding, error) {
	if err := l.exists(ctx, accountID); err != nil {
		return nil, err
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT account_id, symbol, quantity, total_cost
		FROM holdings
		WHERE account_id = ?
		ORDER BY symbol`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	result := []domain.Holding{}
	for rows.Next() {
		h, err := scanSQLiteHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

func (l *SQLiteLedger) ListTransactions(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	if err := l.exists(ctx, accountID); err != nil {
		return nil, err
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, account_id, action, symbol, quantity, cost, created_at
		FROM transactions
		WHERE account_id = ?
		ORDER BY id DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	result := []domain.Transaction{}
	for rows.Next() {
		var (
			t      domain.Transaction
			action string
			cost   string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &action, &t.Symbol, &t.Quantity, &cost, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Action = domain.Action(action)
		if t.Cost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("parse cost %q: %w", cost, err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (l *SQLiteLedger) InTx(ctx context.Context, accountID int64, fn func(Tx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var found bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = ?)`, accountID).Scan(&found)
	if err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if !found {
		return domain.ErrAccountNotFound
	}

	stx := &sqliteTx{tx: tx, accountID: accountID, now: l.now}
	err = fn(stx)
	stx.closed = true
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type sqliteTx struct {
	tx        *sql.Tx
	accountID int64
	now       func() time.Time
	closed    bool
}

func (t *sqliteTx) Account(ctx context.Context) (*domain.Account, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	return scanSQLiteAccount(t.tx.QueryRowContext(ctx,
		`SELECT `+sqliteAccountColumns+` FROM accounts WHERE id = ?`, t.accountID))
}

func (t *sqliteTx) UpdateCash(ctx context.Context, cash decimal.Decimal) error {
	if t.closed {
		return ErrTxClosed
	}
	if cash.IsNegative() {
		return domain.ErrNegativeCash
	}
	_, err := t.tx.ExecContext(ctx, `UPDATE accounts SET cash = ? WHERE id = ?`,
		domain.RoundCents(cash).StringFixed(domain.CentPlaces), t.accountID)
	if err != nil {
		return fmt.Errorf("update cash: %w", err)
	}
	return nil
}

func (t *sqliteTx) Holding(ctx context.Context, symbol string) (domain.Holding, bool, error) {
	if t.closed {
		return domain.Holding{}, false, ErrTxClosed
	}
	h, err := scanSQLiteHolding(t.tx.QueryRowContext(ctx, `
		SELECT account_id, symbol, quantity, total_cost
		FROM holdings
		WHERE account_id = ? AND symbol = ?`, t.accountID, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Holding{}, false, nil
	}
	if err != nil {
		return domain.Holding{}, false, fmt.Errorf("select holding: %w", err)
	}
	return h, true, nil
}

func (t *sqliteTx) UpsertHolding(ctx context.Context, h domain.Holding) error {
	if t.closed {
		return ErrTxClosed
	}
	if err := validateHolding(h); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO holdings (account_id, symbol, quantity, total_cost)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (account_id, symbol)
		DO UPDATE SET quantity = excluded.quantity, total_cost = excluded.total_cost`,
		t.accountID, h.Symbol, h.Quantity, domain.RoundCents(h.TotalCost).StringFixed(domain.CentPlaces))
	if err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}
	return nil
}

func (t *sqliteTx) DeleteHolding(ctx context.Context, symbol string) error {
	if t.closed {
		return ErrTxClosed
	}
	_, err := t.tx.ExecContext(ctx, `DELETE FROM holdings WHERE account_id = ? AND symbol = ?`, t.accountID, symbol)
	if err != nil {
		return fmt.Errorf("delete holding: %w", err)
	}
	return nil
}

func (t *sqliteTx) AppendTransaction(ctx context.Context, txn *domain.Transaction) error {
	if t.closed {
		return ErrTxClosed
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	txn.AccountID = t.accountID
	txn.Cost = domain.RoundCents(txn.Cost)
	txn.CreatedAt = t.now()
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO transactions (account_id, action, symbol, quantity, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.accountID, string(txn.Action), txn.Symbol, txn.Quantity,
		txn.Cost.StringFixed(domain.CentPlaces), txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	if txn.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	return nil
}

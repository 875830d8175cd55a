package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// holdingLess orders holdings by symbol so listings come out sorted.
func holdingLess(a, b domain.Holding) bool {
	return a.Symbol < b.Symbol
}

// accountEntry holds one account's rows. mu serializes every ledger
// transaction on the account.
type accountEntry struct {
	mu           sync.Mutex
	account      domain.Account
	holdings     *btree.BTreeG[domain.Holding]
	transactions []domain.Transaction // chronological
	deleted      bool
}

// MemoryLedger is a thread-safe in-memory Ledger. Account lookups go
// through a store-wide RWMutex; order execution only takes the per-account
// lock, so different accounts never block each other.
type MemoryLedger struct {
	mu            sync.RWMutex
	accounts      map[int64]*accountEntry
	byUsername    map[string]int64
	nextAccountID int64
	nextTxID      atomic.Int64
	now           func() time.Time
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		accounts:   make(map[int64]*accountEntry),
		byUsername: make(map[string]int64),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryLedger) CreateAccount(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[a.Username]; exists {
		return domain.ErrUsernameTaken
	}
	s.nextAccountID++
	a.ID = s.nextAccountID
	a.CreatedAt = s.now()
	a.Cash = domain.RoundCents(a.Cash)

	const degree = 16
	s.accounts[a.ID] = &accountEntry{
		account:  *a,
		holdings: btree.NewG[domain.Holding](degree, holdingLess),
	}
	s.byUsername[a.Username] = a.ID
	return nil
}

// entry returns the live entry for id, or domain.ErrAccountNotFound.
func (s *MemoryLedger) entry(id int64) (*accountEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return e, nil
}

func (s *MemoryLedger) GetAccount(_ context.Context, id int64) (*domain.Account, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return nil, domain.ErrAccountNotFound
	}
	a := e.account
	return &a, nil
}

func (s *MemoryLedger) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	s.mu.RLock()
	id, ok := s.byUsername[username]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return s.GetAccount(ctx, id)
}

func (s *MemoryLedger) DeleteAccount(_ context.Context, id int64) error {
	s.mu.Lock()
	e, ok := s.accounts[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrAccountNotFound
	}
	delete(s.accounts, id)
	delete(s.byUsername, e.account.Username)
	s.mu.Unlock()

	// Wait for any in-flight transaction, then poison the entry for
	// callers that fetched it before the delete.
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleted = true
	e.holdings.Clear(false)
	e.transactions = nil
	return nil
}

func (s *MemoryLedger) ListHoldings(_ context.Context, accountID int64) ([]domain.Holding, error) {
	e, err := s.entry(accountID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return nil, domain.ErrAccountNotFound
	}
	result := make([]domain.Holding, 0, e.holdings.Len())
	e.holdings.Ascend(func(h domain.Holding) bool {
		result = append(result, h)
		return true
	})
	return result, nil
}

func (s *MemoryLedger) ListTransactions(_ context.Context, accountID int64) ([]domain.Transaction, error) {
	e, err := s.entry(accountID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return nil, domain.ErrAccountNotFound
	}
	result := make([]domain.Transaction, 0, len(e.transactions))
	for i := len(e.transactions) - 1; i >= 0; i-- {
		result = append(result, e.transactions[i])
	}
	return result, nil
}

// InTx stages every write on private copies (the holdings tree is cloned
// copy-on-write) and swaps them in only when fn succeeds.
func (s *MemoryLedger) InTx(ctx context.Context, accountID int64, fn func(Tx) error) error {
	e, err := s.entry(accountID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return domain.ErrAccountNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{
		ledger:   s,
		account:  e.account,
		holdings: e.holdings.Clone(),
	}
	err = fn(tx)
	tx.closed = true
	if err != nil {
		return err
	}

	e.account = tx.account
	e.holdings = tx.holdings
	e.transactions = append(e.transactions, tx.pending...)
	return nil
}

func (s *MemoryLedger) Close() error { return nil }

// memoryTx is only touched while the owning entry's mutex is held.
type memoryTx struct {
	ledger   *MemoryLedger
	account  domain.Account
	holdings *btree.BTreeG[domain.Holding]
	pending  []domain.Transaction
	closed   bool
}

func (tx *memoryTx) Account(_ context.Context) (*domain.Account, error) {
	if tx.closed {
		return nil, ErrTxClosed
	}
	a := tx.account
	return &a, nil
}

func (tx *memoryTx) UpdateCash(_ context.Context, cash decimal.Decimal) error {
	if tx.closed {
		return ErrTxClosed
	}
	if cash.IsNegative() {
		return domain.ErrNegativeCash
	}
	tx.account.Cash = domain.RoundCents(cash)
	return nil
}

func (tx *memoryTx) Holding(_ context.Context, symbol string) (domain.Holding, bool, error) {
	if tx.closed {
		return domain.Holding{}, false, ErrTxClosed
	}
	h, ok := tx.holdings.Get(domain.Holding{Symbol: symbol})
	return h, ok, nil
}

func (tx *memoryTx) UpsertHolding(_ context.Context, h domain.Holding) error {
	if tx.closed {
		return ErrTxClosed
	}
	if err := validateHolding(h); err != nil {
		return err
	}
	h.AccountID = tx.account.ID
	h.TotalCost = domain.RoundCents(h.TotalCost)
	tx.holdings.ReplaceOrInsert(h)
	return nil
}

func (tx *memoryTx) DeleteHolding(_ context.Context, symbol string) error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.holdings.Delete(domain.Holding{Symbol: symbol})
	return nil
}

func (tx *memoryTx) AppendTransaction(_ context.Context, t *domain.Transaction) error {
	if tx.closed {
		return ErrTxClosed
	}
	if err := validateTransaction(t); err != nil {
		return err
	}
	t.ID = tx.ledger.nextTxID.Add(1)
	t.AccountID = tx.account.ID
	t.CreatedAt = tx.ledger.now()
	t.Cost = domain.RoundCents(t.Cost)
	tx.pending = append(tx.pending, *t)
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// runLedgerSuite exercises the Ledger contract against any backend.
// newLedger must return an empty, migrated ledger.
func runLedgerSuite(t *testing.T, newLedger func(t *testing.T) Ledger) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newLedger(t)) })
	t.Run("DuplicateUsername", func(t *testing.T) { testDuplicateUsername(t, newLedger(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newLedger(t)) })
	t.Run("CommitAppliesAllWrites", func(t *testing.T) { testCommit(t, newLedger(t)) })
	t.Run("ErrorDiscardsAllWrites", func(t *testing.T) { testRollback(t, newLedger(t)) })
	t.Run("RefusesNegativeCash", func(t *testing.T) { testNegativeCash(t, newLedger(t)) })
	t.Run("RefusesEmptyHolding", func(t *testing.T) { testEmptyHolding(t, newLedger(t)) })
	t.Run("HoldingsSortedBySymbol", func(t *testing.T) { testHoldingsSorted(t, newLedger(t)) })
	t.Run("TransactionsNewestFirst", func(t *testing.T) { testTransactionsNewestFirst(t, newLedger(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newLedger(t)) })
	t.Run("TxClosedAfterReturn", func(t *testing.T) { testTxClosed(t, newLedger(t)) })
	t.Run("ConcurrentTxSerialize", func(t *testing.T) { testConcurrentTx(t, newLedger(t)) })
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustCreate(t *testing.T, l Ledger, username, cash string) *domain.Account {
	t.Helper()
	a := &domain.Account{Username: username, CredentialHash: "hash", Cash: dec(cash)}
	if err := l.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("CreateAccount(%s): %v", username, err)
	}
	return a
}

func testCreateAndGet(t *testing.T, l Ledger) {
	ctx := context.Background()
	a := mustCreate(t, l, "alice", "10000.00")
	if a.ID == 0 {
		t.Fatal("expected an assigned account ID")
	}
	if a.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	got, err := l.GetAccount(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Username != "alice" || got.CredentialHash != "hash" {
		t.Fatalf("unexpected account %+v", got)
	}
	if !got.Cash.Equal(dec("10000")) {
		t.Fatalf("cash = %s, want 10000", got.Cash)
	}

	byName, err := l.GetAccountByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccountByUsername: %v", err)
	}
	if byName.ID != a.ID {
		t.Fatalf("GetAccountByUsername ID = %d, want %d", byName.ID, a.ID)
	}

	b := mustCreate(t, l, "bob", "5")
	if b.ID == a.ID {
		t.Fatal("expected distinct account IDs")
	}
}

func testDuplicateUsername(t *testing.T, l Ledger) {
	mustCreate(t, l, "alice", "1")
	err := l.CreateAccount(context.Background(), &domain.Account{Username: "alice", CredentialHash: "x"})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func testNotFound(t *testing.T, l Ledger) {
	ctx := context.Background()
	if _, err := l.GetAccount(ctx, 999); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("GetAccount: expected ErrAccountNotFound, got %v", err)
	}
	if _, err := l.GetAccountByUsername(ctx, "ghost"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("GetAccountByUsername: expected ErrAccountNotFound, got %v", err)
	}
	if _, err := l.ListHoldings(ctx, 999); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("ListHoldings: expected ErrAccountNotFound, got %v", err)
	}
	if _, err := l.ListTransactions(ctx, 999); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("ListTransactions: expected ErrAccountNotFound, got %v", err)
	}
	if err := l.DeleteAccount(ctx, 999); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("DeleteAccount: expected ErrAccountNotFound, got %v", err)
	}
	err := l.InTx(ctx, 999, func(Tx) error {
		t.Fatal("fn must not run for a missing account")
		return nil
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("InTx: expected ErrAccountNotFound, got %v", err)
	}
}

// buy applies a BUY the way the order executor does.
func buy(ctx context.Context, tx Tx, symbol string, qty int64, cost decimal.Decimal) error {
	a, err := tx.Account(ctx)
	if err != nil {
		return err
	}
	if err := tx.UpdateCash(ctx, a.Cash.Sub(cost)); err != nil {
		return err
	}
	h, _, err := tx.Holding(ctx, symbol)
	if err != nil {
		return err
	}
	h.Symbol = symbol
	h.Quantity += qty
	h.TotalCost = h.TotalCost.Add(cost)
	if err := tx.UpsertHolding(ctx, h); err != nil {
		return err
	}
	return tx.AppendTransaction(ctx, &domain.Transaction{
		Action: domain.ActionBuy, Symbol: symbol, Quantity: qty, Cost: cost,
	})
}

func testCommit(t *testing.T, l Ledger) {
	ctx := context.Background()
	a := mustCreate(t, l, "alice", "10000.00")

	var txn *domain.Transaction
	err := l.InTx(ctx, a.ID, func(tx Tx) error {
		if err := buy(ctx, tx, "AAPL", 10, dec("1500.00")); err != nil {
			return err
		}
		h, ok, err := tx.Holding(ctx, "AAPL")
		if err != nil || !ok || h.Quantity != 10 {
			return fmt.Errorf("holding not visible inside tx: %+v %v %v", h, ok, err)
		}
		txn = &domain.Transaction{Action: domain.ActionBuy, Symbol: "MSFT", Quantity: 1, Cost: dec("300")}
		return tx.AppendTransaction(ctx, txn)
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if txn.ID == 0 || txn.AccountID != a.ID || txn.CreatedAt.IsZero() {
		t.Fatalf("AppendTransaction did not fill in fields: %+v", txn)
	}

	got, _ := l.GetAccount(ctx, a.ID)
	if !got.Cash.Equal(dec("8500")) {
		t.Fatalf("cash = %s, want 8500", got.Cash)
	}
	holdings, err := l.ListHoldings(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListHoldings: %v", err)
	}
	if len(holdings) != 1 {
		t.Fatalf("expected 1 holding, got %d", len(holdings))
	}
	h := holdings[0]
	if h.Symbol != "AAPL" || h.Quantity != 10 || !h.TotalCost.Equal(dec("1500")) || h.AccountID != a.ID {
		t.Fatalf("unexpected holding %+v", h)
	}
	txns, _ := l.ListTransactions(ctx, a.ID)
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}
}

func testRollback(t *testing.T, l Ledger) {
	ctx := context.Background()
	a := mustCreate(t, l, "alice", "100.00")
	boom := errors.New("boom")

	err := l.InTx(ctx, a.ID, func(tx Tx) error {
		if err := buy(ctx, tx, "AAPL", 1, dec("60")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error to propagate, got %v", err)
	}

	got, _ := l.GetAccount(ctx, a.ID)
	if !got.Cash.Equal(dec("100")) {
		t.Fatalf("cash = %s, want unchanged 100", got.Cash)
	}
	if holdings, _ := l.ListHoldings(ctx, a.ID); len(holdings) != 0 {
		t.Fatalf("expected no holdings, got %+v", holdings)
	}
	if txns, _ := l.ListTransactions(ctx, a.ID); len(txns) != 0 {
		t.Fatalf("expected no transactions, got %+v", txns)
	}
}

func testNegativeCash(t *testing.T, l Ledger) {
	ctx := context.Background()
	a := mustCreate(t, l, "alice", "10")
	err := l.InTx(ctx, a.ID, func(tx Tx) error {
		return tx.UpdateCash(ctx, dec("-0.01"))
	})
	if !errors.Is(err, domain.ErrNegativeCash) {
		t.Fatalf("expected ErrNegativeCash, got %v", err)
	}
	got, _ := l.GetAccount(ctx, a.ID)
	if !got.Cash.Equal(dec("10")) {
		t.Fatalf("cash = %s, want 10", got.Cash)
	}

	// Zero is a legal balance.
	if err := l.InTx(ctx, a.ID, func(tx Tx) error { return tx.UpdateCash(ctx, decimal.Zero) }); err != nil {
		t.Fatalf("UpdateCash(0): %v", err)
	}
}

func testEmptyHolding(t *testing.T, l Ledger) {
	ctx := context.Background()
	a := mustCreate(t, l, "alice", "10")
	for _, qty := range []int64{0, -1} {
		err := l.InTx(ctx, a.ID, func(tx Tx) error {
			return tx.UpsertHolding(ctx, domain.Holding{Symbol: "AAPL", Quantity: qty})
		})
		if !errors.Is(err, domain.ErrNonPositiveQuantity) {
			t.Fatalf("quantity %d: expected ErrNonPositiveQuantity, got %v", qty, err)
		}
	}
	err := l.InTx(ctx, a.ID, func(tx Tx) error {
		return tx.AppendTransaction(ctx, &domain.Transaction{Action: domain.ActionBuy, Symbol: "AAPL", Quantity: 0})
	})
	if !errors.Is(err, domain.ErrNonPositiveQuantity) {
		t.Fatalf("transaction quantity 0: expected ErrNonPositiveQuantity, got %v", err)
	}
}

func testHoldingsSorted(t *testing.T, l Ledger) {
	ctx := context.Background()
	a := mustCreate(t, l, "alice", "10000")
	err := l.InTx(ctx, a.ID, func(tx Tx) error {
		for _, sym := range []string{"NFLX", "AAPL", "MSFT", "GOOG"} {
			if err := tx.UpsertHolding(ctx, domain.Holding{Symbol: sym, Quantity: 1, TotalCost: dec("1")}); err != nil {
				return err
			}
		}
		return tx.DeleteHolding(ctx, "MSFT")
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}

	holdings, _ := l.ListHoldings(ctx, a.ID)
	want := []string{"AAPL", "GOOG", "NFLX"}
	if len(holdings) != len(want) {
		t.Fatalf("expected %d holdings, got %+v", len(want), holdings)
	}
	for i, sym := range want {
		if holdings[i].Symbol != sym {
			t.Errorf("holdings[%d] = %s, want %s", i, holdings[i].Symbol, sym)
		}
	}

	// A second account must not see the first one's holdings.
	b := mustCreate(t, l, "bob", "1")
	if hs, _ := l.ListHoldings(ctx, b.ID); len(hs) != 0 {
		t.Fatalf("bob should have no holdings, got %+v", hs)
	}
}

func testTransactionsNewestFirst(t *testing.T, l Ledger) {
	ctx := context.Background()
	a := mustCreate(t, l, "alice", "10000")
	for i := 1; i <= 3; i++ {
		err := l.InTx(ctx, a.ID, func(tx Tx) error {
			return tx.AppendTransaction(ctx, &domain.Transaction{
				Action: domain.ActionBuy, Symbol: "AAPL", Quantity: int64(i), Cost: dec("1"),
			})
		})
		if err != nil {
			t.Fatalf("InTx %d: %v", i, err)
		}
	}

	txns, _ := l.ListTransactions(ctx, a.ID)
	if len(txns) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txns))
	}
	for i, wantQty := range []int64{3, 2, 1} {
		if txns[i].Quantity != wantQty {
			t.Errorf("txns[%d].Quantity = %d, want %d", i, txns[i].Quantity, wantQty)
		}
	}
	if !(txns[0].ID > txns[1].ID && txns[1].ID > txns[2].ID) {
		t.Fatalf("expected IDs to decrease, got %d %d %d", txns[0].ID, txns[1].ID, txns[2].ID)
	}
}

func testDeleteCascades(t *testing.T, l Ledger) {
	ctx := context.Background()
	a := mustCreate(t, l, "alice", "10000")
	if err := l.InTx(ctx, a.ID, func(tx Tx) error { return buy(ctx, tx, "AAPL", 1, dec("10")) }); err != nil {
		t.Fatalf("InTx: %v", err)
	}

	if err := l.DeleteAccount(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := l.GetAccount(ctx, a.ID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound after delete, got %v", err)
	}
	if _, err := l.ListHoldings(ctx, a.ID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for holdings, got %v", err)
	}
	if err := l.InTx(ctx, a.ID, func(Tx) error { return nil }); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for InTx, got %v", err)
	}

	// The username is free again.
	again := mustCreate(t, l, "alice", "1")
	if hs, _ := l.ListHoldings(ctx, again.ID); len(hs) != 0 {
		t.Fatalf("recreated account inherited holdings: %+v", hs)
	}
	if txns, _ := l.ListTransactions(ctx, again.ID); len(txns) != 0 {
		t.Fatalf("recreated account inherited transactions: %+v", txns)
	}
}

func testTxClosed(t *testing.T, l Ledger) {
	ctx := context.Background()
	a := mustCreate(t, l, "alice", "10")
	var leaked Tx
	if err := l.InTx(ctx, a.ID, func(tx Tx) error { leaked = tx; return nil }); err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if err := leaked.UpdateCash(ctx, dec("1")); !errors.Is(err, ErrTxClosed) {
		t.Fatalf("expected ErrTxClosed, got %v", err)
	}
}

func testConcurrentTx(t *testing.T, l Ledger) {
	ctx := context.Background()
	a := mustCreate(t, l, "alice", "0")
	const workers = 20

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.InTx(ctx, a.ID, func(tx Tx) error {
				acc, err := tx.Account(ctx)
				if err != nil {
					return err
				}
				return tx.UpdateCash(ctx, acc.Cash.Add(dec("1.00")))
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("InTx: %v", err)
		}
	}

	got, _ := l.GetAccount(ctx, a.ID)
	if !got.Cash.Equal(decimal.NewFromInt(workers)) {
		t.Fatalf("cash = %s, want %d (lost update)", got.Cash, workers)
	}
}

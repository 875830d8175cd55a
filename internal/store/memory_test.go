package store

import (
	"context"
	"errors"
	"testing"

	"github.com/efreitasn/papertrade/internal/domain"
	"pgregory.net/rapid"
)

func TestMemoryLedger(t *testing.T) {
	runLedgerSuite(t, func(t *testing.T) Ledger { return NewMemoryLedger() })
}

func TestMemoryLedger_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	a := mustCreate(t, l, "alice", "100")

	got, _ := l.GetAccount(ctx, a.ID)
	got.Cash = dec("1")
	a.Cash = dec("2")

	again, _ := l.GetAccount(ctx, a.ID)
	if !again.Cash.Equal(dec("100")) {
		t.Fatalf("stored account was mutated through a returned pointer: cash = %s", again.Cash)
	}
}

// Property: a failed transaction leaves an account exactly as it was, and a
// successful one leaves it exactly as a sequential model predicts.
func TestProperty_MemoryLedgerTxAtomicity(t *testing.T) {
	symbols := []string{"AAPL", "MSFT", "NFLX"}

	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		l := NewMemoryLedger()
		a := &domain.Account{Username: "prop", Cash: dec("100")}
		if err := l.CreateAccount(ctx, a); err != nil {
			t.Fatalf("CreateAccount: %v", err)
		}

		modelCash := dec("100")
		modelQty := map[string]int64{}
		modelTxns := 0

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			sym := rapid.SampledFrom(symbols).Draw(t, "symbol")
			qty := rapid.Int64Range(1, 5).Draw(t, "qty")
			cost := domain.Cost(dec("1.25"), qty)
			fail := rapid.Bool().Draw(t, "fail")

			err := l.InTx(ctx, a.ID, func(tx Tx) error {
				if err := buy(ctx, tx, sym, qty, cost); err != nil {
					return err
				}
				if fail {
					return errors.New("abort")
				}
				return nil
			})

			if modelCash.LessThan(cost) {
				if !errors.Is(err, domain.ErrNegativeCash) {
					t.Fatalf("expected ErrNegativeCash, got %v", err)
				}
				continue
			}
			if fail {
				if err == nil {
					t.Fatal("expected abort error")
				}
				continue
			}
			if err != nil {
				t.Fatalf("InTx: %v", err)
			}
			modelCash = modelCash.Sub(cost)
			modelQty[sym] += qty
			modelTxns++
		}

		got, _ := l.GetAccount(ctx, a.ID)
		if !got.Cash.Equal(modelCash) {
			t.Fatalf("cash = %s, model %s", got.Cash, modelCash)
		}
		holdings, _ := l.ListHoldings(ctx, a.ID)
		if len(holdings) != len(modelQty) {
			t.Fatalf("holdings = %+v, model %v", holdings, modelQty)
		}
		for _, h := range holdings {
			if h.Quantity != modelQty[h.Symbol] {
				t.Fatalf("%s quantity = %d, model %d", h.Symbol, h.Quantity, modelQty[h.Symbol])
			}
		}
		txns, _ := l.ListTransactions(ctx, a.ID)
		if len(txns) != modelTxns {
			t.Fatalf("transactions = %d, model %d", len(txns), modelTxns)
		}
	})
}

package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLite(t *testing.T) Ledger {
	t.Helper()
	l, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	if err := l.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return l
}

func TestSQLiteLedger(t *testing.T) {
	runLedgerSuite(t, newTestSQLite)
}

func TestSQLiteLedger_MigrateIsIdempotent(t *testing.T) {
	l := newTestSQLite(t).(*SQLiteLedger)
	if err := l.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestSQLiteLedger_InMemory(t *testing.T) {
	l, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer l.Close()
	if err := l.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	a := mustCreate(t, l, "alice", "12.345")
	got, err := l.GetAccount(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !got.Cash.Equal(dec("12.35")) {
		t.Fatalf("cash = %s, want 12.35", got.Cash)
	}
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a registered user of the simulator together with its cash
// balance. Cash is only ever mutated by order execution.
type Account struct {
	ID             int64
	Username       string
	CredentialHash string
	Email          string
	Cash           decimal.Decimal
	CreatedAt      time.Time
}

// Holding is an account's aggregated position in a single symbol. A holding
// with zero shares is never stored; it is deleted instead.
type Holding struct {
	AccountID int64
	Symbol    string
	Quantity  int64
	TotalCost decimal.Decimal // cumulative cost basis of the shares held
}

// Action is the direction recorded in the transaction log.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Transaction is an immutable entry of the ledger, written once per
// executed order.
type Transaction struct {
	ID        int64
	AccountID int64
	Action    Action
	Symbol    string
	Quantity  int64
	Cost      decimal.Decimal // total paid (BUY) or received (SELL), always positive
	CreatedAt time.Time
}

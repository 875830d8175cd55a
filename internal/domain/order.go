package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Side indicates whether an order buys or sells shares.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide accepts "buy" or "sell" in any letter case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", &ValidationError{Message: "side must be 'buy' or 'sell'"}
}

// Action returns the transaction log action recorded for the side.
func (s Side) Action() Action {
	if s == SideSell {
		return ActionSell
	}
	return ActionBuy
}

// RawOrder is an order exactly as received from a form or JSON body,
// before any parsing.
type RawOrder struct {
	Side     Side
	Symbol   string
	Quantity string
}

// OrderRequest is a parsed order: the symbol is normalized and the
// quantity is an integer.
type OrderRequest struct {
	Side     Side
	Symbol   string
	Quantity int64
}

// ParseOrder converts a RawOrder into an OrderRequest. Checks run in a fixed
// order and the first failure wins: missing symbol, then a quantity that is
// not an integer, then a quantity that is not positive. The returned reason
// is empty on success.
func ParseOrder(raw RawOrder) (OrderRequest, Reason) {
	symbol := NormalizeSymbol(raw.Symbol)
	if symbol == "" {
		return OrderRequest{}, ReasonMissingSymbol
	}
	qty, err := strconv.ParseInt(strings.TrimSpace(raw.Quantity), 10, 64)
	if err != nil {
		return OrderRequest{}, ReasonInvalidQuantityFormat
	}
	if qty <= 0 {
		return OrderRequest{}, ReasonInvalidQuantity
	}
	return OrderRequest{Side: raw.Side, Symbol: symbol, Quantity: qty}, ""
}

// OrderStatus is the outcome class of an order.
type OrderStatus string

const (
	// OrderExecuted means the ledger was updated.
	OrderExecuted OrderStatus = "executed"
	// OrderRejected is a business rejection: the request was well formed
	// but the account cannot afford it.
	OrderRejected OrderStatus = "rejected"
	// OrderInvalid means the request itself was unusable.
	OrderInvalid OrderStatus = "invalid"
)

// Reason explains why an order was rejected or invalid.
type Reason string

const (
	ReasonInsufficientFunds     Reason = "insufficient_funds"
	ReasonInsufficientShares    Reason = "insufficient_shares"
	ReasonMissingSymbol         Reason = "missing_symbol"
	ReasonInvalidQuantityFormat Reason = "invalid_quantity_format"
	ReasonInvalidQuantity       Reason = "invalid_quantity"
	ReasonUnknownSymbol         Reason = "unknown_symbol"
)

var invalidMessages = map[Reason]string{
	ReasonMissingSymbol:         "must provide symbol",
	ReasonInvalidQuantityFormat: "invalid quantity type",
	ReasonInvalidQuantity:       "invalid quantity",
	ReasonUnknownSymbol:         "invalid symbol",
}

// Status returns the outcome class the reason belongs to.
func (r Reason) Status() OrderStatus {
	switch r {
	case ReasonInsufficientFunds, ReasonInsufficientShares:
		return OrderRejected
	case "":
		return OrderExecuted
	}
	return OrderInvalid
}

// OrderResult is the tagged outcome of an order. Status selects which
// fields are meaningful: Executed carries the transaction and the
// remaining cash, Rejected and Invalid carry a Reason.
type OrderResult struct {
	Status        OrderStatus
	Reason        Reason
	Side          Side
	Symbol        string
	Name          string
	Quantity      int64
	Price         decimal.Decimal
	Cost          decimal.Decimal
	RemainingCash decimal.Decimal
	TransactionID int64
	Message       string
}

// Invalid builds the result for a malformed request.
func Invalid(reason Reason) OrderResult {
	return OrderResult{
		Status:  OrderInvalid,
		Reason:  reason,
		Message: invalidMessages[reason],
	}
}

// Rejected builds the result for a business rejection.
func Rejected(reason Reason, message string) OrderResult {
	return OrderResult{
		Status:  OrderRejected,
		Reason:  reason,
		Message: message,
	}
}

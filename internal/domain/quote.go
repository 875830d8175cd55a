package domain

import "github.com/shopspring/decimal"

// Quote is a live price for a symbol as reported by the quote source.
type Quote struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
}

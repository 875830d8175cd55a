// Package quote looks up live share prices.
package quote

import (
	"context"

	"github.com/efreitasn/papertrade/internal/domain"
)

// Lookup failures. ErrUnavailable is wrapped with the underlying cause.
var (
	ErrNotFound    = domain.ErrSymbolNotFound
	ErrUnavailable = domain.ErrQuoteUnavailable
)

// Source resolves a normalized symbol to its current quote. The returned
// Quote carries the source's canonical symbol and a positive price.
type Source interface {
	Lookup(ctx context.Context, symbol string) (domain.Quote, error)
}

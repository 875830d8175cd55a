package quote

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// Static serves quotes from a fixed in-memory table. Prices can be changed
// at runtime with Set.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
}

func NewStatic(quotes ...domain.Quote) *Static {
	s := &Static{quotes: make(map[string]domain.Quote, len(quotes))}
	for _, q := range quotes {
		s.Set(q)
	}
	return s
}

// Set adds or replaces the quote for q.Symbol.
func (s *Static) Set(q domain.Quote) {
	q.Symbol = domain.NormalizeSymbol(q.Symbol)
	if q.Name == "" {
		q.Name = q.Symbol
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.Symbol] = q
}

func (s *Static) Lookup(ctx context.Context, symbol string) (domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[domain.NormalizeSymbol(symbol)]
	if !ok {
		return domain.Quote{}, ErrNotFound
	}
	return q, nil
}

// ParseStatic parses a comma separated list of SYMBOL:price[:name] entries,
// e.g. "AAPL:189.25:Apple Inc.,MSFT:410".
func ParseStatic(list string) (*Static, error) {
	s := NewStatic()
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("static quote %q: want SYMBOL:price[:name]", entry)
		}
		symbol := domain.NormalizeSymbol(parts[0])
		if symbol == "" {
			return nil, fmt.Errorf("static quote %q: empty symbol", entry)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("static quote %q: invalid price: %w", entry, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("static quote %q: price must be positive", entry)
		}
		q := domain.Quote{Symbol: symbol, Price: price}
		if len(parts) == 3 {
			q.Name = strings.TrimSpace(parts[2])
		}
		s.Set(q)
	}
	return s, nil
}

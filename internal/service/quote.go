package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/metrics"
	"github.com/efreitasn/papertrade/internal/quote"
)

// lookupQuote queries src and counts the outcome. Errors other than
// quote.ErrNotFound always wrap domain.ErrQuoteUnavailable.
func lookupQuote(ctx context.Context, src quote.Source, m *metrics.Collector, symbol string) (domain.Quote, error) {
	q, err := src.Lookup(ctx, symbol)
	switch {
	case err == nil:
		m.ObserveQuoteLookup(metrics.QuoteFound)
		return q, nil
	case errors.Is(err, quote.ErrNotFound):
		m.ObserveQuoteLookup(metrics.QuoteNotFound)
		return domain.Quote{}, err
	case errors.Is(err, domain.ErrQuoteUnavailable):
		m.ObserveQuoteLookup(metrics.QuoteUnavailable)
		return domain.Quote{}, err
	default:
		m.ObserveQuoteLookup(metrics.QuoteUnavailable)
		return domain.Quote{}, fmt.Errorf("%w: %v", domain.ErrQuoteUnavailable, err)
	}
}

// QuoteService answers standalone price lookups.
type QuoteService struct {
	quotes  quote.Source
	metrics *metrics.Collector
}

func NewQuoteService(quotes quote.Source, m *metrics.Collector) *QuoteService {
	return &QuoteService{quotes: quotes, metrics: m}
}

// Quote returns the current quote for symbol. Empty and unknown symbols are
// reported as validation errors.
func (s *QuoteService) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.Quote{}, &domain.ValidationError{Message: "must provide symbol"}
	}
	q, err := lookupQuote(ctx, s.quotes, s.metrics, symbol)
	if errors.Is(err, quote.ErrNotFound) {
		return domain.Quote{}, &domain.ValidationError{Message: "invalid symbol"}
	}
	if err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

// QuoteMessage renders q the way the quote page words it.
func QuoteMessage(q domain.Quote) string {
	return fmt.Sprintf("A share of %s (%s) costs %s.", q.Name, q.Symbol, domain.FormatUSD(q.Price))
}

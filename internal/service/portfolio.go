package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/metrics"
	"github.com/efreitasn/papertrade/internal/quote"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// defaultLookupConcurrency bounds parallel quote lookups per valuation.
const defaultLookupConcurrency = 4

// Position is a holding valued at the current market price.
type Position struct {
	Symbol    string
	Name      string
	Quantity  int64
	Price     decimal.Decimal
	Worth     decimal.Decimal
	TotalCost decimal.Decimal
}

// Portfolio is an account's holdings and cash at current prices.
type Portfolio struct {
	AccountID     int64
	Positions     []Position // ordered by symbol
	Cash          decimal.Decimal
	HoldingsValue decimal.Decimal
	Total         decimal.Decimal
}

// PortfolioService serves the read side of the ledger.
type PortfolioService struct {
	ledger      store.Ledger
	quotes      quote.Source
	metrics     *metrics.Collector
	concurrency int
}

func NewPortfolioService(ledger store.Ledger, quotes quote.Source, m *metrics.Collector) *PortfolioService {
	return &PortfolioService{
		ledger:      ledger,
		quotes:      quotes,
		metrics:     m,
		concurrency: defaultLookupConcurrency,
	}
}

// Value prices every holding of the account. If any price cannot be
// obtained the whole valuation fails with an error wrapping
// domain.ErrQuoteUnavailable; partial totals are never returned.
func (s *PortfolioService) Value(ctx context.Context, accountID int64) (*Portfolio, error) {
	acct, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.ledger.ListHoldings(ctx, accountID)
	if err != nil {
		return nil, err
	}

	positions := make([]Position, len(holdings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, h := range holdings {
		g.Go(func() error {
			q, err := lookupQuote(gctx, s.quotes, s.metrics, h.Symbol)
			if errors.Is(err, quote.ErrNotFound) {
				return fmt.Errorf("%w: %s is no longer quoted", domain.ErrQuoteUnavailable, h.Symbol)
			}
			if err != nil {
				return fmt.Errorf("value %s: %w", h.Symbol, err)
			}
			positions[i] = Position{
				Symbol:    h.Symbol,
				Name:      q.Name,
				Quantity:  h.Quantity,
				Price:     q.Price,
				Worth:     domain.Cost(q.Price, h.Quantity),
				TotalCost: h.TotalCost,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	value := decimal.Zero
	for _, p := range positions {
		value = value.Add(p.Worth)
	}
	return &Portfolio{
		AccountID:     accountID,
		Positions:     positions,
		Cash:          acct.Cash,
		HoldingsValue: domain.RoundCents(value),
		Total:         domain.RoundCents(value.Add(acct.Cash)),
	}, nil
}

// History returns the account's transactions, newest first.
func (s *PortfolioService) History(ctx context.Context, accountID int64) ([]domain.Transaction, error) {
	return s.ledger.ListTransactions(ctx, accountID)
}

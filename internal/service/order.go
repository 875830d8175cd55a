package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/metrics"
	"github.com/efreitasn/papertrade/internal/quote"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/shopspring/decimal"
)

// OrderService executes market orders against a live quote. It holds no
// per-request state; per-account serialization is the ledger's job.
type OrderService struct {
	ledger  store.Ledger
	quotes  quote.Source
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewOrderService creates a new OrderService. m may be nil.
func NewOrderService(ledger store.Ledger, quotes quote.Source, m *metrics.Collector, logger *slog.Logger) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		ledger:  ledger,
		quotes:  quotes,
		metrics: m,
		logger:  logger,
	}
}

// Submit parses a raw order and executes it. Malformed input comes back as
// an Invalid result, never as an error.
func (s *OrderService) Submit(ctx context.Context, accountID int64, raw domain.RawOrder) (domain.OrderResult, error) {
	req, reason := domain.ParseOrder(raw)
	if reason != "" {
		res := domain.Invalid(reason)
		res.Side = raw.Side
		s.observe(accountID, domain.OrderRequest{Side: raw.Side, Symbol: raw.Symbol}, res, nil, 0)
		return res, nil
	}
	return s.Execute(ctx, accountID, req)
}

// Execute runs a parsed order. The returned error is non-nil only for
// infrastructure failures, in which case the ledger is untouched. Business
// outcomes (executed, rejected, invalid) are reported in the result.
func (s *OrderService) Execute(ctx context.Context, accountID int64, req domain.OrderRequest) (domain.OrderResult, error) {
	start := time.Now()
	res, err := s.execute(ctx, accountID, req)
	s.observe(accountID, req, res, err, time.Since(start))
	return res, err
}

func (s *OrderService) execute(ctx context.Context, accountID int64, req domain.OrderRequest) (domain.OrderResult, error) {
	if req.Side != domain.SideBuy && req.Side != domain.SideSell {
		return domain.OrderResult{}, &domain.ValidationError{Message: "side must be 'buy' or 'sell'"}
	}
	symbol := domain.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return withSide(domain.Invalid(domain.ReasonMissingSymbol), req.Side), nil
	}
	if req.Quantity <= 0 {
		return withSide(domain.Invalid(domain.ReasonInvalidQuantity), req.Side), nil
	}

	// The quote is fetched before the ledger transaction so that no account
	// lock is held across network I/O.
	q, err := lookupQuote(ctx, s.quotes, s.metrics, symbol)
	if errors.Is(err, quote.ErrNotFound) {
		res := withSide(domain.Invalid(domain.ReasonUnknownSymbol), req.Side)
		res.Symbol = symbol
		return res, nil
	}
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("lookup %s: %w", symbol, err)
	}

	cost := domain.Cost(q.Price, req.Quantity)
	if !cost.IsPositive() {
		// Sub-cent prices can round a small order down to nothing.
		res := withSide(domain.Invalid(domain.ReasonInvalidQuantity), req.Side)
		res.Symbol = q.Symbol
		return res, nil
	}
	var res domain.OrderResult
	err = s.ledger.InTx(ctx, accountID, func(tx store.Tx) error {
		var err error
		if req.Side == domain.SideBuy {
			res, err = applyBuy(ctx, tx, q, req.Quantity, cost)
		} else {
			res, err = applySell(ctx, tx, q, req.Quantity, cost)
		}
		return err
	})
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("%s %s: %w", req.Side, q.Symbol, err)
	}

	res.Side = req.Side
	res.Symbol = q.Symbol
	res.Name = q.Name
	res.Quantity = req.Quantity
	res.Price = q.Price
	res.Cost = cost
	return res, nil
}

func withSide(res domain.OrderResult, side domain.Side) domain.OrderResult {
	res.Side = side
	return res
}

// applyBuy debits cost from cash and adds quantity to the holding. An
// account that cannot cover cost is rejected with no writes.
func applyBuy(ctx context.Context, tx store.Tx, q domain.Quote, quantity int64, cost decimal.Decimal) (domain.OrderResult, error) {
	acct, err := tx.Account(ctx)
	if err != nil {
		return domain.OrderResult{}, err
	}
	if acct.Cash.LessThan(cost) {
		return domain.Rejected(domain.ReasonInsufficientFunds, fmt.Sprintf(
			"Not enough cash to buy %d shares of %s (%s) for %s.",
			quantity, q.Name, q.Symbol, domain.FormatUSD(cost))), nil
	}

	cash := domain.RoundCents(acct.Cash.Sub(cost))
	if err := tx.UpdateCash(ctx, cash); err != nil {
		return domain.OrderResult{}, err
	}

	h, _, err := tx.Holding(ctx, q.Symbol)
	if err != nil {
		return domain.OrderResult{}, err
	}
	h.Symbol = q.Symbol
	h.Quantity += quantity
	h.TotalCost = domain.RoundCents(h.TotalCost.Add(cost))
	if err := tx.UpsertHolding(ctx, h); err != nil {
		return domain.OrderResult{}, err
	}

	t := &domain.Transaction{Action: domain.ActionBuy, Symbol: q.Symbol, Quantity: quantity, Cost: cost}
	if err := tx.AppendTransaction(ctx, t); err != nil {
		return domain.OrderResult{}, err
	}

	return domain.OrderResult{
		Status:        domain.OrderExecuted,
		RemainingCash: cash,
		TransactionID: t.ID,
		Message: fmt.Sprintf("Bought %d shares of %s (%s) for %s. Remaining cash is %s.",
			quantity, q.Name, q.Symbol, domain.FormatUSD(cost), domain.FormatUSD(cash)),
	}, nil
}

// applySell credits cost to cash and removes quantity from the holding,
// deleting it when nothing is left. The cost basis is reduced by the sale
// proceeds.
func applySell(ctx context.Context, tx store.Tx, q domain.Quote, quantity int64, cost decimal.Decimal) (domain.OrderResult, error) {
	h, ok, err := tx.Holding(ctx, q.Symbol)
	if err != nil {
		return domain.OrderResult{}, err
	}
	if !ok || h.Quantity < quantity {
		return domain.Rejected(domain.ReasonInsufficientShares, fmt.Sprintf(
			"Not enough shares of %s (%s) to sell.", q.Name, q.Symbol)), nil
	}

	if remaining := h.Quantity - quantity; remaining == 0 {
		if err := tx.DeleteHolding(ctx, q.Symbol); err != nil {
			return domain.OrderResult{}, err
		}
	} else {
		h.Quantity = remaining
		h.TotalCost = domain.RoundCents(h.TotalCost.Sub(cost))
		if err := tx.UpsertHolding(ctx, h); err != nil {
			return domain.OrderResult{}, err
		}
	}

	acct, err := tx.Account(ctx)
	if err != nil {
		return domain.OrderResult{}, err
	}
	cash := domain.RoundCents(acct.Cash.Add(cost))
	if err := tx.UpdateCash(ctx, cash); err != nil {
		return domain.OrderResult{}, err
	}

	t := &domain.Transaction{Action: domain.ActionSell, Symbol: q.Symbol, Quantity: quantity, Cost: cost}
	if err := tx.AppendTransaction(ctx, t); err != nil {
		return domain.OrderResult{}, err
	}

	return domain.OrderResult{
		Status:        domain.OrderExecuted,
		RemainingCash: cash,
		TransactionID: t.ID,
		Message: fmt.Sprintf("Sold %d shares of %s (%s) for %s. Current cash is %s.",
			quantity, q.Name, q.Symbol, domain.FormatUSD(cost), domain.FormatUSD(cash)),
	}, nil
}

func (s *OrderService) observe(accountID int64, req domain.OrderRequest, res domain.OrderResult, err error, d time.Duration) {
	side := string(req.Side)
	if err != nil {
		s.metrics.ObserveOrder(side, "error", "", d)
		s.logger.Error("order failed",
			"account_id", accountID,
			"side", side,
			"symbol", req.Symbol,
			"quantity", req.Quantity,
			"error", err,
		)
		return
	}

	s.metrics.ObserveOrder(side, string(res.Status), string(res.Reason), d)
	attrs := []any{
		"account_id", accountID,
		"side", side,
		"symbol", res.Symbol,
		"quantity", req.Quantity,
	}
	switch res.Status {
	case domain.OrderExecuted:
		s.logger.Info("order executed", append(attrs,
			"cost", res.Cost.StringFixed(domain.CentPlaces),
			"transaction_id", res.TransactionID)...)
	default:
		s.logger.Info("order "+string(res.Status), append(attrs, "reason", res.Reason)...)
	}
}

package handler

import (
	"net/http"
	"time"

	"github.com/efreitasn/papertrade/internal/service"
)

// PortfolioHandler serves the portfolio and history views.
type PortfolioHandler struct {
	portfolioSvc *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioSvc *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioSvc: portfolioSvc}
}

type positionResponse struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	Price     string `json:"price"`
	Worth     string `json:"worth"`
	TotalCost string `json:"total_cost"`
}

type portfolioResponse struct {
	Holdings      []positionResponse `json:"holdings"`
	Cash          string             `json:"cash"`
	HoldingsValue string             `json:"holdings_value"`
	Total         string             `json:"total"`
}

type transactionResponse struct {
	ID        int64  `json:"id"`
	Action    string `json:"action"`
	Symbol    string `json:"symbol"`
	Quantity  int64  `json:"quantity"`
	Cost      string `json:"cost"`
	CreatedAt string `json:"created_at"`
}

// Get handles GET /portfolio.
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.portfolioSvc.Value(r.Context(), accountID(r))
	if err != nil {
		mapError(w, err)
		return
	}

	holdings := make([]positionResponse, 0, len(p.Positions))
	for _, pos := range p.Positions {
		holdings = append(holdings, positionResponse{
			Symbol:    pos.Symbol,
			Name:      pos.Name,
			Quantity:  pos.Quantity,
			Price:     price(pos.Price),
			Worth:     money(pos.Worth),
			TotalCost: money(pos.TotalCost),
		})
	}
	WriteJSON(w, http.StatusOK, portfolioResponse{
		Holdings:      holdings,
		Cash:          money(p.Cash),
		HoldingsValue: money(p.HoldingsValue),
		Total:         money(p.Total),
	})
}

// History handles GET /history. Newest transactions come first.
func (h *PortfolioHandler) History(w http.ResponseWriter, r *http.Request) {
	txns, err := h.portfolioSvc.History(r.Context(), accountID(r))
	if err != nil {
		mapError(w, err)
		return
	}

	result := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		result = append(result, transactionResponse{
			ID:        t.ID,
			Action:    string(t.Action),
			Symbol:    t.Symbol,
			Quantity:  t.Quantity,
			Cost:      money(t.Cost),
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	WriteJSON(w, http.StatusOK, result)
}

package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// rawQuantity accepts the share count as either a JSON string or a JSON
// number and keeps its literal text, so "1.5", 1.5 and "abc" all reach the
// order parser unchanged.
type rawQuantity string

func (q *rawQuantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*q = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*q = rawQuantity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*q = rawQuantity(n.String())
	return nil
}

// tradeRequest is the JSON request body for POST /buy and POST /sell.
type tradeRequest struct {
	Symbol string      `json:"symbol"`
	Shares rawQuantity `json:"shares"`
}

// orderRequest is the JSON request body for POST /orders.
type orderRequest struct {
	Side   string      `json:"side"`
	Symbol string      `json:"symbol"`
	Shares rawQuantity `json:"shares"`
}

// orderResponse is the JSON rendering of an OrderResult. Only executed
// orders carry remaining_cash and transaction_id.
type orderResponse struct {
	Status        string  `json:"status"`
	Reason        string  `json:"reason,omitempty"`
	Message       string  `json:"message"`
	Side          string  `json:"side,omitempty"`
	Symbol        string  `json:"symbol,omitempty"`
	Name          string  `json:"name,omitempty"`
	Quantity      int64   `json:"quantity,omitempty"`
	Price         *string `json:"price,omitempty"`
	Cost          *string `json:"cost,omitempty"`
	RemainingCash *string `json:"remaining_cash,omitempty"`
	TransactionID int64   `json:"transaction_id,omitempty"`
}

func buildOrderResponse(res domain.OrderResult) orderResponse {
	resp := orderResponse{
		Status:   string(res.Status),
		Reason:   string(res.Reason),
		Message:  res.Message,
		Side:     string(res.Side),
		Symbol:   res.Symbol,
		Name:     res.Name,
		Quantity: res.Quantity,
	}
	if res.Price.IsPositive() {
		p := price(res.Price)
		cost := money(res.Cost)
		resp.Price = &p
		resp.Cost = &cost
	}
	if res.Status == domain.OrderExecuted {
		cash := money(res.RemainingCash)
		resp.RemainingCash = &cash
		resp.TransactionID = res.TransactionID
	}
	return resp
}

// Buy handles POST /buy.
func (h *OrderHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, domain.SideBuy)
}

// Sell handles POST /sell.
func (h *OrderHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, domain.SideSell)
}

func (h *OrderHandler) trade(w http.ResponseWriter, r *http.Request, side domain.Side) {
	var req tradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	h.submit(w, r, domain.RawOrder{Side: side, Symbol: req.Symbol, Quantity: string(req.Shares)})
}

// Submit handles POST /orders, where the side travels in the body.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	h.submit(w, r, domain.RawOrder{Side: side, Symbol: req.Symbol, Quantity: string(req.Shares)})
}

// submit runs the order. Every business outcome, including rejections and
// invalid input, is a 200 with the status in the body.
func (h *OrderHandler) submit(w http.ResponseWriter, r *http.Request, raw domain.RawOrder) {
	res, err := h.orderSvc.Submit(r.Context(), accountID(r), raw)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponse(res))
}

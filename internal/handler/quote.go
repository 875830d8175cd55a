package handler

import (
	"net/http"

	"github.com/efreitasn/papertrade/internal/service"
	"github.com/go-chi/chi/v5"
)

// QuoteHandler handles HTTP requests for quote lookups.
type QuoteHandler struct {
	quoteSvc *service.QuoteService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(quoteSvc *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteSvc: quoteSvc}
}

type quoteResponse struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Price   string `json:"price"`
	Message string `json:"message"`
}

// Get handles GET /quote/{symbol}.
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.quoteSvc.Quote(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, quoteResponse{
		Symbol:  q.Symbol,
		Name:    q.Name,
		Price:   price(q.Price),
		Message: service.QuoteMessage(q),
	})
}

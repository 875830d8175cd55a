package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/papertrade/internal/metrics"
	"github.com/efreitasn/papertrade/internal/service"
	"github.com/go-chi/chi/v5"
)

// Services bundles what the router needs to serve requests.
type Services struct {
	Accounts  *service.AccountService
	Orders    *service.OrderService
	Portfolio *service.PortfolioService
	Quotes    *service.QuoteService
	Sessions  *service.SessionStore
}

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware. m may be nil, in which case
// /metrics is not served.
func NewRouter(svc Services, m *metrics.Collector, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger, m))
	r.Use(contentTypeJSON)

	accountH := NewAccountHandler(svc.Accounts)
	orderH := NewOrderHandler(svc.Orders)
	portfolioH := NewPortfolioHandler(svc.Portfolio)
	quoteH := NewQuoteHandler(svc.Quotes)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Post("/register", accountH.Register)
	r.Post("/login", accountH.Login)

	r.Group(func(r chi.Router) {
		r.Use(requireSession(svc.Sessions))

		r.Post("/logout", accountH.Logout)
		r.Get("/account", accountH.Get)
		r.Delete("/account", accountH.Delete)

		r.Get("/quote/{symbol}", quoteH.Get)

		r.Post("/buy", orderH.Buy)
		r.Post("/sell", orderH.Sell)
		r.Post("/orders", orderH.Submit)

		r.Get("/portfolio", portfolioH.Get)
		r.Get("/history", portfolioH.History)
	})

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog, and counts it in m.
func requestLogging(logger *slog.Logger, m *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			m.ObserveRequest(r.Method, ww.status)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON rejects POST, PUT and PATCH requests that carry a body
// whose Content-Type is not application/json. Bodiless requests such as
// POST /logout pass through.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if r.ContentLength == 0 {
				break
			}
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

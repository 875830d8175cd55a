package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Quote lookup outcomes.
const (
	QuoteFound       = "found"
	QuoteNotFound    = "not_found"
	QuoteUnavailable = "unavailable"
)

// Collector owns a private registry with the service's metrics. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry      *prometheus.Registry
	orders        *prometheus.CounterVec
	orderDuration *prometheus.HistogramVec
	quoteLookups  *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		orders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrade_orders_total",
			Help: "Orders handled by the executor, by outcome",
		}, []string{"side", "status", "reason"}),
		orderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "papertrade_order_duration_seconds",
			Help:    "Time taken to execute an order, including the quote lookup",
			Buckets: prometheus.DefBuckets,
		}, []string{"side"}),
		quoteLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrade_quote_lookups_total",
			Help: "Quote source lookups, by outcome",
		}, []string{"outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrade_http_requests_total",
			Help: "HTTP requests served, by method and status code",
		}, []string{"method", "status"}),
	}
}

// ObserveOrder records one order outcome. reason is empty for executed orders.
func (c *Collector) ObserveOrder(side, status, reason string, d time.Duration) {
	if c == nil {
		return
	}
	c.orders.WithLabelValues(side, status, reason).Inc()
	c.orderDuration.WithLabelValues(side).Observe(d.Seconds())
}

func (c *Collector) ObserveQuoteLookup(outcome string) {
	if c == nil {
		return
	}
	c.quoteLookups.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveRequest(method string, status int) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(methodLabel(method), strconv.Itoa(status)).Inc()
}

// methodLabel folds non-standard methods into "other" so clients cannot
// grow the label set.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodConnect,
		http.MethodOptions, http.MethodTrace:
		return method
	}
	return "other"
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	salesTotal      *prometheus.CounterVec
	salesAmount     *prometheus.CounterVec
	saleDuration    prometheus.Histogram
	consumedTotal   *prometheus.CounterVec
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "comanda_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	sales := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_sales_total",
		Help: "Sale creation attempts by outcome.",
	}, []string{"outcome"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_sales_amount_total",
		Help: "Sum of committed sale totals by payment method.",
	}, []string{"payment_method"})
	saleDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "comanda_sale_create_duration_seconds",
		Help:    "Duration of the sale unit of work including retries.",
		Buckets: prometheus.DefBuckets,
	})
	consumed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comanda_ingredient_consumed_total",
		Help: "Ingredient quantity consumed by sales.",
	}, []string{"ingredient"})
	registry.MustRegister(requests, duration, sales, amount, saleDuration, consumed)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		salesTotal:      sales,
		salesAmount:     amount,
		saleDuration:    saleDuration,
		consumedTotal:   consumed,
	}
}

// Handler returns the http.Handler serving /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveSale records the outcome of one CreateSale call.
func (m *Metrics) ObserveSale(outcome, paymentMethod string, total float64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.salesTotal.WithLabelValues(outcome).Inc()
	m.saleDuration.Observe(elapsed.Seconds())
	if outcome == "committed" {
		m.salesAmount.WithLabelValues(paymentMethod).Add(total)
	}
}

// ObserveConsumption records ingredient quantity consumed by a sale.
func (m *Metrics) ObserveConsumption(ingredient string, qty float64) {
	if m == nil || qty <= 0 {
		return
	}
	m.consumedTotal.WithLabelValues(ingredient).Add(qty)
}

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

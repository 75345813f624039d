package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	cacheLatency  prometheus.Observer
	cacheWrite    prometheus.Observer
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter

	paymentsApplied     prometheus.Counter
	paymentsAmountCents prometheus.Counter
	overpaymentsDenied  prometheus.Counter
	authzDenials        prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	paymentsApplied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_applied_total",
		Help: "Total payments recorded in the ledger",
	})

	paymentsAmountCents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_amount_cents_total",
		Help: "Total amount applied to the ledger, in cents",
	})

	overpaymentsDenied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overpayments_rejected_total",
		Help: "Payments rejected because they exceeded the installment amount due",
	})

	authzDenials := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authz_denials_total",
		Help: "Requests denied by the authorization guard",
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite,
		cacheHits, cacheMisses, paymentsApplied, paymentsAmountCents, overpaymentsDenied, authzDenials)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		paymentsApplied:     paymentsApplied,
		paymentsAmountCents: paymentsAmountCents,
		overpaymentsDenied:  overpaymentsDenied,
		authzDenials:        authzDenials,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records latency and count for a finished request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordCacheOperation tracks a cache lookup outcome.
func (s *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	s.cacheLatency.Observe(duration.Seconds())
	if hit {
		s.cacheHits.Inc()
	} else {
		s.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks a cache set latency.
func (s *MetricsService) ObserveCacheWrite(duration time.Duration) {
	s.cacheWrite.Observe(duration.Seconds())
}

// RecordPaymentApplied tracks a successful ledger write.
func (s *MetricsService) RecordPaymentApplied(amountCents int64) {
	s.paymentsApplied.Inc()
	s.paymentsAmountCents.Add(float64(amountCents))
}

// RecordOverpaymentRejected tracks a rejected overpayment attempt.
func (s *MetricsService) RecordOverpaymentRejected() {
	s.overpaymentsDenied.Inc()
}

// RecordAuthzDenial tracks an authorization denial.
func (s *MetricsService) RecordAuthzDenial() {
	s.authzDenials.Inc()
}

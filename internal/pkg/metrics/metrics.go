// Package metrics provides Prometheus instrumentation for the fraud monitor
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fraud_monitor"

// Collector holds the service's collectors. All methods are nil-safe so
// components can run without instrumentation
type Collector struct {
	TransactionsScored *prometheus.CounterVec
	FraudScore         prometheus.Histogram
	AlertsCreated      *prometheus.CounterVec
	StatusTransitions  *prometheus.CounterVec
	StorageErrors      *prometheus.CounterVec
	PublishFailures    *prometheus.CounterVec
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewCollector creates collectors and registers them with reg
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		TransactionsScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_scored_total",
			Help:      "Transactions scored by alert severity and resulting status.",
		}, []string{"severity", "status"}),
		FraudScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fraud_score",
			Help:      "Distribution of computed fraud scores.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),
		AlertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Fraud alerts created by type and severity.",
		}, []string{"alert_type", "severity"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Operator status transitions by entity and target status.",
		}, []string{"entity", "to"}),
		StorageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Failed storage operations by operation.",
		}, []string{"op"}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Events that could not be published by event type.",
		}, []string{"event_type"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		gatherer: reg,
	}

	reg.MustRegister(
		c.TransactionsScored,
		c.FraudScore,
		c.AlertsCreated,
		c.StatusTransitions,
		c.StorageErrors,
		c.PublishFailures,
		c.HTTPRequestsTotal,
		c.HTTPDuration,
	)
	return c
}

// ObserveScore records a scored transaction
func (c *Collector) ObserveScore(severity, status string, score float64) {
	if c == nil {
		return
	}
	c.TransactionsScored.WithLabelValues(severity, status).Inc()
	c.FraudScore.Observe(score)
}

// AlertCreated records a new alert
func (c *Collector) AlertCreated(alertType, severity string) {
	if c == nil {
		return
	}
	c.AlertsCreated.WithLabelValues(alertType, severity).Inc()
}

// Transition records an operator transition
func (c *Collector) Transition(entity, to string) {
	if c == nil {
		return
	}
	c.StatusTransitions.WithLabelValues(entity, to).Inc()
}

// StorageError records a failed storage call
func (c *Collector) StorageError(op string) {
	if c == nil {
		return
	}
	c.StorageErrors.WithLabelValues(op).Inc()
}

// PublishFailure records an undelivered event
func (c *Collector) PublishFailure(eventType string) {
	if c == nil {
		return
	}
	c.PublishFailures.WithLabelValues(eventType).Inc()
}

// Middleware instruments echo requests by route pattern
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if c == nil {
				return next(ctx)
			}
			start := time.Now()
			err := next(ctx)
			// Render the error now so the recorded status is the one sent
			if err != nil {
				ctx.Error(err)
			}
			status := ctx.Response().Status
			path := ctx.Path()
			if path == "" {
				path = "unmatched"
			}
			method := ctx.Request().Method
			c.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			c.HTTPDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

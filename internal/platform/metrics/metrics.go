// Package metrics provides Prometheus metrics for the clinic platform's
// benefit ledger and procurement numbering.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	TransfersTotal    *prometheus.CounterVec
	TransferredUnits  prometheus.Counter
	SequenceFallbacks *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates all metrics on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		TransfersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "benefit_transfers_total",
			Help: "Benefit transfer attempts by outcome",
		}, []string{"kind", "outcome"}),
		TransferredUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "benefit_transferred_units_total",
			Help: "Total benefit units moved by successful transfers",
		}),
		SequenceFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sequence_fallback_total",
			Help: "Document numbers issued via the timestamp fallback",
		}, []string{"doc_type"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "path", "status"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.TransfersTotal,
		m.TransferredUnits,
		m.SequenceFallbacks,
		m.RequestDuration,
	)

	return m
}

// Handler returns the Prometheus exposition handler for this registry.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// Middleware records request durations labelled with the route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}

			m.RequestDuration.WithLabelValues(
				c.Request().Method, path, strconv.Itoa(status),
			).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

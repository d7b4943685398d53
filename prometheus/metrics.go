// Package prometheus instruments docxjson conversions with Prometheus metrics.
package prometheus

import (
	"context"
	"net/http"
	"time"

	"github.com/fwojciec/docxjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricsNamespace = "docxjson"

	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Metrics holds the conversion collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	conversionsTotal   *prometheus.CounterVec
	conversionDuration *prometheus.HistogramVec
	conversionTables   *prometheus.HistogramVec
}

// NewMetrics creates a registry with process and Go runtime collectors plus
// the conversion metrics.
func NewMetrics() *Metrics {
	m := &Metrics{}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{
		Namespace: MetricsNamespace,
	}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.conversionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "conversions_total",
		Help:      "The total number of conversions by origin and outcome.",
	}, []string{"origin", "status"})
	m.registry.MustRegister(m.conversionsTotal)

	m.conversionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "conversion_duration_seconds",
		Help:      "Time to convert a document.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"origin"})
	m.registry.MustRegister(m.conversionDuration)

	m.conversionTables = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "conversion_tables",
		Help:      "Number of tables extracted per successful conversion.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	}, []string{"origin"})
	m.registry.MustRegister(m.conversionTables)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveConversion records the outcome of one conversion.
func (m *Metrics) ObserveConversion(origin docxjson.Origin, err error, tables int, elapsed time.Duration) {
	if m == nil {
		return
	}

	status := StatusSucceeded
	if err != nil {
		status = StatusFailed
	}
	m.conversionsTotal.With(prometheus.Labels{"origin": string(origin), "status": status}).Inc()
	m.conversionDuration.With(prometheus.Labels{"origin": string(origin)}).Observe(elapsed.Seconds())
	if err == nil {
		m.conversionTables.With(prometheus.Labels{"origin": string(origin)}).Observe(float64(tables))
	}
}

// Ensure InstrumentedConverter implements docxjson.Converter.
var _ docxjson.Converter = (*InstrumentedConverter)(nil)

// InstrumentedConverter wraps a Converter and records metrics for each call.
type InstrumentedConverter struct {
	next    docxjson.Converter
	metrics *Metrics
}

// NewInstrumentedConverter creates a new InstrumentedConverter.
func NewInstrumentedConverter(next docxjson.Converter, metrics *Metrics) *InstrumentedConverter {
	return &InstrumentedConverter{next: next, metrics: metrics}
}

// Convert delegates to the wrapped converter and records the outcome.
func (c *InstrumentedConverter) Convert(ctx context.Context, src *docxjson.Source) (doc *docxjson.Document, err error) {
	defer func(begin time.Time) {
		var origin docxjson.Origin
		if src != nil {
			origin = src.Origin
		}
		var tables int
		if doc != nil {
			tables = len(doc.Tables)
		}
		c.metrics.ObserveConversion(origin, err, tables, time.Since(begin))
	}(time.Now())
	return c.next.Convert(ctx, src)
}

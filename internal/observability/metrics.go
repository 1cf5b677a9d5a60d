// Package observability provides Prometheus metrics for the scraper.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Extraction results reported per site.
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Metrics holds all Prometheus collectors of the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Cycle metrics
	CyclesTotal     *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
	SkippedTriggers prometheus.Counter

	// Extraction metrics
	Extractions *prometheus.CounterVec

	// Store metrics
	StoreWrites *prometheus.CounterVec

	// Notification metrics
	Notifications *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics registers all collectors on reg. A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "price_watcher"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scrape",
			Name:      "cycles_total",
			Help:      "Total number of scrape cycles by status",
		}, []string{"status"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scrape",
			Name:      "cycle_duration_seconds",
			Help:      "Scrape cycle duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		SkippedTriggers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scrape",
			Name:      "skipped_triggers_total",
			Help:      "Triggers dropped because a cycle was already running",
		}),
		Extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scrape",
			Name:      "extractions_total",
			Help:      "Price extractions by site and result",
		}, []string{"site", "result"}),
		StoreWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Price record writes by status",
		}, []string{"status"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Price change notifications by status",
		}, []string{"status"}),
		LastSuccessfulCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of last successful scrape cycle",
		}),
	}
}

// Handler returns an HTTP handler serving the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordCycle records the outcome and duration of one scrape cycle.
func (m *Metrics) RecordCycle(took time.Duration, err error) {
	if m == nil {
		return
	}
	m.CycleDuration.Observe(took.Seconds())
	if err != nil {
		m.CyclesTotal.WithLabelValues("error").Inc()
		return
	}
	m.CyclesTotal.WithLabelValues("success").Inc()
	m.LastSuccessfulCycle.SetToCurrentTime()
}

// RecordSkipped counts a trigger that found a cycle in progress.
func (m *Metrics) RecordSkipped() {
	if m == nil {
		return
	}
	m.SkippedTriggers.Inc()
}

// RecordExtraction counts one site extraction.
func (m *Metrics) RecordExtraction(site, result string) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(site, result).Inc()
}

// RecordStoreWrite counts one price record write.
func (m *Metrics) RecordStoreWrite(err error) {
	if m == nil {
		return
	}
	m.StoreWrites.WithLabelValues(status(err)).Inc()
}

// RecordNotification counts one price change notification.
func (m *Metrics) RecordNotification(err error) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

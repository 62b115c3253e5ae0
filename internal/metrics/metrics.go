// Package metrics exposes Prometheus collectors for the RPC layer, the ledger
// and the document store.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/hearth/internal/storage"
)

const namespace = "hearth"

// Metrics holds every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	rpcRequests *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	rollForward *prometheus.CounterVec
	bulkItems   *prometheus.CounterVec
	storeOps    *prometheus.CounterVec
}

// New creates and registers the collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "RPC calls by procedure and status code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		rollForward: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "roll_forward_total",
			Help:      "Recurring bill roll-forward attempts by outcome.",
		}, []string{"outcome"}),
		bulkItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "bulk_items_total",
			Help:      "Items processed by bulk operations by result.",
		}, []string{"op", "result"}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Document store writes by operation, collection and result.",
		}, []string{"op", "collection", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rpcRequests,
		m.rpcDuration,
		m.rollForward,
		m.bulkItems,
		m.storeOps,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRPC records one finished call.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(d.Seconds())
}

// RollForward implements ledger.Observer.
func (m *Metrics) RollForward(outcome string) {
	m.rollForward.WithLabelValues(outcome).Inc()
}

// BulkCompleted implements ledger.Observer.
func (m *Metrics) BulkCompleted(op string, succeeded, failed int) {
	m.bulkItems.WithLabelValues(op, "ok").Add(float64(succeeded))
	m.bulkItems.WithLabelValues(op, "failed").Add(float64(failed))
}

// TrackLiveViews exports the number of open live views as read by active.
func (m *Metrics) TrackLiveViews(active func() int64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "live",
		Name:      "views",
		Help:      "Open live dashboard views.",
	}, func() float64 { return float64(active()) }))
}

func (m *Metrics) storeWrite(op string, c storage.Collection, err error) {
	m.storeOps.WithLabelValues(op, c.Name, result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	case errors.Is(err, storage.ErrAlreadyExists):
		return "exists"
	case errors.Is(err, storage.ErrPermissionDenied):
		return "denied"
	default:
		return "error"
	}
}

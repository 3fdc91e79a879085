package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors exist from package init so callers never observe nil; Init registers them.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	DocumentOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blocklist_document_operations_total",
			Help: "Document reads and writes by kind and outcome.",
		},
		[]string{"op", "kind", "result"}, // op: read, write
	)

	WorkflowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blocklist_workflows_total",
			Help: "Workflow invocations by outcome.",
		},
		[]string{"workflow", "result"},
	)

	ReconcileEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blocklist_reconcile_events_total",
			Help: "Row events emitted by the list reconciler.",
		},
		[]string{"list", "action"},
	)

	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "blocklist_websocket_clients",
			Help: "Current number of connected dashboard websocket clients.",
		},
	)

	WebsocketDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blocklist_websocket_dropped_total",
			Help: "Dashboard subscribers dropped because their buffer was full.",
		},
	)

	initOnce sync.Once
)

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			DocumentOpsTotal,
			WorkflowsTotal,
			ReconcileEventsTotal,
			WebsocketClients,
			WebsocketDropped,
		)
	})
}

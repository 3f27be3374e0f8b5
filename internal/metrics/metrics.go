package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Exchange lifecycle
	DealsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_deals_total",
			Help: "Deal lifecycle events",
		},
		[]string{"event"}, // created|completed|cancelled|disputed
	)
	ProposalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_proposals_total",
			Help: "Proposal lifecycle events",
		},
		[]string{"event"}, // submitted|withdrawn
	)

	// Marketplace
	PurchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_purchases_total",
			Help: "Marketplace purchases by delivery outcome",
		},
		[]string{"delivery"}, // manual|auto|repeatable|out_of_stock
	)

	// Auth
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"result"}, // ok|failed|2fa_required
	)

	// Worker
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
	WorkerTasksFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_failed_total",
			Help: "Background tasks that failed or were dropped",
		},
		[]string{"task"},
	)

	initOnce sync.Once
)

var Handler = promhttp.Handler

// Init registers every collector once; repeated calls are no-ops.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal, RequestLatency, DealsTotal, ProposalsTotal, PurchasesTotal,
			LoginsTotal, WorkerQueueDepth, WorkerTasksFailed)
	})
}

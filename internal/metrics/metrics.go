package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BatchesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "production_batches_created_total",
			Help: "Output batches appended to the ledger",
		},
		[]string{"station", "sub_line"},
	)

	BatchesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "production_batches_consumed_total",
			Help: "Pending batches claimed by a downstream line",
		},
		[]string{"station", "used_line"},
	)

	ConsumptionConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "production_consumption_conflicts_total",
			Help: "Claims rejected because the batch was no longer pending",
		},
	)

	ShiftsAutoClosedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "production_shifts_auto_closed_total",
			Help: "Shifts closed by the expiry watcher instead of an operator",
		},
	)
)

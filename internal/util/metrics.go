package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoreReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_reads_total",
		Help: "Total number of store file reads",
	}, []string{"file", "result"})

	StoreWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_writes_total",
		Help: "Total number of store file writes",
	}, []string{"file", "result"})

	StoreLockWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_lock_wait_seconds",
		Help:    "Time spent waiting for a store file lock",
		Buckets: prometheus.DefBuckets,
	}, []string{"file"})

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	OrderStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_changes_total",
		Help: "Total number of order status updates",
	}, []string{"status"})

	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Total number of stock adjustments",
	}, []string{"result"})

	WishlistRevertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wishlist_reverts_total",
		Help: "Total number of wishlist toggles reverted after a failed save",
	})

	AuthAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Total number of login attempts",
	}, []string{"kind", "result"})

	AssistantRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assistant_requests_total",
		Help: "Total number of assistant flow invocations",
	}, []string{"flow", "result"})

	AssistantLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assistant_latency_seconds",
		Help:    "Latency of assistant flow invocations",
		Buckets: prometheus.DefBuckets,
	}, []string{"flow"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Total number of domain events published",
	}, []string{"type", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

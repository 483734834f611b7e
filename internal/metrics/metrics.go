// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package metrics registers the Prometheus collectors for the service:
// document store transactions, API traffic, the Discord circuit breaker,
// domain events, scheduled jobs and request lifecycle counts.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Document store
	DBTxnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_txn_duration_seconds",
			Help:    "Duration of document store transactions in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"mode"}, // "view", "update"
	)

	DBTxnErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_txn_errors_total",
			Help: "Total number of failed document store transactions",
		},
		[]string{"mode"},
	)

	DBTxnConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_txn_conflicts_total",
			Help: "Total number of update transactions retried after a write conflict",
		},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Events
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of domain events published",
		},
		[]string{"type"},
	)

	EventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_handled_total",
			Help: "Total number of domain events handled by the dispatcher",
		},
		[]string{"type", "result"}, // "success", "failure"
	)

	// Scheduler
	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job", "result"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Duration of scheduled job runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	JobItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_items_total",
			Help: "Total number of documents changed by scheduled jobs",
		},
		[]string{"job"},
	)

	// Request lifecycle
	RequestsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_created_total",
			Help: "Total number of requests created",
		},
		[]string{"type"},
	)

	RequestsReviewed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_reviewed_total",
			Help: "Total number of requests approved or rejected",
		},
		[]string{"type", "state"},
	)

	// Crypto
	WalletTransfers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_transfers_total",
			Help: "Total number of committed wallet balance changes by kind",
		},
		[]string{"kind"},
	)

	AuctionBids = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_bids_total",
			Help: "Total number of accepted auction bids",
		},
	)

	// System
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordTxn records one document store transaction.
func RecordTxn(mode string, duration time.Duration, err error) {
	DBTxnDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if err != nil {
		DBTxnErrors.WithLabelValues(mode).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordJobRun records the outcome of a scheduled job.
func RecordJobRun(job string, duration time.Duration, items int, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	JobRuns.WithLabelValues(job, result).Inc()
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
	if items > 0 {
		JobItemsProcessed.WithLabelValues(job).Add(float64(items))
	}
}

// RecordEventHandled records a dispatcher outcome for an event type.
func RecordEventHandled(eventType string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsHandled.WithLabelValues(eventType, result).Inc()
}

// SetAppInfo publishes build information.
func SetAppInfo(version, goVersion string) {
	AppInfo.WithLabelValues(version, goVersion).Set(1)
}

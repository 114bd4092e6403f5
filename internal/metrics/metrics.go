package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts API requests by route and status class
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devbox_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	// HTTPRequestDuration tracks request handling time
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devbox_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// SandboxOperationsTotal counts sandbox provider calls by operation and status
	SandboxOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devbox_sandbox_operations_total",
			Help: "Total number of sandbox provider operations",
		},
		[]string{"operation", "status"},
	)

	// IntentsCreated counts payment intents created by token symbol
	IntentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devbox_payment_intents_created_total",
			Help: "Total number of payment intents created",
		},
		[]string{"token"},
	)

	// SettlementsTotal counts settlements by token symbol
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devbox_payment_settlements_total",
			Help: "Total number of payment settlements recorded",
		},
		[]string{"token"},
	)

	// SettlementAmount tracks settled token amounts
	SettlementAmount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devbox_payment_settlement_amount",
			Help:    "Amount of tokens per settlement",
			Buckets: []float64{0.01, 0.1, 1, 10, 100, 1000, 10000},
		},
		[]string{"token"},
	)

	// IntentsExpired counts intents flipped to expired
	IntentsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devbox_payment_intents_expired_total",
			Help: "Total number of payment intents expired",
		},
	)

	// CreditsGranted counts credits granted through settlements
	CreditsGranted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devbox_credits_granted_total",
			Help: "Total credits granted through settlements",
		},
	)

	// PollDuration tracks deposit poll scan time
	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "devbox_deposit_poll_duration_seconds",
			Help:    "Deposit wallet poll duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ErrorsTotal counts errors by component
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devbox_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

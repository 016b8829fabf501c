// Package metrics holds the prometheus collectors shared by the submitter
// and its transports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal counts user operation submissions per account type
	// and outcome ("sent" or "error").
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userop_submissions_total",
			Help: "Total number of user operation submissions",
		},
		[]string{"account_type", "result"},
	)

	// RPCCallsTotal tracks JSON-RPC calls per endpoint
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userop_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"endpoint", "method"},
	)

	// RPCErrorsTotal tracks RPC errors per endpoint
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userop_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"endpoint", "error_type"},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "userop_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)
)

const (
	ResultSent  = "sent"
	ResultError = "error"
)

// RecordSubmission bumps SubmissionsTotal for one SendUserOp outcome.
func RecordSubmission(accountType string, err error) {
	result := ResultSent
	if err != nil {
		result = ResultError
	}
	SubmissionsTotal.WithLabelValues(accountType, result).Inc()
}

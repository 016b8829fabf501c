// Package provider implements the JSON-RPC transport used to talk to
// bundler and paymaster services.
//
// This package contains:
//   - RPCProvider interface: core abstraction for an RPC endpoint
//   - HTTPProvider: JSON-RPC 2.0 over HTTP implementation
//   - ProviderMonitor: health and rate tracking
//   - Error: JSON-RPC error objects returned by the endpoint
package provider

import (
	"context"
	"encoding/json"
	"time"
)

// RPCProvider is a single JSON-RPC endpoint.
type RPCProvider interface {
	// GetName returns provider identifier (e.g., "bundler", "paymaster")
	GetName() string

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// IsAvailable checks if the provider is healthy enough to use
	IsAvailable() bool

	// Call makes a single RPC request and returns the raw result
	Call(ctx context.Context, method string, params []any) (json.RawMessage, error)

	// Close cleans up resources
	Close() error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool
	Latency       time.Duration
	ErrorRate     float64
	LastSuccessAt time.Time
	LastFailureAt time.Time
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}

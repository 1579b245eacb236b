// Package metrics defines the instrumentation hooks used by the DataNexus
// client and its payment executor. The default recorder is a no-op; wire
// NewPrometheusRecorder for real counters.
package metrics

import "time"

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Counter and latency names emitted by the client.
const (
	APIRequests      = "api_requests"
	PaymentsRequired = "payments_required"
	TransferAttempts = "transfer_attempts"
	TransfersSent    = "transfers_sent"
	TransfersFailed  = "transfers_failed"

	APILatency      = "api_request"
	TransferLatency = "transfer"
)

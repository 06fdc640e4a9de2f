package invocation

import (
	"github.com/VictoriaMetrics/metrics"
)

// Invocation counters, exposable via metrics.WritePrometheus.
var (
	metricSends              = metrics.NewCounter("gridkv_invocation_sends_total")
	metricRetries            = metrics.NewCounter("gridkv_invocation_retries_total")
	metricTimeouts           = metrics.NewCounter("gridkv_invocation_timeouts_total")
	metricErrors             = metrics.NewCounter("gridkv_invocation_errors_total")
	metricEvents             = metrics.NewCounter("gridkv_invocation_events_total")
	metricUnknownCorrelation = metrics.NewCounter("gridkv_invocation_unknown_correlation_total")
)

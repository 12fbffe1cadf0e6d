package metrics

import (
	"sync"
	"time"
)

// Metric names
const (
	MetricHTTPRequests     = "http_requests_total"
	MetricHTTPDuration     = "http_request_duration_seconds"
	MetricExecutions       = "executions_total"
	MetricExecutionLatency = "execution_latency_seconds"
	MetricStageLatency     = "stage_latency_seconds"
	MetricOrderStatus      = "order_status_total"
	MetricEmitterFailures  = "event_emitter_failures_total"
)

// Collector keeps counters and bucketed histograms in memory
type Collector struct {
	counters   map[string]*counterSeries
	histograms map[string]*histogramSeries

	mutex sync.RWMutex

	histogramBuckets []float64
	startTime        time.Time
}

type counterSeries struct {
	name   string
	labels Labels
	value  int64
}

type histogramSeries struct {
	name   string
	labels Labels
	counts []int64 // per bucket, not cumulative
	sum    float64
	count  int64
}

// Labels are the label pairs of one series
type Labels map[string]string

// CounterEntry represents a counter data point
type CounterEntry struct {
	Name   string `json:"name"`
	Value  int64  `json:"value"`
	Labels Labels `json:"labels,omitempty"`
}

// HistogramEntry summarizes one histogram series.
// Buckets are cumulative and aligned with Bounds.
type HistogramEntry struct {
	Name    string    `json:"name"`
	Labels  Labels    `json:"labels,omitempty"`
	Bounds  []float64 `json:"bounds"`
	Buckets []int64   `json:"buckets"`
	Sum     float64   `json:"sum"`
	Count   int64     `json:"count"`
}

// MetricSnapshot represents a point-in-time view of all metrics
type MetricSnapshot struct {
	Counters   []CounterEntry   `json:"counters"`
	Histograms []HistogramEntry `json:"histograms"`
	Uptime     float64          `json:"uptime_seconds"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Default histogram buckets for latency measurements (in seconds)
var DefaultLatencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
}

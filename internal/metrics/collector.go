package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// NewCollector creates a new metrics collector with default latency buckets
func NewCollector() *Collector {
	return NewCollectorWithBuckets(DefaultLatencyBuckets)
}

// NewCollectorWithBuckets creates a new metrics collector with custom histogram buckets
func NewCollectorWithBuckets(buckets []float64) *Collector {
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)

	return &Collector{
		counters:         make(map[string]*counterSeries),
		histograms:       make(map[string]*histogramSeries),
		histogramBuckets: sorted,
		startTime:        time.Now(),
	}
}

// RecordHTTPRequest counts one served request and its duration
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.inc(MetricHTTPRequests, Labels{"method": method, "path": path, "status": strconv.Itoa(status)})
	c.observe(MetricHTTPDuration, Labels{"method": method, "path": path}, duration.Seconds())
}

// RecordExecution counts one execution and its end-to-end latency.
// outcome is "placed" or the name of the failing stage.
func (c *Collector) RecordExecution(symbol, outcome string, latency time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	labels := Labels{"symbol": symbol, "outcome": outcome}
	c.inc(MetricExecutions, labels)
	c.observe(MetricExecutionLatency, labels, latency.Seconds())
}

// RecordStageLatency records how long one stage of an execution took
func (c *Collector) RecordStageLatency(stage string, latency time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.observe(MetricStageLatency, Labels{"stage": stage}, latency.Seconds())
}

// RecordOrderStatus counts acknowledged orders by exchange status
func (c *Collector) RecordOrderStatus(symbol, status string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.inc(MetricOrderStatus, Labels{"symbol": symbol, "status": status})
}

// RecordEmitterFailure counts failed event deliveries
func (c *Collector) RecordEmitterFailure() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.inc(MetricEmitterFailures, nil)
}

// Counter returns the value of one counter series, zero if absent
func (c *Collector) Counter(name string, labels Labels) int64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if s, ok := c.counters[seriesKey(name, labels)]; ok {
		return s.value
	}
	return 0
}

// GetSnapshot returns a point-in-time view of all metrics, sorted by series
func (c *Collector) GetSnapshot() MetricSnapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	counters := make([]CounterEntry, 0, len(c.counters))
	for _, key := range sortedKeys(c.counters) {
		s := c.counters[key]
		counters = append(counters, CounterEntry{Name: s.name, Value: s.value, Labels: copyLabels(s.labels)})
	}

	histograms := make([]HistogramEntry, 0, len(c.histograms))
	for _, key := range sortedKeys(c.histograms) {
		s := c.histograms[key]
		cumulative := make([]int64, len(s.counts))
		var running int64
		for i, n := range s.counts {
			running += n
			cumulative[i] = running
		}
		histograms = append(histograms, HistogramEntry{
			Name:    s.name,
			Labels:  copyLabels(s.labels),
			Bounds:  append([]float64(nil), c.histogramBuckets...),
			Buckets: cumulative,
			Sum:     s.sum,
			Count:   s.count,
		})
	}

	return MetricSnapshot{
		Counters:   counters,
		Histograms: histograms,
		Uptime:     time.Since(c.startTime).Seconds(),
		Timestamp:  time.Now(),
	}
}

// Reset clears all metrics
func (c *Collector) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.counters = make(map[string]*counterSeries)
	c.histograms = make(map[string]*histogramSeries)
	c.startTime = time.Now()
}

// Collect returns Prometheus-formatted metrics
func (c *Collector) Collect() (string, error) {
	snapshot := c.GetSnapshot()
	var lines []string

	lines = append(lines,
		"# HELP executor_uptime_seconds Time since the collector started",
		"# TYPE executor_uptime_seconds counter",
		fmt.Sprintf("executor_uptime_seconds %f", snapshot.Uptime),
		"")

	lastName := ""
	for _, counter := range snapshot.Counters {
		if counter.Name != lastName {
			if lastName != "" {
				lines = append(lines, "")
			}
			lines = append(lines,
				fmt.Sprintf("# HELP %s %s", counter.Name, help(counter.Name)),
				fmt.Sprintf("# TYPE %s counter", counter.Name))
			lastName = counter.Name
		}
		lines = append(lines, fmt.Sprintf("%s%s %d", counter.Name, formatLabels(counter.Labels, ""), counter.Value))
	}
	if lastName != "" {
		lines = append(lines, "")
	}

	lastName = ""
	for _, hist := range snapshot.Histograms {
		if hist.Name != lastName {
			if lastName != "" {
				lines = append(lines, "")
			}
			lines = append(lines,
				fmt.Sprintf("# HELP %s %s", hist.Name, help(hist.Name)),
				fmt.Sprintf("# TYPE %s histogram", hist.Name))
			lastName = hist.Name
		}
		for i, bound := range hist.Bounds {
			le := strconv.FormatFloat(bound, 'g', -1, 64)
			lines = append(lines, fmt.Sprintf("%s_bucket%s %d", hist.Name, formatLabels(hist.Labels, le), hist.Buckets[i]))
		}
		lines = append(lines,
			fmt.Sprintf("%s_bucket%s %d", hist.Name, formatLabels(hist.Labels, "+Inf"), hist.Count),
			fmt.Sprintf("%s_sum%s %f", hist.Name, formatLabels(hist.Labels, ""), hist.Sum),
			fmt.Sprintf("%s_count%s %d", hist.Name, formatLabels(hist.Labels, ""), hist.Count))
	}
	if lastName != "" {
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n"), nil
}

// inc and observe expect the write lock to be held
func (c *Collector) inc(name string, labels Labels) {
	key := seriesKey(name, labels)
	s, ok := c.counters[key]
	if !ok {
		s = &counterSeries{name: name, labels: labels}
		c.counters[key] = s
	}
	s.value++
}

func (c *Collector) observe(name string, labels Labels, value float64) {
	key := seriesKey(name, labels)
	s, ok := c.histograms[key]
	if !ok {
		s = &histogramSeries{name: name, labels: labels, counts: make([]int64, len(c.histogramBuckets))}
		c.histograms[key] = s
	}

	idx := sort.SearchFloat64s(c.histogramBuckets, value)
	if idx < len(s.counts) {
		s.counts[idx]++
	}
	s.sum += value
	s.count++
}

// seriesKey is the metric name followed by its labels in key order
func seriesKey(name string, labels Labels) string {
	return name + formatLabels(labels, "")
}

func formatLabels(labels Labels, le string) string {
	if len(labels) == 0 && le == "" {
		return ""
	}

	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names)+1)
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s=%q", name, labels[name]))
	}
	if le != "" {
		pairs = append(pairs, fmt.Sprintf("le=%q", le))
	}

	return "{" + strings.Join(pairs, ",") + "}"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func copyLabels(labels Labels) Labels {
	if len(labels) == 0 {
		return nil
	}
	out := make(Labels, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

func help(metricName string) string {
	switch metricName {
	case MetricHTTPRequests:
		return "Total number of HTTP requests"
	case MetricHTTPDuration:
		return "HTTP request duration in seconds"
	case MetricExecutions:
		return "Total number of order executions by outcome"
	case MetricExecutionLatency:
		return "End-to-end execution latency in seconds"
	case MetricStageLatency:
		return "Latency of each execution stage in seconds"
	case MetricOrderStatus:
		return "Total number of acknowledged orders by status"
	case MetricEmitterFailures:
		return "Total number of failed execution event deliveries"
	default:
		return "Executor metric"
	}
}

// Package monitoring keeps in-process counters for the prediction API and
// renders them in the Prometheus text format.
package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LatencyBuckets are upper bounds in seconds.
var LatencyBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

type requestKey struct {
	method string
	route  string
	status int
}

type histogram struct {
	counts []uint64 // per bucket, not cumulative
	sum    float64
	total  uint64
}

func (h *histogram) observe(v float64) {
	for i, bound := range LatencyBuckets {
		if v <= bound {
			h.counts[i]++
			break
		}
	}
	h.sum += v
	h.total++
}

// Metrics is safe for concurrent use.
type Metrics struct {
	mu          sync.Mutex
	startTime   time.Time
	requests    map[requestKey]uint64
	latency     map[string]*histogram
	predictions map[string]uint64
	rejections  map[string]uint64
}

func NewMetrics() *Metrics {
	return &Metrics{
		startTime:   time.Now(),
		requests:    make(map[requestKey]uint64),
		latency:     make(map[string]*histogram),
		predictions: make(map[string]uint64),
		rejections:  make(map[string]uint64),
	}
}

// ObserveRequest counts one finished request and its duration.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests[requestKey{method: method, route: route, status: status}]++
	h, ok := m.latency[route]
	if !ok {
		h = &histogram{counts: make([]uint64, len(LatencyBuckets))}
		m.latency[route] = h
	}
	h.observe(d.Seconds())
}

// RecordPrediction counts a successful prediction by its label.
func (m *Metrics) RecordPrediction(label string) {
	m.mu.Lock()
	m.predictions[label]++
	m.mu.Unlock()
}

// RecordRejection counts a request refused as invalid, by reason kind.
func (m *Metrics) RecordRejection(kind string) {
	m.mu.Lock()
	m.rejections[kind]++
	m.mu.Unlock()
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Predictions returns a snapshot of the per-label counts.
func (m *Metrics) Predictions() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.predictions))
	for k, v := range m.predictions {
		out[k] = v
	}
	return out
}

// ExportPrometheus renders every series, sorted so the output is stable.
func (m *Metrics) ExportPrometheus() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder

	header(&b, "http_requests_total", "counter", "Finished HTTP requests.")
	keys := make([]requestKey, 0, len(m.requests))
	for k := range m.requests {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, c := keys[i], keys[j]
		if a.route != c.route {
			return a.route < c.route
		}
		if a.method != c.method {
			return a.method < c.method
		}
		return a.status < c.status
	})
	for _, k := range keys {
		fmt.Fprintf(&b, "http_requests_total{method=%s,route=%s,status=\"%d\"} %d\n", lv(k.method), lv(k.route), k.status, m.requests[k])
	}

	header(&b, "http_request_duration_seconds", "histogram", "HTTP request latency.")
	for _, route := range sortedKeys(m.latency) {
		h := m.latency[route]
		var cumulative uint64
		for i, bound := range LatencyBuckets {
			cumulative += h.counts[i]
			fmt.Fprintf(&b, "http_request_duration_seconds_bucket{route=%s,le=%s} %d\n", lv(route), lv(strconv.FormatFloat(bound, 'g', -1, 64)), cumulative)
		}
		fmt.Fprintf(&b, "http_request_duration_seconds_bucket{route=%s,le=\"+Inf\"} %d\n", lv(route), h.total)
		fmt.Fprintf(&b, "http_request_duration_seconds_sum{route=%s} %g\n", lv(route), h.sum)
		fmt.Fprintf(&b, "http_request_duration_seconds_count{route=%s} %d\n", lv(route), h.total)
	}

	header(&b, "predictions_total", "counter", "Successful predictions by label.")
	for _, label := range sortedKeys(m.predictions) {
		fmt.Fprintf(&b, "predictions_total{label=%s} %d\n", lv(label), m.predictions[label])
	}

	header(&b, "prediction_rejections_total", "counter", "Prediction requests rejected as invalid.")
	for _, kind := range sortedKeys(m.rejections) {
		fmt.Fprintf(&b, "prediction_rejections_total{kind=%s} %d\n", lv(kind), m.rejections[kind])
	}

	header(&b, "process_uptime_seconds", "gauge", "Seconds since the process started serving.")
	fmt.Fprintf(&b, "process_uptime_seconds %g\n", m.Uptime().Seconds())

	header(&b, "go_goroutines", "gauge", "Number of goroutines.")
	fmt.Fprintf(&b, "go_goroutines %d\n", runtime.NumGoroutine())

	return b.String()
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// lv quotes a label value the way the text exposition format expects: raw
// UTF-8 with only backslash, double quote and newline escaped.
func lv(v string) string {
	return `"` + labelEscaper.Replace(v) + `"`
}

func header(b *strings.Builder, name, kind, help string) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

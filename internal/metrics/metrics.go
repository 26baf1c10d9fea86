package metrics

import (
	"fmt"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	Counter MetricType = "counter"
	Timer   MetricType = "timer"
	Gauge   MetricType = "gauge"
)

// Metric represents a single metric with its metadata
type Metric struct {
	Name       string            `json:"name"`
	Type       MetricType        `json:"type"`
	Value      float64           `json:"value"`
	Labels     map[string]string `json:"labels,omitempty"`
	LastUpdate time.Time         `json:"last_update"`
}

// TimerMetric stores timing information
type TimerMetric struct {
	Count   int64   `json:"count"`
	Sum     float64 `json:"sum_ms"`
	Min     float64 `json:"min_ms"`
	Max     float64 `json:"max_ms"`
	Average float64 `json:"avg_ms"`
}

// Registry manages all metrics in memory. Best-effort degradations (QR
// fallback, artifact upload failures, silent job drops) are counted here so
// they stay visible even though they never fail the parent operation.
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]*Metric
	timers    map[string]*TimerMetric
	gauges    map[string]*Metric
	startTime time.Time
}

// NewRegistry creates a new metrics registry
func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]*Metric),
		timers:    make(map[string]*TimerMetric),
		gauges:    make(map[string]*Metric),
		startTime: time.Now(),
	}
}

// IncrementCounter increments a counter metric
func (r *Registry) IncrementCounter(name string, labels map[string]string) {
	r.AddToCounter(name, 1, labels)
}

// AddToCounter adds a value to a counter metric
func (r *Registry) AddToCounter(name string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := metricKey(name, labels)
	if counter, exists := r.counters[key]; exists {
		counter.Value += value
		counter.LastUpdate = time.Now()
	} else {
		r.counters[key] = &Metric{
			Name:       name,
			Type:       Counter,
			Value:      value,
			Labels:     copyLabels(labels),
			LastUpdate: time.Now(),
		}
	}
}

// RecordTimer records a timing measurement
func (r *Registry) RecordTimer(name string, duration time.Duration, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := metricKey(name, labels)
	durationMs := float64(duration.Nanoseconds()) / 1e6

	if timer, exists := r.timers[key]; exists {
		timer.Count++
		timer.Sum += durationMs
		if durationMs < timer.Min {
			timer.Min = durationMs
		}
		if durationMs > timer.Max {
			timer.Max = durationMs
		}
		timer.Average = timer.Sum / float64(timer.Count)
	} else {
		r.timers[key] = &TimerMetric{
			Count:   1,
			Sum:     durationMs,
			Min:     durationMs,
			Max:     durationMs,
			Average: durationMs,
		}
	}
}

// SetGauge sets a gauge metric value
func (r *Registry) SetGauge(name string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gauges[metricKey(name, labels)] = &Metric{
		Name:       name,
		Type:       Gauge,
		Value:      value,
		Labels:     copyLabels(labels),
		LastUpdate: time.Now(),
	}
}

// CounterValue returns the current value of a counter, zero when unset.
func (r *Registry) CounterValue(name string, labels map[string]string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if counter, exists := r.counters[metricKey(name, labels)]; exists {
		return counter.Value
	}
	return 0
}

// Snapshot returns all metrics in a structured format
func (r *Registry) Snapshot() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counters := make(map[string]*Metric, len(r.counters))
	for key, counter := range r.counters {
		counters[key] = counter
	}
	timers := make(map[string]*TimerMetric, len(r.timers))
	for key, timer := range r.timers {
		timers[key] = timer
	}
	gauges := make(map[string]*Metric, len(r.gauges))
	for key, gauge := range r.gauges {
		gauges[key] = gauge
	}

	return map[string]interface{}{
		"counters":  counters,
		"timers":    timers,
		"gauges":    gauges,
		"uptime_ms": time.Since(r.startTime).Milliseconds(),
		"timestamp": time.Now().Unix(),
	}
}

func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	key := name
	for k, v := range labels {
		key += fmt.Sprintf("_%s:%s", k, v)
	}
	return key
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

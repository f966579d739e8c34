package fedguard

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// InMemoryMetricsCollector implements MetricsCollector without external
// dependencies; ExportPrometheus renders the usual text exposition format
// for scraping through the control surface.
type InMemoryMetricsCollector struct {
	mu         sync.RWMutex
	counters   map[string]map[string]int64
	gauges     map[string]map[string]float64
	histograms map[string][]float64
}

func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	return &InMemoryMetricsCollector{
		counters:   make(map[string]map[string]int64),
		gauges:     make(map[string]map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (m *InMemoryMetricsCollector) IncrementCounter(name string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters[name] == nil {
		m.counters[name] = make(map[string]int64)
	}
	m.counters[name][labelKey(labels)]++
}

func (m *InMemoryMetricsCollector) ObserveHistogram(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name] = append(m.histograms[name], value)
}

func (m *InMemoryMetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gauges[name] == nil {
		m.gauges[name] = make(map[string]float64)
	}
	m.gauges[name][labelKey(labels)] = value
}

func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return strings.Join(parts, ",")
}

// CounterValue returns the current value of a counter, mainly for tests.
func (m *InMemoryMetricsCollector) CounterValue(name string, labels map[string]string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if counters, exists := m.counters[name]; exists {
		return counters[labelKey(labels)]
	}
	return 0
}

// GaugeValue returns the current value of a gauge, mainly for tests.
func (m *InMemoryMetricsCollector) GaugeValue(name string, labels map[string]string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if gauges, exists := m.gauges[name]; exists {
		return gauges[labelKey(labels)]
	}
	return 0
}

func (m *InMemoryMetricsCollector) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_ = len(m.counters)
	return nil
}

func (m *InMemoryMetricsCollector) ExportPrometheus() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out strings.Builder
	writeSeries := func(name, kind string, series map[string]string) {
		out.WriteString(fmt.Sprintf("# TYPE %s %s\n", name, kind))
		keys := make([]string, 0, len(series))
		for k := range series {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == "" {
				out.WriteString(fmt.Sprintf("%s %s\n", name, series[k]))
			} else {
				out.WriteString(fmt.Sprintf("%s{%s} %s\n", name, k, series[k]))
			}
		}
	}

	names := make([]string, 0, len(m.counters))
	for name := range m.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		series := make(map[string]string, len(m.counters[name]))
		for k, v := range m.counters[name] {
			series[k] = fmt.Sprintf("%d", v)
		}
		writeSeries(name, "counter", series)
	}

	names = names[:0]
	for name := range m.gauges {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		series := make(map[string]string, len(m.gauges[name]))
		for k, v := range m.gauges[name] {
			series[k] = fmt.Sprintf("%g", v)
		}
		writeSeries(name, "gauge", series)
	}

	names = names[:0]
	for name := range m.histograms {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		values := m.histograms[name]
		if len(values) == 0 {
			continue
		}
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		out.WriteString(fmt.Sprintf("# TYPE %s histogram\n", name))
		out.WriteString(fmt.Sprintf("%s_sum %g\n", name, sum))
		out.WriteString(fmt.Sprintf("%s_count %d\n", name, len(values)))
	}

	return out.String()
}

package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the OpenTelemetry scope used by server components.
const InstrumentationName = "github.com/jackandcarter/Adventure-2.0-sub000"

// Tracer returns the server tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// OTelMetrics forwards Metrics updates to OpenTelemetry instruments. Add
// maps to an Int64Counter and Store to an Int64Gauge, created on first use.
type OTelMetrics struct {
	meter    metric.Meter
	logger   Logger
	mu       sync.Mutex
	counters map[string]metric.Int64Counter
	gauges   map[string]metric.Int64Gauge
}

// NewOTelMetrics binds to meter, or to the global provider when nil.
func NewOTelMetrics(meter metric.Meter, logger Logger) *OTelMetrics {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}
	return &OTelMetrics{
		meter:    meter,
		logger:   logger,
		counters: make(map[string]metric.Int64Counter),
		gauges:   make(map[string]metric.Int64Gauge),
	}
}

// Add implements Metrics.
func (m *OTelMetrics) Add(key string, delta uint64) {
	if m == nil {
		return
	}
	counter, ok := m.counter(key)
	if !ok {
		return
	}
	counter.Add(context.Background(), int64(delta))
}

// Store implements Metrics.
func (m *OTelMetrics) Store(key string, value uint64) {
	if m == nil {
		return
	}
	gauge, ok := m.gauge(key)
	if !ok {
		return
	}
	gauge.Record(context.Background(), int64(value))
}

func (m *OTelMetrics) counter(key string) (metric.Int64Counter, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[key]; ok {
		return c, true
	}
	c, err := m.meter.Int64Counter(key)
	if err != nil {
		m.logf("create counter %s: %v", key, err)
		return nil, false
	}
	m.counters[key] = c
	return c, true
}

func (m *OTelMetrics) gauge(key string) (metric.Int64Gauge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gauges[key]; ok {
		return g, true
	}
	g, err := m.meter.Int64Gauge(key)
	if err != nil {
		m.logf("create gauge %s: %v", key, err)
		return nil, false
	}
	m.gauges[key] = g
	return g, true
}

func (m *OTelMetrics) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

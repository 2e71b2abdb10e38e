package telemetry

import (
	"bytes"
	"log"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
)

func TestWrapLogger(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		logger := WrapLogger(nil)
		logger.Printf("ignored %d", 42)
	})

	t.Run("forwards to logger", func(t *testing.T) {
		var buf bytes.Buffer
		base := log.New(&buf, "", 0)
		logger := WrapLogger(base)
		logger.Printf("hello %s", "world")
		if got := buf.String(); got != "hello world\n" {
			t.Fatalf("unexpected log output: %q", got)
		}
	})
}

func TestCountersAndFanout(t *testing.T) {
	counters := NewCounters()
	other := NewCounters()
	metrics := Fanout(counters, nil, other, NewOTelMetrics(noop.NewMeterProvider().Meter("test"), nil))

	metrics.Add("test_counter", 2)
	metrics.Store("test_gauge", 5)
	metrics.Add("test_counter", 3)

	snapshot := counters.Snapshot()
	if got := snapshot["test_counter"]; got != 5 {
		t.Fatalf("unexpected counter value: %d", got)
	}
	if got := other.Snapshot()["test_gauge"]; got != 5 {
		t.Fatalf("unexpected gauge value: %d", got)
	}
	if keys := counters.Keys(); len(keys) != 2 || keys[0] != "test_counter" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	var nilCounters *Counters
	nilCounters.Add("ignored", 1)
	NopMetrics{}.Store("ignored", 1)
}

package logging_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
	"github.com/jackandcarter/Adventure-2.0-sub000/logging/sinks"
)

func newRouter(t *testing.T, cfg logging.Config) (*logging.Router, *sinks.MemorySink) {
	t.Helper()
	memory := sinks.NewMemorySink(0)
	clock := logging.ClockFunc(func() time.Time { return time.Unix(100, 0) })
	router, err := logging.NewRouter(clock, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return router, memory
}

func TestRouterFiltersBySeverityAndStampsFields(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.ParseSeverity("warn")
	cfg.Fields = map[string]any{"node": "a"}
	router, memory := newRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "debug.noise", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "room.cleared", Severity: logging.SeverityWarn})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 || events[0].Type != "room.cleared" {
		t.Fatalf("expected only the warn event, got %+v", events)
	}
	if events[0].Extra["node"] != "a" {
		t.Fatalf("expected configured field, got %+v", events[0].Extra)
	}
	if !events[0].Time.Equal(time.Unix(100, 0)) {
		t.Fatalf("expected clock time stamped, got %s", events[0].Time)
	}
	if stats := router.Stats(); stats.EventsTotal != 1 {
		t.Fatalf("expected one forwarded event, got %+v", stats)
	}
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	router, memory := newRouter(t, logging.DefaultConfig())
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityError})
	if len(memory.Events()) != 0 {
		t.Fatalf("expected no events after close")
	}
	if router.Sink("memory") != memory {
		t.Fatalf("expected memory sink lookup by name")
	}
}

func TestWithFieldsKeepsExplicitExtras(t *testing.T) {
	var got logging.Event
	pub := logging.WithFields(logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		got = event
	}), map[string]any{"instance": "i-1", "run": "r-1"})

	pub.Publish(context.Background(), logging.Event{Type: "x", Extra: map[string]any{"run": "override"}})
	if got.Extra["instance"] != "i-1" || got.Extra["run"] != "override" {
		t.Fatalf("unexpected extras %+v", got.Extra)
	}
}

func TestParseSeverityDefaultsToInfo(t *testing.T) {
	if logging.ParseSeverity("bogus") != logging.SeverityInfo {
		t.Fatalf("expected info default")
	}
	if logging.SeverityError.String() != "error" {
		t.Fatalf("unexpected severity name %q", logging.SeverityError.String())
	}
}

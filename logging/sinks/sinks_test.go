package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
)

func TestMemorySinkKeepsMostRecent(t *testing.T) {
	sink := NewMemorySink(2)
	for _, eventType := range []logging.EventType{"a", "b", "c"} {
		sink.Write(logging.Event{Type: eventType})
	}
	events := sink.Events()
	if len(events) != 2 || events[0].Type != "b" || events[1].Type != "c" {
		t.Fatalf("expected b,c retained, got %+v", events)
	}
	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatalf("expected reset to clear events")
	}
}

func TestMemorySinkFiltersByInstance(t *testing.T) {
	sink := NewMemorySink(0)
	sink.Write(logging.Event{Type: "started", Actor: logging.Instance("i-1")})
	sink.Write(logging.Event{Type: "door", Actor: logging.Player("p1"), Extra: map[string]any{"instance": "i-1"}})
	sink.Write(logging.Event{Type: "door", Actor: logging.Player("p2"), Extra: map[string]any{"instance": "i-2"}})

	if got := sink.EventsForInstance("i-1"); len(got) != 2 {
		t.Fatalf("expected two events for i-1, got %d", len(got))
	}
	if got := sink.EventsOfType("door"); len(got) != 2 {
		t.Fatalf("expected two door events, got %d", len(got))
	}
}

func TestConsoleSinkFormatsInstanceAndRunFirst(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, logging.ConsoleConfig{})
	sink.Write(logging.Event{
		Type:     "door_opened",
		Category: logging.CategoryDungeon,
		Tick:     12,
		Severity: logging.SeverityInfo,
		Actor:    logging.Player("p1"),
		Extra:    map[string]any{"zone": "z", "run": "r-1", "instance": "i-1"},
	})
	line := buf.String()
	if !strings.Contains(line, "info dungeon/door_opened tick=12 instance=i-1 run=r-1 zone=z actor=player:p1") {
		t.Fatalf("unexpected console line %q", line)
	}
}

func TestJSONSinkFlushesOnBatch(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, logging.JSONConfig{MaxBatch: 2})
	sink.Write(logging.Event{Type: "one", Time: time.Unix(0, 0)})
	if buf.Len() != 0 {
		t.Fatalf("expected first event buffered")
	}
	sink.Write(logging.Event{Type: "two", Severity: logging.SeverityWarn})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines after batch, got %q", buf.String())
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if decoded["type"] != "two" || decoded["severity"] != "warn" {
		t.Fatalf("unexpected json event %v", decoded)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

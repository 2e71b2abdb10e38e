package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
)

var severityColors = map[logging.Severity]string{
	logging.SeverityDebug: "\x1b[90m",
	logging.SeverityInfo:  "\x1b[36m",
	logging.SeverityWarn:  "\x1b[33m",
	logging.SeverityError: "\x1b[31m",
}

// ConsoleSink prints one line per event:
//
//	info dungeon/door_opened tick=12 instance=i-1 run=r-1 actor=player:p1 payload={...}
type ConsoleSink struct {
	logger *log.Logger
	color  bool
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	return &ConsoleSink{logger: log.New(w, "[game] ", log.LstdFlags), color: cfg.UseColor}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	var b strings.Builder
	severity := event.Severity.String()
	if color, ok := severityColors[event.Severity]; ok && s.color {
		severity = color + severity + "\x1b[0m"
	}
	b.WriteString(severity)
	b.WriteByte(' ')
	if event.Category != "" {
		b.WriteString(event.Category)
		b.WriteByte('/')
	}
	b.WriteString(string(event.Type))
	fmt.Fprintf(&b, " tick=%d", event.Tick)
	writeExtra(&b, event.Extra)
	fmt.Fprintf(&b, " actor=%s", formatEntity(event.Actor))
	if len(event.Targets) > 0 {
		parts := make([]string, 0, len(event.Targets))
		for _, target := range event.Targets {
			parts = append(parts, formatEntity(target))
		}
		fmt.Fprintf(&b, " targets=%s", strings.Join(parts, ","))
	}
	if event.CommandID != "" {
		fmt.Fprintf(&b, " command=%s", event.CommandID)
	}
	if event.Payload != nil {
		if data, err := json.Marshal(event.Payload); err == nil {
			fmt.Fprintf(&b, " payload=%s", data)
		} else {
			fmt.Fprintf(&b, " payload=%v", event.Payload)
		}
	}
	s.logger.Print(b.String())
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

// writeExtra prints instance and run first, then the rest sorted by key.
func writeExtra(b *strings.Builder, extra map[string]any) {
	if len(extra) == 0 {
		return
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if k != "instance" && k != "run" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range append([]string{"instance", "run"}, keys...) {
		if v, ok := extra[k]; ok {
			fmt.Fprintf(b, " %s=%v", k, v)
		}
	}
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}

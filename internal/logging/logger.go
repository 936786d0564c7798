// Package logging provides leveled logging and event tracing for tumorsim.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An EventLogger for structured JSONL engine events (<out>/events.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level the engine
// also records placement and mutation events.
const LevelTrace = slog.LevelDebug - 4

// EventsFile is the name of the JSONL event log inside an output directory.
const EventsFile = "events.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// EventLogger writes engine events to a JSONL file. It is safe for
// concurrent use by parallel trials. A nil EventLogger is valid and drops
// every event.
type EventLogger struct {
	mu      sync.Mutex
	file    *os.File
	verbose bool
	written int
}

// NewEventLogger opens dir/events.jsonl for append. At info level it
// returns nil and creates nothing. At trace level it also keeps the
// high-volume per-birth events.
func NewEventLogger(dir, level string) (*EventLogger, error) {
	lvl := ParseLevel(level)
	if lvl >= slog.LevelInfo {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, EventsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &EventLogger{file: f, verbose: lvl <= LevelTrace}, nil
}

// Verbose reports whether per-birth events are kept.
func (el *EventLogger) Verbose() bool {
	return el != nil && el.verbose
}

// Log writes one event line tagged with the trial index. A "time" field is
// added; the caller's map is not modified.
func (el *EventLogger) Log(trial int, event map[string]any) {
	if el == nil {
		return
	}
	entry := make(map[string]any, len(event)+2)
	maps.Copy(entry, event)
	entry["trial"] = trial
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	el.mu.Lock()
	defer el.mu.Unlock()
	if el.file == nil {
		return
	}
	if _, err := el.file.Write(data); err == nil {
		el.written++
	}
}

// Written is the number of events written so far.
func (el *EventLogger) Written() int {
	if el == nil {
		return 0
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.written
}

// Close closes the underlying file. Safe to call on nil receiver.
func (el *EventLogger) Close() error {
	if el == nil {
		return nil
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.file == nil {
		return nil
	}
	err := el.file.Close()
	el.file = nil
	return err
}

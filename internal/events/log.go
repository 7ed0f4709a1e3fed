// Package events holds the user-facing extraction log: an append-only,
// timestamped stream of status lines that front ends render.
package events

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/timvw/config-puller/internal/model"
)

// Log is an append-only sequence of log events, safe for concurrent use.
// Entries are never removed.
type Log struct {
	mu      sync.RWMutex
	entries []model.LogEvent
	now     func() time.Time
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Append adds a validated event. A zero timestamp is filled in.
func (l *Log) Append(e model.LogEvent) (model.LogEvent, error) {
	if e.Time.IsZero() {
		e.Time = l.now().UTC()
	}
	if err := Validate(e); err != nil {
		return e, err
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return e, nil
}

// Addf appends a formatted message at the given level.
func (l *Log) Addf(level, format string, args ...any) (model.LogEvent, error) {
	return l.Append(model.LogEvent{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Snapshot returns a copy of all entries in append order.
func (l *Log) Snapshot() []model.LogEvent {
	return l.Since(0)
}

// Since returns a copy of the entries from index i onward. Front ends keep
// the length they last rendered and ask only for what is new.
func (l *Log) Since(i int) []model.LogEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 {
		i = 0
	}
	if i >= len(l.entries) {
		return nil
	}
	out := make([]model.LogEvent, len(l.entries)-i)
	copy(out, l.entries[i:])
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Validate checks that an event has a known level, a message and a time.
func Validate(e model.LogEvent) error {
	if !isValidLevel(e.Level) {
		return fmt.Errorf("invalid level %q", e.Level)
	}
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Errorf("message is required")
	}
	if e.Time.IsZero() {
		return fmt.Errorf("time is required")
	}
	return nil
}

func isValidLevel(level string) bool {
	switch level {
	case model.LevelInfo, model.LevelWarn, model.LevelError:
		return true
	default:
		return false
	}
}

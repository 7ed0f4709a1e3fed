package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Defaults for a console connection.
const (
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 5 * time.Second
)

// ConnectionConfig describes how to reach a device console over a serial line.
type ConnectionConfig struct {
	// Port is the serial port identifier (e.g., "/dev/ttyUSB0", "COM1").
	Port string `json:"port"`
	// BaudRate is the line speed. Cisco-style consoles use 9600.
	BaudRate int `json:"baud_rate"`
	// ReadTimeout bounds a single line read.
	ReadTimeout time.Duration `json:"read_timeout"`
	// Hostname is the device hostname, used to build the expected prompt.
	Hostname string `json:"hostname"`
}

// Prompt returns the privileged exec prompt the device prints, e.g. "Router#".
func (c ConnectionConfig) Prompt() string {
	return c.Hostname + "#"
}

// Validate checks that the config can be used to open a console.
func (c ConnectionConfig) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("port is required")
	}
	if strings.TrimSpace(c.Hostname) == "" {
		return fmt.Errorf("hostname is required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout %s", c.ReadTimeout)
	}
	return nil
}

// SessionState is the state of the process-wide extraction session.
type SessionState int32

const (
	SessionIdle SessionState = iota
	SessionExtracting
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionExtracting:
		return "extracting"
	default:
		return fmt.Sprintf("SessionState(%d)", int32(s))
	}
}

// Log levels used by LogEvent.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// LogEvent is one timestamped line of the user-facing extraction log.
type LogEvent struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// String renders the event as a single log line.
func (e LogEvent) String() string {
	return fmt.Sprintf("%s [%s] %s", e.Time.Format("15:04:05"), e.Level, e.Message)
}

// ErrCommandListLocked is returned when the command list is mutated while
// an extraction is using it.
var ErrCommandListLocked = errors.New("command list is locked by an active session")

// CommandList is the ordered, user-editable list of commands to run.
// It is safe for concurrent use.
type CommandList struct {
	mu       sync.Mutex
	commands []string
	locked   bool
}

// NewCommandList creates a list seeded with the given commands.
// Blank entries are skipped.
func NewCommandList(commands ...string) *CommandList {
	l := &CommandList{}
	for _, c := range commands {
		_ = l.Submit(c)
	}
	return l
}

// Submit appends a command. Surrounding whitespace is trimmed and blank
// commands are ignored.
func (l *CommandList) Submit(command string) error {
	command = strings.TrimSpace(command)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked {
		return ErrCommandListLocked
	}
	if command == "" {
		return nil
	}
	l.commands = append(l.commands, command)
	return nil
}

// Clear removes all commands.
func (l *CommandList) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locked {
		return ErrCommandListLocked
	}
	l.commands = nil
	return nil
}

// Snapshot returns a copy of the commands in order.
func (l *CommandList) Snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.commands))
	copy(out, l.commands)
	return out
}

// Len returns the number of commands.
func (l *CommandList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.commands)
}

// SetLocked freezes or unfreezes the list.
func (l *CommandList) SetLocked(locked bool) {
	l.mu.Lock()
	l.locked = locked
	l.mu.Unlock()
}

// Percent computes integer progress for completed out of total steps,
// clamped to [0, 100].
func Percent(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	return completed * 100 / total
}

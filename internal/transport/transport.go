// Package transport owns the line-oriented connection to a device console.
//
// This package is pure transport: it moves lines of text to and from the
// console and never interprets them. Prompt recognition lives in the
// prompt, readiness and executor packages.
package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timvw/config-puller/internal/model"
)

// Conn is an open console connection.
type Conn interface {
	// WriteLine writes text followed by a single line feed.
	WriteLine(text string) error

	// ReadLine blocks for at most timeout and returns the next line,
	// terminator included. On timeout it returns whatever partial data
	// arrived (possibly "") and a nil error; only I/O failures are errors.
	ReadLine(timeout time.Duration) (string, error)

	// Close releases the underlying handle.
	Close() error
}

// Opener acquires console connections.
type Opener interface {
	// Open acquires the port described by cfg. Failures are *ConnectionError.
	Open(ctx context.Context, cfg model.ConnectionConfig) (Conn, error)
}

// ConnectionError reports that a port could not be acquired, e.g. because
// another process already holds it.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// StripTerminator removes trailing carriage returns and line feeds.
func StripTerminator(line string) string {
	return strings.TrimRight(line, "\r\n")
}

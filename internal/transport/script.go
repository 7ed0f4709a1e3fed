package transport

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/timvw/config-puller/internal/model"
)

// Script is an Opener whose connections replay a recorded console
// transcript. Each ReadLine returns the next line; once the transcript is
// exhausted every read behaves like a timeout. Writes are recorded.
type Script struct {
	mu     sync.Mutex
	lines  []string
	writes []string
	opened int
	closed int

	// OpenErr, when set, makes Open fail with a ConnectionError.
	OpenErr error
}

// NewScript creates a replay opener for the given raw lines (terminators
// included, e.g. "Router#\r\n").
func NewScript(lines ...string) *Script {
	return &Script{lines: lines}
}

// LoadScript reads a transcript file. Every line gets a CRLF terminator
// restored, except a final line without a trailing newline, which is kept
// bare the way a prompt arrives on the wire.
func LoadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var lines []string
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			if line[len(line)-1] == '\n' {
				line = StripTerminator(line) + "\r\n"
			}
			lines = append(lines, line)
		}
		if err != nil {
			break
		}
	}
	return NewScript(lines...), nil
}

// Open returns a connection sharing this script's transcript.
func (s *Script) Open(ctx context.Context, cfg model.ConnectionConfig) (Conn, error) {
	if s.OpenErr != nil {
		return nil, &ConnectionError{Port: cfg.Port, Err: s.OpenErr}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ConnectionError{Port: cfg.Port, Err: err}
	}
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	return &scriptConn{s: s}, nil
}

// Writes returns the lines written so far, without terminators.
func (s *Script) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.writes))
	copy(out, s.writes)
	return out
}

// Remaining returns the number of transcript lines not yet read.
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Closed reports how many connections were closed.
func (s *Script) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type scriptConn struct {
	s *Script
}

func (c *scriptConn) WriteLine(text string) error {
	c.s.mu.Lock()
	c.s.writes = append(c.s.writes, text)
	c.s.mu.Unlock()
	return nil
}

func (c *scriptConn) ReadLine(time.Duration) (string, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if len(c.s.lines) == 0 {
		return "", nil
	}
	line := c.s.lines[0]
	c.s.lines = c.s.lines[1:]
	return line, nil
}

func (c *scriptConn) Close() error {
	c.s.mu.Lock()
	c.s.closed++
	c.s.mu.Unlock()
	return nil
}

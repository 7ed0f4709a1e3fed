package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/timvw/config-puller/internal/model"
)

// readChunk is the maximum number of bytes pulled from the port per read.
// At 9600 baud the line delivers under 1 KiB per second.
const readChunk = 256

// Serial opens real serial ports (8N1).
type Serial struct{}

// NewSerial creates a serial port opener.
func NewSerial() *Serial {
	return &Serial{}
}

// Open acquires the serial port named in cfg.
func (s *Serial) Open(ctx context.Context, cfg model.ConnectionConfig) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ConnectionError{Port: cfg.Port, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConnectionError{Port: cfg.Port, Err: err}
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(cfg.Port, mode)
	if err != nil {
		var portErr *serial.PortError
		if errors.As(err, &portErr) && portErr.Code() == serial.PortBusy {
			return nil, &ConnectionError{Port: cfg.Port, Err: fmt.Errorf("port already open elsewhere: %w", err)}
		}
		return nil, &ConnectionError{Port: cfg.Port, Err: err}
	}
	zap.S().Debugw("serial port opened", "port", cfg.Port, "baud", cfg.BaudRate)
	return newLineConn(p, cfg.Port), nil
}

// ListPorts returns the serial ports available on this machine, sorted.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

// rawPort is the subset of serial.Port used by lineConn.
type rawPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// lineConn splits a byte stream into lines. Bytes read past the first
// line feed are kept for the next ReadLine.
type lineConn struct {
	port    rawPort
	name    string
	pending []byte
	now     func() time.Time
}

func newLineConn(p rawPort, name string) *lineConn {
	return &lineConn{port: p, name: name, now: time.Now}
}

func (c *lineConn) WriteLine(text string) error {
	if _, err := c.port.Write([]byte(text + "\n")); err != nil {
		return fmt.Errorf("write to %s: %w", c.name, err)
	}
	return nil
}

func (c *lineConn) ReadLine(timeout time.Duration) (string, error) {
	deadline := c.now().Add(timeout)
	buf := make([]byte, readChunk)
	for {
		if idx := bytes.IndexByte(c.pending, '\n'); idx >= 0 {
			line := string(c.pending[:idx+1])
			c.pending = c.pending[idx+1:]
			return line, nil
		}

		remaining := deadline.Sub(c.now())
		if remaining <= 0 {
			// Timed out: hand back the partial line (a prompt has no terminator).
			line := string(c.pending)
			c.pending = nil
			return line, nil
		}
		if err := c.port.SetReadTimeout(remaining); err != nil {
			return "", fmt.Errorf("set read timeout on %s: %w", c.name, err)
		}
		n, err := c.port.Read(buf)
		if err != nil {
			return "", fmt.Errorf("read from %s: %w", c.name, err)
		}
		if n == 0 {
			line := string(c.pending)
			c.pending = nil
			return line, nil
		}
		c.pending = append(c.pending, buf[:n]...)
	}
}

func (c *lineConn) Close() error {
	zap.S().Debugw("serial port closed", "port", c.name)
	return c.port.Close()
}

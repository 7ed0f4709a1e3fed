// Package executor sends one command to a console and captures its output
// up to the next privileged prompt.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/timvw/config-puller/internal/prompt"
	"github.com/timvw/config-puller/internal/transport"
)

// DefaultMaxEmptyReads is the number of consecutive empty or timed-out
// reads after which a command is considered finished without a prompt.
const DefaultMaxEmptyReads = 5

// ErrPromptTimeout is returned, together with the partial capture, when the
// prompt never reappeared. Callers treat it as a warning.
var ErrPromptTimeout = errors.New("prompt not seen before read budget was exhausted")

// Executor runs commands on an open console connection.
type Executor struct {
	Conn          transport.Conn
	Matcher       prompt.Matcher
	ReadTimeout   time.Duration
	MaxEmptyReads int // DefaultMaxEmptyReads when zero
}

// New creates an executor for the device with the given hostname.
func New(conn transport.Conn, hostname string, readTimeout time.Duration, maxEmptyReads int) *Executor {
	return &Executor{
		Conn:          conn,
		Matcher:       prompt.New(hostname),
		ReadTimeout:   readTimeout,
		MaxEmptyReads: maxEmptyReads,
	}
}

// Run writes command and returns the text the device printed before its
// prompt. Progress-tick lines and blank lines are dropped; each kept line
// ends with a single "\n".
//
// If the prompt is not seen within the empty-read budget the text captured
// so far is returned with ErrPromptTimeout. Output may be truncated in that
// case.
func (e *Executor) Run(ctx context.Context, command string) (string, error) {
	budget := e.MaxEmptyReads
	if budget <= 0 {
		budget = DefaultMaxEmptyReads
	}
	if err := e.Conn.WriteLine(command); err != nil {
		return "", fmt.Errorf("send %q: %w", command, err)
	}

	var out strings.Builder
	empty := 0
	for {
		if err := ctx.Err(); err != nil {
			return out.String(), err
		}
		raw, err := e.Conn.ReadLine(e.ReadTimeout)
		if err != nil {
			return out.String(), fmt.Errorf("read output of %q: %w", command, err)
		}

		line := transport.StripTerminator(raw)
		if prompt.IsBlank(line) {
			empty++
			if empty >= budget {
				zap.S().Warnw("prompt not seen, keeping partial output",
					"command", command, "empty_reads", empty, "bytes", out.Len())
				return out.String(), ErrPromptTimeout
			}
			continue
		}
		empty = 0
		if prompt.IsProgressTick(line) {
			continue
		}

		out.WriteString(line)
		out.WriteByte('\n')
		if e.Matcher.IsPrivileged(line) {
			return strings.TrimSuffix(out.String(), e.Matcher.Privileged()+"\n"), nil
		}
	}
}

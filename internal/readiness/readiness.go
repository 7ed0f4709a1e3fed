// Package readiness drives a device console from an unknown boot or login
// state to a known command prompt.
//
// The console has no handshake. Readiness is inferred from what the device
// echoes: a quiet line (two blank reads in a row), a bare prompt, or a
// configuration sub-mode prompt that can be left with "end". The boot-time
// configuration dialog is declined. Each line read is classified into a
// Signal and the next State is looked up in a fixed transition table.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/timvw/config-puller/internal/prompt"
	"github.com/timvw/config-puller/internal/transport"
)

// DefaultTimeout bounds the whole negotiation.
const DefaultTimeout = 60 * time.Second

// Commands sent while negotiating.
const (
	DeclineDialog = "no"
	LeaveConfig   = "end"
)

// ErrReadinessTimeout is returned when the device never reached a
// recognizable state within the negotiation budget.
var ErrReadinessTimeout = errors.New("device did not become ready before timeout")

// State is a negotiation state.
type State int

const (
	Booting State = iota
	AwaitingSignal
	DialogPrompt
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Booting:
		return "booting"
	case AwaitingSignal:
		return "awaiting_signal"
	case DialogPrompt:
		return "dialog_prompt"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Signal is the classification of one negotiation event.
type Signal int

const (
	SignalWoke     Signal = iota // wake-up line feed sent
	SignalBlank                  // first blank read in a row
	SignalQuiet                  // second consecutive blank read
	SignalAtPrompt               // bare user or privileged prompt
	SignalElevated               // configuration sub-mode prompt
	SignalDialog                 // initial configuration dialog question
	SignalNoise                  // any other line
	SignalDeadline               // negotiation budget exhausted
)

func (s Signal) String() string {
	switch s {
	case SignalWoke:
		return "woke"
	case SignalBlank:
		return "blank"
	case SignalQuiet:
		return "quiet"
	case SignalAtPrompt:
		return "at_prompt"
	case SignalElevated:
		return "elevated"
	case SignalDialog:
		return "dialog"
	case SignalNoise:
		return "noise"
	case SignalDeadline:
		return "deadline"
	default:
		return fmt.Sprintf("Signal(%d)", int(s))
	}
}

type action int

const (
	actNone action = iota
	actResetBlanks
	actDeclineDialog
	actLeaveConfig
)

type transition struct {
	next   State
	action action
}

// listening is shared by the two states that read console lines.
func listening(self State) map[Signal]transition {
	return map[Signal]transition{
		SignalBlank:    {next: self},
		SignalQuiet:    {next: Ready},
		SignalAtPrompt: {next: Ready},
		SignalElevated: {next: Ready, action: actLeaveConfig},
		SignalDialog:   {next: DialogPrompt, action: actDeclineDialog},
		SignalNoise:    {next: self, action: actResetBlanks},
		SignalDeadline: {next: Failed},
	}
}

var transitions = map[State]map[Signal]transition{
	Booting: {
		SignalWoke:     {next: AwaitingSignal},
		SignalDeadline: {next: Failed},
	},
	AwaitingSignal: listening(AwaitingSignal),
	DialogPrompt:   listening(DialogPrompt),
}

// Next returns the state that follows s on signal sig. Terminal states and
// signals with no entry leave the state unchanged.
func Next(s State, sig Signal) State {
	if tr, ok := transitions[s][sig]; ok {
		return tr.next
	}
	return s
}

// Negotiator runs the readiness handshake on an open connection.
type Negotiator struct {
	Matcher     prompt.Matcher
	Timeout     time.Duration // whole negotiation; DefaultTimeout when zero
	ReadTimeout time.Duration // single line read

	// OnTransition, if set, is called for every state change.
	OnTransition func(from, to State, sig Signal)

	// Now returns the current time; time.Now when nil.
	Now func() time.Time
}

// New creates a negotiator for the given hostname.
func New(hostname string, timeout, readTimeout time.Duration) *Negotiator {
	return &Negotiator{
		Matcher:     prompt.New(hostname),
		Timeout:     timeout,
		ReadTimeout: readTimeout,
	}
}

// Classify maps a line (terminator removed) to a signal. blanks is the
// number of consecutive blank reads before this line.
func (n *Negotiator) Classify(line string, blanks int) Signal {
	if prompt.IsBlank(line) {
		if blanks+1 >= 2 {
			return SignalQuiet
		}
		return SignalBlank
	}
	switch {
	case prompt.IsConfigDialog(line):
		return SignalDialog
	case n.Matcher.IsElevated(line):
		return SignalElevated
	case n.Matcher.IsBare(line):
		return SignalAtPrompt
	default:
		return SignalNoise
	}
}

// Negotiate wakes the console and reads until the device is Ready or the
// timeout passes. It returns Ready with a nil error, or Failed with
// ErrReadinessTimeout, a transport error, or the context error.
func (n *Negotiator) Negotiate(ctx context.Context, conn transport.Conn) (State, error) {
	now := n.Now
	if now == nil {
		now = time.Now
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	state := Booting
	blanks := 0
	step := func(sig Signal) error {
		tr, ok := transitions[state][sig]
		if !ok {
			return nil
		}
		switch tr.action {
		case actResetBlanks:
			blanks = 0
		case actDeclineDialog:
			blanks = 0
			if err := conn.WriteLine(DeclineDialog); err != nil {
				return err
			}
		case actLeaveConfig:
			if err := conn.WriteLine(LeaveConfig); err != nil {
				return err
			}
		}
		if tr.next != state {
			zap.S().Debugw("readiness transition", "from", state, "to", tr.next, "signal", sig)
			if n.OnTransition != nil {
				n.OnTransition(state, tr.next, sig)
			}
			state = tr.next
		}
		return nil
	}

	if err := conn.WriteLine(""); err != nil {
		return Failed, fmt.Errorf("wake console: %w", err)
	}
	_ = step(SignalWoke)

	start := now()
	for {
		if err := ctx.Err(); err != nil {
			return Failed, err
		}
		if now().Sub(start) > timeout {
			_ = step(SignalDeadline)
			return Failed, ErrReadinessTimeout
		}

		raw, err := conn.ReadLine(n.ReadTimeout)
		if err != nil {
			return Failed, fmt.Errorf("read console: %w", err)
		}
		line := transport.StripTerminator(raw)
		sig := n.Classify(line, blanks)
		if sig == SignalBlank || sig == SignalQuiet {
			blanks++
		}
		if err := step(sig); err != nil {
			return Failed, fmt.Errorf("answer console: %w", err)
		}
		if state == Ready {
			return Ready, nil
		}
	}
}

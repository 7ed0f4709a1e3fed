package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/timvw/config-puller/internal/model"
	"github.com/timvw/config-puller/internal/prompt"
	"github.com/timvw/config-puller/internal/transport"
)

func open(t *testing.T, s *transport.Script) transport.Conn {
	t.Helper()
	c, err := s.Open(context.Background(), model.ConnectionConfig{Port: "test"})
	if err != nil {
		t.Fatalf("open script: %v", err)
	}
	return c
}

func countWrites(writes []string, text string) int {
	n := 0
	for _, w := range writes {
		if w == text {
			n++
		}
	}
	return n
}

func TestNegotiate_DialogDeclinedThenQuiet(t *testing.T) {
	s := transport.NewScript("", prompt.ConfigDialog+"\r\n", "", "")
	n := New("Router", time.Minute, time.Second)

	state, err := n.Negotiate(context.Background(), open(t, s))
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if state != Ready {
		t.Fatalf("state = %s, want ready", state)
	}
	writes := s.Writes()
	if got := countWrites(writes, DeclineDialog); got != 1 {
		t.Fatalf("expected one %q, got %d (writes %q)", DeclineDialog, got, writes)
	}
	if writes[0] != "" {
		t.Fatalf("first write should be the wake line feed, got %q", writes[0])
	}
}

func TestNegotiate_TwoBlankReadsMeansReady(t *testing.T) {
	s := transport.NewScript("\r\n", "\r\n", "never read\r\n")
	n := New("Router", time.Minute, time.Second)

	state, err := n.Negotiate(context.Background(), open(t, s))
	if err != nil || state != Ready {
		t.Fatalf("Negotiate = %s, %v", state, err)
	}
	if s.Remaining() != 1 {
		t.Fatalf("negotiation read past readiness: %d lines left", s.Remaining())
	}
}

func TestNegotiate_NoiseResetsBlankCounter(t *testing.T) {
	// blank, noise, blank, noise, blank, blank -> ready on the final pair only
	s := transport.NewScript("\r\n", "%LINK-3-UPDOWN\r\n", "\r\n", "Press RETURN to get started\r\n", "\r\n", "\r\n")
	n := New("Router", time.Minute, time.Second)

	state, err := n.Negotiate(context.Background(), open(t, s))
	if err != nil || state != Ready {
		t.Fatalf("Negotiate = %s, %v", state, err)
	}
	if s.Remaining() != 0 {
		t.Fatalf("expected all lines consumed, %d left", s.Remaining())
	}
}

func TestNegotiate_ElevatedPromptSendsEnd(t *testing.T) {
	s := transport.NewScript("Router(config-if)#")
	n := New("Router", time.Minute, time.Second)

	var seen []Signal
	n.OnTransition = func(from, to State, sig Signal) {
		seen = append(seen, sig)
	}

	state, err := n.Negotiate(context.Background(), open(t, s))
	if err != nil || state != Ready {
		t.Fatalf("Negotiate = %s, %v", state, err)
	}
	if got := countWrites(s.Writes(), LeaveConfig); got != 1 {
		t.Fatalf("expected one %q, got writes %q", LeaveConfig, s.Writes())
	}
	if len(seen) != 2 || seen[0] != SignalWoke || seen[1] != SignalElevated {
		t.Fatalf("unexpected transitions: %v", seen)
	}
}

func TestNegotiate_BarePromptIsReady(t *testing.T) {
	s := transport.NewScript("\r\n", "Router>")
	n := New("Router", time.Minute, time.Second)

	state, err := n.Negotiate(context.Background(), open(t, s))
	if err != nil || state != Ready {
		t.Fatalf("Negotiate = %s, %v", state, err)
	}
}

// noisyConn never stops printing boot messages.
type noisyConn struct{}

func (noisyConn) WriteLine(string) error                 { return nil }
func (noisyConn) ReadLine(time.Duration) (string, error) { return "Booting flash:...\r\n", nil }
func (noisyConn) Close() error                           { return nil }

func TestNegotiate_TimeoutFails(t *testing.T) {
	base := time.Now()
	tick := 0
	n := New("Router", 10*time.Second, time.Second)
	n.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	var last State
	n.OnTransition = func(from, to State, sig Signal) { last = to }

	state, err := n.Negotiate(context.Background(), noisyConn{})
	if !errors.Is(err, ErrReadinessTimeout) {
		t.Fatalf("expected ErrReadinessTimeout, got %v", err)
	}
	if state != Failed || last != Failed {
		t.Fatalf("state = %s, last transition = %s", state, last)
	}
}

type brokenConn struct{ noisyConn }

func (brokenConn) ReadLine(time.Duration) (string, error) { return "", errors.New("unplugged") }

func TestNegotiate_ReadErrorFails(t *testing.T) {
	n := New("Router", time.Minute, time.Second)
	state, err := n.Negotiate(context.Background(), brokenConn{})
	if err == nil || errors.Is(err, ErrReadinessTimeout) {
		t.Fatalf("expected I/O error, got %v", err)
	}
	if state != Failed {
		t.Fatalf("state = %s, want failed", state)
	}
}

func TestNegotiate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := New("Router", time.Minute, time.Second)
	if _, err := n.Negotiate(ctx, noisyConn{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	n := New("Router", 0, 0)
	tests := []struct {
		name   string
		line   string
		blanks int
		want   Signal
	}{
		{"first blank", "", 0, SignalBlank},
		{"second blank", "  ", 1, SignalQuiet},
		{"dialog", prompt.ConfigDialog, 1, SignalDialog},
		{"elevated", "Router(config)#", 0, SignalElevated},
		{"bare privileged", "Router#", 0, SignalAtPrompt},
		{"bare user", "Router>", 0, SignalAtPrompt},
		{"noise", "System Bootstrap, Version 15.0", 1, SignalNoise},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Classify(tt.line, tt.blanks); got != tt.want {
				t.Fatalf("Classify(%q, %d) = %s, want %s", tt.line, tt.blanks, got, tt.want)
			}
		})
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from State
		sig  Signal
		want State
	}{
		{Booting, SignalWoke, AwaitingSignal},
		{Booting, SignalBlank, Booting},
		{AwaitingSignal, SignalBlank, AwaitingSignal},
		{AwaitingSignal, SignalQuiet, Ready},
		{AwaitingSignal, SignalDialog, DialogPrompt},
		{AwaitingSignal, SignalNoise, AwaitingSignal},
		{AwaitingSignal, SignalDeadline, Failed},
		{DialogPrompt, SignalQuiet, Ready},
		{DialogPrompt, SignalElevated, Ready},
		{DialogPrompt, SignalNoise, DialogPrompt},
		{Ready, SignalNoise, Ready},
		{Failed, SignalQuiet, Failed},
	}
	for _, tt := range tests {
		if got := Next(tt.from, tt.sig); got != tt.want {
			t.Errorf("Next(%s, %s) = %s, want %s", tt.from, tt.sig, got, tt.want)
		}
	}
}

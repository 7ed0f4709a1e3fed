package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/timvw/config-puller/internal/model"
	"github.com/timvw/config-puller/internal/transport"
)

func newExecutor(t *testing.T, lines ...string) (*Executor, *transport.Script) {
	t.Helper()
	s := transport.NewScript(lines...)
	c, err := s.Open(context.Background(), model.ConnectionConfig{Port: "test"})
	if err != nil {
		t.Fatalf("open script: %v", err)
	}
	return New(c, "Router", time.Second, 3), s
}

func TestRun_FiltersTicksAndTrimsPrompt(t *testing.T) {
	e, s := newExecutor(t, "IOS line1\r\n", "!\r\n", "IOS line2\r\n", "Router#\r\n")

	got, err := e.Run(context.Background(), "show version")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "IOS line1\nIOS line2\n"; got != want {
		t.Fatalf("Run = %q, want %q", got, want)
	}
	if w := s.Writes(); len(w) != 1 || w[0] != "show version" {
		t.Fatalf("writes = %q", w)
	}
}

func TestRun_PromptWithoutTerminator(t *testing.T) {
	e, _ := newExecutor(t, "Cisco IOS Software\r\n", "Router#")
	got, err := e.Run(context.Background(), "show version")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "Cisco IOS Software\n" {
		t.Fatalf("Run = %q", got)
	}
}

func TestRun_KeepsEchoAndDropsBlankLines(t *testing.T) {
	e, _ := newExecutor(t,
		"Router#show clock\r\n",
		"\r\n",
		"*12:00:00.000 UTC Mon Mar 1 1993\r\n",
		"\r\n",
		"Router#\r\n",
	)
	got, err := e.Run(context.Background(), "show clock")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := "Router#show clock\n*12:00:00.000 UTC Mon Mar 1 1993\n"; got != want {
		t.Fatalf("Run = %q, want %q", got, want)
	}
}

func TestRun_StopsAtFirstPrompt(t *testing.T) {
	e, s := newExecutor(t, "a\r\n", "Router#\r\n", "b\r\n")
	got, err := e.Run(context.Background(), "x")
	if err != nil || got != "a\n" {
		t.Fatalf("Run = %q, %v", got, err)
	}
	if s.Remaining() != 1 {
		t.Fatalf("executor read past the prompt")
	}
}

func TestRun_PromptTimeoutKeepsPartialOutput(t *testing.T) {
	e, _ := newExecutor(t, "line1\r\n", "!!!!\r\n", "line2\r\n")

	got, err := e.Run(context.Background(), "show tech")
	if !errors.Is(err, ErrPromptTimeout) {
		t.Fatalf("expected ErrPromptTimeout, got %v", err)
	}
	if got != "line1\nline2\n" {
		t.Fatalf("partial output = %q", got)
	}
}

func TestRun_BlankCounterResetsOnContent(t *testing.T) {
	// Two blanks, content, two blanks, prompt: budget of 3 is never hit.
	e, _ := newExecutor(t, "\r\n", "\r\n", "a\r\n", "\r\n", "\r\n", "Router#\r\n")
	got, err := e.Run(context.Background(), "x")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "a\n" {
		t.Fatalf("Run = %q", got)
	}
}

func TestRun_OtherHostPromptIsContent(t *testing.T) {
	e, _ := newExecutor(t, "Switch#\r\n", "Router#\r\n")
	got, err := e.Run(context.Background(), "x")
	if err != nil || got != "Switch#\n" {
		t.Fatalf("Run = %q, %v", got, err)
	}
}

type failingConn struct {
	writeErr, readErr error
}

func (c failingConn) WriteLine(string) error                 { return c.writeErr }
func (c failingConn) ReadLine(time.Duration) (string, error) { return "", c.readErr }
func (c failingConn) Close() error                           { return nil }

func TestRun_TransportErrors(t *testing.T) {
	boom := errors.New("unplugged")

	e := New(failingConn{writeErr: boom}, "Router", time.Second, 3)
	if _, err := e.Run(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("write failure: got %v", err)
	}

	e = New(failingConn{readErr: boom}, "Router", time.Second, 3)
	_, err := e.Run(context.Background(), "x")
	if !errors.Is(err, boom) || errors.Is(err, ErrPromptTimeout) {
		t.Fatalf("read failure: got %v", err)
	}
}

func TestRun_DefaultBudget(t *testing.T) {
	s := transport.NewScript()
	c, _ := s.Open(context.Background(), model.ConnectionConfig{Port: "test"})
	e := New(c, "Router", time.Second, 0)
	if _, err := e.Run(context.Background(), "x"); !errors.Is(err, ErrPromptTimeout) {
		t.Fatalf("expected ErrPromptTimeout, got %v", err)
	}
}

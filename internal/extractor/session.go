package extractor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/timvw/config-puller/internal/events"
	"github.com/timvw/config-puller/internal/model"
	"github.com/timvw/config-puller/internal/readiness"
	"github.com/timvw/config-puller/internal/transport"
)

var (
	ErrBusySession      = errors.New("an extraction is already in progress")
	ErrEmptyCommandList = errors.New("no commands to run")
)

// Session guards the single extraction a process may run at a time and
// runs it in the background.
type Session struct {
	orch     *Orchestrator
	ctx      context.Context
	log      *events.Log
	commands *model.CommandList

	mu   sync.Mutex // serializes Start and guards subs
	subs []Subscriber

	state   atomic.Int32
	percent atomic.Int64
	result  atomic.Pointer[string]
}

// NewSession creates an idle session. ctx bounds every extraction the
// session runs; there is no per-extraction cancellation.
func NewSession(ctx context.Context, orch *Orchestrator, commands *model.CommandList) *Session {
	if commands == nil {
		commands = model.NewCommandList()
	}
	return &Session{
		orch:     orch,
		ctx:      ctx,
		log:      events.NewLog(),
		commands: commands,
	}
}

// Subscribe registers a subscriber for all future notifications.
func (s *Session) Subscribe(sub Subscriber) {
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
}

// State returns whether an extraction is running.
func (s *Session) State() model.SessionState {
	return model.SessionState(s.state.Load())
}

// Progress returns the running extraction's progress, 0 when idle.
func (s *Session) Progress() int {
	return int(s.percent.Load())
}

// Result returns the text captured by the last successful extraction.
func (s *Session) Result() (string, bool) {
	p := s.result.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// Log returns the session's log stream.
func (s *Session) Log() *events.Log {
	return s.log
}

// Commands returns the queued commands.
func (s *Session) Commands() []string {
	return s.commands.Snapshot()
}

// SubmitCommand queues a command for the next extraction.
func (s *Session) SubmitCommand(text string) error {
	if err := s.commands.Submit(text); err != nil {
		return ErrBusySession
	}
	return nil
}

// ClearCommands empties the queue.
func (s *Session) ClearCommands() error {
	if err := s.commands.Clear(); err != nil {
		return ErrBusySession
	}
	return nil
}

// StartQueued starts an extraction of the queued commands.
func (s *Session) StartQueued(conn model.ConnectionConfig) (*Handle, error) {
	return s.Start(s.commands.Snapshot(), conn)
}

// Start launches an extraction of commands in the background. It returns
// ErrBusySession while another extraction runs and ErrEmptyCommandList for
// an empty list; rejected calls never touch the console.
func (s *Session) Start(commands []string, conn model.ConnectionConfig) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == model.SessionExtracting {
		return nil, ErrBusySession
	}
	if len(commands) == 0 {
		return nil, ErrEmptyCommandList
	}

	cmds := make([]string, len(commands))
	copy(cmds, commands)

	s.state.Store(int32(model.SessionExtracting))
	s.commands.SetLocked(true)
	s.percent.Store(0)

	h := &Handle{done: make(chan struct{})}
	go s.run(h, cmds, conn)
	return h, nil
}

func (s *Session) run(h *Handle, commands []string, conn model.ConnectionConfig) {
	defer close(h.done)

	s.logf(model.LevelInfo, "extraction started: %d commands on %s", len(commands), conn.Port)
	result, err := s.orch.Run(s.ctx, commands, conn, s)
	h.err = err

	s.percent.Store(0)
	s.commands.SetLocked(false)
	s.state.Store(int32(model.SessionIdle))

	if err != nil {
		s.orch.Metrics.RecordSession(s.ctx, outcome(err))
		s.logf(model.LevelError, "extraction failed: %v", err)
		for _, sub := range s.subscribers() {
			sub.OnError(err)
		}
		return
	}

	s.result.Store(&result)
	s.orch.Metrics.RecordSession(s.ctx, "completed")
	s.logf(model.LevelInfo, "extraction complete: %d bytes captured", len(result))
	for _, sub := range s.subscribers() {
		sub.OnComplete()
	}
}

func (s *Session) subscribers() []Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Subscriber, len(s.subs))
	copy(out, s.subs)
	return out
}

func (s *Session) progress(percent int) {
	if int64(percent) < s.percent.Load() {
		return
	}
	s.percent.Store(int64(percent))
	for _, sub := range s.subscribers() {
		sub.OnProgress(percent)
	}
}

func (s *Session) logf(level, format string, args ...any) {
	e, err := s.log.Addf(level, format, args...)
	if err != nil {
		zap.S().Errorw("dropping invalid log event", "error", err)
		return
	}
	// Front ends render the event stream themselves; the mirror is for diagnostics.
	zap.S().Debugw(e.Message, "event_level", e.Level)
	for _, sub := range s.subscribers() {
		sub.OnLog(e)
	}
}

func outcome(err error) string {
	var connErr *transport.ConnectionError
	switch {
	case errors.As(err, &connErr):
		return "connection_error"
	case errors.Is(err, readiness.ErrReadinessTimeout):
		return "readiness_timeout"
	default:
		return "error"
	}
}

// Handle tracks one background extraction.
type Handle struct {
	done chan struct{}
	err  error
}

// Done is closed when the extraction has finished and all notifications
// have been delivered.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the extraction finishes and returns its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Err returns the extraction's error once Done is closed, nil before.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

func (h *Handle) String() string {
	select {
	case <-h.done:
		if h.err != nil {
			return fmt.Sprintf("failed: %v", h.err)
		}
		return "completed"
	default:
		return "running"
	}
}

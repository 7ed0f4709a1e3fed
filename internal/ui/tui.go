// Package ui is the interactive terminal front end for an extraction
// session: a command queue, a start key, a progress bar and the log.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/timvw/config-puller/internal/extractor"
	"github.com/timvw/config-puller/internal/model"
)

// controller is the part of extractor.Session the TUI drives.
type controller interface {
	Commands() []string
	SubmitCommand(text string) error
	ClearCommands() error
	StartQueued(conn model.ConnectionConfig) (*extractor.Handle, error)
}

// view mode
type viewMode int

const (
	modeQueue viewMode = iota
	modeTextInput
)

// messages forwarded from the session worker
type progressMsg int

type logMsg model.LogEvent

type completeMsg struct{}

type errorMsg struct{ err error }

// programSubscriber forwards session notifications into the tea event loop.
type programSubscriber struct {
	send func(tea.Msg)
}

func (p programSubscriber) OnProgress(percent int)     { p.send(progressMsg(percent)) }
func (p programSubscriber) OnLog(event model.LogEvent) { p.send(logMsg(event)) }
func (p programSubscriber) OnComplete()                { p.send(completeMsg{}) }
func (p programSubscriber) OnError(err error)          { p.send(errorMsg{err: err}) }

// TUI runs the interactive extraction front end.
type TUI struct {
	Session    *extractor.Session
	Connection model.ConnectionConfig
	Output     string // artifact path, shown after a successful run
	Theme      string // "dark" or "light"
}

type tuiModel struct {
	session controller
	conn    model.ConnectionConfig
	output  string
	mode    viewMode

	textInput textinput.Model
	bar       progress.Model
	percent   int
	running   bool
	logs      []model.LogEvent

	width  int
	height int

	message string
	runs    int
	styles  styles
}

func newModel(session controller, conn model.ConnectionConfig, output, theme string) *tuiModel {
	ti := textinput.New()
	ti.Placeholder = "show running-config"
	ti.CharLimit = 512
	ti.Width = 60

	return &tuiModel{
		session:   session,
		conn:      conn,
		output:    output,
		textInput: ti,
		bar:       progress.New(progress.WithDefaultGradient()),
		styles:    newStyles(ThemeByName(theme)),
	}
}

// Run starts the TUI and blocks until the user quits or ctx is done.
func (t *TUI) Run(ctx context.Context) error {
	m := newModel(t.Session, t.Connection, t.Output, t.Theme)
	m.logs = t.Session.Log().Snapshot()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	t.Session.Subscribe(programSubscriber{send: p.Send})
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *tuiModel) Init() tea.Cmd {
	return nil
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(msg.Width-4, 80)
		return m, nil

	case progressMsg:
		if int(msg) > m.percent {
			m.percent = int(msg)
		}
		return m, nil

	case logMsg:
		m.logs = append(m.logs, model.LogEvent(msg))
		return m, nil

	case completeMsg:
		m.running = false
		m.runs++
		m.message = fmt.Sprintf("Configuration written to %s", m.output)
		return m, nil

	case errorMsg:
		m.running = false
		m.message = fmt.Sprintf("Extraction failed: %v", msg.err)
		return m, nil
	}

	return m, nil
}

func (m *tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeQueue:
		return m.handleQueueKey(msg)
	case modeTextInput:
		return m.handleTextInputKey(msg)
	}
	return m, nil
}

func (m *tuiModel) handleQueueKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "a", "i":
		if m.running {
			m.message = extractor.ErrBusySession.Error()
			return m, nil
		}
		m.mode = modeTextInput
		m.message = ""
		return m, m.textInput.Focus()

	case "c":
		if err := m.session.ClearCommands(); err != nil {
			m.message = err.Error()
			return m, nil
		}
		m.message = "Command list cleared"

	case "s", "enter":
		if _, err := m.session.StartQueued(m.conn); err != nil {
			m.message = err.Error()
			return m, nil
		}
		m.running = true
		m.percent = 0
		m.message = fmt.Sprintf("Extracting from %s...", m.conn.Port)
	}

	return m, nil
}

func (m *tuiModel) handleTextInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "escape":
		m.mode = modeQueue
		m.textInput.Blur()
		m.textInput.Reset()
		return m, nil

	case "enter":
		text := strings.TrimSpace(m.textInput.Value())
		m.textInput.Reset()
		if text == "" {
			m.mode = modeQueue
			m.textInput.Blur()
			return m, nil
		}
		if err := m.session.SubmitCommand(text); err != nil {
			m.message = err.Error()
			m.mode = modeQueue
			m.textInput.Blur()
			return m, nil
		}
		// Stay in input mode so several commands can be queued in a row.
		m.message = fmt.Sprintf("Queued '%s'", truncate(text, 40))
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *tuiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := m.styles
	var b strings.Builder

	b.WriteString(s.title.Render("Config Puller"))
	b.WriteString("  ")
	b.WriteString(m.hints())
	b.WriteString("\n")
	b.WriteString(s.dim.Render(fmt.Sprintf("  %s @ %d baud, prompt %s", m.conn.Port, m.conn.BaudRate, m.conn.Prompt())))
	if m.running {
		b.WriteString("  ")
		b.WriteString(s.running.Render("extracting..."))
	}
	b.WriteString("\n")
	b.WriteString(s.header.Render(strings.Repeat("─", max(m.width-1, 1))))
	b.WriteString("\n")

	commands := m.session.Commands()
	if len(commands) == 0 {
		b.WriteString(s.dim.Render("  No commands queued. Press a to add one."))
		b.WriteString("\n")
	}
	for i, c := range commands {
		b.WriteString(fmt.Sprintf("  %2d. %s\n", i+1, s.command.Render(truncate(c, m.width-8))))
	}

	if m.mode == modeTextInput {
		b.WriteString("\n  ")
		b.WriteString(s.input.Render("> "))
		b.WriteString(m.textInput.View())
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(m.bar.ViewAs(float64(m.percent) / 100))
	b.WriteString("\n\n")

	for _, e := range m.visibleLogs(len(commands)) {
		line := truncate(e.String(), m.width-4)
		b.WriteString("  ")
		b.WriteString(s.level(e.Level).Render(line))
		b.WriteString("\n")
	}

	if m.message != "" {
		b.WriteString("\n")
		style := s.status
		switch {
		case strings.HasPrefix(m.message, "Extraction failed"):
			style = s.err
		case strings.HasPrefix(m.message, "Configuration written"):
			style = s.ok
		}
		b.WriteString(style.Render("  " + m.message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *tuiModel) hints() string {
	s := m.styles
	pairs := [][2]string{{"a", "add"}, {"s", "start"}, {"c", "clear"}, {"q", "quit"}}
	if m.mode == modeTextInput {
		pairs = [][2]string{{"enter", "queue"}, {"esc", "done"}}
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, s.hintKey.Render(p[0])+s.hintDesc.Render("="+p[1]))
	}
	return strings.Join(parts, "  ")
}

// visibleLogs returns the tail of the log that fits below the queue.
func (m *tuiModel) visibleLogs(queued int) []model.LogEvent {
	used := 8 + queued
	if m.mode == modeTextInput {
		used += 2
	}
	room := m.height - used
	if room < 3 {
		room = 3
	}
	if len(m.logs) <= room {
		return m.logs
	}
	return m.logs[len(m.logs)-room:]
}

// truncate cuts a string to at most maxLen characters.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"iiifdl/pkg/engine"
)

// TUI wraps the bubbletea program driving the full-screen interface
type TUI struct {
	program *tea.Program
}

// New creates the interface for a run over total canvases. cancel is
// invoked once when the user asks to stop.
func New(title string, total int, cancel context.CancelFunc) *TUI {
	model := NewModel(title, total, cancel)
	program := tea.NewProgram(&model, tea.WithAltScreen())

	return &TUI{program: program}
}

// Consume feeds engine events into the interface and blocks until the
// program exits. The interface shuts down when the stream closes.
func (t *TUI) Consume(events <-chan engine.Event) error {
	go func() {
		for ev := range events {
			t.program.Send(eventMsg{ev: ev})
		}
		t.program.Send(streamClosedMsg{})
	}()

	_, err := t.program.Run()
	return err
}

package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"iiifdl/pkg/engine"
)

// eventMsg wraps one engine event for the bubbletea loop
type eventMsg struct {
	ev engine.Event
}

// streamClosedMsg is sent when the engine's event channel closes
type streamClosedMsg struct{}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.applyEvent(msg.ev)
		if m.done {
			return m, tea.Quit
		}
		return m, nil

	case streamClosedMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.done {
			return m, tea.Quit
		}
		if m.cancel != nil && !m.canceling {
			m.canceling = true
			m.cancel()
			m.addLog("WARN", "cancel requested, stopping after the current canvas")
		}
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	}

	return m, nil
}

package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"iiifdl/pkg/engine"
	"iiifdl/pkg/transfer"
)

// currentCanvas is the transfer in flight
type currentCanvas struct {
	index    int
	label    string
	received int64
	total    int64
	source   transfer.SizeSource
}

// logEntry is one line of the scrolling event log
type logEntry struct {
	time    time.Time
	level   string
	message string
	color   lipgloss.Color
}

// Model is the bubbletea model for a download run. Engine events
// arrive as messages through the program, so bubbletea's own loop is
// the only writer and no locking is needed.
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	title    string
	stats    engine.Statistics
	current  currentCanvas
	fetching bool

	log    []logEntry
	maxLog int

	width    int
	height   int
	showHelp bool

	done      bool
	aborted   bool
	endReason string

	cancel    context.CancelFunc
	canceling bool
	startTime time.Time
}

// NewModel creates a model for a run over total canvases. cancel stops
// the engine when the user quits mid-run.
func NewModel(title string, total int, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentBlue)

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return Model{
		spinner:   s,
		bar:       bar,
		title:     title,
		stats:     engine.Statistics{Total: total},
		maxLog:    50,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Init starts the spinner
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// applyEvent folds one engine event into the model
func (m *Model) applyEvent(ev engine.Event) {
	m.stats = ev.Stats

	switch ev.Type {
	case engine.EventRunStarted:
		m.addLog("INFO", fmt.Sprintf("run started: %d canvases", ev.Stats.Total))

	case engine.EventCanvasStarted:
		m.fetching = true
		m.current = currentCanvas{index: ev.Canvas, label: ev.Label}

	case engine.EventProgress:
		if ev.Canvas == m.current.index {
			m.current.received = ev.Received
			m.current.total = ev.Total
			m.current.source = ev.Source
		}

	case engine.EventDownloaded:
		m.fetching = false
		m.addLog("OK", fmt.Sprintf("downloaded %s", ev.Filename))

	case engine.EventSkipped:
		m.fetching = false
		m.addLog("SKIP", fmt.Sprintf("already complete: %s", ev.Filename))

	case engine.EventMigrated:
		m.addLog("MOVE", fmt.Sprintf("renamed canvas %d to %s", ev.Canvas, ev.Filename))

	case engine.EventFailed:
		m.fetching = false
		m.addLog("FAIL", fmt.Sprintf("canvas %d: %s", ev.Canvas, ev.Message))

	case engine.EventWarning:
		m.addLog("WARN", ev.Message)

	case engine.EventRunCompleted:
		m.done = true
		m.fetching = false

	case engine.EventRunAborted:
		m.done = true
		m.aborted = true
		m.fetching = false
		m.endReason = ev.Message
	}
}

// addLog appends a bounded log entry
func (m *Model) addLog(level, message string) {
	color := dimWhite
	switch level {
	case "FAIL":
		color = softRed
	case "WARN":
		color = softYellow
	case "OK":
		color = softGreen
	case "MOVE":
		color = softMagenta
	case "INFO":
		color = accentBlue
	}

	m.log = append(m.log, logEntry{
		time:    time.Now(),
		level:   level,
		message: message,
		color:   color,
	})
	if len(m.log) > m.maxLog {
		m.log = m.log[len(m.log)-m.maxLog:]
	}
}

// remaining counts canvases not yet settled
func (m *Model) remaining() int {
	r := m.stats.Total - m.stats.Processed()
	if r < 0 {
		r = 0
	}
	return r
}

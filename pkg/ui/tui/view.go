package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"iiifdl/pkg/engine"
	"iiifdl/pkg/transfer"
	"iiifdl/pkg/ui"
)

// View renders the entire interface
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	width := m.width - 2
	if width > 90 {
		width = 90
	}

	sections := []string{
		m.renderHeader(),
		m.renderCurrentPanel(width),
		m.renderStatsPanel(width),
		m.renderLogPanel(width),
	}

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("? help • q cancel"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader shows the manifest title and run state
func (m Model) renderHeader() string {
	state := m.spinner.View() + " downloading"
	switch {
	case m.aborted:
		state = errorStyle.Render("aborted")
	case m.done:
		state = successStyle.Render("complete")
	case m.canceling:
		state = warningStyle.Render("canceling...")
	case !m.fetching:
		state = m.spinner.View() + " checking"
	}

	title := m.title
	if title == "" {
		title = "IIIF download"
	}

	return headerStyle.Render(title) + headerSubStyle.Render(state)
}

// renderCurrentPanel shows the transfer in flight
func (m Model) renderCurrentPanel(width int) string {
	title := titleStyle.Render("Current")

	if m.done || m.current.index == 0 {
		message := "waiting"
		if m.done {
			message = "finished"
			if m.aborted && m.endReason != "" {
				message = m.endReason
			}
		}
		return panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left, title,
				lipgloss.NewStyle().Foreground(dimGray).Render(message)),
		)
	}

	name := fmt.Sprintf("canvas %d of %d", m.current.index, m.stats.Total)
	if m.current.label != "" {
		name += ": " + m.current.label
	}

	var line string
	if m.current.total > 0 {
		approx := ""
		if m.current.source == transfer.SizeEstimate {
			approx = "~"
		}
		ratio := float64(m.current.received) / float64(m.current.total)
		if ratio > 1 {
			ratio = 1
		}
		bar := m.bar
		bar.Width = width - 24
		if bar.Width < 10 {
			bar.Width = 10
		}
		line = fmt.Sprintf("%s %s / %s%s",
			bar.ViewAs(ratio),
			ui.FormatBytes(m.current.received),
			approx,
			ui.FormatBytes(m.current.total))
	} else {
		line = fmt.Sprintf("%s %s received", m.spinner.View(), ui.FormatBytes(m.current.received))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, currentStyle.Render(name), line),
	)
}

// renderStatsPanel shows the run totals
func (m Model) renderStatsPanel(width int) string {
	title := titleStyle.Render("Progress")

	elapsed := time.Since(m.startTime)
	rate := 0.0
	if minutes := elapsed.Minutes(); minutes > 0 {
		rate = float64(m.stats.Downloaded) / minutes
	}

	col := func(label string, value string) string {
		return statsLabelStyle.Render(label+" ") + statsValueStyle.Render(value)
	}

	rows := []string{
		strings.Join([]string{
			col("Downloaded:", fmt.Sprint(m.stats.Downloaded)),
			col("Skipped:", fmt.Sprint(m.stats.Skipped)),
			col("Failed:", renderFailedCount(m.stats)),
			col("Remaining:", fmt.Sprint(m.remaining())),
		}, "   "),
		strings.Join([]string{
			col("Bytes:", ui.FormatBytes(m.stats.BytesDownloaded)),
			col("Rate:", fmt.Sprintf("%.1f/min", rate)),
			col("Elapsed:", ui.FormatDuration(elapsed)),
			col("ETA:", ui.FormatETA(m.stats.Processed(), m.stats.Total, elapsed)),
		}, "   "),
	}
	if m.stats.Migrated > 0 {
		rows = append(rows, col("Migrated:", migratedStyle.Render(fmt.Sprint(m.stats.Migrated))))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}

func renderFailedCount(s engine.Statistics) string {
	if s.Failed > 0 {
		return errorStyle.Render(fmt.Sprint(s.Failed))
	}
	return fmt.Sprint(s.Failed)
}

// renderLogPanel shows the most recent events
func (m Model) renderLogPanel(width int) string {
	title := titleStyle.Render("Log")

	visible := 8
	start := len(m.log) - visible
	if start < 0 {
		start = 0
	}

	var lines []string
	for _, entry := range m.log[start:] {
		timestamp := logTimestampStyle.Render(entry.time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(entry.color).Bold(true).Render(fmt.Sprintf("[%-4s]", entry.level))
		message := entry.message

		maxLen := width - 20
		if maxLen > 0 && len(message) > maxLen {
			message = message[:maxLen-3] + "..."
		}

		lines = append(lines, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(message)))
	}
	if len(lines) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(dimGray).Render("no events yet"))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

// renderHelp renders the expanded help panel
func (m Model) renderHelp() string {
	help := strings.Join([]string{
		"  q / ctrl+c  cancel the run (finishes the current canvas)",
		"  ?           toggle this help",
	}, "\n")
	return panelStyle.Render(help)
}

package ui

import (
	"fmt"
	"time"
)

// FormatBytes formats a byte count in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed formats a transfer rate in bytes per second
func FormatSpeed(bytesPerSecond float64) string {
	return fmt.Sprintf("%s/s", FormatBytes(int64(bytesPerSecond)))
}

// FormatDuration formats a duration in a compact human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatETA estimates the remaining time from progress so far
func FormatETA(done, total int, elapsed time.Duration) string {
	if done == 0 || total <= done {
		return "calculating..."
	}

	rate := float64(done) / elapsed.Seconds()
	if rate == 0 {
		return "calculating..."
	}

	remaining := total - done
	eta := time.Duration(float64(remaining)/rate) * time.Second
	return FormatDuration(eta)
}

// FormatPercent renders progress as a percentage, "?" when the total
// is unknown
func FormatPercent(received, total int64) string {
	if total <= 0 {
		return "?"
	}
	pct := float64(received) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return fmt.Sprintf("%.0f%%", pct)
}

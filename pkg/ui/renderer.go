package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"iiifdl/pkg/engine"
)

// Renderer consumes engine events and prints a plain-text account of
// the run: one line per canvas outcome and a closing summary block.
// When stdout is a terminal, an in-place line tracks the transfer in
// flight.
type Renderer struct {
	out      io.Writer
	quiet    bool
	tty      bool
	lineOpen bool
}

// NewRenderer creates a renderer writing to stdout
func NewRenderer(quiet bool) *Renderer {
	return NewRendererWriter(os.Stdout, quiet, IsTerminal())
}

// NewRendererWriter creates a renderer with an explicit writer and
// terminal mode
func NewRendererWriter(out io.Writer, quiet, tty bool) *Renderer {
	return &Renderer{out: out, quiet: quiet, tty: tty}
}

// Consume drains the event stream until the engine closes it
func (r *Renderer) Consume(events <-chan engine.Event) error {
	for ev := range events {
		r.handle(ev)
	}
	return nil
}

func (r *Renderer) handle(ev engine.Event) {
	switch ev.Type {
	case engine.EventRunStarted:
		if !r.quiet {
			fmt.Fprintf(r.out, "Downloading %d canvases\n", ev.Stats.Total)
		}

	case engine.EventProgress:
		r.progressLine(ev)

	case engine.EventDownloaded:
		r.closeLine()
		if !r.quiet {
			fmt.Fprintf(r.out, "%s %s %s %s\n",
				Green("✓"), r.position(ev.Stats), ev.Filename, Dim(FormatBytes(ev.Received)))
		}

	case engine.EventSkipped:
		r.closeLine()
		if !r.quiet {
			fmt.Fprintf(r.out, "%s %s %s %s\n",
				Dim("•"), r.position(ev.Stats), ev.Filename, Dim("already complete"))
		}

	case engine.EventMigrated:
		r.closeLine()
		if !r.quiet {
			fmt.Fprintf(r.out, "%s %s %s\n",
				Magenta("⇢"), Dim(fmt.Sprintf("canvas %d", ev.Canvas)), "renamed to "+ev.Filename)
		}

	case engine.EventFailed:
		r.closeLine()
		fmt.Fprintf(r.out, "%s %s canvas %d: %s\n",
			Red("✗"), r.position(ev.Stats), ev.Canvas, ev.Message)

	case engine.EventWarning:
		r.closeLine()
		fmt.Fprintf(r.out, "%s %s\n", Yellow("⚠"), ev.Message)

	case engine.EventRunCompleted:
		r.closeLine()
		r.summary(ev.Stats)

	case engine.EventRunAborted:
		r.closeLine()
		fmt.Fprintf(r.out, "%s run aborted: %s\n", Red("✗"), ev.Message)
		r.summary(ev.Stats)
	}
}

// position renders the processed-of-total counter for outcome lines
func (r *Renderer) position(s engine.Statistics) string {
	width := len(fmt.Sprint(s.Total))
	return Dim(fmt.Sprintf("[%*d/%d]", width, s.Processed(), s.Total))
}

// progressLine redraws the in-place transfer line. Only terminals get
// one; plain output stays one line per outcome.
func (r *Renderer) progressLine(ev engine.Event) {
	if r.quiet || !r.tty {
		return
	}

	line := fmt.Sprintf("  canvas %d: %s of %s",
		ev.Canvas, FormatBytes(ev.Received), FormatPercent(ev.Received, ev.Total))
	if ev.Total > 0 {
		line = fmt.Sprintf("  canvas %d: %s / %s (%s)",
			ev.Canvas, FormatBytes(ev.Received), FormatBytes(ev.Total), FormatPercent(ev.Received, ev.Total))
	}
	line += Dim(fmt.Sprintf("  eta %s",
		FormatETA(ev.Stats.Processed(), ev.Stats.Total, time.Since(ev.Stats.StartedAt))))

	fmt.Fprintf(r.out, "\r%s\r%s", strings.Repeat(" ", 100), line)
	r.lineOpen = true
}

// closeLine clears a pending in-place progress line before permanent
// output
func (r *Renderer) closeLine() {
	if !r.lineOpen {
		return
	}
	fmt.Fprintf(r.out, "\r%s\r", strings.Repeat(" ", 100))
	r.lineOpen = false
}

// summary prints the closing block; quiet mode keeps this and failure
// lines only
func (r *Renderer) summary(s engine.Statistics) {
	WriteSummary(r.out, s)
}

// WriteSummary prints the closing run summary. The full-screen
// interface reuses it after the alt screen restores.
func WriteSummary(w io.Writer, s engine.Statistics) {
	if s.Downloaded > 0 || s.Skipped > 0 {
		fmt.Fprintf(w, "\n%s %d of %d canvases complete\n",
			Green("✓"), s.Downloaded+s.Skipped, s.Total)
	} else {
		fmt.Fprintf(w, "\n%s nothing downloaded\n", Red("✗"))
	}

	rate := 0.0
	if minutes := s.Duration().Minutes(); minutes > 0 {
		rate = float64(s.Downloaded) / minutes
	}
	fmt.Fprintf(w, "  %s %s in %s (%.1f/min)\n",
		Dim("•"), FormatBytes(s.BytesDownloaded), FormatDuration(s.Duration()), rate)

	if s.Skipped > 0 || s.Failed > 0 || s.Migrated > 0 {
		fmt.Fprintf(w, "  %s %d skipped, %d failed, %d migrated\n",
			Dim("•"), s.Skipped, s.Failed, s.Migrated)
	}

	if len(s.Failures) > 0 {
		fmt.Fprintf(w, "\nFailed canvases:\n")
		for _, f := range s.Failures {
			fmt.Fprintf(w, "  %s canvas %d: %s\n", Red("✗"), f.Index, f.Reason)
		}
	}
}

package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"iiifdl/pkg/engine"
)

func init() {
	// Tests assert on plain text.
	EnableColors(false)
}

func playEvents(r *Renderer, events ...engine.Event) {
	ch := make(chan engine.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	_ = r.Consume(ch)
}

func runStats(downloaded, skipped, failed int) engine.Statistics {
	return engine.Statistics{
		Total:      3,
		Downloaded: downloaded,
		Skipped:    skipped,
		Failed:     failed,
		StartedAt:  time.Now().Add(-time.Minute),
	}
}

func TestRendererOutcomeLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWriter(&buf, false, false)

	playEvents(r,
		engine.Event{Type: engine.EventRunStarted, Stats: runStats(0, 0, 0)},
		engine.Event{Type: engine.EventDownloaded, Canvas: 1, Filename: "image_001.jpeg", Received: 2048, Stats: runStats(1, 0, 0)},
		engine.Event{Type: engine.EventSkipped, Canvas: 2, Filename: "canvas-002_Page_5.jpeg", Stats: runStats(1, 1, 0)},
		engine.Event{Type: engine.EventFailed, Canvas: 3, Message: "HTTP 503 from server", Stats: runStats(1, 1, 1)},
		engine.Event{Type: engine.EventRunCompleted, Stats: runStats(1, 1, 1)},
	)

	out := buf.String()
	for _, want := range []string{
		"Downloading 3 canvases",
		"✓ [1/3] image_001.jpeg 2.0 KB",
		"• [2/3] canvas-002_Page_5.jpeg already complete",
		"✗ [3/3] canvas 3: HTTP 503 from server",
		"2 of 3 canvases complete",
		"1 skipped, 1 failed, 0 migrated",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRendererQuietMode(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWriter(&buf, true, false)

	playEvents(r,
		engine.Event{Type: engine.EventRunStarted, Stats: runStats(0, 0, 0)},
		engine.Event{Type: engine.EventDownloaded, Canvas: 1, Filename: "image_001.jpeg", Received: 2048, Stats: runStats(1, 0, 0)},
		engine.Event{Type: engine.EventFailed, Canvas: 2, Message: "HTTP 404", Stats: runStats(1, 0, 1)},
		engine.Event{Type: engine.EventRunCompleted, Stats: runStats(2, 0, 1)},
	)

	out := buf.String()
	if strings.Contains(out, "image_001.jpeg") {
		t.Errorf("quiet mode printed a success line:\n%s", out)
	}
	if !strings.Contains(out, "HTTP 404") {
		t.Errorf("quiet mode swallowed a failure:\n%s", out)
	}
	if !strings.Contains(out, "canvases complete") {
		t.Errorf("quiet mode swallowed the summary:\n%s", out)
	}
}

func TestRendererProgressLineOnTerminal(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWriter(&buf, false, true)

	playEvents(r,
		engine.Event{Type: engine.EventProgress, Canvas: 1, Received: 1024, Total: 4096, Stats: runStats(0, 0, 0)},
		engine.Event{Type: engine.EventDownloaded, Canvas: 1, Filename: "image_001.jpeg", Received: 4096, Stats: runStats(1, 0, 0)},
	)

	out := buf.String()
	if !strings.Contains(out, "\r") {
		t.Error("no in-place redraw on a terminal")
	}
	if !strings.Contains(out, "1.0 KB / 4.0 KB (25%)") {
		t.Errorf("progress line missing byte counts:\n%q", out)
	}
	if !strings.Contains(out, "image_001.jpeg") {
		t.Errorf("outcome line lost after progress:\n%q", out)
	}
}

func TestRendererNoProgressWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWriter(&buf, false, false)

	playEvents(r,
		engine.Event{Type: engine.EventProgress, Canvas: 1, Received: 1024, Total: 4096, Stats: runStats(0, 0, 0)},
	)

	if buf.Len() != 0 {
		t.Errorf("progress printed to a non-terminal:\n%q", buf.String())
	}
}

func TestRendererAbortAndFailures(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWriter(&buf, false, false)

	stats := runStats(1, 0, 1)
	stats.Failures = []engine.Failure{{Index: 2, Reason: "HTTP 500 from server"}}

	playEvents(r,
		engine.Event{Type: engine.EventRunAborted, Message: "context canceled", Stats: stats},
	)

	out := buf.String()
	if !strings.Contains(out, "run aborted: context canceled") {
		t.Errorf("missing abort line:\n%s", out)
	}
	if !strings.Contains(out, "canvas 2: HTTP 500 from server") {
		t.Errorf("missing failure detail:\n%s", out)
	}
}

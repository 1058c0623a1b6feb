package engine

import "iiifdl/pkg/transfer"

// EventType discriminates engine events
type EventType int

const (
	// EventRunStarted fires once, after the run lock is acquired
	EventRunStarted EventType = iota
	// EventCanvasStarted fires before each canvas is examined
	EventCanvasStarted
	// EventProgress reports received bytes during a transfer. Delivery
	// is best-effort: progress is dropped when the consumer lags.
	EventProgress
	// EventDownloaded fires once a canvas image is on disk and recorded
	EventDownloaded
	// EventSkipped fires for a canvas already complete on resume
	EventSkipped
	// EventMigrated fires when a legacy filename was renamed in place
	EventMigrated
	// EventFailed fires when a canvas is given up on for this run
	EventFailed
	// EventWarning carries a non-fatal run-level condition
	EventWarning
	// EventRunCompleted fires once every canvas has been settled
	EventRunCompleted
	// EventRunAborted fires when the run stops early
	EventRunAborted
)

func (t EventType) String() string {
	switch t {
	case EventRunStarted:
		return "run_started"
	case EventCanvasStarted:
		return "canvas_started"
	case EventProgress:
		return "progress"
	case EventDownloaded:
		return "downloaded"
	case EventSkipped:
		return "skipped"
	case EventMigrated:
		return "migrated"
	case EventFailed:
		return "failed"
	case EventWarning:
		return "warning"
	case EventRunCompleted:
		return "run_completed"
	case EventRunAborted:
		return "run_aborted"
	default:
		return "unknown"
	}
}

// Event is one update from the engine to whatever is presenting the
// run. Canvas is the 1-based index, 0 on run-level events. Received,
// Total and Source are set on EventProgress (Total 0 when the size is
// unknown); EventDownloaded carries the final byte count in Received.
// Stats is a snapshot taken at emission time.
type Event struct {
	Type     EventType
	Canvas   int
	Label    string
	Filename string
	Message  string
	Received int64
	Total    int64
	Source   transfer.SizeSource
	Stats    Statistics
}

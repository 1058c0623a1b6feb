package engine

import "time"

// Failure records one canvas that could not be completed, with the
// classified reason shown in the final summary
type Failure struct {
	Index  int
	Reason string
}

// Statistics is the aggregate outcome of a run. The engine goroutine is
// the only writer; presentation layers receive copies via Snapshot or
// attached to events.
type Statistics struct {
	Total           int
	Downloaded      int
	Skipped         int
	Failed          int
	Migrated        int
	BytesDownloaded int64
	StartedAt       time.Time
	FinishedAt      time.Time
	Failures        []Failure
}

// Snapshot returns a copy safe to hand to another goroutine
func (s Statistics) Snapshot() Statistics {
	out := s
	out.Failures = append([]Failure(nil), s.Failures...)
	return out
}

// Processed is the number of canvases settled so far
func (s Statistics) Processed() int {
	return s.Downloaded + s.Skipped + s.Failed
}

// AllFailed reports whether the run attempted work and none of it
// succeeded. Isolated failures leave it false.
func (s Statistics) AllFailed() bool {
	return s.Failed > 0 && s.Downloaded == 0 && s.Skipped == 0
}

// Duration is the elapsed wall time of the run, still ticking until
// FinishedAt is set
func (s Statistics) Duration() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	end := s.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartedAt)
}

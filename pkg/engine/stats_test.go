package engine

import (
	"testing"
	"time"
)

func TestSnapshotIsIndependent(t *testing.T) {
	s := Statistics{
		Downloaded: 2,
		Failures:   []Failure{{Index: 3, Reason: "HTTP 500"}},
	}
	snap := s.Snapshot()

	s.Failures[0].Reason = "changed"
	s.Failures = append(s.Failures, Failure{Index: 4, Reason: "HTTP 404"})

	if len(snap.Failures) != 1 || snap.Failures[0].Reason != "HTTP 500" {
		t.Errorf("snapshot shares failure storage with the original: %+v", snap.Failures)
	}
}

func TestAllFailed(t *testing.T) {
	tests := []struct {
		name  string
		stats Statistics
		want  bool
	}{
		{"nothing attempted", Statistics{}, false},
		{"all failed", Statistics{Failed: 3}, true},
		{"one success", Statistics{Failed: 2, Downloaded: 1}, false},
		{"only skips", Statistics{Failed: 2, Skipped: 1}, false},
		{"clean run", Statistics{Downloaded: 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.AllFailed(); got != tt.want {
				t.Errorf("AllFailed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	var s Statistics
	if s.Duration() != 0 {
		t.Error("duration before start must be zero")
	}

	s.StartedAt = time.Now().Add(-2 * time.Second)
	if s.Duration() < time.Second {
		t.Error("running duration should track elapsed time")
	}

	s.FinishedAt = s.StartedAt.Add(5 * time.Second)
	if s.Duration() != 5*time.Second {
		t.Errorf("Duration = %v, want 5s", s.Duration())
	}
}

func TestProcessed(t *testing.T) {
	s := Statistics{Downloaded: 2, Skipped: 3, Failed: 1}
	if s.Processed() != 6 {
		t.Errorf("Processed = %d, want 6", s.Processed())
	}
}

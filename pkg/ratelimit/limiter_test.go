package ratelimit

import (
	"testing"
	"time"
)

func TestAdaptiveThrottleGrowth(t *testing.T) {
	a := NewAdaptive(500*time.Millisecond, 30*time.Second, 2.0, 0.9)

	if got := a.NextDelay(); got != 500*time.Millisecond {
		t.Fatalf("initial delay = %v, want 500ms", got)
	}

	// Delay never decreases while throttled, and never passes the cap
	prev := a.NextDelay()
	for i := 0; i < 12; i++ {
		a.OnResponse(Throttled)
		cur := a.NextDelay()
		if cur < prev {
			t.Errorf("delay decreased under throttling: %v -> %v", prev, cur)
		}
		if cur > 30*time.Second {
			t.Errorf("delay %v exceeds the 30s cap", cur)
		}
		prev = cur
	}

	if a.NextDelay() != 30*time.Second {
		t.Errorf("delay = %v after sustained throttling, want 30s cap", a.NextDelay())
	}
}

func TestAdaptiveSuccessDecay(t *testing.T) {
	a := NewAdaptive(500*time.Millisecond, 30*time.Second, 2.0, 0.9)

	a.OnResponse(Throttled)
	a.OnResponse(Throttled)
	a.OnResponse(Throttled) // 0.5 -> 1 -> 2 -> 4s

	// Decay never increases the delay
	prev := a.NextDelay()
	for i := 0; i < 50; i++ {
		a.OnResponse(Success)
		cur := a.NextDelay()
		if cur > prev {
			t.Errorf("delay increased on success: %v -> %v", prev, cur)
		}
		prev = cur
	}

	// And it bottoms out at the base, never below
	if a.NextDelay() != 500*time.Millisecond {
		t.Errorf("delay = %v after long recovery, want base 500ms", a.NextDelay())
	}
}

func TestAdaptiveIgnoresNonLoadSignals(t *testing.T) {
	a := NewAdaptive(500*time.Millisecond, 30*time.Second, 2.0, 0.9)

	a.OnResponse(Throttled)
	elevated := a.NextDelay()

	a.OnResponse(OtherErrorCode)
	if a.NextDelay() != elevated {
		t.Errorf("delay changed on error code: %v -> %v", elevated, a.NextDelay())
	}

	a.OnResponse(TransportFailure)
	if a.NextDelay() != elevated {
		t.Errorf("delay changed on transport failure: %v -> %v", elevated, a.NextDelay())
	}
}

func TestAdaptiveReset(t *testing.T) {
	a := NewAdaptive(time.Second, time.Minute, 2.0, 0.9)

	a.OnResponse(Throttled)
	a.OnResponse(Throttled)
	if a.NextDelay() == time.Second {
		t.Fatal("delay should have grown before reset")
	}

	a.Reset()
	if a.NextDelay() != time.Second {
		t.Errorf("delay = %v after reset, want base 1s", a.NextDelay())
	}
}

func TestFixedRateSpacing(t *testing.T) {
	f := NewFixedRate(60)

	if f.NextDelay() != time.Second {
		t.Errorf("60 rpm delay = %v, want 1s", f.NextDelay())
	}

	// Feedback must never adjust the spacing
	f.OnResponse(Throttled)
	f.OnResponse(Throttled)
	f.OnResponse(Success)
	if f.NextDelay() != time.Second {
		t.Errorf("delay = %v after feedback, want 1s", f.NextDelay())
	}

	if NewFixedRate(120).NextDelay() != 500*time.Millisecond {
		t.Error("120 rpm should space requests 500ms apart")
	}
}

func TestFixedDelayConstant(t *testing.T) {
	f := NewFixedDelay(2 * time.Second)

	if f.NextDelay() != 2*time.Second {
		t.Errorf("delay = %v, want 2s", f.NextDelay())
	}

	f.OnResponse(Throttled)
	f.OnResponse(TransportFailure)
	if f.NextDelay() != 2*time.Second {
		t.Errorf("delay = %v after feedback, want 2s", f.NextDelay())
	}

	if NewFixedDelay(-time.Second).NextDelay() != 0 {
		t.Error("negative delay should clamp to zero")
	}
}

func TestNewSelectsMode(t *testing.T) {
	cfg := DefaultConfig()

	if New(cfg).Mode() != ModeAdaptive {
		t.Error("default config should build the adaptive limiter")
	}

	cfg.Mode = ModeFixedRPM
	cfg.RequestsPerMinute = 30
	l := New(cfg)
	if l.Mode() != ModeFixedRPM {
		t.Error("expected fixed-rpm limiter")
	}
	if l.NextDelay() != 2*time.Second {
		t.Errorf("30 rpm delay = %v, want 2s", l.NextDelay())
	}

	cfg.Mode = ModeFixedDelay
	cfg.FixedDelay = 750 * time.Millisecond
	l = New(cfg)
	if l.Mode() != ModeFixedDelay {
		t.Error("expected fixed-delay limiter")
	}
	if l.NextDelay() != 750*time.Millisecond {
		t.Errorf("delay = %v, want 750ms", l.NextDelay())
	}
}

func TestOutcomeForStatus(t *testing.T) {
	tests := []struct {
		code int
		want Outcome
	}{
		{200, Success},
		{206, Success},
		{429, Throttled},
		{503, Throttled},
		{500, OtherErrorCode},
		{502, OtherErrorCode},
		{404, OtherErrorCode},
		{400, OtherErrorCode},
	}

	for _, tt := range tests {
		if got := OutcomeForStatus(tt.code); got != tt.want {
			t.Errorf("OutcomeForStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestAdaptiveConstructorGuards(t *testing.T) {
	a := NewAdaptive(0, 0, 0, 0)

	if a.NextDelay() <= 0 {
		t.Error("guarded constructor must produce a positive base delay")
	}

	// With max clamped up to base, throttling holds at the cap
	a.OnResponse(Throttled)
	if a.NextDelay() != 500*time.Millisecond {
		t.Errorf("delay = %v, want the clamped 500ms cap", a.NextDelay())
	}

	a.OnResponse(Success)
	if a.NextDelay() != 500*time.Millisecond {
		t.Errorf("delay = %v after success, want base 500ms", a.NextDelay())
	}
}

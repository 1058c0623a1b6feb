package ratelimit

import (
	"sync"
	"time"
)

// Outcome classifies one server response for rate limiter feedback
type Outcome int

const (
	// Success is any 2xx response
	Success Outcome = iota
	// Throttled is an explicit server-load signal (429 or 503)
	Throttled
	// OtherErrorCode is any other non-2xx status
	OtherErrorCode
	// TransportFailure is a connection-level failure before any status arrived
	TransportFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Throttled:
		return "throttled"
	case OtherErrorCode:
		return "error_code"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Mode selects one of the closed set of pacing strategies
type Mode string

const (
	ModeAdaptive   Mode = "adaptive"
	ModeFixedRPM   Mode = "fixed-rpm"
	ModeFixedDelay Mode = "fixed-delay"
)

// Limiter computes the pause before the next request. It owns no other
// state and never sleeps or performs I/O itself; callers wait NextDelay
// before issuing the next request.
type Limiter interface {
	// NextDelay returns the pause to honor before the next request
	NextDelay() time.Duration
	// OnResponse feeds one response outcome back into the limiter
	OnResponse(outcome Outcome)
	// Mode identifies the pacing strategy
	Mode() Mode
	// Reset restores the initial delay
	Reset()
}

// Config carries the tuning constants for all limiter modes
type Config struct {
	Mode              Mode
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	ThrottleFactor    float64
	DecayFactor       float64
	RequestsPerMinute int
	FixedDelay        time.Duration
}

// DefaultConfig returns the adaptive mode with its stock tuning
func DefaultConfig() Config {
	return Config{
		Mode:              ModeAdaptive,
		BaseDelay:         500 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		ThrottleFactor:    2.0,
		DecayFactor:       0.9,
		RequestsPerMinute: 120,
		FixedDelay:        500 * time.Millisecond,
	}
}

// New creates the limiter selected by cfg.Mode
func New(cfg Config) Limiter {
	switch cfg.Mode {
	case ModeFixedRPM:
		return NewFixedRate(cfg.RequestsPerMinute)
	case ModeFixedDelay:
		return NewFixedDelay(cfg.FixedDelay)
	default:
		return NewAdaptive(cfg.BaseDelay, cfg.MaxDelay, cfg.ThrottleFactor, cfg.DecayFactor)
	}
}

// Adaptive raises the delay sharply on throttling signals and decays it
// slowly back toward the base on successes. The asymmetry reacts fast to
// server pushback without oscillating straight back into it. Error
// responses that carry no load signal leave the delay untouched.
type Adaptive struct {
	base           time.Duration
	max            time.Duration
	throttleFactor float64
	decayFactor    float64

	delay time.Duration
	mu    sync.Mutex
}

// NewAdaptive creates an adaptive limiter starting at base delay
func NewAdaptive(base, max time.Duration, throttleFactor, decayFactor float64) *Adaptive {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if max < base {
		max = base
	}
	if throttleFactor <= 1 {
		throttleFactor = 2.0
	}
	if decayFactor <= 0 || decayFactor > 1 {
		decayFactor = 0.9
	}
	return &Adaptive{
		base:           base,
		max:            max,
		throttleFactor: throttleFactor,
		decayFactor:    decayFactor,
		delay:          base,
	}
}

// NextDelay returns the current pause
func (a *Adaptive) NextDelay() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.delay
}

// OnResponse adjusts the delay from one response outcome
func (a *Adaptive) OnResponse(outcome Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch outcome {
	case Throttled:
		next := time.Duration(float64(a.delay) * a.throttleFactor)
		if next > a.max {
			next = a.max
		}
		a.delay = next
	case Success:
		next := time.Duration(float64(a.delay) * a.decayFactor)
		if next < a.base {
			next = a.base
		}
		a.delay = next
	}
	// OtherErrorCode and TransportFailure are not load signals
}

// Mode identifies the pacing strategy
func (a *Adaptive) Mode() Mode {
	return ModeAdaptive
}

// Reset restores the base delay
func (a *Adaptive) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.delay = a.base
}

// FixedRate spaces requests evenly from a requests-per-minute budget.
// Feedback is ignored.
type FixedRate struct {
	delay time.Duration
}

// NewFixedRate creates a fixed-rate limiter from requests per minute
func NewFixedRate(requestsPerMinute int) *FixedRate {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &FixedRate{
		delay: time.Minute / time.Duration(requestsPerMinute),
	}
}

// NextDelay returns the constant inter-request spacing
func (f *FixedRate) NextDelay() time.Duration {
	return f.delay
}

// OnResponse is a no-op for fixed-rate pacing
func (f *FixedRate) OnResponse(outcome Outcome) {}

// Mode identifies the pacing strategy
func (f *FixedRate) Mode() Mode {
	return ModeFixedRPM
}

// Reset is a no-op; the spacing never changes
func (f *FixedRate) Reset() {}

// FixedDelay waits a constant, caller-supplied pause between requests.
// Feedback is ignored.
type FixedDelay struct {
	delay time.Duration
}

// NewFixedDelay creates a fixed-delay limiter
func NewFixedDelay(delay time.Duration) *FixedDelay {
	if delay < 0 {
		delay = 0
	}
	return &FixedDelay{delay: delay}
}

// NextDelay returns the constant pause
func (f *FixedDelay) NextDelay() time.Duration {
	return f.delay
}

// OnResponse is a no-op for fixed-delay pacing
func (f *FixedDelay) OnResponse(outcome Outcome) {}

// Mode identifies the pacing strategy
func (f *FixedDelay) Mode() Mode {
	return ModeFixedDelay
}

// Reset is a no-op; the delay never changes
func (f *FixedDelay) Reset() {}

// OutcomeForStatus maps an HTTP status code to limiter feedback
func OutcomeForStatus(statusCode int) Outcome {
	switch {
	case statusCode == 429 || statusCode == 503:
		return Throttled
	case statusCode >= 200 && statusCode < 300:
		return Success
	default:
		return OtherErrorCode
	}
}

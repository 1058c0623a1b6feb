// Package ratelimit computes the pause between image requests so a run
// never overwhelms the server holding a manifest's images.
//
// Available Implementations:
//
// Adaptive:
//   - Starts at a base delay and multiplies it whenever the server
//     signals throttling (429 or 503), capped at a maximum
//   - Decays the delay back toward the base on successes, by a smaller
//     step than the increase, so recovery never oscillates straight
//     back into throttling
//   - Error responses that say nothing about load leave the delay alone
//   - Default implementation
//
// FixedRate:
//   - Even spacing derived once from a requests-per-minute budget
//   - Server feedback is ignored
//
// FixedDelay:
//   - A constant caller-chosen pause
//   - Server feedback is ignored
//
// Interface:
//
// All limiters implement the Limiter interface:
//   - NextDelay() time.Duration - the pause to honor before the next request
//   - OnResponse(Outcome) - feed one response outcome back
//   - Mode() Mode - which strategy is active
//   - Reset() - restore the initial delay
//
// Limiters never sleep and perform no I/O; the caller owns the wait.
// That keeps them deterministic under test.
//
// Usage:
//
//	limiter := ratelimit.NewAdaptive(500*time.Millisecond, 30*time.Second, 2.0, 0.9)
//
//	time.Sleep(limiter.NextDelay())
//	resp, err := client.Do(req)
//	if err != nil {
//	    limiter.OnResponse(ratelimit.TransportFailure)
//	} else {
//	    limiter.OnResponse(ratelimit.OutcomeForStatus(resp.StatusCode))
//	}
package ratelimit

// Package retry provides backoff and retry logic for handling transient
// failures in network operations, particularly IIIF manifest and image
// requests.
//
// Features:
//   - Exponential and constant backoff strategies
//   - Jitter to avoid thundering herd problems
//   - Context support for cancellation
//   - Delays sourced from an external pacer via DelayFunc
//   - Configurable retry predicates
//
// Basic usage:
//
//	// Simple retry with defaults
//	err := retry.Do(func() error {
//		return client.FetchManifest(ctx, url)
//	}, nil)
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 5,
//		Backoff: &retry.ExponentialBackoff{
//			BaseDelay:    2 * time.Second,
//			MaxDelay:     30 * time.Second,
//			Multiplier:   2.0,
//			JitterFactor: 0.1,
//		},
//		RetryIf: retry.DefaultRetryIf,
//		Logger:  logger.GetLogger(),
//	}
//	err := retry.Do(operation, cfg)
//
//	// Delays driven by an adaptive rate limiter
//	cfg.Backoff = retry.DelayFunc(func(int) time.Duration {
//		return limiter.NextDelay()
//	})
//
// Retry decisions follow the error classification in pkg/errors: throttling
// responses, transient server errors, and transport failures are retried;
// auth walls, not-found responses, and cancelled contexts are not.
package retry

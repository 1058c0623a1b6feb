package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "iiifdl/pkg/errors"
	"iiifdl/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited)
	MaxAttempts int
	// Backoff supplies the delay before each retry
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Context for cancellation
	Context context.Context
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 4,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		OnRetry:     nil,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// DefaultRetryIf is the default retry predicate
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	// Never retry a cancelled operation
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		return typed.Retryable
	}

	// Unclassified errors default to one-shot
	return false
}

// withDefaults fills the gaps in a partially specified configuration
func withDefaults(cfg *Config) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	out := *cfg
	if out.Backoff == nil {
		out.Backoff = DefaultExponentialBackoff()
	}
	if out.RetryIf == nil {
		out.RetryIf = DefaultRetryIf
	}
	if out.Context == nil {
		out.Context = context.Background()
	}
	return &out
}

// Do executes an operation with retry logic
func Do(op Operation, cfg *Config) error {
	cfg = withDefaults(cfg)

	var lastErr error
	attempt := 0

	for {
		attempt++

		if cfg.MaxAttempts > 0 && attempt > cfg.MaxAttempts {
			if cfg.Logger != nil {
				cfg.Logger.WithFields(map[string]interface{}{
					"attempts":   attempt - 1,
					"last_error": lastErr.Error(),
				}).Error("max retry attempts exceeded")
			}
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		err := op()
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.WithField("attempt", attempt).Debug("operation succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !cfg.RetryIf(err) {
			if cfg.Logger != nil {
				cfg.Logger.WithError(err).Debug("error is not retryable")
			}
			return err
		}

		delay := cfg.Backoff.NextDelay(attempt)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		if cfg.Logger != nil {
			cfg.Logger.WithFields(map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": cfg.MaxAttempts,
			}).Warn("retrying operation")
		}

		if err := Wait(cfg.Context, delay); err != nil {
			if cfg.Logger != nil {
				cfg.Logger.WithField("attempt", attempt).Warn("retry cancelled")
			}
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)

	return result, err
}

// Retrier provides a reusable retry mechanism
type Retrier struct {
	config *Config
}

// NewRetrier creates a new retrier with the given configuration
func NewRetrier(cfg *Config) *Retrier {
	return &Retrier{config: withDefaults(cfg)}
}

// Do executes an operation with retry logic
func (r *Retrier) Do(op Operation) error {
	return Do(op, r.config)
}

// WithMaxAttempts returns a new retrier with updated max attempts
func (r *Retrier) WithMaxAttempts(maxAttempts int) *Retrier {
	newConfig := *r.config
	newConfig.MaxAttempts = maxAttempts
	return &Retrier{config: &newConfig}
}

// WithBackoff returns a new retrier with updated backoff strategy
func (r *Retrier) WithBackoff(backoff BackoffStrategy) *Retrier {
	newConfig := *r.config
	newConfig.Backoff = backoff
	return &Retrier{config: &newConfig}
}

// WithContext returns a new retrier with updated context
func (r *Retrier) WithContext(ctx context.Context) *Retrier {
	newConfig := *r.config
	newConfig.Context = ctx
	return &Retrier{config: &newConfig}
}

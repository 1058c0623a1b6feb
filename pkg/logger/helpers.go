package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs one HTTP exchange at a level matching its outcome
func LogRequest(method, url string, statusCode int, duration time.Duration) {
	l := GetLogger().WithFields(map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration":    duration,
	})

	switch {
	case statusCode >= 200 && statusCode < 300:
		l.Debug("HTTP request completed")
	case statusCode == 429 || statusCode == 503:
		l.Warn("HTTP request throttled")
	case statusCode >= 500:
		l.Error("HTTP request server error")
	default:
		l.Warn("HTTP request client error")
	}
}

// LogCanvasOutcome logs the final state of one canvas
func LogCanvasOutcome(index int, filename, outcome string, bytes int64, err error) {
	l := GetLogger().WithFields(map[string]interface{}{
		"canvas":   index,
		"filename": filename,
		"bytes":    bytes,
	})

	switch {
	case err != nil:
		l.WithError(err).Error("canvas failed")
	case outcome == "skipped":
		l.Debug("canvas skipped")
	case outcome == "migrated":
		l.Info("canvas filename migrated")
	default:
		l.Info("canvas downloaded")
	}
}

// LogRateAdjust logs a rate limiter delay change after server feedback
func LogRateAdjust(outcome string, delay time.Duration) {
	GetLogger().WithFields(map[string]interface{}{
		"outcome": outcome,
		"delay":   delay,
	}).Debug("request delay adjusted")
}

// MustGetLogger gets the logger or panics if it fails
func MustGetLogger() Logger {
	logger := GetLogger()
	if logger == nil {
		panic("logger not initialized")
	}
	return logger
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                {}
func (n *nopLogger) Info(msg string)                                 {}
func (n *nopLogger) Warn(msg string)                                 {}
func (n *nopLogger) Error(msg string)                                {}
func (n *nopLogger) Fatal(msg string)                                {}
func (n *nopLogger) WithField(key string, value interface{}) Logger  { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger { return n }
func (n *nopLogger) WithError(err error) Logger                      { return n }
func (n *nopLogger) GetZerolog() *zerolog.Logger                     { return nil }

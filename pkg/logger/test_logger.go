package logger

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger captures log messages so tests can assert on them
type TestLogger struct {
	mu       sync.Mutex
	messages []LogMessage
	buffer   *bytes.Buffer
	zerolog  *zerolog.Logger
}

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	nop := zerolog.Nop()
	return &TestLogger{
		messages: make([]LogMessage, 0),
		buffer:   &bytes.Buffer{},
		zerolog:  &nop,
	}
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil, nil) }
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg, nil, nil) }

// WithField adds a field to the logger context
func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return &testLoggerContext{
		parent: l,
		fields: map[string]interface{}{key: value},
	}
}

// WithFields adds multiple fields to the logger context
func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return &testLoggerContext{parent: l, fields: fields}
}

// WithError adds an error to the logger context
func (l *TestLogger) WithError(err error) Logger {
	return &testLoggerContext{parent: l, err: err}
}

// GetZerolog returns the underlying zerolog instance
func (l *TestLogger) GetZerolog() *zerolog.Logger {
	return l.zerolog
}

// log captures a log message
func (l *TestLogger) log(level, msg string, fields map[string]interface{}, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  fields,
		Error:   err,
	})

	fmt.Fprintf(l.buffer, "[%s] %s", level, msg)
	if len(fields) > 0 {
		fmt.Fprintf(l.buffer, " fields=%v", fields)
	}
	if err != nil {
		fmt.Fprintf(l.buffer, " error=%v", err)
	}
	fmt.Fprintln(l.buffer)
}

// GetMessages returns all captured log messages
func (l *TestLogger) GetMessages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	messages := make([]LogMessage, len(l.messages))
	copy(messages, l.messages)
	return messages
}

// GetMessagesByLevel returns all messages of a specific level
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	var filtered []LogMessage
	for _, msg := range l.messages {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, msg := range l.messages {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// HasError checks if an error was logged
func (l *TestLogger) HasError() bool {
	return len(l.GetMessagesByLevel("ERROR")) > 0
}

// Clear clears all captured messages
func (l *TestLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = l.messages[:0]
	l.buffer.Reset()
}

// String returns all log messages as a string
func (l *TestLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.buffer.String()
}

// testLoggerContext carries accumulated fields and an error back to the
// capturing TestLogger
type testLoggerContext struct {
	parent *TestLogger
	fields map[string]interface{}
	err    error
}

func (c *testLoggerContext) Debug(msg string) { c.parent.log("DEBUG", msg, c.fields, c.err) }
func (c *testLoggerContext) Info(msg string)  { c.parent.log("INFO", msg, c.fields, c.err) }
func (c *testLoggerContext) Warn(msg string)  { c.parent.log("WARN", msg, c.fields, c.err) }
func (c *testLoggerContext) Error(msg string) { c.parent.log("ERROR", msg, c.fields, c.err) }
func (c *testLoggerContext) Fatal(msg string) { c.parent.log("FATAL", msg, c.fields, c.err) }

func (c *testLoggerContext) WithField(key string, value interface{}) Logger {
	merged := make(map[string]interface{}, len(c.fields)+1)
	for k, v := range c.fields {
		merged[k] = v
	}
	merged[key] = value
	return &testLoggerContext{parent: c.parent, fields: merged, err: c.err}
}

func (c *testLoggerContext) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(c.fields)+len(fields))
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &testLoggerContext{parent: c.parent, fields: merged, err: c.err}
}

func (c *testLoggerContext) WithError(err error) Logger {
	return &testLoggerContext{parent: c.parent, fields: c.fields, err: err}
}

func (c *testLoggerContext) GetZerolog() *zerolog.Logger {
	return c.parent.zerolog
}

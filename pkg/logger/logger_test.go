package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{
			name:    "info level",
			opts:    Options{Level: "info"},
			wantErr: false,
		},
		{
			name:    "debug level",
			opts:    Options{Level: "debug"},
			wantErr: false,
		},
		{
			name:    "empty level defaults to info",
			opts:    Options{},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			opts:    Options{Level: "loud"},
			wantErr: true,
		},
		{
			name:    "file output",
			opts:    Options{Level: "info", File: filepath.Join(os.TempDir(), "iiifdl-test.log")},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}

			if tt.opts.File != "" {
				os.Remove(tt.opts.File)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"fatal", zerolog.FatalLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"", zerolog.InfoLevel, false},
		{"invalid", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(&buf).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	logger := &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}

	t.Run("Debug", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message")
		if !strings.Contains(buf.String(), "debug message") {
			t.Error("Debug message not found in output")
		}
	})

	t.Run("Info", func(t *testing.T) {
		buf.Reset()
		logger.Info("info message")
		if !strings.Contains(buf.String(), "info message") {
			t.Error("Info message not found in output")
		}
	})

	t.Run("Warn", func(t *testing.T) {
		buf.Reset()
		logger.Warn("warn message")
		if !strings.Contains(buf.String(), "warn message") {
			t.Error("Warn message not found in output")
		}
	})

	t.Run("Error", func(t *testing.T) {
		buf.Reset()
		logger.Error("error message")
		if !strings.Contains(buf.String(), "error message") {
			t.Error("Error message not found in output")
		}
	})
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}

	newLogger := logger.WithField("canvas", 7)
	newLogger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Error("Message not found in output")
	}
	if !strings.Contains(output, `"canvas":7`) {
		t.Error("Field not found in output")
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}

	fields := map[string]interface{}{
		"string": "value",
		"int":    42,
		"bool":   true,
		"float":  3.14,
	}

	newLogger := logger.WithFields(fields)
	newLogger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Error("Message not found in output")
	}
	if !strings.Contains(output, `"string":"value"`) {
		t.Error("String field not found in output")
	}
	if !strings.Contains(output, `"int":42`) {
		t.Error("Int field not found in output")
	}
	if !strings.Contains(output, `"bool":true`) {
		t.Error("Bool field not found in output")
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}

	logger1 := logger.WithError(nil)
	if logger1 != logger {
		t.Error("WithError(nil) should return the same logger")
	}

	testErr := &testError{msg: "test error"}
	logger2 := logger.WithError(testErr)
	logger2.Error("error occurred")

	output := buf.String()
	if !strings.Contains(output, "error occurred") {
		t.Error("Message not found in output")
	}
	if !strings.Contains(output, "test error") {
		t.Error("Error message not found in output")
	}
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}

	fields := map[string]interface{}{
		"string":   "test",
		"int":      123,
		"int64":    int64(456),
		"float":    3.14,
		"bool":     true,
		"time":     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		"duration": time.Second * 5,
		"strings":  []string{"a", "b", "c"},
		"ints":     []int{1, 2, 3},
		"custom":   struct{ Name string }{Name: "test"},
	}

	logger.WithFields(fields).Info("test all types")

	output := buf.String()
	if !strings.Contains(output, "test all types") {
		t.Error("Message not found in output")
	}
}

func TestGlobalLogger(t *testing.T) {
	err := Initialize(Options{Level: "debug"})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	logger := GetLogger()
	if logger == nil {
		t.Error("GetLogger() returned nil")
	}

	// Convenience functions must not panic
	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	WithField("key", "value").Info("with field")
	WithFields(map[string]interface{}{"k1": "v1", "k2": "v2"}).Info("with fields")
	WithError(&testError{msg: "test"}).Error("with error")
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	zlog := zerolog.New(&buf).With().Timestamp().Logger()
	logger := &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}

	logger.
		WithField("field1", "value1").
		WithField("field2", "value2").
		WithFields(map[string]interface{}{
			"field3": "value3",
			"field4": 4,
		}).
		Info("chained fields")

	output := buf.String()
	if !strings.Contains(output, "chained fields") {
		t.Error("Message not found in output")
	}
	for _, want := range []string{`"field1":"value1"`, `"field2":"value2"`, `"field3":"value3"`, `"field4":4`} {
		if !strings.Contains(output, want) {
			t.Errorf("%s not found in output", want)
		}
	}
}

func TestTestLoggerCaptures(t *testing.T) {
	tl := NewTestLogger()

	tl.Info("run started")
	tl.WithField("canvas", 3).Warn("retrying")
	tl.WithError(&testError{msg: "boom"}).Error("transfer failed")

	if !tl.HasMessage("run started") {
		t.Error("expected captured info message")
	}
	if got := len(tl.GetMessagesByLevel("WARN")); got != 1 {
		t.Errorf("warn count = %d, want 1", got)
	}
	if !tl.HasError() {
		t.Error("expected an error to be recorded")
	}

	msgs := tl.GetMessagesByLevel("WARN")
	if msgs[0].Fields["canvas"] != 3 {
		t.Errorf("warn fields = %v", msgs[0].Fields)
	}

	tl.Clear()
	if len(tl.GetMessages()) != 0 {
		t.Error("Clear should drop captured messages")
	}
}

// Helper error type for testing
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

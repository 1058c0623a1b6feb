package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewHTTPStatusClassification(t *testing.T) {
	tests := []struct {
		code      int
		wantType  ErrorType
		retryable bool
	}{
		{429, ErrorTypeHTTPStatus, true},
		{503, ErrorTypeHTTPStatus, true},
		{500, ErrorTypeHTTPStatus, true},
		{502, ErrorTypeHTTPStatus, true},
		{599, ErrorTypeHTTPStatus, true},
		{404, ErrorTypeHTTPStatus, false},
		{400, ErrorTypeHTTPStatus, false},
		{415, ErrorTypeHTTPStatus, false},
		{401, ErrorTypeAuthRequired, false},
		{403, ErrorTypeAuthRequired, false},
	}

	for _, tt := range tests {
		err := NewHTTPStatus(tt.code, "http://example.org/image")
		if err.Type != tt.wantType {
			t.Errorf("code %d: type = %s, want %s", tt.code, err.Type, tt.wantType)
		}
		if err.Retryable != tt.retryable {
			t.Errorf("code %d: retryable = %v, want %v", tt.code, err.Retryable, tt.retryable)
		}
		if err.Code != tt.code {
			t.Errorf("code %d: Code = %d", tt.code, err.Code)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewTransport(errors.New("connection reset"), "http://example.org")) {
		t.Error("transport errors should be retryable")
	}
	if IsRetryable(NewPartialWrite(errors.New("no space left on device"), "/tmp/x.part")) {
		t.Error("partial writes must not be retried")
	}
	if IsRetryable(errors.New("plain error")) {
		t.Error("foreign errors must not be retried")
	}
}

func TestWrappingPreservesChain(t *testing.T) {
	base := errors.New("dial tcp: connection refused")
	err := NewTransport(base, "http://example.org/info.json")

	wrapped := fmt.Errorf("fetching info: %w", err)
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is should reach the base error through the chain")
	}

	var typed *Error
	if !errors.As(wrapped, &typed) {
		t.Fatal("errors.As should find *Error in the chain")
	}
	if typed.Type != ErrorTypeTransport {
		t.Errorf("type = %s, want %s", typed.Type, ErrorTypeTransport)
	}
	if TypeOf(wrapped) != ErrorTypeTransport {
		t.Errorf("TypeOf through wrap = %s", TypeOf(wrapped))
	}
}

func TestIsFatalSetup(t *testing.T) {
	if !IsFatalSetup(NewSetup("output directory %s is not writable", "/nope")) {
		t.Error("setup errors are fatal")
	}
	if !IsFatalSetup(NewOutOfRange(0, 12)) {
		t.Error("out-of-range is fatal")
	}
	if IsFatalSetup(NewHTTPStatus(503, "http://example.org")) {
		t.Error("per-canvas transfer errors are not fatal")
	}
}

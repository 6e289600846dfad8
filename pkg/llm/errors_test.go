package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestError_Error_WithStatusCodeAndModel(t *testing.T) {
	err := &Error{
		Type:       ErrorTypeEndpoint,
		Message:    "server error",
		StatusCode: 503,
		Model:      "gpt-4o-mini",
		Cause:      errors.New("upstream"),
	}

	result := err.Error()
	for _, want := range []string{"endpoint", "HTTP 503", "model=gpt-4o-mini", "server error", "upstream"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected %q in error message, got: %s", want, result)
		}
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
		status    int
	}{
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), ErrorTypeTimeout, true, 0},
		{"canceled", context.Canceled, ErrorTypeTimeout, false, 0},
		{"typed 401", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}, ErrorTypeAuth, false, 401},
		{"anthropic key text", errors.New("invalid x-api-key"), ErrorTypeAuth, false, 0},
		{"model missing", errors.New("The model `gpt-9` does not exist"), ErrorTypeModel, false, 0},
		{"typed 404", &openai.APIError{HTTPStatusCode: 404, Message: "nope"}, ErrorTypeEndpoint, false, 404},
		{"rate limit", errors.New("status 429: rate limit reached"), ErrorTypeRateLimit, true, 429},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorTypeEndpoint, true, 0},
		{"typed 502", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, ErrorTypeEndpoint, true, 502},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got.Type != tt.wantType {
				t.Errorf("expected type %q, got %q", tt.wantType, got.Type)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, got.Retryable)
			}
			if got.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, got.StatusCode)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("expected classified error to wrap the cause")
			}
		})
	}
}

func TestClassifyError_PassesThroughStructured(t *testing.T) {
	orig := NewError(ErrorTypeCircuitOpen, "open", false, nil)
	wrapped := fmt.Errorf("call: %w", orig)

	if ClassifyError(wrapped) != orig {
		t.Errorf("expected existing *Error to be returned unchanged")
	}
	if ClassifyError(nil) != nil {
		t.Errorf("expected nil for nil error")
	}
	if GetErrorType(wrapped) != ErrorTypeCircuitOpen {
		t.Errorf("expected circuit_open type")
	}
	if IsRetryable(wrapped) {
		t.Errorf("expected not retryable")
	}
	if GetErrorType(errors.New("plain")) != ErrorTypeUnknown {
		t.Errorf("expected unknown for plain errors")
	}
}

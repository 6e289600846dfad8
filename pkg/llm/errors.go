package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrorType classifies a generation failure.
type ErrorType string

const (
	ErrorTypeNone        ErrorType = ""
	ErrorTypeEndpoint    ErrorType = "endpoint"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeModel       ErrorType = "model"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeEmpty       ErrorType = "empty_response"
	ErrorTypeCircuitOpen ErrorType = "circuit_open"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a structured LLM error with classification.
type Error struct {
	Type       ErrorType // Classification of the error
	Message    string    // Human-readable message
	Retryable  bool      // Whether the operation can be retried
	Cause      error     // Underlying error
	StatusCode int       // HTTP status code if applicable
	Model      string    // Model name if known
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new structured LLM error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// ClassifyError categorizes an error and returns a structured Error.
// Typed OpenAI errors provide the status code directly; other errors are
// classified from their text.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	statusCode := statusCodeOf(err)
	errStr := err.Error()
	lower := strings.ToLower(errStr)

	classified := func(t ErrorType, msg string, retryable bool) *Error {
		e := NewError(t, msg, retryable, err)
		e.StatusCode = statusCode
		return e
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "deadline exceeded"):
		return classified(ErrorTypeTimeout, "request timeout", true)
	case errors.Is(err, context.Canceled):
		return classified(ErrorTypeTimeout, "request canceled", false)
	case statusCode == 401 || statusCode == 403 || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key") || strings.Contains(lower, "invalid x-api-key"):
		return classified(ErrorTypeAuth, "authentication failed", false)
	case strings.Contains(lower, "model") && (strings.Contains(lower, "not found") ||
		strings.Contains(lower, "does not exist")):
		return classified(ErrorTypeModel, "model not found", false)
	case statusCode == 404:
		return classified(ErrorTypeEndpoint, "endpoint not found", false)
	case statusCode == 429 || strings.Contains(lower, "rate limit"):
		return classified(ErrorTypeRateLimit, "rate limited", true)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return classified(ErrorTypeEndpoint, "connection failed", true)
	case statusCode >= 500:
		return classified(ErrorTypeEndpoint, "server error", true)
	}

	return classified(ErrorTypeUnknown, "llm error", false)
}

// statusCodeOf extracts an HTTP status from typed client errors, falling back
// to scanning the error text for common codes.
func statusCodeOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode
	}
	errStr := err.Error()
	for _, code := range []int{401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			return code
		}
	}
	return 0
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

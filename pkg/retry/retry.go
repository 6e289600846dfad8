// Package retry wraps connection tests and schema extraction in exponential
// backoff. Page fetches and membership checks are never retried.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior with exponential backoff.
type Config struct {
	MaxRetries       int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	Multiplier       float64
	JitterFactor     float64 // 0.0-1.0, +/- share of the delay
	MaxSameErrorType int     // after N consecutive same-type errors, give up (0 disables)

	// Notify, when set, is called before each wait with the failed attempt
	// number (1-based), its error and the delay about to be slept.
	Notify func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns defaults for database round trips:
// 3 retries from 200ms, capped at 5s, doubling, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:       3,
		InitialDelay:     200 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}
}

// applyJitter returns delay +/- (delay * jitterFactor * random(-1, 1)).
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// Do executes fn until it succeeds, retrying every error.
// Returns the last error after all retries, or ctx.Err() if cancelled while waiting.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := run(ctx, cfg, false, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoIfRetryable only retries errors IsRetryable accepts. Permanent errors
// (bad credentials, unknown service, SQL errors) are returned at once.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := run(ctx, cfg, true, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is DoIfRetryable for functions returning a value, such as
// schema extraction. The last result is returned alongside a final error.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	return run(ctx, cfg, true, fn)
}

func run[T any](ctx context.Context, cfg *Config, onlyRetryable bool, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var result T
	var lastErr error
	delay := cfg.InitialDelay
	sameErrorCount := 0
	var lastErrorType string

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result, lastErr = r, err

		if onlyRetryable {
			if !IsRetryable(err) {
				return result, err
			}
			errorType := classifyErrorType(err)
			if errorType == lastErrorType {
				sameErrorCount++
				if cfg.MaxSameErrorType > 0 && sameErrorCount >= cfg.MaxSameErrorType {
					return result, fmt.Errorf("repeated error (%d times, type=%s): %w", sameErrorCount, errorType, err)
				}
			} else {
				sameErrorCount = 1
				lastErrorType = errorType
			}
		}

		if attempt == cfg.MaxRetries {
			break
		}
		wait := applyJitter(delay, cfg.JitterFactor)
		if cfg.Notify != nil {
			cfg.Notify(attempt+1, err, wait)
		}
		select {
		case <-time.After(wait):
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	return result, lastErr
}

// RetryableError is implemented by errors that declare their own
// retryability, such as *llm.Error.
type RetryableError interface {
	error
	IsRetryable() bool
}

// retryablePatterns are lower-case fragments of transient failures reported
// by the network stack, the database drivers and HTTP endpoints.
var retryablePatterns = []string{
	// Network
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"temporary failure",
	"network is unreachable",
	"bad connection",
	// Database
	"too many connections",
	"too many clients",
	"deadlock",
	"the database system is starting up",
	"ora-12541",   // no listener
	"ora-12170",   // connect timeout
	"ora-03113",   // end-of-file on communication channel
	"ora-03114",   // not connected
	"ora-12528",   // listener: all instances blocking
	"error 40613", // azure sql database not currently available
	// HTTP
	"429",
	"500",
	"502",
	"503",
	"504",
	"rate limit",
	"service unavailable",
	"too many requests",
}

// IsRetryable reports whether err looks transient. An error in the chain
// implementing RetryableError decides; otherwise the message is matched
// against known transient failures. Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// classifyErrorType buckets an error so repeated failures of the same kind
// can be detected.
func classifyErrorType(err error) string {
	if err == nil {
		return "nil"
	}

	errStr := strings.ToLower(err.Error())

	for _, code := range []string{"503", "502", "504", "500", "429"} {
		if strings.Contains(errStr, code) {
			return code
		}
	}
	if strings.Contains(errStr, "ora-") {
		if i := strings.Index(errStr, "ora-"); i+9 <= len(errStr) {
			return errStr[i : i+9]
		}
		return "oracle"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "bad connection") {
		return "connection"
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out") {
		return "timeout"
	}
	if strings.Contains(errStr, "broken pipe") {
		return "broken_pipe"
	}
	if strings.Contains(errStr, "too many") || strings.Contains(errStr, "rate limit") {
		return "capacity"
	}
	return "unknown"
}

package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrSafetyRejection  = errors.New("statement rejected by safety checks")
	ErrSchemaMismatch   = errors.New("statement references unknown tables or columns")
	ErrSynthesisFailure = errors.New("batch SQL synthesis failed")
	ErrSourceFailure    = errors.New("data source failure")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// RejectionKind distinguishes keyword/shape rejections from schema mismatches.
type RejectionKind string

const (
	RejectionSafety RejectionKind = "safety"
	RejectionSchema RejectionKind = "schema"
)

// RejectionError reports a generated statement that was refused before
// execution. It unwraps to ErrSafetyRejection or ErrSchemaMismatch.
type RejectionError struct {
	Kind   RejectionKind
	Reason string
	SQL    string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s rejection: %s", e.Kind, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	if e.Kind == RejectionSchema {
		return ErrSchemaMismatch
	}
	return ErrSafetyRejection
}

// IsRejection reports whether err is a pre-execution rejection.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

// SourceError wraps an infrastructural failure from a primary or membership
// query. It unwraps to both ErrSourceFailure and the underlying error.
type SourceError struct {
	Op  string
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceFailure, e.Err}
}

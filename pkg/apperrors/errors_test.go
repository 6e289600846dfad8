package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRejectionError_Unwrap(t *testing.T) {
	safety := &RejectionError{Kind: RejectionSafety, Reason: "forbidden keyword found: DROP"}
	schema := &RejectionError{Kind: RejectionSchema, Reason: "unknown table referenced: X"}

	assert.ErrorIs(t, safety, ErrSafetyRejection)
	assert.NotErrorIs(t, safety, ErrSchemaMismatch)
	assert.ErrorIs(t, schema, ErrSchemaMismatch)
	assert.True(t, IsRejection(fmt.Errorf("fetch page: %w", schema)))
	assert.False(t, IsRejection(errors.New("boom")))
	assert.Equal(t, "safety rejection: forbidden keyword found: DROP", safety.Error())
}

func TestSourceError_Unwrap(t *testing.T) {
	err := &SourceError{Op: "fetch page", Err: context.DeadlineExceeded}

	assert.ErrorIs(t, err, ErrSourceFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "fetch page: context deadline exceeded", err.Error())
}

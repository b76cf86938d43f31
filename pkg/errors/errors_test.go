package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name  string
		check func(error) bool
		match error
		other error
	}{
		{"ambiguous time", IsAmbiguousTime, ErrAmbiguousTime, ErrConflict},
		{"extraction", IsExtraction, ErrExtraction, ErrTranscription},
		{"transcription", IsTranscription, ErrTranscription, ErrExtraction},
		{"storage", IsStorage, ErrStorage, ErrNotFound},
		{"conflict", IsConflict, ErrConflict, ErrStorage},
		{"not found", IsNotFound, ErrNotFound, ErrValidation},
		{"validation", IsValidation, ErrValidation, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.match), "direct match")
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.match)), "wrapped once")
			assert.True(t, tt.check(fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", tt.match))), "wrapped twice")
			assert.False(t, tt.check(tt.other), "different sentinel")
			assert.False(t, tt.check(nil), "nil error")
			assert.False(t, tt.check(errors.New("something else")), "unrelated error")
		})
	}
}

func TestRequestFailed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"extraction", fmt.Errorf("oracle: %w", ErrExtraction), true},
		{"transcription", ErrTranscription, true},
		{"storage", fmt.Errorf("put: %w", ErrStorage), true},
		{"ambiguous time is absorbed", ErrAmbiguousTime, false},
		{"conflict alone is retried", ErrConflict, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequestFailed(tt.err))
		})
	}
}

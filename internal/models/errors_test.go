package models

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"provider", &ProviderError{Part: PartIntro, Model: "m", Err: cause}, ErrCodeProvider},
		{"wrapped provider", fmt.Errorf("fan out: %w", &ProviderError{Err: cause}), ErrCodeProvider},
		{"format", &ContentFormatError{Part: PartSeed, Err: cause}, ErrCodeContentFormat},
		{"selection", &SelectionError{}, ErrCodeSelection},
		{"cancelled", &CancelledError{Err: context.Canceled}, ErrCodeCancelled},
		{"cancelled wins over provider", &CancelledError{Err: &ProviderError{Err: context.Canceled}}, ErrCodeCancelled},
		{"anything else", cause, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("connection reset")

	err := error(&ProviderError{Part: PartSides, Model: "llama", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `completion for part "sde" (model llama) failed: connection reset`, err.Error())

	assert.ErrorIs(t, &ContentFormatError{Part: PartSeed, Err: cause}, cause)
	assert.ErrorIs(t, &CancelledError{Err: context.DeadlineExceeded}, context.DeadlineExceeded)
}

func TestSelectionErrorMessage(t *testing.T) {
	assert.Equal(t, "no recipe candidates to select from", (&SelectionError{}).Error())
	assert.Equal(t, "candidate index 3 out of range [0,3)", (&SelectionError{Count: 3, Index: 3}).Error())
}

func TestIsCancellation(t *testing.T) {
	assert.True(t, IsCancellation(context.Canceled))
	assert.True(t, IsCancellation(fmt.Errorf("recv: %w", context.DeadlineExceeded)))
	assert.False(t, IsCancellation(errors.New("eof")))
	assert.False(t, IsCancellation(nil))
}
